// Package blobstore stores media bytes on a local filesystem tree
// partitioned by media kind and upload date.
//
// Every path crossing the package boundary uses one canonical
// representation: forward slashes, no leading slash, relative to the
// store root (e.g. "image/2025-06-01/1717200000000_cat.png").
// OS-native separators never leak out of this package, which keeps
// path comparison in the reconciliation engine a plain string match.
package blobstore
