// Package reconcile audits the blob tree against the metadata store.
//
// The two stores drift when a crash or a failed compensating delete
// leaves a file with no record, or when files are removed out of band
// and leave a record pointing at nothing. A scan reports both kinds of
// drift plus an integrity score; cleanup removes orphan files one at a
// time so a single bad path cannot stop the pass.
package reconcile
