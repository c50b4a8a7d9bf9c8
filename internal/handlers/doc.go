// Package handlers provides HTTP request handlers for the gallery API.
//
// It includes handlers for:
//   - Media upload, listing, search, and item CRUD
//   - Thumbnail and original file serving
//   - Reconciliation scans and orphan cleanup
//   - Storage reclaim passes
//   - Database export and import
//   - Health checks, stats, and version info
package handlers
