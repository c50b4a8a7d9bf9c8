// Package metrics defines the Prometheus collectors exported by the
// AI media gallery.
//
// Collectors are registered at package load via promauto and cover:
//   - HTTP request counts and latencies
//   - Metadata store query counts and latencies
//   - Blob store operations and retries
//   - Ingest outcomes (success, fallback, rollback, failure)
//   - Reconciliation results and integrity score
//   - Storage reclaim results
package metrics
