// Package ingest coordinates the dual write that catalogues a new
// media file: bytes to the blob store, then a record to the metadata
// store.
//
// The two stores fail independently, so the coordinator guarantees
// at-most-one durable copy of the bytes on any successful return:
// either a blob file referenced by ServerPath, or an inline payload in
// the record when the blob write failed. A metadata failure after a
// successful blob write triggers a compensating delete; if that delete
// itself fails the residual orphan is left for the reconciliation
// engine to find.
package ingest
