// Package reclaim shrinks records that still carry full inline image
// payloads from before server-side storage existed, or from degraded
// ingests that were later repaired. Once a record has a server path
// the inline copy is redundant and is replaced with a small thumbnail.
package reclaim
