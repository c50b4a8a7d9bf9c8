// Package middleware provides HTTP middleware for the gallery server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Response compression (gzip)
//   - Prometheus request metrics with low-cardinality path labels
//   - Configurable filtering for static files and health checks
package middleware
