// Package memory provides memory management utilities for controlling Go's
// runtime memory usage in containerized environments.
//
// # Overview
//
// When running in Kubernetes or other container orchestrators, Go applications
// can be OOM-killed if they exceed their memory limits. Unlike GOMAXPROCS,
// which Go automatically detects from cgroup CPU limits, GOMEMLIMIT must be
// configured explicitly.
//
// This package provides utilities to:
//   - Configure GOMEMLIMIT from Kubernetes Downward API environment variables
//   - Reserve memory for non-heap allocations (libvips, CGO, goroutine stacks)
//   - Monitor memory usage and provide backpressure signals
//
// # Configuration
//
// Call [ConfigureFromEnv] early in main, before any significant allocations:
//
//	func main() {
//	    memory.ConfigureFromEnv()
//	    // ... rest of application
//	}
//
// # Environment Variables
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, takes precedence
//     over all other configuration. Accepts values like "400MiB" or "1GiB".
//
//   - MEMORY_LIMIT: Container memory limit in bytes. Typically set via
//     Kubernetes Downward API. This is the raw value from which GOMEMLIMIT
//     is calculated.
//
//   - MEMORY_RATIO: Percentage of MEMORY_LIMIT to use for Go heap, expressed
//     as a decimal between 0.0 and 1.0. Default is 0.85 (85%). Lower this
//     value if significant CGO memory is expected, e.g. when libvips handles
//     large source images.
//
// # Kubernetes Configuration
//
// To pass the container memory limit to the application, use the Kubernetes
// Downward API in the deployment manifest:
//
//	spec:
//	  containers:
//	  - name: gallery
//	    resources:
//	      limits:
//	        memory: "512Mi"
//	    env:
//	    - name: MEMORY_LIMIT
//	      valueFrom:
//	        resourceFieldRef:
//	          resource: limits.memory
//	    - name: MEMORY_RATIO
//	      value: "0.80"  # Optional, reserve 20% for libvips
//
// # How GOMEMLIMIT Works
//
// GOMEMLIMIT (introduced in Go 1.19) sets a soft memory limit for the Go
// runtime. When heap allocations approach this limit, the garbage collector
// runs more aggressively to try to stay under it.
//
// Important notes:
//
//   - GOMEMLIMIT is a soft limit. Go may temporarily exceed it if the GC
//     cannot free memory fast enough.
//
//   - GOMEMLIMIT only affects Go heap allocations. It does not limit memory
//     used by CGO or child processes.
//
//   - Setting GOMEMLIMIT too high risks OOM kills. Setting it too low causes
//     excessive GC overhead.
//
// # Memory Monitoring
//
// For background work that buffers whole media payloads in memory, use the
// [Monitor] type for backpressure:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//
//	// In worker loops:
//	if !monitor.WaitIfPaused() {
//	    return // shutdown signal received
//	}
//	// ... decode or buffer a payload
//
// The monitor pauses work when heap usage crosses the critical water mark and
// resumes it once usage drops below the high water mark.
//
// # References
//
//   - Go 1.19 Release Notes (GOMEMLIMIT): https://go.dev/doc/go1.19
//   - GC Guide: https://go.dev/doc/gc-guide
//   - Kubernetes Downward API: https://kubernetes.io/docs/concepts/workloads/pods/downward-api/
package memory
