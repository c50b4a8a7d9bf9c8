/*
Package workers provides utilities for determining optimal worker pool sizes
in containerized environments.

# Overview

When running Go applications in containers (Docker, Kubernetes, etc.), the
number of available CPUs may be limited by cgroup constraints. While Go 1.19+
automatically sets GOMAXPROCS based on container CPU limits, the commonly used
runtime.NumCPU() function still returns the host machine's CPU count.

This package provides helper functions that use GOMAXPROCS to determine
appropriate worker counts for different types of workloads, ensuring the
application respects container resource limits.

# The Problem

Consider a Kubernetes pod with a CPU limit of 2 cores running on a 64-core node:

	// Wrong: Returns 64 (host CPUs), ignores container limit
	workers := runtime.NumCPU()

	// Correct: Returns 2 (respects container limit in Go 1.19+)
	workers := runtime.GOMAXPROCS(0)

Spawning 64 workers when only 2 CPUs are available leads to excessive context
switching, CPU throttling by the container runtime, and memory pressure from
goroutine stacks.

# Basic Usage

The package provides task-specific helper functions:

	import "github.com/MTGMAD/ai-media-gallery/internal/workers"

	// For CPU-intensive tasks (image decoding, thumbnail encoding)
	// Uses 1 worker per available CPU
	numWorkers := workers.ForCPU(8) // max 8 workers

	// For I/O-bound tasks (stat checks, blob tree walks)
	// Uses 2 workers per available CPU
	numWorkers := workers.ForIO(16) // max 16 workers

	// For mixed workloads
	// Uses 1.5 workers per available CPU
	numWorkers := workers.ForMixed(12) // max 12 workers

For fine-grained control, use the Count function directly:

	// 3 workers per CPU, maximum of 24
	numWorkers := workers.Count(3.0, 24)

	// No maximum (use 0)
	numWorkers := workers.Count(2.0, 0)

# Environment Variable Override

All functions respect the GALLERY_WORKERS environment variable, allowing
operators to override the automatic calculation:

	# In Kubernetes deployment
	env:
	- name: GALLERY_WORKERS
	  value: "4"

This is useful for fine-tuning performance in specific environments and for
temporarily limiting concurrency while debugging resource issues.

# Workload Types

CPU-bound tasks (multiplier 1.0) get one worker per available CPU; more would
only add context switching. I/O-bound tasks (multiplier 2.0) spend most of
their time waiting, so extra workers keep the CPUs busy while others block on
disk or network. Mixed tasks (multiplier 1.5) sit in between, e.g. reading a
file, decoding it, and writing a derived result.

# Go Version Requirements

This package relies on Go 1.19+ behavior where GOMAXPROCS is automatically
set based on container CPU limits. On earlier Go versions, GOMAXPROCS defaults
to runtime.NumCPU(), and the container-awareness benefits are lost.
*/
package workers
