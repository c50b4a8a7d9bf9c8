package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv("GALLERY_WORKERS", "")

	available := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		wantMax    int
	}{
		{"CPU-bound", 1.0, 0, available},
		{"I/O-bound", 2.0, 0, available * 2},
		{"mixed", 1.5, 0, int(float64(available) * 1.5)},
		{"limit below calculated", 2.0, 2, 2},
		{"tiny multiplier floors at one", 0.1, 0, available},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, must be at least 1", tt.multiplier, tt.limit, got)
			}
			if got > tt.wantMax {
				t.Errorf("Count(%v, %d) = %d, want <= %d", tt.multiplier, tt.limit, got, tt.wantMax)
			}
		})
	}
}

func TestCountEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		want     int // -1 means fall back to the calculated value
	}{
		{"valid override", "8", 0, 8},
		{"override capped by limit", "20", 10, 10},
		{"override below limit", "5", 10, 5},
		{"non-numeric ignored", "invalid", 0, -1},
		{"zero ignored", "0", 0, -1},
		{"negative ignored", "-5", 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GALLERY_WORKERS", tt.envValue)

			got := Count(1.0, tt.limit)
			if tt.want == -1 {
				if got < 1 {
					t.Errorf("Count with ignored override = %d, want >= 1", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("Count(1.0, %d) with GALLERY_WORKERS=%s = %d, want %d",
					tt.limit, tt.envValue, got, tt.want)
			}
		})
	}
}

func TestHelpers(t *testing.T) {
	t.Setenv("GALLERY_WORKERS", "")

	available := runtime.GOMAXPROCS(0)

	if got := ForCPU(0); got != available {
		t.Errorf("ForCPU(0) = %d, want %d", got, available)
	}
	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
	if got := ForIO(0); got != available*2 {
		t.Errorf("ForIO(0) = %d, want %d", got, available*2)
	}
	if got := ForIO(3); got > 3 {
		t.Errorf("ForIO(3) = %d, exceeds limit", got)
	}
	if got := ForMixed(0); got != int(float64(available)*1.5) {
		t.Errorf("ForMixed(0) = %d, want %d", got, int(float64(available)*1.5))
	}
}

func TestCountBoundaries(t *testing.T) {
	t.Setenv("GALLERY_WORKERS", "")

	tests := []struct {
		name       string
		multiplier float64
		limit      int
	}{
		{"zero multiplier", 0.0, 0},
		{"negative multiplier", -1.0, 0},
		{"very high multiplier", 100.0, 0},
		{"very high limit", 1.0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, must be at least 1", tt.multiplier, tt.limit, got)
			}
			if tt.limit > 0 && got > tt.limit {
				t.Errorf("Count(%v, %d) = %d, exceeds limit", tt.multiplier, tt.limit, got)
			}
		})
	}
}

func BenchmarkCount(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Count(1.5, 10)
	}
}
