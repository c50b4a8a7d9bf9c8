package memory

import (
	"runtime/debug"
	"testing"
)

// clearMemoryEnv blanks the three configuration variables for one test.
// Empty values are treated the same as unset by ConfigureFromEnv.
func clearMemoryEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")
	t.Setenv("MEMORY_RATIO", "")
}

func TestConfigureFromEnvNoVariables(t *testing.T) {
	clearMemoryEnv(t)

	result := ConfigureFromEnv()

	if result.Configured {
		t.Error("expected Configured to be false with no env vars set")
	}
	if result.Source != "none" {
		t.Errorf("Source = %q, want %q", result.Source, "none")
	}
	if result.ContainerLimit != 0 || result.GoMemLimit != 0 || result.Ratio != 0 {
		t.Errorf("expected zero-value result, got %+v", result)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	clearMemoryEnv(t)
	t.Setenv("MEMORY_LIMIT", "1073741824") // 1 GiB
	defer debug.SetMemoryLimit(-1)

	result := ConfigureFromEnv()

	if !result.Configured {
		t.Fatal("expected Configured to be true when MEMORY_LIMIT is set")
	}
	if result.Source != "MEMORY_LIMIT" {
		t.Errorf("Source = %q, want %q", result.Source, "MEMORY_LIMIT")
	}
	if result.ContainerLimit != 1073741824 {
		t.Errorf("ContainerLimit = %d, want 1073741824", result.ContainerLimit)
	}
	if result.Ratio != DefaultMemoryRatio {
		t.Errorf("Ratio = %f, want default %f", result.Ratio, DefaultMemoryRatio)
	}

	limit := int64(1073741824)
	want := int64(float64(limit) * DefaultMemoryRatio)
	if result.GoMemLimit != want {
		t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, want)
	}
}

func TestConfigureFromEnvCustomRatio(t *testing.T) {
	clearMemoryEnv(t)
	t.Setenv("MEMORY_LIMIT", "2147483648") // 2 GiB
	t.Setenv("MEMORY_RATIO", "0.75")
	defer debug.SetMemoryLimit(-1)

	result := ConfigureFromEnv()

	if !result.Configured {
		t.Fatal("expected Configured to be true")
	}
	if result.Ratio != 0.75 {
		t.Errorf("Ratio = %f, want 0.75", result.Ratio)
	}
	want := int64(float64(2147483648) * 0.75)
	if result.GoMemLimit != want {
		t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, want)
	}
}

func TestConfigureFromEnvGOMEMLIMITPrecedence(t *testing.T) {
	clearMemoryEnv(t)
	t.Setenv("GOMEMLIMIT", "500MiB")
	t.Setenv("MEMORY_LIMIT", "1073741824")

	old := debug.SetMemoryLimit(500 * 1024 * 1024)
	defer debug.SetMemoryLimit(old)

	result := ConfigureFromEnv()

	// The env var is only read by the runtime at startup, so the function
	// reports whatever limit is currently in effect.
	if result.Configured && result.Source != "GOMEMLIMIT" {
		t.Errorf("Source = %q, want %q", result.Source, "GOMEMLIMIT")
	}
	if result.ContainerLimit != 0 {
		t.Error("MEMORY_LIMIT must be ignored when GOMEMLIMIT is present")
	}
}

func TestConfigureFromEnvInvalidMemoryLimit(t *testing.T) {
	clearMemoryEnv(t)
	t.Setenv("MEMORY_LIMIT", "not-a-number")

	result := ConfigureFromEnv()

	if result.Configured {
		t.Error("expected Configured to be false for unparseable MEMORY_LIMIT")
	}
	if result.Source != "none" {
		t.Errorf("Source = %q, want %q", result.Source, "none")
	}
}

func TestConfigureFromEnvInvalidRatioFallsBack(t *testing.T) {
	tests := []struct {
		name      string
		ratio     string
		wantRatio float64
	}{
		{"not a number", "not-a-number", DefaultMemoryRatio},
		{"zero", "0", DefaultMemoryRatio},
		{"negative", "-0.5", DefaultMemoryRatio},
		{"above one", "1.5", DefaultMemoryRatio},
		{"boundary 1.0", "1.0", 1.0},
		{"near zero", "0.01", 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearMemoryEnv(t)
			t.Setenv("MEMORY_LIMIT", "1073741824")
			t.Setenv("MEMORY_RATIO", tt.ratio)
			defer debug.SetMemoryLimit(-1)

			result := ConfigureFromEnv()

			if !result.Configured {
				t.Fatal("expected Configured to be true even with a bad ratio")
			}
			if result.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %f, want %f", result.Ratio, tt.wantRatio)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1048576, "1.0 MiB"},
		{1073741824, "1.0 GiB"},
		{1610612736, "1.5 GiB"},
		{1099511627776, "1.0 TiB"},
		{123456789012, "115.0 GiB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.bytes); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

func BenchmarkFormatBytes(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = formatBytes(1234567890)
	}
}
