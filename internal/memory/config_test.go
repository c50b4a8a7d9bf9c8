package memory

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MemoryLimitBytes != 0 {
		t.Errorf("MemoryLimitBytes = %d, want 0 (defer to GOMEMLIMIT)", cfg.MemoryLimitBytes)
	}
	if cfg.HighWaterMark != 0.7 {
		t.Errorf("HighWaterMark = %f, want 0.7", cfg.HighWaterMark)
	}
	if cfg.CriticalWaterMark != 0.85 {
		t.Errorf("CriticalWaterMark = %f, want 0.85", cfg.CriticalWaterMark)
	}
	if cfg.HighWaterMark >= cfg.CriticalWaterMark {
		t.Error("HighWaterMark must stay below CriticalWaterMark")
	}
	if cfg.CheckInterval != 5*time.Second {
		t.Errorf("CheckInterval = %v, want 5s", cfg.CheckInterval)
	}
}
