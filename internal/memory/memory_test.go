package memory

import (
	"context"
	"errors"
	"math"
	"runtime/debug"
	"sync/atomic"
	"testing"
	"time"
)

func restoreMemoryLimit(t *testing.T) {
	t.Helper()
	prev := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(prev) })
}

func TestConfigureFromEnv(t *testing.T) {
	tests := []struct {
		name       string
		limit      string
		ratio      string
		wantSource string
		wantLimit  int64
		wantRatio  float64
	}{
		{name: "nothing set", wantSource: "none"},
		{name: "garbage limit", limit: "lots", wantSource: "none"},
		{name: "negative limit", limit: "-5", wantSource: "none"},
		{name: "default ratio", limit: "1000000000", wantSource: "MEMORY_LIMIT", wantLimit: 850000000, wantRatio: DefaultMemoryRatio},
		{name: "custom ratio", limit: "1000000000", ratio: "0.5", wantSource: "MEMORY_LIMIT", wantLimit: 500000000, wantRatio: 0.5},
		{name: "ratio out of range", limit: "1000000000", ratio: "1.5", wantSource: "MEMORY_LIMIT", wantLimit: 850000000, wantRatio: DefaultMemoryRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreMemoryLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", tt.limit)
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if result.Source != tt.wantSource {
				t.Errorf("Source = %q, want %q", result.Source, tt.wantSource)
			}
			if result.GoMemLimit != tt.wantLimit {
				t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, tt.wantLimit)
			}
			if result.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", result.Ratio, tt.wantRatio)
			}
			if tt.wantLimit > 0 {
				if got := debug.SetMemoryLimit(-1); got != tt.wantLimit {
					t.Errorf("runtime limit = %d, want %d", got, tt.wantLimit)
				}
			}
		})
	}
}

func TestConfigureFromEnvRespectsGOMEMLIMIT(t *testing.T) {
	restoreMemoryLimit(t)
	debug.SetMemoryLimit(512 << 20)
	t.Setenv("GOMEMLIMIT", "512MiB")
	t.Setenv("MEMORY_LIMIT", "1000000000")

	result := ConfigureFromEnv()
	if !result.Configured || result.Source != "GOMEMLIMIT" || result.GoMemLimit != 512<<20 {
		t.Errorf("result = %+v, want GOMEMLIMIT 512MiB", result)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{850 << 20, "850.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func newTestMonitor(limit int64, alloc *atomic.Uint64) *Monitor {
	m := NewMonitor(Config{
		LimitBytes:        limit,
		HighWaterMark:     0.5,
		CriticalWaterMark: 0.8,
		CheckInterval:     time.Hour,
	})
	m.readAlloc = alloc.Load
	return m
}

func TestMonitorPausesAndResumes(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)

	alloc.Store(900)
	m.checkMemory()
	if !m.Paused() {
		t.Fatal("monitor should pause at 90% usage")
	}
	if got := m.Usage(); got != 0.9 {
		t.Errorf("Usage() = %v, want 0.9", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() while paused = %v, want deadline exceeded", err)
	}

	// Between the water marks the monitor stays paused.
	alloc.Store(600)
	m.checkMemory()
	if !m.Paused() {
		t.Error("monitor should stay paused above the high water mark")
	}

	waited := make(chan error, 1)
	go func() { waited <- m.Wait(context.Background()) }()

	alloc.Store(100)
	m.checkMemory()
	select {
	case err := <-waited:
		if err != nil {
			t.Errorf("Wait() after resume = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait() did not return after memory recovered")
	}
	if m.Paused() {
		t.Error("monitor should resume below the high water mark")
	}
}

func TestMonitorStopReleasesWaiters(t *testing.T) {
	var alloc atomic.Uint64
	m := newTestMonitor(1000, &alloc)
	m.Start()

	alloc.Store(1000)
	m.checkMemory()

	waited := make(chan error, 1)
	go func() { waited <- m.Wait(context.Background()) }()

	m.Stop()
	m.Stop()
	select {
	case err := <-waited:
		if err != nil {
			t.Errorf("Wait() after Stop = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Stop() did not release Wait()")
	}
}

func TestMonitorWithoutLimit(t *testing.T) {
	restoreMemoryLimit(t)
	debug.SetMemoryLimit(math.MaxInt64)

	m := NewMonitor(DefaultConfig())
	m.Start()
	defer m.Stop()

	if m.Usage() != 0 || m.Paused() {
		t.Error("monitor without a limit should never pause")
	}
	if err := m.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() with cancelled ctx = %v, want context.Canceled", err)
	}
}
