package metrics

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStats struct {
	calls atomic.Int32
	stats Stats
}

func (f *fakeStats) GetStats() Stats {
	f.calls.Add(1)
	return f.stats
}

func TestCollectorPublishesStats(t *testing.T) {
	provider := &fakeStats{stats: Stats{
		Processing:     1,
		Completed:      3,
		Failed:         2,
		PhotosStored:   17,
		ExtractedBytes: 4096,
		ThumbnailBytes: 512,
	}}

	c := NewCollector(provider, time.Hour)
	c.Start()
	c.Stop()

	if provider.calls.Load() != 1 {
		t.Errorf("GetStats called %d times, want 1 immediate collection", provider.calls.Load())
	}

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"processing", testutil.ToFloat64(SessionsTracked.WithLabelValues("processing")), 1},
		{"completed", testutil.ToFloat64(SessionsTracked.WithLabelValues("completed")), 3},
		{"failed", testutil.ToFloat64(SessionsTracked.WithLabelValues("failed")), 2},
		{"photos", testutil.ToFloat64(PhotosStored), 17},
		{"extracted bytes", testutil.ToFloat64(StorageBytes.WithLabelValues("extracted")), 4096},
		{"thumbnail bytes", testutil.ToFloat64(StorageBytes.WithLabelValues("thumbnails")), 512},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectorNilProvider(t *testing.T) {
	c := NewCollector(nil, time.Millisecond)
	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Stop()
}
