package metrics

import (
	"time"

	"photo-recovery/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current inventory of the session registry.
type Stats struct {
	Processing     int
	Completed      int
	Failed         int
	PhotosStored   int
	ExtractedBytes int64
	ThumbnailBytes int64
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
	doneChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
		doneChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	close(c.stopChan)
	<-c.doneChan
}

func (c *Collector) collectLoop() {
	defer close(c.doneChan)

	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	SessionsTracked.WithLabelValues("processing").Set(float64(stats.Processing))
	SessionsTracked.WithLabelValues("completed").Set(float64(stats.Completed))
	SessionsTracked.WithLabelValues("failed").Set(float64(stats.Failed))
	PhotosStored.Set(float64(stats.PhotosStored))
	StorageBytes.WithLabelValues("extracted").Set(float64(stats.ExtractedBytes))
	StorageBytes.WithLabelValues("thumbnails").Set(float64(stats.ThumbnailBytes))

	logging.Debug("Metrics collected: processing=%d, completed=%d, failed=%d, photos=%d",
		stats.Processing, stats.Completed, stats.Failed, stats.PhotosStored)
}
