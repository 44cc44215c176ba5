package repair

import (
	"bytes"
	"errors"
	"time"

	"photo-recovery/internal/media"
	"photo-recovery/internal/metrics"
)

// ErrRecoveryExhausted is returned when no strategy produced a decodable image.
var ErrRecoveryExhausted = errors.New("no recovery possible")

// Strategy names the heuristic that produced a Result.
type Strategy string

const (
	StrategyOffsetScan   Strategy = "offset_scan"
	StrategyJPEGBoundary Strategy = "jpeg_boundary"
	StrategyPNGSignature Strategy = "png_signature"
)

var (
	jpegSOI  = []byte{0xFF, 0xD8, 0xFF}
	jpegEOI  = []byte{0xFF, 0xD9}
	pngMagic = []byte{0x89, 0x50, 0x4E, 0x47}
)

// Config bounds the offset scan.
type Config struct {
	// ScanLimit is the exclusive upper bound on the number of bytes dropped.
	ScanLimit int
	// ScanStep is the distance between tried offsets.
	ScanStep int
	// MinSize is the buffer length at or below which the scan is skipped.
	MinSize int
}

// DefaultConfig tries offsets 0, 4, ..., 508 on buffers over 1KB.
func DefaultConfig() Config {
	return Config{
		ScanLimit: 512,
		ScanStep:  4,
		MinSize:   1024,
	}
}

// ProbeFunc reads image metadata, failing when data is not a valid image.
type ProbeFunc func(data []byte) (*media.Metadata, error)

// Result is a successfully repaired buffer.
type Result struct {
	// Data is a subslice of the input.
	Data     []byte
	Metadata *media.Metadata
	Strategy Strategy
	// Offset is the position in the input where Data starts.
	Offset int
}

// Engine runs the repair strategies. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	config Config
	probe  ProbeFunc
}

// NewEngine creates an engine that validates candidates with media.Probe.
// Zero or negative config fields take their defaults.
func NewEngine(config Config) *Engine {
	return NewEngineWithProbe(config, media.Probe)
}

// NewEngineWithProbe creates an engine with a custom validation function.
func NewEngineWithProbe(config Config, probe ProbeFunc) *Engine {
	defaults := DefaultConfig()
	if config.ScanLimit <= 0 {
		config.ScanLimit = defaults.ScanLimit
	}
	if config.ScanStep <= 0 {
		config.ScanStep = defaults.ScanStep
	}
	if config.MinSize < 0 {
		config.MinSize = defaults.MinSize
	}
	return &Engine{config: config, probe: probe}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Repair tries each strategy in order and returns the first success.
func (e *Engine) Repair(data []byte) (*Result, error) {
	start := time.Now()

	strategies := []struct {
		name Strategy
		fn   func([]byte) *Result
	}{
		{StrategyOffsetScan, e.offsetScan},
		{StrategyJPEGBoundary, e.jpegBoundary},
		{StrategyPNGSignature, e.pngSignature},
	}

	for _, s := range strategies {
		if result := s.fn(data); result != nil {
			metrics.RepairAttempts.WithLabelValues(string(s.name), "success").Inc()
			metrics.RepairDuration.WithLabelValues("recovered").Observe(time.Since(start).Seconds())
			return result, nil
		}
		metrics.RepairAttempts.WithLabelValues(string(s.name), "miss").Inc()
	}

	metrics.RepairDuration.WithLabelValues("exhausted").Observe(time.Since(start).Seconds())
	return nil, ErrRecoveryExhausted
}

func (e *Engine) attempt(data []byte, offset int, strategy Strategy) *Result {
	meta, err := e.probe(data)
	if err != nil {
		return nil
	}
	return &Result{Data: data, Metadata: meta, Strategy: strategy, Offset: offset}
}

// offsetScan drops the first k bytes for k = 0, step, 2*step, ... < limit.
func (e *Engine) offsetScan(data []byte) *Result {
	if len(data) <= e.config.MinSize {
		return nil
	}
	for k := 0; k < e.config.ScanLimit && k < len(data); k += e.config.ScanStep {
		if result := e.attempt(data[k:], k, StrategyOffsetScan); result != nil {
			return result
		}
	}
	return nil
}

func (e *Engine) jpegBoundary(data []byte) *Result {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		return nil
	}
	end := bytes.LastIndex(data, jpegEOI)
	if end <= start {
		return nil
	}
	return e.attempt(data[start:end+len(jpegEOI)], start, StrategyJPEGBoundary)
}

func (e *Engine) pngSignature(data []byte) *Result {
	start := bytes.Index(data, pngMagic)
	if start < 0 {
		return nil
	}
	return e.attempt(data[start:], start, StrategyPNGSignature)
}
