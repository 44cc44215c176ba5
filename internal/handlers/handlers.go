package handlers

import (
	"context"
	"time"

	"photo-recovery/internal/recovery"
	"photo-recovery/internal/startup"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	registry      *recovery.Registry
	store         Pinger
	maxUploadSize int64
	startTime     time.Time
}

// New builds the handlers. store may be nil when persistence is disabled.
func New(registry *recovery.Registry, store Pinger, config *startup.Config) *Handlers {
	return &Handlers{
		registry:      registry,
		store:         store,
		maxUploadSize: config.MaxUploadSize,
		startTime:     time.Now(),
	}
}
