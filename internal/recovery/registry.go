package recovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"photo-recovery/internal/archive"
	"photo-recovery/internal/filesystem"
	"photo-recovery/internal/logging"
	"photo-recovery/internal/media"
	"photo-recovery/internal/metrics"
	"photo-recovery/internal/repair"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	sessionIDPrefix = "recovery_"
	persistTimeout  = 10 * time.Second
)

// Store persists terminal sessions.
type Store interface {
	SaveSession(ctx context.Context, s *Session) error
	LoadSessions(ctx context.Context) ([]*Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Throttle delays entry processing while the process is short of memory.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Options configures a Registry.
type Options struct {
	// ExtractDir holds one working directory per session.
	ExtractDir string
	// ThumbnailDir holds one thumbnail directory per session.
	ThumbnailDir string

	MaxEntrySize  int64
	MaxConcurrent int
	Repair        repair.Config

	ThumbnailSize    int
	ThumbnailQuality int
	CacheSize        int
	CacheTTL         time.Duration

	// Store is optional. When set, terminal sessions are saved to it.
	Store Store
	// Throttle is optional. It is consulted before every entry.
	Throttle Throttle
}

type sessionState struct {
	mu       sync.RWMutex
	session  Session
	cancel   context.CancelFunc
	done     chan struct{}
	workDir  string
	thumbDir string
}

func (st *sessionState) snapshot() *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.session.clone()
}

func (st *sessionState) update(fn func(s *Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.session)
}

// Registry is the concurrency-safe set of recovery sessions.
type Registry struct {
	opts Options

	mu       sync.RWMutex
	sessions map[string]*sessionState
	closed   bool

	slots  *semaphore.Weighted
	engine *repair.Engine
	thumbs *media.ThumbnailGenerator
	cache  *thumbnailCache

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates the session directories and an empty registry.
func NewRegistry(opts Options) (*Registry, error) {
	if opts.ExtractDir == "" || opts.ThumbnailDir == "" {
		return nil, errors.New("extract and thumbnail directories are required")
	}
	for _, dir := range []string{opts.ExtractDir, opts.ThumbnailDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		opts:     opts,
		sessions: make(map[string]*sessionState),
		slots:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		engine:   repair.NewEngine(opts.Repair),
		thumbs:   media.NewThumbnailGenerator(opts.ThumbnailSize, opts.ThumbnailQuality),
		cache:    newThumbnailCache(opts.CacheSize, opts.CacheTTL),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Restore loads persisted sessions. Restored sessions keep their terminal
// status; sessions already in memory are left untouched.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	if r.opts.Store == nil {
		return 0, nil
	}

	sessions, err := r.opts.Store.LoadSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load sessions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, s := range sessions {
		if _, exists := r.sessions[s.ID]; exists || !s.Status.Terminal() {
			continue
		}
		done := make(chan struct{})
		close(done)
		r.sessions[s.ID] = &sessionState{
			session:  *s.clone(),
			cancel:   func() {},
			done:     done,
			workDir:  filepath.Join(r.opts.ExtractDir, s.ID),
			thumbDir: filepath.Join(r.opts.ThumbnailDir, s.ID),
		}
		restored++
	}
	return restored, nil
}

// Start registers a new session for the archive and begins extraction in
// the background. It returns as soon as the session directories exist.
func (r *Registry) Start(sourceName string, data []byte) (string, error) {
	id := sessionIDPrefix + uuid.NewString()
	st := &sessionState{
		session: Session{
			ID:         id,
			SourceName: sourceName,
			Status:     StatusProcessing,
			StartedAt:  time.Now().UTC(),
			Entries:    []PhotoFile{},
			Log:        []string{},
		},
		done:     make(chan struct{}),
		workDir:  filepath.Join(r.opts.ExtractDir, id),
		thumbDir: filepath.Join(r.opts.ThumbnailDir, id),
	}

	for _, dir := range []string{st.workDir, st.thumbDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			_ = os.RemoveAll(st.workDir)
			_ = os.RemoveAll(st.thumbDir)
			return "", fmt.Errorf("create session directory: %w", err)
		}
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = os.RemoveAll(st.workDir)
		_ = os.RemoveAll(st.thumbDir)
		return "", ErrRegistryClosed
	}
	ctx, cancel := context.WithCancel(r.ctx)
	st.cancel = cancel
	r.sessions[id] = st
	r.wg.Add(1)
	r.mu.Unlock()

	x := &extractor{
		id:           id,
		state:        st,
		engine:       r.engine,
		thumbs:       r.thumbs,
		maxEntrySize: r.opts.MaxEntrySize,
		throttle:     r.opts.Throttle,
	}
	x.logf("Started recovery session for %s", sourceName)
	logging.Info("Recovery session %s started for %s (%d bytes)", id, sourceName, len(data))
	metrics.SessionsStarted.Inc()

	go r.run(ctx, x, data)
	return id, nil
}

func (r *Registry) run(ctx context.Context, x *extractor, data []byte) {
	defer r.wg.Done()
	defer close(x.state.done)
	defer x.state.cancel()

	metrics.SessionsWaiting.Inc()
	err := r.slots.Acquire(ctx, 1)
	metrics.SessionsWaiting.Dec()
	if err != nil {
		x.finish(StatusFailed, "Recovery cancelled")
	} else {
		metrics.SessionsActive.Inc()
		x.run(ctx, data)
		metrics.SessionsActive.Dec()
		r.slots.Release(1)
	}

	final := x.state.snapshot()
	metrics.SessionsFinished.WithLabelValues(string(final.Status)).Inc()
	metrics.SessionDuration.Observe(time.Since(final.StartedAt).Seconds())
	logging.Info("Recovery session %s %s: %d entries, %d images, %d recovered, %d corrupted",
		final.ID, final.Status, final.TotalEntries, final.ImagesFound, final.RecoveredCount, final.CorruptedCount)

	r.persist(final)
}

func (r *Registry) persist(s *Session) {
	if r.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.opts.Store.SaveSession(ctx, s); err != nil {
		logging.Warn("Failed to persist session %s: %v", s.ID, err)
	}
}

func (r *Registry) lookup(id string) (*sessionState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return st, nil
}

// Get returns a snapshot of the session.
func (r *Registry) Get(id string) (*Session, error) {
	st, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return st.snapshot(), nil
}

// List returns snapshots of every session, oldest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	states := make([]*sessionState, 0, len(r.sessions))
	for _, st := range r.sessions {
		states = append(states, st)
	}
	r.mu.RUnlock()

	out := make([]*Session, 0, len(states))
	for _, st := range states {
		out = append(out, st.snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Wait blocks until the session is terminal or ctx is done.
func (r *Registry) Wait(ctx context.Context, id string) (*Session, error) {
	st, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	select {
	case <-st.done:
		return st.snapshot(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops an in-flight extraction. The session ends Failed once the
// current entry finishes. Cancelling a terminal session is a no-op.
func (r *Registry) Cancel(id string) error {
	st, err := r.lookup(id)
	if err != nil {
		return err
	}
	st.cancel()
	return nil
}

// Cleanup cancels the session if needed, removes its directories and
// forgets it. Unknown ids are a no-op.
func (r *Registry) Cleanup(ctx context.Context, id string) error {
	st, err := r.lookup(id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}

	st.cancel()
	select {
	case <-st.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	for _, dir := range []string{st.workDir, st.thumbDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}

	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
	r.cache.purge(id)

	if r.opts.Store != nil {
		if err := r.opts.Store.DeleteSession(ctx, id); err != nil {
			logging.Warn("Failed to delete persisted session %s: %v", id, err)
		}
	}

	logging.Info("Cleaned up recovery session %s", id)
	return nil
}

// Thumbnail returns the rendered preview of an entry. name is normally the
// entry's PhotoFile.Name; its original archive path is accepted too.
func (r *Registry) Thumbnail(id, name string) ([]byte, error) {
	st, err := r.lookup(id)
	if err != nil {
		return nil, err
	}

	st.mu.RLock()
	entry, ok := st.session.resolveEntry(name)
	var ref string
	if ok {
		name = entry.Name
		ref = entry.ThumbnailRef
	}
	st.mu.RUnlock()
	if ref == "" {
		return nil, ErrThumbnailNotFound
	}

	if data, ok := r.cache.get(id, name); ok {
		return data, nil
	}

	data, err := filesystem.ReadFileWithRetry(filepath.Join(st.thumbDir, ref))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrThumbnailNotFound
		}
		return nil, fmt.Errorf("read thumbnail: %w", err)
	}
	r.cache.set(id, name, data)
	return data, nil
}

// Download writes a zip of the session's working directory to w.
func (r *Registry) Download(ctx context.Context, id string, w io.Writer) error {
	st, err := r.lookup(id)
	if err != nil {
		return err
	}

	st.mu.RLock()
	status := st.session.Status
	st.mu.RUnlock()
	if !status.Terminal() {
		return ErrSessionProcessing
	}

	if _, err := os.Stat(st.workDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrSessionCleanedUp
		}
		return err
	}
	return archive.Pack(ctx, st.workDir, w)
}

// Close cancels every running session and waits for them to finish.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetStats summarizes the retained sessions for the metrics collector.
func (r *Registry) GetStats() metrics.Stats {
	var stats metrics.Stats
	for _, s := range r.List() {
		switch s.Status {
		case StatusProcessing:
			stats.Processing++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		}
		for _, e := range s.Entries {
			if e.RecoveryStatus == EntryIntact || e.RecoveryStatus == EntryRecovered {
				stats.PhotosStored++
			}
		}
	}
	stats.ExtractedBytes = dirSize(r.opts.ExtractDir)
	stats.ThumbnailBytes = dirSize(r.opts.ThumbnailDir)
	return stats
}

func dirSize(root string) int64 {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			// Sessions may be cleaned up mid-walk.
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	if err != nil {
		logging.Debug("Failed to size %s: %v", root, err)
	}
	return total
}
