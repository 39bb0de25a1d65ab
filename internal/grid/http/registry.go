package gridhttp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/listgrid/internal/grid"
	"github.com/odyssey-erp/listgrid/internal/platform/httpx"
)

// Session is one open grid and the toasts it raised since the last response.
type Session struct {
	ID         string
	Definition string
	Grid       *grid.Grid
	Toasts     *grid.ToastQueue

	lastUsed time.Time
}

// RegistryOptions bounds the registry.
type RegistryOptions struct {
	IdleTTL time.Duration
	MaxOpen int
	Logger  *slog.Logger
	OnOpen  func()
	OnClose func()
	Now     func() time.Time
}

// Registry keeps grid sessions in memory and expires idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     RegistryOptions
}

// NewRegistry builds an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.MaxOpen <= 0 {
		opts.MaxOpen = 1000
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Registry{sessions: make(map[string]*Session), opts: opts}
}

// Open registers a new session and returns it.
func (r *Registry) Open(definition string, g *grid.Grid, toasts *grid.ToastQueue) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.opts.Now()
	if len(r.sessions) >= r.opts.MaxOpen {
		r.sweepLocked(now)
	}
	if len(r.sessions) >= r.opts.MaxOpen {
		return nil, fmt.Errorf("%w: %d grids already open", httpx.ErrConflict, len(r.sessions))
	}
	s := &Session{ID: uuid.NewString(), Definition: definition, Grid: g, Toasts: toasts, lastUsed: now}
	r.sessions[s.ID] = s
	if r.opts.OnOpen != nil {
		r.opts.OnOpen()
	}
	return s, nil
}

// Get returns the session and marks it used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("grid %s: %w", id, httpx.ErrNotFound)
	}
	s.lastUsed = r.opts.Now()
	return s, nil
}

// Close forgets the session.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return fmt.Errorf("grid %s: %w", id, httpx.ErrNotFound)
	}
	r.removeLocked(id)
	return nil
}

// Len reports the open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.opts.Now())
}

func (r *Registry) sweepLocked(now time.Time) int {
	n := 0
	for id, s := range r.sessions {
		if now.Sub(s.lastUsed) > r.opts.IdleTTL {
			r.removeLocked(id)
			n++
		}
	}
	return n
}

func (r *Registry) removeLocked(id string) {
	delete(r.sessions, id)
	if r.opts.OnClose != nil {
		r.opts.OnClose()
	}
}

// Run sweeps idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.opts.Logger.Info("expired idle grids", slog.Int("count", n))
			}
		}
	}
}
