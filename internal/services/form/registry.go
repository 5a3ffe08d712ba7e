// File: internal/services/form/registry.go
package form

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iyunix/go-loanform/internal/services"
)

// ErrFormNotFound is returned for unknown, evicted or foreign form ids.
var ErrFormNotFound = errors.New("form: instance not found")

// Factory builds an uninitialized form instance for a client.
type Factory func(id, owner string) *Controller

type entry struct {
	ctrl     *Controller
	owner    string
	lastSeen time.Time
}

// Registry holds the open form instances. An instance that sees no events
// for the idle timeout is dropped together with its OTP session, like a
// closed page.
type Registry struct {
	mu      sync.Mutex
	forms   map[string]*entry
	factory Factory
	idle    time.Duration
	now     func() time.Time
	logger  services.Logger
}

func NewRegistry(factory Factory, idle time.Duration, logger services.Logger) *Registry {
	return &Registry{
		forms:   make(map[string]*entry),
		factory: factory,
		idle:    idle,
		now:     time.Now,
		logger:  logger,
	}
}

// Open creates and initializes a form for owner.
func (r *Registry) Open(ctx context.Context, owner string) (*Controller, error) {
	id := uuid.NewString()
	ctrl := r.factory(id, owner)
	if err := ctrl.Init(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.forms[id] = &entry{ctrl: ctrl, owner: owner, lastSeen: r.now()}
	r.mu.Unlock()

	r.logger.Info("form opened", "form_id", id, "owner", owner)
	return ctrl, nil
}

// Get returns the form if it exists and belongs to owner, refreshing its idle timer.
func (r *Registry) Get(id, owner string) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.forms[id]
	if !ok || e.owner != owner {
		return nil, ErrFormNotFound
	}
	e.lastSeen = r.now()
	return e.ctrl, nil
}

func (r *Registry) Close(id string) {
	r.mu.Lock()
	delete(r.forms, id)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.forms)
}

// EvictIdle drops the forms idle for longer than the timeout and returns how many went.
func (r *Registry) EvictIdle() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for id, e := range r.forms {
		if e.lastSeen.Before(cutoff) {
			delete(r.forms, id)
			evicted++
		}
	}
	if evicted > 0 {
		r.logger.Debug("evicted idle forms", "count", evicted, "remaining", len(r.forms))
	}
	return evicted
}

// Run evicts idle forms periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r.idle <= 0 {
		return
	}
	interval := r.idle / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.EvictIdle()
		}
	}
}
