// Package claims coordinates exclusive ownership of work items across
// competing workers. A claim is a lease: acquired atomically against the
// backing store, honored until its expiry, then stealable. Workers that
// crash mid-task lose nothing but time.
package claims

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// DefaultLeaseDuration bounds how long a crashed worker blocks an item.
const DefaultLeaseDuration = 2 * time.Minute

// Store is the minimal lease surface a backing store must provide.
// Both acceptance and monitor stores satisfy it.
type Store interface {
	TryClaim(ctx context.Context, id, workerID string, now, expires time.Time) (bool, error)
	Release(ctx context.Context, id string) error
}

// Coordinator acquires and releases leases on behalf of one worker.
type Coordinator struct {
	store    Store
	workerID string
	lease    time.Duration
	now      func() time.Time
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLeaseDuration sets how long acquired leases are held.
func WithLeaseDuration(d time.Duration) Option {
	return func(c *Coordinator) {
		c.lease = d
	}
}

// WithWorkerID overrides the generated worker identity.
func WithWorkerID(id string) Option {
	return func(c *Coordinator) {
		c.workerID = id
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// NewCoordinator creates a coordinator with a unique worker identity of
// the form hostname-uuid.
func NewCoordinator(store Store, opts ...Option) *Coordinator {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	c := &Coordinator{
		store:    store,
		workerID: fmt.Sprintf("%s-%s", host, uuid.NewString()),
		lease:    DefaultLeaseDuration,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WorkerID returns this coordinator's identity as stamped into leases.
func (c *Coordinator) WorkerID() string {
	return c.workerID
}

// Acquire attempts to claim the item. Returns false without error when
// another worker holds a live lease.
func (c *Coordinator) Acquire(ctx context.Context, id string) (bool, error) {
	now := c.now().UTC()
	return c.store.TryClaim(ctx, id, c.workerID, now, now.Add(c.lease))
}

// Release frees the item for other workers. Safe to call on items this
// worker no longer holds.
func (c *Coordinator) Release(ctx context.Context, id string) error {
	return c.store.Release(ctx, id)
}
