// Package joblock serializes claim/start/complete operations per job id.
// Acquire is bounded: a caller that cannot get the lock in time fails fast
// instead of queueing behind a stuck job.
package joblock

import (
	"context"
	"sync"
	"time"

	"telegram-fieldops-dispatch/internal/domain"
)

type entry struct {
	ch   chan struct{} // buffered(1); token present means unlocked
	refs int
}

// Keyed hands out one logical mutex per job id. Entries are dropped once
// no goroutine holds or waits on them, so the map does not grow with the
// total number of jobs ever seen.
type Keyed struct {
	mu      sync.Mutex
	locks   map[string]*entry
	timeout time.Duration
}

func New(timeout time.Duration) *Keyed {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Keyed{locks: make(map[string]*entry), timeout: timeout}
}

// Acquire blocks until the per-job lock is held, the timeout elapses, or ctx
// is done. On timeout it returns domain.ErrStateConflict.
func (k *Keyed) Acquire(ctx context.Context, jobID string) (release func(), err error) {
	k.mu.Lock()
	e, ok := k.locks[jobID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		e.ch <- struct{}{}
		k.locks[jobID] = e
	}
	e.refs++
	k.mu.Unlock()

	timer := time.NewTimer(k.timeout)
	defer timer.Stop()

	select {
	case <-e.ch:
		return func() { k.release(jobID, e) }, nil
	case <-timer.C:
		k.drop(jobID, e)
		return nil, domain.ErrStateConflict
	case <-ctx.Done():
		k.drop(jobID, e)
		return nil, ctx.Err()
	}
}

func (k *Keyed) release(jobID string, e *entry) {
	e.ch <- struct{}{}
	k.drop(jobID, e)
}

func (k *Keyed) drop(jobID string, e *entry) {
	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, jobID)
	}
	k.mu.Unlock()
}
