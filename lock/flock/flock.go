// Package flock implements lock.Locker on top of flock(2), so builds and
// compilation caches shared between wasmbench processes do not interleave.
package flock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/weiihann/wasmbench/lock"
)

const retryDelay = 100 * time.Millisecond

var _ lock.Locker = (*Lock)(nil)

// Lock combines in-process exclusion (a size-1 channel, so Lock can honor
// ctx and TryLock never blocks) with cross-process exclusion through a
// fresh flock fd per acquisition.
type Lock struct {
	path string
	ch   chan struct{}
	// fl is non-nil while the lock is held.
	fl *flock.Flock
}

// New creates a Lock for path. The parent directory is created on first
// acquisition.
func New(path string) *Lock {
	return &Lock{path: path, ch: make(chan struct{}, 1)}
}

// Lock acquires the lock, blocking until available or ctx is cancelled.
func (l *Lock) Lock(ctx context.Context) error {
	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("acquire lock %s: %w", l.path, ctx.Err())
	}

	ok, err := l.commitFlock(func(fl *flock.Flock) (bool, error) {
		return fl.TryLockContext(ctx, retryDelay)
	})
	if err != nil {
		return fmt.Errorf("acquire flock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("acquire flock %s: %w", l.path, ctx.Err())
	}

	return nil
}

// TryLock attempts a non-blocking acquisition.
// Returns (false, nil) if the lock is currently held by another caller.
func (l *Lock) TryLock(_ context.Context) (bool, error) {
	select {
	case l.ch <- struct{}{}:
	default:
		return false, nil
	}

	return l.commitFlock(func(fl *flock.Flock) (bool, error) {
		return fl.TryLock()
	})
}

// Unlock releases the lock.
func (l *Lock) Unlock(_ context.Context) error {
	var err error
	if l.fl != nil {
		err = l.fl.Unlock()
		l.fl = nil
	}

	select {
	case <-l.ch:
	default:
	}

	if err != nil {
		return fmt.Errorf("release flock %s: %w", l.path, err)
	}

	return nil
}

// commitFlock opens a fresh flock fd and runs acquire. On failure the
// channel token is returned so Lock/TryLock and Unlock stay balanced.
func (l *Lock) commitFlock(acquire func(*flock.Flock) (bool, error)) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		<-l.ch
		return false, fmt.Errorf("create lock dir: %w", err)
	}

	fl := flock.New(l.path)

	locked, err := acquire(fl)
	if err != nil {
		<-l.ch
		return false, err
	}
	if !locked {
		<-l.ch
		return false, nil
	}

	l.fl = fl

	return true, nil
}
