package registry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/taskfleet/dispatch/pkg/logger"
)

// Store holds the current registry snapshot behind an atomic pointer.
// Readers always observe a complete registry; Reload swaps the pointer on
// success and leaves the previous snapshot active on failure, so in-flight
// dispatches are never exposed to a half-updated or broken registry.
type Store struct {
	current atomic.Pointer[Registry]
	sources []string
}

// NewStore creates a store seeded with reg. The sources are remembered for
// Reload and Watch.
func NewStore(reg *Registry, sources ...string) *Store {
	s := &Store{sources: sources}
	s.current.Store(reg)
	return s
}

// Open loads the sources and returns a store seeded with the result.
func Open(ctx context.Context, sources ...string) (*Store, error) {
	reg, err := Load(ctx, sources...)
	if err != nil {
		return nil, err
	}
	return NewStore(reg, sources...), nil
}

// Current returns the active registry snapshot.
func (s *Store) Current() *Registry {
	return s.current.Load()
}

// Reload re-loads the configured sources and atomically swaps the snapshot.
// On any error the previous registry stays active and the error is
// returned; the caller's ctx deadline bounds the load.
func (s *Store) Reload(ctx context.Context) error {
	reg, err := Load(ctx, s.sources...)
	if err != nil {
		return err
	}
	s.current.Store(reg)
	return nil
}

const watchDebounce = 250 * time.Millisecond

// Watch reloads the store whenever a source directory changes, until ctx is
// canceled. Events are debounced so a burst of writes triggers one reload.
// Failed reloads are logged and the previous snapshot stays active.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create registry watcher")
	}
	defer watcher.Close()

	for _, source := range s.sources {
		if err := watcher.Add(source); err != nil {
			return errors.Wrapf(err, "failed to watch source %s", source)
		}
	}

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			if err := s.Reload(ctx); err != nil {
				logger.G(ctx).WithError(err).Warn("registry reload failed, keeping previous snapshot")
				continue
			}
			logger.G(ctx).WithField("count", s.Current().Len()).Info("registry reloaded")
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(watchErr).Warn("registry watcher error")
		}
	}
}
