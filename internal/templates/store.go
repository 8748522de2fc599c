package templates

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Store serves the current registry snapshot. Reloads build a fresh registry
// and swap it in atomically; readers holding an older snapshot are unaffected.
type Store struct {
	opts     Options
	logger   *slog.Logger
	current  atomic.Pointer[Registry]
	reloadMu sync.Mutex
}

// NewStore performs the initial load.
func NewStore(ctx context.Context, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Store{opts: opts, logger: opts.Logger}
	if _, err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the latest registry snapshot.
func (s *Store) Current() *Registry {
	return s.current.Load()
}

// Reload rebuilds the registry. On failure the previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (*Registry, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	reg, err := Load(ctx, s.opts)
	if err != nil {
		return nil, err
	}
	s.current.Store(reg)
	return reg, nil
}

// Watch reloads the registry whenever the template directory changes, with
// bursts of events coalesced by debounce. It blocks until ctx is done.
func (s *Store) Watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			s.logger.Warn("failed to close template watcher", "error", err)
		}
	}()
	if err := w.Add(s.opts.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", s.opts.Dir, err)
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if debounce <= 0 {
				s.reload(ctx, e.Name)
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			s.reload(ctx, s.opts.Dir)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("template watcher error", "error", err)
		}
	}
}

func (s *Store) reload(ctx context.Context, trigger string) {
	reg, err := s.Reload(ctx)
	if err != nil {
		s.logger.Error("template reload failed; keeping previous registry", "trigger", trigger, "error", err)
		return
	}
	s.logger.Info("templates.reloaded", "trigger", trigger, "templates", reg.Len())
}
