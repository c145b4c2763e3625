package server

import (
	"context"
	"sync"

	"github.com/kurobon/quickgit/internal/state"
	"github.com/kurobon/quickgit/internal/watch"
)

// watchSet tracks one watcher per registered repository. Watchers only start
// once Serve has provided a context.
type watchSet struct {
	mu      sync.Mutex
	ctx     context.Context
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func newWatchSet() *watchSet {
	return &watchSet{cancels: make(map[string]context.CancelFunc)}
}

func (ws *watchSet) wait() {
	ws.wg.Wait()
}

func (s *Server) startWatching(ctx context.Context) {
	s.watchers.mu.Lock()
	s.watchers.ctx = ctx
	s.watchers.mu.Unlock()

	for _, key := range s.registry.List() {
		if snap, ok := s.registry.Get(key); ok {
			s.watch(key, snap)
		}
	}
}

// watch syncs snap whenever its .git directory changes and tells clients.
func (s *Server) watch(key string, snap *state.Snapshot) {
	if !s.opts.Watch {
		return
	}
	ws := s.watchers
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.ctx == nil {
		return
	}
	if _, running := ws.cancels[key]; running {
		return
	}

	log := s.log.With().Str("repo", key).Logger()
	w, err := watch.New(watch.GitDir(snap.Path()), s.opts.Debounce, func() {
		refilled, err := snap.Sync()
		if err != nil {
			log.Warn().Err(err).Msg("sync after change failed")
			return
		}
		log.Debug().Bool("refilled", refilled).Msg("repository changed")
		s.publish(key, snap)
	}, log)
	if err != nil {
		log.Warn().Err(err).Msg("cannot watch repository")
		return
	}

	ctx, cancel := context.WithCancel(ws.ctx)
	ws.cancels[key] = cancel
	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		if err := w.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("watcher stopped")
		}
	}()
}

func (s *Server) unwatch(key string) {
	ws := s.watchers
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if cancel, ok := ws.cancels[key]; ok {
		cancel()
		delete(ws.cancels, key)
	}
}
