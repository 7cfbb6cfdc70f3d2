package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// saver writes snapshots on its own goroutine. Only the latest pending
// snapshot is kept, so a burst of mutations results in few writes and the
// last write always carries the last state.
type saver struct {
	ctx   context.Context
	key   string
	store Store
	lg    *zap.Logger

	mu      sync.Mutex
	pending []byte
	dirty   bool
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newSaver(ctx context.Context, key string, store Store, lg *zap.Logger) *saver {
	s := &saver{
		ctx:   ctx,
		key:   key,
		store: store,
		lg:    lg,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *saver) schedule(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.pending = data
	s.dirty = true
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *saver) run() {
	defer close(s.done)
	for range s.wake {
		s.flush()
	}
	s.flush()
}

func (s *saver) flush() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	data := s.pending
	s.pending, s.dirty = nil, false
	s.mu.Unlock()

	if err := s.store.Save(s.ctx, s.key, data); err != nil {
		s.lg.Warn("Save cart failed", zap.Error(err))
	}
}

func (s *saver) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.wake)
	}
	s.mu.Unlock()
	<-s.done
}
