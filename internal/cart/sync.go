package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

// Syncer is the remote side of the cart. Pushes always carry the full cart so a
// late push can never resurrect a removed line.
type Syncer interface {
	PushCart(ctx context.Context, userID string, cart domain.Cart) error
	PullCart(ctx context.Context, userID string) (domain.Cart, error)
}

type Source string

const (
	SourceRemote Source = "remote"
	SourceMirror Source = "mirror"
	SourceLocal  Source = "local"
)

type snapshot struct {
	userID string
	cart   domain.Cart
	remote bool
}

// outbound holds at most one pending snapshot; a newer one replaces it.
// A single worker delivers snapshots in the order they were enqueued.
type outbound struct {
	mu      sync.Mutex
	pending *snapshot
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
	deliver func(snapshot)
}

func newOutbound(deliver func(snapshot)) *outbound {
	q := &outbound{
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		deliver: deliver,
	}
	go q.run()
	return q
}

func (q *outbound) enqueue(s snapshot) {
	q.mu.Lock()
	q.pending = &s
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *outbound) run() {
	defer close(q.done)
	for {
		select {
		case <-q.wake:
			q.flush()
		case <-q.stop:
			q.flush()
			return
		}
	}
}

func (q *outbound) flush() {
	q.mu.Lock()
	s := q.pending
	q.pending = nil
	q.mu.Unlock()
	if s != nil {
		q.deliver(*s)
	}
}

func (q *outbound) close(ctx context.Context) error {
	q.once.Do(func() { close(q.stop) })
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) deliver(snap snapshot) {
	ctx, cancel := context.WithTimeout(context.Background(), s.pushTimeout)
	defer cancel()

	if s.mirror != nil {
		if err := s.mirror.Set(ctx, s.mirrorKey(snap.userID), snap.cart); err != nil {
			s.log.Warn("cart mirror write failed", zap.String("user_id", snap.userID), zap.Error(err))
		}
	}

	if !snap.remote || snap.userID == "" || s.syncer == nil {
		return
	}
	if err := s.syncer.PushCart(ctx, snap.userID, snap.cart); err != nil {
		s.log.Warn("cart sync push failed",
			zap.String("user_id", snap.userID),
			zap.Int("items", len(snap.cart)),
			zap.Error(err))
		if s.onSyncError != nil {
			s.onSyncError(fmt.Errorf("cart sync: %w", err))
		}
		return
	}
	s.log.Debug("cart synced", zap.String("user_id", snap.userID), zap.Int("count", snap.cart.Count()))
}

func (s *Store) mirrorKey(userID string) string {
	if userID != "" {
		return userID
	}
	return s.sessionID
}

// Load reconciles the cart at session start. The backend cart is authoritative;
// when it cannot be pulled the mirror is used, and failing that the local cart
// is kept. Failures are logged, never returned.
func (s *Store) Load(ctx context.Context) Source {
	userID := s.UserID()

	if userID != "" && s.syncer != nil {
		remote, err := s.syncer.PullCart(ctx, userID)
		if err == nil {
			s.ReplaceAll(remote)
			return SourceRemote
		}
		s.log.Warn("cart pull failed, falling back", zap.String("user_id", userID), zap.Error(err))
	}

	if s.mirror != nil {
		mirrored, err := s.mirror.Get(ctx, s.mirrorKey(userID))
		switch {
		case err == nil:
			s.ReplaceAll(mirrored)
			return SourceMirror
		case !errors.Is(err, cache.ErrCacheMiss):
			s.log.Warn("cart mirror read failed", zap.Error(err))
		}
	}
	return SourceLocal
}

// Close flushes the pending push, if any, and stops the worker.
func (s *Store) Close(ctx context.Context) error {
	return s.queue.close(ctx)
}
