// Package cart holds the in-session cart: the single source of truth for what
// the customer has selected. Local mutations are applied immediately and pushed
// to the backend afterwards as full-state snapshots (last write wins).
package cart

import (
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

const defaultPushTimeout = 5 * time.Second

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithMirror keeps a copy of every cart state in c, keyed by user id or, for
// anonymous visitors, by sessionID.
func WithMirror(c cache.CartCache, sessionID string) Option {
	return func(s *Store) {
		s.mirror = c
		s.sessionID = sessionID
	}
}

// WithSyncErrorHandler registers the non-blocking notification for failed pushes.
func WithSyncErrorHandler(fn func(error)) Option {
	return func(s *Store) { s.onSyncError = fn }
}

func WithPushTimeout(d time.Duration) Option {
	return func(s *Store) { s.pushTimeout = d }
}

type Store struct {
	mu     sync.Mutex
	items  domain.Cart
	userID string

	notifyMu  sync.Mutex
	observers map[int]func(domain.Cart)
	nextObsID int

	syncer      Syncer
	mirror      cache.CartCache
	sessionID   string
	onSyncError func(error)
	pushTimeout time.Duration
	log         *zap.Logger

	queue *outbound
}

// NewStore starts the outbound sync worker; call Close to stop it.
// A nil syncer keeps the cart local-only.
func NewStore(syncer Syncer, opts ...Option) *Store {
	s := &Store{
		items:       domain.Cart{},
		observers:   make(map[int]func(domain.Cart)),
		syncer:      syncer,
		pushTimeout: defaultPushTimeout,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.queue = newOutbound(s.deliver)
	return s
}

// AddOne increments the quantity of productID, creating the entry at 1.
func (s *Store) AddOne(productID string) {
	s.mutate(true, func(c domain.Cart) error {
		c[productID]++
		return nil
	})
}

// RemoveOne decrements the quantity of productID and deletes the entry when it
// reaches zero. Removing an absent product is a no-op.
func (s *Store) RemoveOne(productID string) {
	s.mutate(true, func(c domain.Cart) error {
		q, ok := c[productID]
		if !ok {
			return errNoChange
		}
		if q <= 1 {
			delete(c, productID)
			return nil
		}
		c[productID] = q - 1
		return nil
	})
}

// Remove deletes productID whatever its quantity.
func (s *Store) Remove(productID string) {
	s.mutate(true, func(c domain.Cart) error {
		if _, ok := c[productID]; !ok {
			return errNoChange
		}
		delete(c, productID)
		return nil
	})
}

// SetQuantity rejects n < 1 with ErrInvalidQuantity and leaves the cart unchanged.
func (s *Store) SetQuantity(productID string, n int) error {
	if n < 1 {
		return ErrInvalidQuantity
	}
	s.mutate(true, func(c domain.Cart) error {
		if c[productID] == n {
			return errNoChange
		}
		c[productID] = n
		return nil
	})
	return nil
}

func (s *Store) Clear() {
	s.mutate(true, func(c domain.Cart) error {
		clear(c)
		return nil
	})
}

// ReplaceAll installs an authoritative cart (typically pulled from the backend)
// without pushing it back. Any push still waiting in the queue is superseded.
func (s *Store) ReplaceAll(cart domain.Cart) {
	next := cart.Normalize()
	s.mutate(false, func(c domain.Cart) error {
		clear(c)
		for id, q := range next {
			c[id] = q
		}
		return nil
	})
}

func (s *Store) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[productID]
}

func (s *Store) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Clone()
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Count()
}

// SetUser switches the identity the cart is synced under. An empty id makes the
// cart anonymous and local-only.
func (s *Store) SetUser(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.mu.Unlock()
}

func (s *Store) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Subscribe registers fn to receive a snapshot after every mutation.
// Observers run synchronously and must not mutate the store.
func (s *Store) Subscribe(fn func(domain.Cart)) (unsubscribe func()) {
	s.notifyMu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.observers, id)
		s.notifyMu.Unlock()
	}
}

var errNoChange = errors.New("no change")

func (s *Store) mutate(remote bool, fn func(domain.Cart) error) {
	s.mu.Lock()
	if err := fn(s.items); err != nil {
		s.mu.Unlock()
		return
	}
	snap := s.items.Clone()
	s.queue.enqueue(snapshot{userID: s.userID, cart: snap, remote: remote})

	// notifyMu is taken before mu is released so observers see mutations in order
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()
	for _, fn := range s.observers {
		fn(snap.Clone())
	}
}
