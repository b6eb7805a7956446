// Package session tracks who is using the storefront: the logged-in customer,
// if any, and whether a seller session is active.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

var ErrMissingCredentials = errors.New("email and password are required")

type Backend interface {
	Login(ctx context.Context, email, password string) (domain.User, error)
	Register(ctx context.Context, name, email, password string) (domain.User, error)
	IsAuth(ctx context.Context) (domain.User, error)
	Logout(ctx context.Context) error
	SellerLogin(ctx context.Context, email, password string) error
	SellerIsAuth(ctx context.Context) error
	SellerLogout(ctx context.Context) error
}

// Listener is called after the customer changes. A zero User means the
// visitor is anonymous.
type Listener func(ctx context.Context, u domain.User)

// SellerListener is called after a seller session starts or ends.
type SellerListener func(ctx context.Context, active bool)

type Manager struct {
	backend Backend
	log     *zap.Logger

	mu        sync.RWMutex
	user      domain.User
	seller    bool
	listeners []Listener
	onSeller  []SellerListener
}

func NewManager(b Backend, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{backend: b, log: log}
}

func (m *Manager) OnUserChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) OnSellerChange(l SellerListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSeller = append(m.onSeller, l)
}

// User returns the current customer and whether one is logged in.
func (m *Manager) User() (domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.user.ID != ""
}

func (m *Manager) IsSeller() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.seller
}

// CheckAuth probes the backend session. Being anonymous is not an error: the
// user is reset and ok is false.
func (m *Manager) CheckAuth(ctx context.Context) (domain.User, bool, error) {
	u, err := m.backend.IsAuth(ctx)
	if errors.Is(err, backend.ErrAuthRequired) {
		m.setUser(ctx, domain.User{})
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("check auth: %w", err)
	}
	m.setUser(ctx, u)
	return u, true, nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, ErrMissingCredentials
	}
	u, err := m.backend.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}
	m.log.Info("user logged in", zap.String("user_id", u.ID))
	m.setUser(ctx, u)
	return u, nil
}

func (m *Manager) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, ErrMissingCredentials
	}
	u, err := m.backend.Register(ctx, strings.TrimSpace(name), email, password)
	if err != nil {
		return domain.User{}, fmt.Errorf("register: %w", err)
	}
	m.log.Info("user registered", zap.String("user_id", u.ID))
	m.setUser(ctx, u)
	return u, nil
}

// Logout always ends the local session, even when the backend call fails.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.backend.Logout(ctx)
	m.setUser(ctx, domain.User{})
	if err != nil && !errors.Is(err, backend.ErrAuthRequired) {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// HandleAuthError resets the customer when err says the session is gone and
// reports whether it did.
func (m *Manager) HandleAuthError(ctx context.Context, err error) bool {
	if !errors.Is(err, backend.ErrAuthRequired) {
		return false
	}
	if _, ok := m.User(); ok {
		m.log.Info("session expired, resetting user")
	}
	m.setUser(ctx, domain.User{})
	return true
}

func (m *Manager) SellerLogin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrMissingCredentials
	}
	if err := m.backend.SellerLogin(ctx, strings.TrimSpace(email), password); err != nil {
		return fmt.Errorf("seller login: %w", err)
	}
	m.setSeller(ctx, true)
	return nil
}

func (m *Manager) CheckSeller(ctx context.Context) (bool, error) {
	err := m.backend.SellerIsAuth(ctx)
	if errors.Is(err, backend.ErrAuthRequired) {
		m.setSeller(ctx, false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check seller: %w", err)
	}
	m.setSeller(ctx, true)
	return true, nil
}

func (m *Manager) SellerLogout(ctx context.Context) error {
	err := m.backend.SellerLogout(ctx)
	m.setSeller(ctx, false)
	if err != nil && !errors.Is(err, backend.ErrAuthRequired) {
		return fmt.Errorf("seller logout: %w", err)
	}
	return nil
}

func (m *Manager) setSeller(ctx context.Context, v bool) {
	m.mu.Lock()
	changed := m.seller != v
	m.seller = v
	listeners := append([]SellerListener(nil), m.onSeller...)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(ctx, v)
	}
}

func (m *Manager) setUser(ctx context.Context, u domain.User) {
	m.mu.Lock()
	changed := m.user.ID != u.ID
	m.user = u
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	if !changed {
		return
	}
	for _, l := range listeners {
		l(ctx, u)
	}
}
