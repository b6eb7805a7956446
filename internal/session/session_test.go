package session

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/backend"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAuth = &backend.APIError{Op: "is-auth", Status: 401, Err: backend.ErrAuthRequired}

type mockBackend struct {
	user      domain.User
	authErr   error
	loginErr  error
	logoutErr error
	sellerErr error
	logins    int
}

func (m *mockBackend) Login(_ context.Context, email, _ string) (domain.User, error) {
	m.logins++
	if m.loginErr != nil {
		return domain.User{}, m.loginErr
	}
	return domain.User{ID: "u1", Email: email}, nil
}

func (m *mockBackend) Register(_ context.Context, name, email, _ string) (domain.User, error) {
	return domain.User{ID: "u2", Name: name, Email: email}, nil
}

func (m *mockBackend) IsAuth(context.Context) (domain.User, error) {
	return m.user, m.authErr
}

func (m *mockBackend) Logout(context.Context) error { return m.logoutErr }
func (m *mockBackend) SellerIsAuth(context.Context) error { return m.sellerErr }
func (m *mockBackend) SellerLogout(context.Context) error { return nil }
func (m *mockBackend) SellerLogin(_ context.Context, _, _ string) error {
	return m.sellerErr
}

func recordChanges(m *Manager) *[]string {
	var seen []string
	m.OnUserChange(func(_ context.Context, u domain.User) {
		seen = append(seen, u.ID)
	})
	return &seen
}

func TestCheckAuth_AnonymousIsNotAnError(t *testing.T) {
	b := &mockBackend{authErr: errAuth}
	m := NewManager(b, nil)

	u, ok, err := m.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, u.ID)
}

func TestCheckAuth_NetworkErrorKeepsUser(t *testing.T) {
	b := &mockBackend{}
	m := NewManager(b, nil)
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	b.authErr = &backend.APIError{Op: "is-auth", Err: backend.ErrUnavailable}
	_, _, err = m.CheckAuth(context.Background())
	assert.ErrorIs(t, err, backend.ErrUnavailable)

	u, ok := m.User()
	assert.True(t, ok)
	assert.Equal(t, "u1", u.ID)
}

func TestLogin_NotifiesListenersOnce(t *testing.T) {
	m := NewManager(&mockBackend{user: domain.User{ID: "u1"}}, nil)
	seen := recordChanges(m)

	_, err := m.Login(context.Background(), " a@b.c ", "pw")
	require.NoError(t, err)
	_, ok, err := m.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, []string{"u1"}, *seen, "same user must not renotify")
}

func TestLogin_Validation(t *testing.T) {
	b := &mockBackend{}
	m := NewManager(b, nil)

	_, err := m.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = m.Register(context.Background(), "n", "a@b.c", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, b.logins)

	b.loginErr = &backend.APIError{Op: "login", Err: backend.ErrRejected, Message: "Invalid email or password"}
	_, err = m.Login(context.Background(), "a@b.c", "bad")
	assert.ErrorIs(t, err, backend.ErrRejected)
	_, ok := m.User()
	assert.False(t, ok)
}

func TestRegister(t *testing.T) {
	m := NewManager(&mockBackend{}, nil)
	u, err := m.Register(context.Background(), " Ann ", "ann@x.y", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Ann", u.Name)
	got, ok := m.User()
	assert.True(t, ok)
	assert.Equal(t, "u2", got.ID)
}

func TestLogout_AlwaysResets(t *testing.T) {
	b := &mockBackend{}
	m := NewManager(b, nil)
	seen := recordChanges(m)
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	b.logoutErr = errors.New("network")
	err = m.Logout(context.Background())
	assert.Error(t, err)

	_, ok := m.User()
	assert.False(t, ok)
	assert.Equal(t, []string{"u1", ""}, *seen)
}

func TestHandleAuthError(t *testing.T) {
	m := NewManager(&mockBackend{}, nil)
	_, err := m.Login(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)

	assert.False(t, m.HandleAuthError(context.Background(), errors.New("other")))
	_, ok := m.User()
	assert.True(t, ok)

	assert.True(t, m.HandleAuthError(context.Background(), errAuth))
	_, ok = m.User()
	assert.False(t, ok)
}

func TestSellerSession(t *testing.T) {
	b := &mockBackend{}
	m := NewManager(b, nil)

	require.NoError(t, m.SellerLogin(context.Background(), "admin@x.y", "pw"))
	assert.True(t, m.IsSeller())

	b.sellerErr = errAuth
	ok, err := m.CheckSeller(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, m.IsSeller())

	assert.ErrorIs(t, m.SellerLogin(context.Background(), "", "pw"), ErrMissingCredentials)
	require.NoError(t, m.SellerLogout(context.Background()))
}

func TestSellerChange_NotifiesOnTransitionsOnly(t *testing.T) {
	b := &mockBackend{}
	m := NewManager(b, nil)
	var seen []bool
	m.OnSellerChange(func(_ context.Context, active bool) {
		seen = append(seen, active)
	})

	require.NoError(t, m.SellerLogin(context.Background(), "admin@x.y", "pw"))
	ok, err := m.CheckSeller(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, m.SellerLogout(context.Background()))
	require.NoError(t, m.SellerLogout(context.Background()))

	assert.Equal(t, []bool{true, false}, seen)
}
