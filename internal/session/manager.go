// Package session owns the operator's identity at this terminal: it
// exchanges credentials for tokens, keeps the tokens in the local
// store, and answers every role question the rest of the gateway asks.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"vetpos/internal/apperr"
	"vetpos/internal/auth"
	"vetpos/internal/backend"
	"vetpos/internal/models"
)

// TokenStore is the slice of the terminal store the manager needs.
type TokenStore interface {
	SaveTokens(access, refresh string) error
	LoadToken(name string) (string, error)
	ClearTokens() error
}

// Names the store keys tokens under.
const (
	keyAccess  = "accessToken"
	keyRefresh = "refreshToken"
)

// Manager holds the single operator session for this terminal.
// At most one sign-in is in flight at a time; everything else is
// cheap synchronous state under one mutex.
type Manager struct {
	client *backend.Client
	store  TokenStore
	log    zerolog.Logger

	mu        sync.Mutex
	user      *models.User
	access    string
	refresh   string
	loading   bool
	signingIn bool
	views     []string
}

// NewManager builds a manager in the "auth unknown" state: Loading()
// reports true until Bootstrap has run, so callers must not treat the
// gap as "signed out".
func NewManager(client *backend.Client, store TokenStore, log zerolog.Logger) *Manager {
	return &Manager{
		client:  client,
		store:   store,
		log:     log.With().Str("component", "session").Logger(),
		loading: true,
	}
}

// Bootstrap restores a persisted session, if there is one. Any failure
// along the way (missing token, stale token, backend unreachable,
// rejected profile fetch) lands in the same place: signed out, tokens
// cleared. We deliberately do not distinguish "server down" from
// "token invalid" here.
func (m *Manager) Bootstrap(ctx context.Context) {
	defer m.setLoading(false)

	access, err := m.store.LoadToken(keyAccess)
	if err != nil || access == "" {
		return
	}
	if auth.Expired(access) {
		m.log.Info().Msg("stored access token expired, starting signed out")
		m.teardown()
		return
	}

	user, err := m.client.Profile(ctx, access)
	if err != nil {
		m.log.Warn().Err(err).Msg("profile fetch failed during bootstrap, starting signed out")
		m.teardown()
		return
	}

	refresh, _ := m.store.LoadToken(keyRefresh)

	m.mu.Lock()
	m.user = user
	m.access = access
	m.refresh = refresh
	m.views = permittedViews(user)
	m.mu.Unlock()

	m.log.Info().Str("username", user.Username).Str("role", user.Role).Msg("session restored")
}

// SignIn exchanges credentials for tokens and loads the profile.
// Guarantees on failure: no user, no tokens in memory or in the store.
// A second SignIn while one is outstanding fails with ErrInFlight.
func (m *Manager) SignIn(ctx context.Context, username, password string) error {
	m.mu.Lock()
	if m.signingIn {
		m.mu.Unlock()
		return apperr.ErrInFlight
	}
	m.signingIn = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.signingIn = false
		m.mu.Unlock()
	}()

	pair, err := m.client.Token(ctx, username, password)
	if err != nil {
		m.teardown()
		return fmt.Errorf("sign in: %w", err)
	}

	// Persist before the profile fetch so a crash between the two
	// leaves a restorable session rather than a lost token.
	if err := m.store.SaveTokens(pair.Access, pair.Refresh); err != nil {
		m.teardown()
		return fmt.Errorf("persist tokens: %w", err)
	}

	user, err := m.client.Profile(ctx, pair.Access)
	if err != nil {
		// Token present but no user would be a half-authenticated
		// state; tear the whole thing down instead.
		m.teardown()
		return fmt.Errorf("sign in: %w", err)
	}

	m.mu.Lock()
	m.user = user
	m.access = pair.Access
	m.refresh = pair.Refresh
	m.views = permittedViews(user)
	m.mu.Unlock()

	m.log.Info().Str("username", user.Username).Str("role", user.Role).Msg("signed in")
	return nil
}

// SignOut clears the session. Calling it while already signed out is a
// no-op.
func (m *Manager) SignOut() {
	m.teardown()
}

// teardown wipes user, tokens and the persisted copies.
func (m *Manager) teardown() {
	m.mu.Lock()
	wasSignedIn := m.user != nil
	m.user = nil
	m.access = ""
	m.refresh = ""
	m.views = nil
	m.mu.Unlock()

	if err := m.store.ClearTokens(); err != nil {
		m.log.Warn().Err(err).Msg("failed to clear persisted tokens")
	}
	if wasSignedIn {
		m.log.Info().Msg("signed out")
	}
}

// HasRole reports whether the operator's role is one of the given
// roles. Always false when nobody is signed in or the account has no
// role assigned. Pure: safe to call from anywhere, any number of
// times.
func (m *Manager) HasRole(roles ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil || m.user.Role == "" {
		return false
	}
	for _, role := range roles {
		if m.user.Role == role {
			return true
		}
	}
	return false
}

// CurrentUser returns a copy of the signed-in operator, or nil.
func (m *Manager) CurrentUser() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// AccessToken returns the bearer token for outgoing backend calls, or
// "" when signed out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

// Loading reports whether bootstrap is still deciding the auth state.
// While true, consumers must treat the session as unknown: neither
// signed in nor signed out.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

func (m *Manager) setLoading(v bool) {
	m.mu.Lock()
	m.loading = v
	m.mu.Unlock()
}

// PermittedViews returns the dashboard surfaces this operator may see.
// The set is derived once per session change, so every gate in the
// gateway agrees with every other.
func (m *Manager) PermittedViews() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.views))
	copy(out, m.views)
	return out
}

// View names, matching the dashboard's tabs.
const (
	ViewOverview  = "overview"
	ViewInventory = "inventory"
	ViewSales     = "sales"
	ViewCustomers = "customers"
	ViewSuppliers = "suppliers"
	ViewReports   = "reports"
	ViewSettings  = "settings"
	ViewUsers     = "users"
)

// permittedViews maps a role onto the view set. An authenticated user
// with no role still gets the overview, nothing more.
func permittedViews(user *models.User) []string {
	views := []string{ViewOverview}

	switch user.Role {
	case models.RoleAdmin:
		views = append(views,
			ViewInventory, ViewSales, ViewCustomers,
			ViewSuppliers, ViewReports, ViewSettings, ViewUsers)
	case models.RoleCashier:
		views = append(views, ViewSales)
	case models.RoleInventoryManager:
		views = append(views, ViewInventory, ViewSuppliers)
	}
	return views
}
