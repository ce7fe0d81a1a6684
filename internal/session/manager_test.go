package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpos/internal/apperr"
	"vetpos/internal/backend"
	"vetpos/internal/models"
)

// memStore is an in-memory TokenStore.
type memStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemStore() *memStore {
	return &memStore{tokens: map[string]string{}}
}

func (s *memStore) SaveTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens["accessToken"] = access
	s.tokens["refreshToken"] = refresh
	return nil
}

func (s *memStore) LoadToken(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[name], nil
}

func (s *memStore) ClearTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, "accessToken")
	delete(s.tokens, "refreshToken")
	return nil
}

// signedToken mints a JWT with the given expiry. The manager only
// reads the exp claim, so any signing key will do.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func newTestManager(t *testing.T, handler http.Handler) (*Manager, *memStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := backend.New(backend.Config{BaseURL: srv.URL})
	require.NoError(t, err)

	store := newMemStore()
	return NewManager(client, store, zerolog.Nop()), store
}

// okBackend accepts alice/secret and serves her profile.
func okBackend(t *testing.T, role string) http.Handler {
	access := signedToken(t, time.Now().Add(time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		if creds["username"] != "alice" || creds["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "Invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(models.TokenPair{Access: access, Refresh: "refresh-1"})
	})
	mux.HandleFunc("GET /user/profile/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+access {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(models.User{ID: 1, Username: "alice", Email: "alice@vetpos.test", Role: role})
	})
	return mux
}

func TestSignInSuccess(t *testing.T) {
	mgr, store := newTestManager(t, okBackend(t, models.RoleAdmin))

	require.NoError(t, mgr.SignIn(context.Background(), "alice", "secret"))

	user := mgr.CurrentUser()
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, mgr.HasRole(models.RoleAdmin))
	assert.NotEmpty(t, mgr.AccessToken())

	// Tokens persisted under the fixed names.
	access, _ := store.LoadToken("accessToken")
	refresh, _ := store.LoadToken("refreshToken")
	assert.Equal(t, mgr.AccessToken(), access)
	assert.Equal(t, "refresh-1", refresh)
}

func TestSignInRejectedLeavesNothingBehind(t *testing.T) {
	mgr, store := newTestManager(t, okBackend(t, models.RoleAdmin))

	err := mgr.SignIn(context.Background(), "alice", "wrong")
	require.ErrorIs(t, err, apperr.ErrAuthentication)

	// No residual auth state of any kind.
	assert.Nil(t, mgr.CurrentUser())
	assert.False(t, mgr.HasRole(models.RoleAdmin))
	assert.Empty(t, mgr.AccessToken(), "no token may be attached to the next request")
	access, _ := store.LoadToken("accessToken")
	assert.Empty(t, access)
}

func TestSignInProfileFailureTearsDown(t *testing.T) {
	// Token endpoint succeeds but the profile fetch blows up: the
	// half-authenticated state must not survive.
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.TokenPair{Access: "acc", Refresh: "ref"})
	})
	mux.HandleFunc("GET /user/profile/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mgr, store := newTestManager(t, mux)

	require.Error(t, mgr.SignIn(context.Background(), "alice", "secret"))
	assert.Nil(t, mgr.CurrentUser())
	assert.Empty(t, mgr.AccessToken())
	access, _ := store.LoadToken("accessToken")
	assert.Empty(t, access, "persisted token cleared on teardown")
}

func TestSignOutIdempotent(t *testing.T) {
	mgr, _ := newTestManager(t, okBackend(t, models.RoleCashier))

	require.NoError(t, mgr.SignIn(context.Background(), "alice", "secret"))
	mgr.SignOut()
	assert.Nil(t, mgr.CurrentUser())

	// Signing out again is a no-op.
	mgr.SignOut()
	assert.Nil(t, mgr.CurrentUser())
	assert.Empty(t, mgr.AccessToken())
}

func TestHasRole(t *testing.T) {
	mgr, _ := newTestManager(t, okBackend(t, models.RoleCashier))

	// Unauthenticated: false no matter what is asked.
	assert.False(t, mgr.HasRole(models.RoleAdmin))
	assert.False(t, mgr.HasRole(models.RoleAdmin, models.RoleCashier, models.RoleInventoryManager))

	require.NoError(t, mgr.SignIn(context.Background(), "alice", "secret"))
	assert.True(t, mgr.HasRole(models.RoleCashier))
	assert.True(t, mgr.HasRole(models.RoleAdmin, models.RoleCashier))
	assert.False(t, mgr.HasRole(models.RoleAdmin))
	assert.False(t, mgr.HasRole(models.RoleAdmin, models.RoleInventoryManager))
}

func TestHasRoleWithUnassignedRole(t *testing.T) {
	mgr, _ := newTestManager(t, okBackend(t, ""))

	require.NoError(t, mgr.SignIn(context.Background(), "alice", "secret"))
	require.NotNil(t, mgr.CurrentUser(), "authenticated")
	assert.False(t, mgr.HasRole(models.RoleAdmin), "authenticated but unassigned role gates nothing")
	assert.Equal(t, []string{ViewOverview}, mgr.PermittedViews())
}

func TestPermittedViewsPerRole(t *testing.T) {
	cases := []struct {
		role  string
		views []string
	}{
		{models.RoleAdmin, []string{
			ViewOverview, ViewInventory, ViewSales, ViewCustomers,
			ViewSuppliers, ViewReports, ViewSettings, ViewUsers}},
		{models.RoleCashier, []string{ViewOverview, ViewSales}},
		{models.RoleInventoryManager, []string{ViewOverview, ViewInventory, ViewSuppliers}},
	}

	for _, tc := range cases {
		t.Run(tc.role, func(t *testing.T) {
			mgr, _ := newTestManager(t, okBackend(t, tc.role))
			require.NoError(t, mgr.SignIn(context.Background(), "alice", "secret"))
			assert.Equal(t, tc.views, mgr.PermittedViews())
		})
	}
}

func TestPermittedViewsEmptyWhenSignedOut(t *testing.T) {
	mgr, _ := newTestManager(t, okBackend(t, models.RoleAdmin))
	assert.Empty(t, mgr.PermittedViews())

	require.NoError(t, mgr.SignIn(context.Background(), "alice", "secret"))
	mgr.SignOut()
	assert.Empty(t, mgr.PermittedViews())
}

func TestBootstrapRestoresSession(t *testing.T) {
	handler := okBackend(t, models.RoleAdmin)
	mgr, store := newTestManager(t, handler)

	// Seed the store the way a previous run would have.
	require.NoError(t, mgr.SignIn(context.Background(), "alice", "secret"))
	access := mgr.AccessToken()

	fresh := NewManager(mgr.client, store, zerolog.Nop())
	assert.True(t, fresh.Loading(), "auth unknown until bootstrap finishes")
	assert.False(t, fresh.HasRole(models.RoleAdmin))

	fresh.Bootstrap(context.Background())
	assert.False(t, fresh.Loading())
	require.NotNil(t, fresh.CurrentUser())
	assert.Equal(t, "alice", fresh.CurrentUser().Username)
	assert.Equal(t, access, fresh.AccessToken())
}

func TestBootstrapWithNoStoredToken(t *testing.T) {
	mgr, _ := newTestManager(t, okBackend(t, models.RoleAdmin))

	mgr.Bootstrap(context.Background())
	assert.False(t, mgr.Loading())
	assert.Nil(t, mgr.CurrentUser())
}

func TestBootstrapWithExpiredTokenSkipsTheNetwork(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("expired token must not be sent to the backend")
	}))
	require.NoError(t, store.SaveTokens(signedToken(t, time.Now().Add(-time.Hour)), "ref"))

	mgr.Bootstrap(context.Background())
	assert.False(t, mgr.Loading())
	assert.Nil(t, mgr.CurrentUser())
	access, _ := store.LoadToken("accessToken")
	assert.Empty(t, access, "stale token cleared")
}

func TestBootstrapRejectedProfileTearsDown(t *testing.T) {
	mgr, store := newTestManager(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	require.NoError(t, store.SaveTokens(signedToken(t, time.Now().Add(time.Hour)), "ref"))

	mgr.Bootstrap(context.Background())
	assert.Nil(t, mgr.CurrentUser())
	access, _ := store.LoadToken("accessToken")
	assert.Empty(t, access)
}

func TestBootstrapBackendDownTearsDown(t *testing.T) {
	// Unreachable server: treated exactly like a rejected token.
	client, err := backend.New(backend.Config{
		BaseURL:    "http://127.0.0.1:1",
		HTTPClient: &http.Client{Timeout: 200 * time.Millisecond},
	})
	require.NoError(t, err)

	store := newMemStore()
	require.NoError(t, store.SaveTokens(signedToken(t, time.Now().Add(time.Hour)), "ref"))

	mgr := NewManager(client, store, zerolog.Nop())
	mgr.Bootstrap(context.Background())

	assert.False(t, mgr.Loading())
	assert.Nil(t, mgr.CurrentUser())
	access, _ := store.LoadToken("accessToken")
	assert.Empty(t, access)
}

func TestConcurrentSignInRefused(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("POST /token/", func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusUnauthorized)
	})
	mgr, _ := newTestManager(t, mux)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- mgr.SignIn(context.Background(), "alice", "secret")
	}()

	// Wait until the first attempt is actually on the wire, then the
	// second must be refused without a network call.
	<-started
	err := mgr.SignIn(context.Background(), "alice", "secret")
	require.ErrorIs(t, err, apperr.ErrInFlight)

	close(release)
	require.Error(t, <-firstDone)
	assert.Empty(t, started, "only one token request ever went out")
}
