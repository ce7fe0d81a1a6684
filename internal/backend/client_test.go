package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetpos/internal/apperr"
	"vetpos/internal/models"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{BaseURL: srv.URL})
	require.NoError(t, err)
	return client
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestTokenDoesNotSendAuthorization(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "credential exchange carries no bearer token")

		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "alice", creds["username"])
		json.NewEncoder(w).Encode(models.TokenPair{Access: "a", Refresh: "r"})
	}))

	pair, err := client.Token(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "a", pair.Access)
	assert.Equal(t, "r", pair.Refresh)
}

func TestBearerTokenAttached(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]models.Product{})
	}))

	_, err := client.Products(context.Background(), "tok-123")
	require.NoError(t, err)
}

func TestUnauthorizedMapsToAuthenticationError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Token is invalid or expired"})
	}))

	_, err := client.Profile(context.Background(), "stale")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
}

func TestValidationErrorCarriesBackendMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "A user with that email already exists"})
	}))

	_, err := client.CreateUser(context.Background(), "tok", models.NewUserRequest{
		Username: "bob", Email: "bob@vetpos.test", Password: "pw", Role: models.RoleCashier,
	})

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "A user with that email already exists", verr.Message)
}

func TestSaleRejectionMapsToConflict(t *testing.T) {
	// The backend reports a lost stock race on sale creation as a 400
	// with a message; that is a conflict, not a form error.
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "Insufficient stock for Ivermectin Injection"})
	}))

	_, err := client.CreateSale(context.Background(), "tok", models.SaleRequest{})

	var conflict *apperr.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Insufficient stock for Ivermectin Injection", conflict.Message)
}

func TestUnreachableBackendMapsToNetworkError(t *testing.T) {
	client, err := New(Config{
		BaseURL:    "http://127.0.0.1:1",
		HTTPClient: &http.Client{Timeout: 200 * time.Millisecond},
	})
	require.NoError(t, err)

	_, err = client.Settings(context.Background(), "tok")
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

func TestServerErrorMapsToNetworkError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	_, err := client.Suppliers(context.Background(), "tok")
	assert.ErrorIs(t, err, apperr.ErrNetwork)
}

func TestDeleteUserSendsNoBodyAndAcceptsEmptyResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/users/7/", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, client.DeleteUser(context.Background(), "tok", 7))
}
