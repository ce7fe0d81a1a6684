// Package backend is the REST client for the upstream VetPOS server.
// Every authenticated call takes the bearer token as an argument: there
// is no process-global default header, so a sign-out can never race an
// in-flight request's credentials.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"vetpos/internal/apperr"
	"vetpos/internal/models"
)

// Client talks to the VetPOS backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a backend client. A nil HTTPClient gets a sane default
// with a timeout; timeout handling otherwise belongs entirely to the
// injected client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Token exchanges credentials for an access/refresh pair.
func (c *Client) Token(ctx context.Context, username, password string) (*models.TokenPair, error) {
	body := map[string]string{"username": username, "password": password}

	var pair models.TokenPair
	if err := c.do(ctx, http.MethodPost, "/token/", "", body, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

// Profile fetches the profile of the token's owner.
func (c *Client) Profile(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/user/profile/", token, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Products fetches the current catalog with live stock counts.
func (c *Client) Products(ctx context.Context, token string) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/products/", token, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Settings fetches shop settings, tax rate included.
func (c *Client) Settings(ctx context.Context, token string) (*models.Settings, error) {
	var settings models.Settings
	if err := c.do(ctx, http.MethodGet, "/settings/", token, nil, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// CreateSale posts a completed checkout. The returned sale carries the
// backend's authoritative total, which wins over any local preview.
func (c *Client) CreateSale(ctx context.Context, token string, req models.SaleRequest) (*models.Sale, error) {
	var sale models.Sale
	if err := c.do(ctx, http.MethodPost, "/sales/", token, req, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// Suppliers lists supplier records.
func (c *Client) Suppliers(ctx context.Context, token string) ([]models.Supplier, error) {
	var suppliers []models.Supplier
	if err := c.do(ctx, http.MethodGet, "/suppliers/", token, nil, &suppliers); err != nil {
		return nil, err
	}
	return suppliers, nil
}

// RestockHistory lists past restocking activity.
func (c *Client) RestockHistory(ctx context.Context, token string) ([]models.RestockRecord, error) {
	var records []models.RestockRecord
	if err := c.do(ctx, http.MethodGet, "/restock-history/", token, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Restock adds stock to a product.
func (c *Client) Restock(ctx context.Context, token string, productID uint, quantity int, supplier string) (*models.Product, error) {
	body := map[string]any{"quantity": quantity, "supplier": supplier}

	var product models.Product
	path := fmt.Sprintf("/products/%d/restock/", productID)
	if err := c.do(ctx, http.MethodPost, path, token, body, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Users lists staff accounts.
func (c *Client) Users(ctx context.Context, token string) ([]models.User, error) {
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "/users/", token, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// CreateUser creates a staff account.
func (c *Client) CreateUser(ctx context.Context, token string, req models.NewUserRequest) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/users/", token, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a staff account.
func (c *Client) DeleteUser(ctx context.Context, token string, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/users/%d/", id), token, nil, nil)
}

// Customers lists customer records.
func (c *Client) Customers(ctx context.Context, token string) ([]models.Customer, error) {
	var customers []models.Customer
	if err := c.do(ctx, http.MethodGet, "/customers/", token, nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// errorBody is the backend's standard error envelope.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (e errorBody) message() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Detail
}

// do issues one request and decodes the response into out (out may be
// nil for calls with no interesting body). Non-2xx responses are mapped
// onto the apperr taxonomy.
func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts, DNS failures, refused connections: all the same
		// outcome for the caller, the operation did not complete.
		return fmt.Errorf("%w: %v", apperr.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", apperr.ErrNetwork, err)
		}
		return nil
	}

	var envelope errorBody
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	_ = json.Unmarshal(raw, &envelope)

	return mapStatus(method, path, resp.StatusCode, envelope.message())
}

func mapStatus(method, path string, status int, message string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.ErrAuthentication
	case status == http.StatusConflict:
		return &apperr.ConflictError{Message: message}
	case method == http.MethodPost && path == "/sales/" && status == http.StatusBadRequest:
		// The backend reports losing a stock race as a plain 400 with
		// an explanatory message. Surface it verbatim so the operator
		// knows which product ran out.
		return &apperr.ConflictError{Message: message}
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if message == "" {
			message = "the server rejected the request"
		}
		return &apperr.ValidationError{Message: message}
	default:
		if message == "" {
			return fmt.Errorf("%w: unexpected status %d", apperr.ErrNetwork, status)
		}
		return fmt.Errorf("%w: %s", apperr.ErrNetwork, message)
	}
}

// Sanity helper used by callers that only care whether the session is
// still good.
func IsAuthFailure(err error) bool {
	return errors.Is(err, apperr.ErrAuthentication)
}
