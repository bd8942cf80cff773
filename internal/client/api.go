// Package client talks to a smartmarks server: REST calls, the realtime
// websocket feed and a Session that keeps a reconciled view of the user's
// bookmarks.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/model"
)

var (
	ErrRateLimited = errors.New("too many requests")
	ErrUnavailable = errors.New("service unavailable")
)

const (
	bookmarksPath = "/api/bookmarks"
	realtimePath  = "/api/bookmarks/realtime"
	exportsPath   = "/api/bookmarks/exports"
)

// API is a JSON client of the smartmarks HTTP surface.
type API struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

// Option configures an API.
type Option func(*API)

// WithHTTPClient replaces the default client with a 30 second timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.httpClient = c }
}

// WithAccessToken authenticates every request with token.
func WithAccessToken(token string) Option {
	return func(a *API) { a.accessToken = token }
}

// NewAPI creates a client for the server at baseURL.
func NewAPI(baseURL string, opts ...Option) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	a := &API{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *API) SetAccessToken(token string) {
	a.mu.Lock()
	a.accessToken = token
	a.mu.Unlock()
}

func (a *API) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.accessToken
}

// RealtimeURL is the websocket address of the change feed.
func (a *API) RealtimeURL() string {
	u := *a.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path += realtimePath
	return u.String()
}

func (a *API) List(ctx context.Context) ([]model.Bookmark, error) {
	var out []model.Bookmark
	if err := a.do(ctx, http.MethodGet, bookmarksPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Create(ctx context.Context, rawURL, title string) (model.Bookmark, error) {
	body := map[string]string{"url": rawURL, "title": title}
	var out model.Bookmark
	if err := a.do(ctx, http.MethodPost, bookmarksPath, body, &out); err != nil {
		return model.Bookmark{}, err
	}
	return out, nil
}

func (a *API) Delete(ctx context.Context, id uuid.UUID) error {
	return a.do(ctx, http.MethodDelete, bookmarksPath+"?id="+url.QueryEscape(id.String()), nil, nil)
}

func (a *API) Register(ctx context.Context, params model.RegisterParams) (model.Profile, error) {
	body := struct {
		Email    string  `json:"email"`
		Password string  `json:"password"`
		Name     *string `json:"name,omitempty"`
		Avatar   *string `json:"avatar,omitempty"`
	}{params.Email, params.Password, params.Name, params.Avatar}

	var out model.Profile
	if err := a.do(ctx, http.MethodPost, "/api/auth/register", body, &out); err != nil {
		return model.Profile{}, err
	}
	return out, nil
}

// Login exchanges credentials for a session and uses its access token from
// then on.
func (a *API) Login(ctx context.Context, email, password string) (model.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var out model.Session
	if err := a.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return model.Session{}, err
	}
	a.SetAccessToken(out.AccessToken)
	return out, nil
}

// Refresh rotates the refresh token. The old one stops working.
func (a *API) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var out model.Session
	if err := a.do(ctx, http.MethodPost, "/api/auth/refresh", body, &out); err != nil {
		return model.Session{}, err
	}
	a.SetAccessToken(out.AccessToken)
	return out, nil
}

func (a *API) Me(ctx context.Context) (model.Profile, error) {
	var out model.Profile
	if err := a.do(ctx, http.MethodGet, "/api/auth/me", nil, &out); err != nil {
		return model.Profile{}, err
	}
	return out, nil
}

func (a *API) SignOut(ctx context.Context) error {
	if err := a.do(ctx, http.MethodPost, "/api/auth/signout", nil, nil); err != nil {
		return err
	}
	a.SetAccessToken("")
	return nil
}

// Export archives the current bookmarks on the server and returns the
// export name.
func (a *API) Export(ctx context.Context) (string, error) {
	var out struct {
		Name string `json:"name"`
	}
	if err := a.do(ctx, http.MethodPost, exportsPath, nil, &out); err != nil {
		return "", err
	}
	return out.Name, nil
}

// DownloadExport copies the named export into w.
func (a *API) DownloadExport(ctx context.Context, name string, w io.Writer) error {
	resp, err := a.send(ctx, http.MethodGet, exportsPath+"/"+url.PathEscape(name), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	return nil
}

func (a *API) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := a.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (a *API) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL.String()+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	return resp, nil
}

// checkStatus maps error responses onto the model error taxonomy.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	var body struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	if body.Error == "" {
		body.Error = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return model.NewValidationError("request", body.Error)
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", model.ErrUnauthorized, body.Error)
	case resp.StatusCode == http.StatusNotFound:
		return model.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return model.ErrEmailTaken
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrUnavailable, body.Error)
	case resp.StatusCode >= http.StatusInternalServerError:
		return model.NewStoreError("server", errors.New(body.Error))
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body.Error)
	}
}
