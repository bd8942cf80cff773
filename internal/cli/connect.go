package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dtroode/smartmarks-server/internal/client"
)

// ErrNotLoggedIn is returned by commands that need a session.
var ErrNotLoggedIn = errors.New("not logged in: run smartmarks login")

// refreshLeeway renews access tokens this close to expiry before use.
const refreshLeeway = 30 * time.Second

// connection is an API client plus the credentials it was built from.
type connection struct {
	api   *client.API
	creds Credentials
	path  string
}

func (c *connection) save() error {
	return c.creds.Save(c.path)
}

func connect(opts *RootOptions) (*connection, error) {
	path := opts.Credentials
	if path == "" {
		var err error
		if path, err = DefaultCredentialsPath(); err != nil {
			return nil, err
		}
	}

	creds, err := LoadCredentials(path)
	if err != nil {
		return nil, err
	}

	server := creds.Server
	if opts.Server != "" {
		server = opts.Server
	}
	if server == "" {
		server = DefaultServer
	}
	creds.Server = server

	api, err := client.NewAPI(server, client.WithAccessToken(creds.AccessToken))
	if err != nil {
		return nil, err
	}
	return &connection{api: api, creds: creds, path: path}, nil
}

// connectAuthenticated also renews an access token that is about to expire.
func connectAuthenticated(ctx context.Context, opts *RootOptions) (*connection, error) {
	conn, err := connect(opts)
	if err != nil {
		return nil, err
	}
	if !conn.creds.LoggedIn() {
		return nil, ErrNotLoggedIn
	}

	if !expiresWithin(conn.creds.AccessToken, refreshLeeway, time.Now()) {
		return conn, nil
	}
	if conn.creds.RefreshToken == "" {
		return nil, ErrNotLoggedIn
	}

	session, err := conn.api.Refresh(ctx, conn.creds.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("session expired, log in again: %w", err)
	}
	conn.creds.AccessToken = session.AccessToken
	conn.creds.RefreshToken = session.RefreshToken
	if err := conn.save(); err != nil {
		return nil, err
	}
	return conn, nil
}

// expiresWithin reads the exp claim without verifying the signature; the
// server still verifies every token it receives.
func expiresWithin(token string, d time.Duration, now time.Time) bool {
	if token == "" {
		return true
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Before(now.Add(d))
}
