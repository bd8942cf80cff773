package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/api/http/handler"
	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// AccessTokenQueryParam carries the token for clients that cannot set headers
// on a websocket handshake.
const AccessTokenQueryParam = "access_token"

// TokenService resolves user ID from bearer tokens.
type TokenService interface {
	GetUserID(ctx context.Context, token string) (uuid.UUID, error)
}

// Authenticate validates bearer tokens and injects user ID into context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// Handler rejects requests without a valid access token with 401.
func (m *Authenticate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.authenticateUser(r)
		if !ok {
			handler.WriteError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ctx := m.contextManager.SetUserIDToContext(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Authenticate) authenticateUser(r *http.Request) (uuid.UUID, bool) {
	token := bearerToken(r)
	if token == "" {
		return uuid.Nil, false
	}

	userID, err := m.tokenService.GetUserID(r.Context(), token)
	if err != nil {
		m.logger.Debug("Authenticate: token rejected", "path", r.URL.Path, "error", err.Error())
		return uuid.Nil, false
	}

	return userID, userID != uuid.Nil
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get(AccessTokenQueryParam)
}
