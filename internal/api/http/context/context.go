package context

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct{}

var userIDKey = contextKey{}

// Manager stores the authenticated user ID in request contexts.
type Manager struct{}

// NewManager creates a new HTTP context manager instance.
//
// Returns a pointer to the newly created Manager instance.
func NewManager() *Manager {
	return &Manager{}
}

// SetUserIDToContext returns a copy of ctx carrying userID.
//
// Parameters:
//   - ctx: The request context
//   - userID: The authenticated user UUID
//
// Returns a new context with the user ID attached.
func (m *Manager) SetUserIDToContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext retrieves the user ID set by SetUserIDToContext.
//
// Parameters:
//   - ctx: The request context
//
// Returns the user UUID and a boolean indicating if a non-nil user ID was found.
func (m *Manager) GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}
