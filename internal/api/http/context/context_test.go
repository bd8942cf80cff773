package context

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestManager_RoundTrip(t *testing.T) {
	t.Parallel()
	m := NewManager()
	userID := uuid.New()

	ctx := m.SetUserIDToContext(context.Background(), userID)

	got, ok := m.GetUserIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, userID, got)
}

func TestManager_Missing(t *testing.T) {
	t.Parallel()
	m := NewManager()

	tests := []struct {
		name string
		ctx  context.Context
	}{
		{name: "empty context", ctx: context.Background()},
		{name: "nil user id", ctx: m.SetUserIDToContext(context.Background(), uuid.Nil)},
		{name: "foreign key type", ctx: context.WithValue(context.Background(), "user_id", uuid.New())}, //nolint:staticcheck
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.GetUserIDFromContext(tt.ctx)
			assert.False(t, ok)
			assert.Equal(t, uuid.Nil, got)
		})
	}
}
