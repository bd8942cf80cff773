package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	httpctx "github.com/dtroode/smartmarks-server/internal/api/http/context"
)

var ctxManager = httpctx.NewManager()

func withUser(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(ctxManager.SetUserIDToContext(r.Context(), userID))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}
