package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/smartmarks-server/internal/mocks"
	"github.com/dtroode/smartmarks-server/internal/model"
	"github.com/dtroode/smartmarks-server/internal/testutil"
)

func TestBookmark_Create(t *testing.T) {
	owner := uuid.New()
	created := model.Bookmark{
		ID:        uuid.New(),
		URL:       "https://example.com",
		Title:     "Example",
		OwnerID:   owner,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		body       string
		anonymous  bool
		setup      func(svc *mocks.BookmarkService)
		wantStatus int
		wantError  string
	}{
		{
			name: "created",
			body: `{"url":"example.com","title":"Example"}`,
			setup: func(svc *mocks.BookmarkService) {
				svc.On("Create", mock.Anything, model.CreateBookmarkParams{OwnerID: owner, URL: "example.com", Title: "Example"}).
					Return(created, nil).Once()
			},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "no session",
			body:       `{"url":"example.com","title":"Example"}`,
			anonymous:  true,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Unauthorized",
		},
		{
			name: "missing title",
			body: `{"url":"example.com"}`,
			setup: func(svc *mocks.BookmarkService) {
				svc.On("Create", mock.Anything, mock.Anything).
					Return(model.Bookmark{}, model.NewValidationError("title", "URL and title are required")).Once()
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "URL and title are required",
		},
		{
			name:       "malformed body",
			body:       `{"url":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
		{
			name: "store failure",
			body: `{"url":"example.com","title":"Example"}`,
			setup: func(svc *mocks.BookmarkService) {
				svc.On("Create", mock.Anything, mock.Anything).
					Return(model.Bookmark{}, &model.StoreError{Op: "insert bookmark", Err: errors.New("db down")}).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "db down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewBookmarkService(t)
			if tt.setup != nil {
				tt.setup(svc)
			}
			h := NewBookmark(svc, ctxManager, testutil.MakeNoopLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/bookmarks", strings.NewReader(tt.body))
			if !tt.anonymous {
				req = withUser(req, owner)
			}
			rec := httptest.NewRecorder()

			h.Create(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rec))
				return
			}
			var got model.Bookmark
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, owner, got.OwnerID)
			assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
			assert.Contains(t, rec.Body.String(), `"user_id"`)
		})
	}
}

func TestBookmark_Delete(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()

	tests := []struct {
		name       string
		query      string
		anonymous  bool
		setup      func(svc *mocks.BookmarkService)
		wantStatus int
		wantError  string
	}{
		{
			name:  "deleted",
			query: "?id=" + id.String(),
			setup: func(svc *mocks.BookmarkService) {
				svc.On("Delete", mock.Anything, owner, id).Return(nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing id",
			query:      "",
			wantStatus: http.StatusBadRequest,
			wantError:  "ID is required",
		},
		{
			name:       "invalid id",
			query:      "?id=nope",
			wantStatus: http.StatusBadRequest,
			wantError:  "ID is invalid",
		},
		{
			name:       "no session",
			query:      "?id=" + id.String(),
			anonymous:  true,
			wantStatus: http.StatusUnauthorized,
			wantError:  "Unauthorized",
		},
		{
			name:  "store failure",
			query: "?id=" + id.String(),
			setup: func(svc *mocks.BookmarkService) {
				svc.On("Delete", mock.Anything, owner, id).
					Return(&model.StoreError{Op: "delete bookmark", Err: errors.New("timeout")}).Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewBookmarkService(t)
			if tt.setup != nil {
				tt.setup(svc)
			}
			h := NewBookmark(svc, ctxManager, testutil.MakeNoopLogger())

			req := httptest.NewRequest(http.MethodDelete, "/api/bookmarks"+tt.query, nil)
			if !tt.anonymous {
				req = withUser(req, owner)
			}
			rec := httptest.NewRecorder()

			h.Delete(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, decodeError(t, rec))
				return
			}
			assert.JSONEq(t, `{"success":true}`, rec.Body.String())
		})
	}
}

func TestBookmark_List(t *testing.T) {
	owner := uuid.New()
	list := []model.Bookmark{
		{ID: uuid.New(), URL: "https://b.example", Title: "B", OwnerID: owner},
		{ID: uuid.New(), URL: "https://a.example", Title: "A", OwnerID: owner},
	}

	svc := mocks.NewBookmarkService(t)
	svc.On("List", mock.Anything, owner).Return(list, nil).Once()
	h := NewBookmark(svc, ctxManager, testutil.MakeNoopLogger())

	rec := httptest.NewRecorder()
	h.List(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil), owner))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []model.Bookmark
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, list[0].ID, got[0].ID)
	assert.Equal(t, list[1].ID, got[1].ID)
}
