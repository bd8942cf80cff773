package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/smartmarks-server/internal/model"
)

var _ model.BookmarkStore = (*BookmarkStore)(nil)

type BookmarkStore struct {
	mock.Mock
}

func NewBookmarkStore(t testingT) *BookmarkStore {
	m := &BookmarkStore{}
	register(&m.Mock, t)
	return m
}

func (m *BookmarkStore) Insert(ctx context.Context, bookmark model.Bookmark) (model.Bookmark, error) {
	args := m.Called(ctx, bookmark)
	return args.Get(0).(model.Bookmark), args.Error(1)
}

func (m *BookmarkStore) DeleteOwned(ctx context.Context, ownerID uuid.UUID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, ownerID, id)
	return args.Bool(0), args.Error(1)
}

func (m *BookmarkStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Bookmark, error) {
	args := m.Called(ctx, ownerID)
	list, _ := args.Get(0).([]model.Bookmark)
	return list, args.Error(1)
}
