package mocks

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/smartmarks-server/internal/model"
)

type BookmarkService struct {
	mock.Mock
}

func NewBookmarkService(t testingT) *BookmarkService {
	m := &BookmarkService{}
	register(&m.Mock, t)
	return m
}

func (m *BookmarkService) Create(ctx context.Context, params model.CreateBookmarkParams) (model.Bookmark, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.Bookmark), args.Error(1)
}

func (m *BookmarkService) Delete(ctx context.Context, ownerID uuid.UUID, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

func (m *BookmarkService) List(ctx context.Context, ownerID uuid.UUID) ([]model.Bookmark, error) {
	args := m.Called(ctx, ownerID)
	list, _ := args.Get(0).([]model.Bookmark)
	return list, args.Error(1)
}

type AuthService struct {
	mock.Mock
}

func NewAuthService(t testingT) *AuthService {
	m := &AuthService{}
	register(&m.Mock, t)
	return m
}

func (m *AuthService) Register(ctx context.Context, params model.RegisterParams) (model.Profile, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.Profile), args.Error(1)
}

func (m *AuthService) Login(ctx context.Context, email, password string) (model.Session, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *AuthService) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	args := m.Called(ctx, refreshToken)
	return args.Get(0).(model.Session), args.Error(1)
}

func (m *AuthService) SignOut(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(model.Profile), args.Error(1)
}

type ExportService struct {
	mock.Mock
}

func NewExportService(t testingT) *ExportService {
	m := &ExportService{}
	register(&m.Mock, t)
	return m
}

func (m *ExportService) Create(ctx context.Context, ownerID uuid.UUID) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

func (m *ExportService) Open(ctx context.Context, ownerID uuid.UUID, name string) (io.ReadCloser, error) {
	args := m.Called(ctx, ownerID, name)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

// TokenService resolves access tokens for the authentication middleware.
type TokenService struct {
	mock.Mock
}

func NewTokenService(t testingT) *TokenService {
	m := &TokenService{}
	register(&m.Mock, t)
	return m
}

func (m *TokenService) GetUserID(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type Pinger struct {
	mock.Mock
}

func NewPinger(t testingT) *Pinger {
	m := &Pinger{}
	register(&m.Mock, t)
	return m
}

func (m *Pinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
