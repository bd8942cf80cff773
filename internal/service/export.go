package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/smartmarks-server/internal/exporter"
	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// ErrExportsDisabled is returned when no object storage is configured.
var ErrExportsDisabled = errors.New("exports are disabled")

const exportContentType = "text/html; charset=utf-8"

// Export archives an owner's bookmarks as Netscape HTML in object storage.
type Export struct {
	store   model.BookmarkStore
	storage model.Storage
	logger  *logger.Logger
	now     func() time.Time
}

// NewExport creates an Export. A nil storage disables exports.
func NewExport(store model.BookmarkStore, storage model.Storage, logger *logger.Logger) *Export {
	return &Export{
		store:   store,
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
}

// Create renders the owner's bookmarks and uploads them, returning the
// export name.
func (s *Export) Create(ctx context.Context, ownerID uuid.UUID) (string, error) {
	if s.storage == nil {
		return "", ErrExportsDisabled
	}

	bookmarks, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return "", model.NewStoreError("list bookmarks", err)
	}

	body := exporter.ExportHTML(bookmarks)
	name := fmt.Sprintf("bookmarks-%s.html", s.now().UTC().Format("20060102T150405Z"))

	if err := s.storage.Upload(ctx, exportKey(ownerID, name), strings.NewReader(body), int64(len(body)), exportContentType); err != nil {
		s.logger.Error("Export service: failed to upload export",
			"owner_id", ownerID,
			"name", name,
			"error", err.Error())
		return "", model.NewStoreError("upload export", err)
	}

	s.logger.Info("Export service: export created",
		"owner_id", ownerID,
		"name", name,
		"bookmarks", len(bookmarks))

	return name, nil
}

// Open returns the contents of an export owned by ownerID.
func (s *Export) Open(ctx context.Context, ownerID uuid.UUID, name string) (io.ReadCloser, error) {
	if s.storage == nil {
		return nil, ErrExportsDisabled
	}
	if name == "" || path.Base(name) != name || !strings.HasSuffix(name, ".html") {
		return nil, model.NewValidationError("name", "export name is invalid")
	}

	key := exportKey(ownerID, name)
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return nil, model.NewStoreError("stat export", err)
	}
	if !exists {
		return nil, model.ErrNotFound
	}

	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, model.NewStoreError("download export", err)
	}
	return reader, nil
}

func exportKey(ownerID uuid.UUID, name string) string {
	return path.Join("exports", ownerID.String(), name)
}
