package exporter

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"

	"github.com/dtroode/smartmarks-server/internal/model"
)

// Run with -update to regenerate testdata/golden.
func TestExportHTML_Golden(t *testing.T) {
	out := ExportHTML([]model.Bookmark{
		{ID: uuid.New(), URL: "https://go.dev/doc/", Title: "Go docs", CreatedAt: time.Unix(1700000000, 0)},
		{ID: uuid.New(), URL: "http://example.com/a?b=1&c=2", Title: "Notes & \"quotes\"", CreatedAt: time.Unix(1600000000, 0)},
		{ID: uuid.New(), URL: "mailto:someone", Title: "No host", CreatedAt: time.Unix(1500000000, 0)},
	})

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "netscape", []byte(out))
}
