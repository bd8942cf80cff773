package client

import (
	"strings"

	"github.com/dtroode/smartmarks-server/internal/model"
)

// PrepareBookmark normalizes user input the way the server stores it and
// rejects empty fields before any request is made.
func PrepareBookmark(rawURL, title string) (string, string, error) {
	rawURL = model.NormalizeURL(rawURL)
	title = strings.TrimSpace(title)
	if rawURL == "" {
		return "", "", model.NewValidationError("url", "URL and title are required")
	}
	if title == "" {
		return "", "", model.NewValidationError("title", "URL and title are required")
	}
	return rawURL, title, nil
}
