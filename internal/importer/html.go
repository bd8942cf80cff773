// Package importer reads bookmarks exported by browsers.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Candidate is a bookmark found in an import file. Folders are flattened.
type Candidate struct {
	URL     string
	Title   string
	AddedAt time.Time
}

// ParseHTML extracts every link from a Netscape bookmark file. Links without
// an href are skipped and a missing title falls back to the URL.
func ParseHTML(r io.Reader) ([]Candidate, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bookmark file: %w", err)
	}

	var out []Candidate
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && strings.EqualFold(n.Data, "a") {
			if c, ok := candidate(n); ok {
				out = append(out, c)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return out, nil
}

func candidate(n *html.Node) (Candidate, bool) {
	href := strings.TrimSpace(attr(n, "href"))
	if href == "" {
		return Candidate{}, false
	}

	title := strings.TrimSpace(text(n))
	if title == "" {
		title = href
	}

	c := Candidate{URL: href, Title: title}
	if raw := attr(n, "add_date"); raw != "" {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			c.AddedAt = time.Unix(ts, 0).UTC()
		}
	}
	return c, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}
