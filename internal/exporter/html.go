package exporter

import (
	"fmt"
	"html"
	"strings"

	"github.com/dtroode/smartmarks-server/internal/model"
)

// ExportHTML renders bookmarks in Netscape bookmark HTML format, keeping the
// given order.
func ExportHTML(bookmarks []model.Bookmark) string {
	var b strings.Builder

	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	for _, bookmark := range bookmarks {
		fmt.Fprintf(&b, "    <DT><A HREF=\"%s\" ADD_DATE=\"%d\"",
			html.EscapeString(bookmark.URL),
			bookmark.CreatedAt.Unix(),
		)
		if icon := model.FaviconURL(bookmark.URL); icon != "" {
			fmt.Fprintf(&b, " ICON_URI=\"%s\"", html.EscapeString(icon))
		}
		fmt.Fprintf(&b, ">%s</A>\n", html.EscapeString(bookmark.Title))
	}

	b.WriteString("</DL><p>\n")

	return b.String()
}
