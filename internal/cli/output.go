package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dtroode/smartmarks-server/internal/model"
	"github.com/dtroode/smartmarks-server/internal/reconcile"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Print writes v as indented JSON in json mode and calls text otherwise.
func (f *OutputFormatter) Print(v any, text func(w io.Writer) error) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(f.Writer)
}

func writeBookmarks(w io.Writer, bookmarks []model.Bookmark) error {
	if len(bookmarks) == 0 {
		_, err := fmt.Fprintln(w, "no bookmarks")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tURL\tCREATED")
	for _, b := range bookmarks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Title, b.URL, b.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func writeView(w io.Writer, u reconcile.Update) error {
	header := fmt.Sprintf("--- %d bookmarks", len(u.Items))
	if u.Pending > 0 {
		header += fmt.Sprintf(", %d saving", u.Pending)
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range u.Items {
		marker := " "
		if e.State == reconcile.StateDeleting {
			marker = "x"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", marker, e.ID, e.Title, e.URL)
	}
	return tw.Flush()
}
