package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/dtroode/smartmarks-server/internal/client"
	"github.com/dtroode/smartmarks-server/internal/logger"
	"github.com/dtroode/smartmarks-server/internal/model"
)

// NewListCommand creates the ls command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var search string

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List bookmarks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connectAuthenticated(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			bookmarks, err := conn.api.List(cmd.Context())
			if err != nil {
				return err
			}
			if search != "" {
				bookmarks = FuzzyFilter(bookmarks, search)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Print(bookmarks, func(w io.Writer) error {
				return writeBookmarks(w, bookmarks)
			})
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "fuzzy filter on title and URL")
	return cmd
}

// bookmarkText implements fuzzy.Source over title and URL.
type bookmarkText []model.Bookmark

func (b bookmarkText) String(i int) string { return b[i].Title + " " + b[i].URL }

func (b bookmarkText) Len() int { return len(b) }

// FuzzyFilter keeps the bookmarks matching query, best match first.
func FuzzyFilter(bookmarks []model.Bookmark, query string) []model.Bookmark {
	matches := fuzzy.FindFrom(query, bookmarkText(bookmarks))
	out := make([]model.Bookmark, len(matches))
	for i, m := range matches {
		out[i] = bookmarks[m.Index]
	}
	return out
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url> <title...>",
		Short: "Save a bookmark",
		Long:  "Save a bookmark. URLs without http:// or https:// are saved as https://.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawURL, title, err := client.PrepareBookmark(args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			conn, err := connectAuthenticated(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			created, err := conn.api.Create(cmd.Context(), rawURL, title)
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Print(created, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "saved %s %s\n", created.ID, created.URL)
				return err
			})
		},
	}
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Delete bookmarks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, len(args))
			for i, arg := range args {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid bookmark id %q", arg)
				}
				ids[i] = id
			}

			conn, err := connectAuthenticated(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}

			var errs []error
			for _, id := range ids {
				if err := conn.api.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			}
			return errors.Join(errs...)
		},
	}
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Show bookmarks and follow changes live",
		Long: `Show bookmarks and redraw the list whenever they change on any device.
Stops on interrupt or when the session can no longer be renewed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connectAuthenticated(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}

			level := 8
			if rootOpts.Verbose {
				level = 0
			}
			log := logger.NewWithWriter(cmd.ErrOrStderr(), level)

			feed := client.NewFeed(conn.api.RealtimeURL(), conn.api.AccessToken, log)
			session := client.NewSession(conn.api, feed, log)
			if err := session.Start(cmd.Context()); err != nil {
				return err
			}
			return watch(cmd, rootOpts, session)
		},
	}
}

func watch(cmd *cobra.Command, rootOpts *RootOptions, session *client.Session) error {
	defer session.Close()

	out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return session.Close()
		case u, ok := <-session.Updates():
			if !ok {
				return session.Close()
			}
			if err := out.Print(u, func(w io.Writer) error { return writeView(w, u) }); err != nil {
				return err
			}
		}
	}
}
