package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dtroode/smartmarks-server/internal/client"
	"github.com/dtroode/smartmarks-server/internal/importer"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Archive bookmarks as browser-compatible HTML",
		Long: `Archive bookmarks on the server as a Netscape bookmark file.
With --output the archive is also downloaded ("-" for stdout).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connectAuthenticated(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			name, err := conn.api.Export(cmd.Context())
			if err != nil {
				return err
			}

			switch output {
			case "":
				fmt.Fprintf(cmd.OutOrStdout(), "export %s created\n", name)
				return nil
			case "-":
				return conn.api.DownloadExport(cmd.Context(), name, cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := conn.api.DownloadExport(cmd.Context(), name, f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "export %s saved to %s\n", name, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "download the export to this file")
	return cmd
}

// ImportResult summarises an import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <bookmarks.html>",
		Short: "Import a browser bookmark export",
		Long: `Import every link of a Netscape bookmark file. Folders are flattened and
the server assigns new creation times.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			candidates, err := importer.ParseHTML(f)
			if err != nil {
				return err
			}

			conn, err := connectAuthenticated(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}

			var result ImportResult
			for _, c := range candidates {
				rawURL, title, err := client.PrepareBookmark(c.URL, c.Title)
				if err != nil {
					result.Skipped++
					continue
				}
				if _, err := conn.api.Create(cmd.Context(), rawURL, title); err != nil {
					if errors.Is(err, client.ErrRateLimited) || cmd.Context().Err() != nil {
						return err
					}
					result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", rawURL, err))
					continue
				}
				result.Imported++
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Print(result, func(w io.Writer) error {
				fmt.Fprintf(w, "imported %d, skipped %d, failed %d\n", result.Imported, result.Skipped, len(result.Errors))
				for _, e := range result.Errors {
					fmt.Fprintf(w, "  %s\n", e)
				}
				return nil
			})
		},
	}
}
