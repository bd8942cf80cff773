// Package cli implements the smartmarks command line client.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// DefaultServer is used when neither --server nor saved credentials name one.
const DefaultServer = "http://localhost:8080"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server      string
	Credentials string
	Format      string
	Verbose     bool
}

// NewRootCommand creates the root command for the smartmarks CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "smartmarks",
		Short: "Smartmarks - bookmarks that stay in sync",
		Long:  "Manage your smartmarks bookmarks and watch changes from other devices as they happen.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "server base URL (default: saved server or "+DefaultServer+")")
	cmd.PersistentFlags().StringVar(&opts.Credentials, "credentials", "", "credentials file (default: user config dir)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}
