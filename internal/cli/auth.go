package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dtroode/smartmarks-server/internal/model"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "register <email>",
		Short: "Create an account",
		Long:  "Create an account. The password is read from the first line of stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(rootOpts)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			params := model.RegisterParams{Email: args[0], Password: password}
			if name != "" {
				params.Name = &name
			}
			profile, err := conn.api.Register(cmd.Context(), params)
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Print(profile, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "registered %s, now run smartmarks login %s\n", profile.Email, profile.Email)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and save the session",
		Long:  "Sign in and save the session. The password is read from the first line of stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connect(rootOpts)
			if err != nil {
				return err
			}
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}

			session, err := conn.api.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			conn.creds.Email = strings.ToLower(strings.TrimSpace(args[0]))
			conn.creds.AccessToken = session.AccessToken
			conn.creds.RefreshToken = session.RefreshToken
			if err := conn.save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "logged in to %s as %s\n", conn.creds.Server, conn.creds.Email)
			return nil
		},
	}
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session on the server and forget it locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connectAuthenticated(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			signOutErr := conn.api.SignOut(cmd.Context())

			// Forget the tokens even when the server could not be reached.
			conn.creds.AccessToken = ""
			conn.creds.RefreshToken = ""
			if err := conn.save(); err != nil {
				return err
			}
			if signOutErr != nil {
				return fmt.Errorf("signed out locally, server sign out failed: %w", signOutErr)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := connectAuthenticated(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			profile, err := conn.api.Me(cmd.Context())
			if err != nil {
				return err
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return out.Print(profile, func(w io.Writer) error {
				line := profile.Email
				if profile.Name != nil {
					line = fmt.Sprintf("%s <%s>", *profile.Name, profile.Email)
				}
				_, err := fmt.Fprintf(w, "%s (%s)\n", line, profile.ID)
				return err
			})
		},
	}
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required on stdin")
	}
	return password, nil
}
