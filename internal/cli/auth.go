package cli

import (
	"bufio"
	"fmt"
	"strings"

	"kanban-cli/internal/api"

	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				pw, err := readSecret(cmd, "Password: ")
				if err != nil {
					return writeErr(cmd, err)
				}
				password = pw
			}
			u, err := app.session.Login(cmd.Context(), app.client, email, password)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, u, map[string]any{"expiresAt": app.session.ExpiresAt()})
		},
	}

	cmd.Flags().StringVar(&email, "email", envOr("KANBAN_EMAIL", ""), "Account email")
	cmd.Flags().StringVar(&password, "password", envOr("KANBAN_PASSWORD", ""), "Account password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var creds api.Credentials

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				pw, err := readSecret(cmd, "Password: ")
				if err != nil {
					return writeErr(cmd, err)
				}
				creds.Password = pw
			}
			u, err := app.session.Register(cmd.Context(), app.client, creds)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, u, nil)
		},
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Username, "username", "", "Display name")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.session.Logout(); err != nil {
				return writeErr(cmd, err)
			}
			return writeData(cmd, app, map[string]any{"loggedOut": true}, nil)
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireLogin(); err != nil {
				return writeErr(cmd, err)
			}
			u, _ := app.session.User()
			if remote {
				fresh, err := app.client.Me(cmd.Context())
				if err != nil {
					return writeErr(cmd, err)
				}
				if err := app.session.SetUser(fresh); err != nil {
					return writeErr(cmd, err)
				}
				u = fresh
			}
			return writeData(cmd, app, u, map[string]any{"expiresAt": app.session.ExpiresAt()})
		},
	}

	cmd.Flags().BoolVar(&remote, "refresh", false, "Fetch the profile from the backend")
	return cmd
}

// readSecret reads one line from the command's input. Piped input works the same as a tty.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
