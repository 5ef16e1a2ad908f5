package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/cienspay/cienspay-web/auth"
	"github.com/cienspay/cienspay-web/internal/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLoginCmd(a *app) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and keep the session on disk",
		Long: `Log in with email and password. The tokens are written to the session file
and reused by the other commands. Without --password the password is read from stdin.`,
		Example: `  cienspay login --email ana@example.com --password Secreta123
  echo "$PASSWORD" | cienspay login --email ana@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("reading password from stdin: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			m, err := a.manager()
			if err != nil {
				return err
			}
			svc, err := a.authService()
			if err != nil {
				return err
			}

			res, err := svc.Login(cmd.Context(), m, auth.LoginForm{Email: strings.TrimSpace(email), Password: password})
			if err != nil {
				var fieldErrs auth.FieldErrors
				if errors.As(err, &fieldErrs) {
					fmt.Fprintln(cmd.ErrOrStderr(), "Login failed:")
					printFieldErrors(cmd.ErrOrStderr(), fieldErrs)
					return errors.New("login failed")
				}
				return err
			}

			log.Ctx(cmd.Context()).Debug().Str("destination", res.Destination).Msg("logged in")
			role := "user"
			if m.IsAdmin() {
				role = "admin"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", res.User.Email, role)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove the stored tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			if !m.IsLoggedIn() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			svc, err := a.authService()
			if err != nil {
				return err
			}
			if err := svc.Logout(cmd.Context(), m); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newWhoamiCmd(a *app) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Long:  "Show the user stored with the session. With --remote the profile is fetched from the backend, refreshing the access token if needed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.manager()
			if err != nil {
				return err
			}
			if err := requireLogin(m); err != nil {
				return err
			}

			user, _ := m.User()
			if remote {
				api, err := a.api()
				if err != nil {
					return err
				}
				if user, err = api.Profile(cmd.Context(), m); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Email:     %s\n", user.Email)
			if user.FullName != "" {
				fmt.Fprintf(w, "Name:      %s\n", user.FullName)
			}
			if user.DocumentNumber != "" {
				fmt.Fprintf(w, "Document:  %s-%s\n", user.DocumentType, user.DocumentNumber)
			}
			fmt.Fprintf(w, "Admin:     %t\n", m.IsAdmin())
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "fetch the profile from the backend")
	return cmd
}
