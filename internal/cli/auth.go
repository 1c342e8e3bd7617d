package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auditportal/auditportal/internal/api"
	"github.com/auditportal/auditportal/internal/models"
	"github.com/auditportal/auditportal/internal/session"
	"github.com/auditportal/auditportal/internal/validation"
)

func newSigninCmd() *cobra.Command {
	var (
		companyID     string
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to the portal",
		Long: `Sign in with your company id, username and password.

The session is stored in ~/.config/auditportal/session.json. If the
account must change its password first, signin stores a change token
and 'auditportal passwd' completes the change.

Examples:
  auditportal signin --company 1234567 --username alice
  echo "$PASSWORD" | auditportal signin --company 1234567 --username alice --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(false, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

			if companyID == "" {
				if companyID, err = p.Required("Company ID"); err != nil {
					return err
				}
			}
			if username == "" {
				if username, err = p.Required("Username"); err != nil {
					return err
				}
			}
			var password string
			if passwordStdin {
				password, err = p.readLine()
			} else {
				password, err = p.Secret("Password")
			}
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}

			resp, err := env.client.Login(GetContext(), models.LoginRequest{
				CompanyID: companyID,
				Username:  username,
				Password:  password,
			})

			sess := env.session
			switch {
			case errors.Is(err, api.ErrPasswordChangeRequired):
				sess.Token = ""
				sess.ChangeToken = resp.ChangeToken
				sess.Identity = identityFrom(resp.User, companyID, username)
				if err := sess.Save(); err != nil {
					return err
				}
				fmt.Fprintln(out, "Password change required. Run 'auditportal passwd' to set a new password.")
				return nil
			case err != nil:
				return fmt.Errorf("sign-in failed: %w", err)
			}

			sess.Token = resp.Token
			sess.ChangeToken = ""
			sess.Identity = identityFrom(resp.User, companyID, username)
			if err := sess.Save(); err != nil {
				return err
			}
			env.logger.Debug().Str("user", sess.Identity.Username).Msg("signed in")
			fmt.Fprintf(out, "Signed in as %s", sess.Identity.Username)
			if sess.Identity.ProjectName != "" {
				fmt.Fprintf(out, " (%s)", sess.Identity.ProjectName)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&companyID, "company", "", "Company id")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

// identityFrom prefers what the backend reports and falls back to what
// the user typed.
func identityFrom(u models.UserInfo, companyID, username string) session.Identity {
	id := session.Identity{
		Username:    u.Username,
		CompanyID:   u.CompanyID,
		ProjectName: u.ProjectName,
	}
	if id.Username == "" {
		id.Username = username
	}
	if id.CompanyID == "" {
		id.CompanyID = companyID
	}
	return id
}

func newSignoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := session.Load(sessionPath())
			if err != nil {
				return err
			}
			if err := sess.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := session.Load(sessionPath())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if sess.PasswordChangePending() {
				fmt.Fprintf(out, "%s (password change pending)\n", sess.Identity.Username)
				return nil
			}
			id, ok := sess.CurrentUser()
			if !ok {
				return withSigninHint(session.ErrNoSession)
			}
			fmt.Fprintf(out, "Username: %s\n", id.Username)
			fmt.Fprintf(out, "Company:  %s\n", dash(id.CompanyID))
			fmt.Fprintf(out, "Project:  %s\n", dash(id.ProjectName))
			return nil
		},
	}
}

func newPasswdCmd() *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your password",
		Long: `Change the account password.

A new password needs at least 8 characters and three of: lowercase
letters, uppercase letters, digits, symbols.

After a first sign-in that requires a password change, passwd uses the
stored change token; sign in again with the new password afterwards.

With --password-stdin, three lines are read: current, new, confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnv(false, nil)
			if err != nil {
				return err
			}
			sess := env.session
			token := sess.Token
			pending := sess.PasswordChangePending()
			if pending {
				token = sess.ChangeToken
			}
			if token == "" {
				return withSigninHint(session.ErrNoSession)
			}

			p := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
			read := p.Secret
			if passwordStdin {
				read = func(string) (string, error) { return p.readLine() }
			}
			current, err := read("Current password")
			if err != nil {
				return err
			}
			next, err := read("New password")
			if err != nil {
				return err
			}
			confirm, err := read("Confirm new password")
			if err != nil {
				return err
			}
			if err := validation.ValidatePassword(next, confirm); err != nil {
				return err
			}

			msg, err := env.client.WithToken(token).ChangePassword(GetContext(), current, next)
			if err != nil {
				return fmt.Errorf("password change failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if msg == "" {
				msg = "Password changed"
			}
			fmt.Fprintln(out, msg)
			if pending {
				identity := sess.Identity
				if err := sess.Clear(); err != nil {
					return err
				}
				fmt.Fprintf(out, "Sign in again: auditportal signin --company %s --username %s\n",
					identity.CompanyID, identity.Username)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the passwords from stdin")
	return cmd
}
