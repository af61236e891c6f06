package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evanschultz/trackit/internal/domain"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, cleanup, err := openRuntime(ctx, opts, modeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			return rt.flow("login", func() error {
				if password == "" {
					password, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
					if err != nil {
						return err
					}
				}
				user, err := rt.session.Login(ctx, username, password)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", user.Username)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password (read from stdin when omitted)")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var in domain.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, cleanup, err := openRuntime(ctx, opts, modeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			return rt.flow("register", func() error {
				if in.Password == "" {
					in.Password, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Password: ")
					if err != nil {
						return err
					}
				}
				user, err := rt.session.Register(ctx, in)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "registered %s; run `trackit login -u %s` to sign in\n", user.Username, user.Username)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&in.Username, "username", "u", "", "account username")
	flags.StringVar(&in.Email, "email", "", "email address")
	flags.StringVarP(&in.Password, "password", "p", "", "account password (read from stdin when omitted)")
	flags.StringVar(&in.FirstName, "first-name", "", "first name")
	flags.StringVar(&in.LastName, "last-name", "", "last name")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, cleanup, err := openRuntime(ctx, opts, modeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			return rt.flow("logout", func() error {
				if err := rt.session.Logout(ctx); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "logged out")
				return nil
			})
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, cleanup, err := openRuntime(ctx, opts, modeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			return rt.flow("whoami", func() error {
				creds, err := rt.requireSession(ctx)
				if err != nil {
					return err
				}
				user := creds.User
				if refresh {
					if user, err = rt.session.Refresh(ctx); err != nil {
						return err
					}
				}
				writeUser(cmd.OutOrStdout(), user)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "reload the profile from the server first")
	return cmd
}

func newProfileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the account profile",
	}

	var email, firstName, lastName, picture, timezone string
	update := &cobra.Command{
		Use:   "update",
		Short: "Update profile fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			var patch domain.ProfilePatch
			if flags.Changed("email") {
				patch.Email = &email
			}
			if flags.Changed("first-name") {
				patch.FirstName = &firstName
			}
			if flags.Changed("last-name") {
				patch.LastName = &lastName
			}
			if flags.Changed("picture") {
				patch.ProfilePicture = &picture
			}
			if flags.Changed("timezone") {
				patch.Timezone = &timezone
			}
			if patch == (domain.ProfilePatch{}) {
				return errors.New("nothing to update: pass at least one field flag")
			}

			ctx := cmd.Context()
			rt, cleanup, err := openRuntime(ctx, opts, modeCLI, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer cleanup()

			return rt.flow("profile update", func() error {
				if _, err := rt.requireSession(ctx); err != nil {
					return err
				}
				user, err := rt.session.UpdateProfile(ctx, patch)
				if err != nil {
					return err
				}
				writeUser(cmd.OutOrStdout(), user)
				return nil
			})
		},
	}
	flags := update.Flags()
	flags.StringVar(&email, "email", "", "email address")
	flags.StringVar(&firstName, "first-name", "", "first name")
	flags.StringVar(&lastName, "last-name", "", "last name")
	flags.StringVar(&picture, "picture", "", "profile picture URL")
	flags.StringVar(&timezone, "timezone", "", "IANA timezone, e.g. Europe/Berlin")

	cmd.AddCommand(update)
	return cmd
}

func writeUser(w io.Writer, u domain.User) {
	rows := [][2]string{
		{"Username", u.Username},
		{"Name", u.FullName()},
		{"Email", valueOr(u.Email, "-")},
		{"Timezone", valueOr(u.Timezone, "-")},
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-9s", r[0]+":")), r[1])
	}
}

// readSecret reads one line from in after writing prompt to out.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	_, _ = fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", domain.ErrInvalidPassword
	}
	return line, nil
}
