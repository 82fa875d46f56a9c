package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/blackwell-systems/libctl/internal/profile"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/blackwell-systems/libctl/internal/util"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the session",
		Long: `Sign in with a username and password. The issued token is saved to
the session file (mode 0600) and used by every later command until
'libctl logout'.`,
		Example: `  libctl login
  libctl login --username alice
  echo "$PASS" | libctl login --username alice --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				fmt.Print("Username: ")
				line, _ := in.ReadString('\n')
				username = strings.TrimSpace(line)
			}
			if username == "" {
				return fmt.Errorf("username is required")
			}

			password, err := readPassword(in, passwordStdin)
			if err != nil {
				return fmt.Errorf("reading password: %w", err)
			}

			s, err := login(cmd.Context(), username, password)
			if err != nil {
				if errors.Is(err, api.ErrInvalidCredentials) {
					return fmt.Errorf("login failed: %w", err)
				}
				return err
			}
			ok("Logged in as %s", s)

			if s.Admin {
				return nil
			}
			// Non-admin accounts must finish their profile before borrowing.
			if p, err := client.GetProfile(cmd.Context(), s.Credential()); err == nil {
				if missing := profile.Missing(*p); len(missing) > 0 {
					warn("Your profile is incomplete (%s). Run: libctl profile complete", strings.Join(missing, ", "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}

// login exchanges credentials for a token and persists the session.
func login(ctx context.Context, username, password string) (session.Session, error) {
	res, err := client.Login(ctx, username, password)
	if err != nil {
		return session.Anonymous, err
	}
	s := session.Session{
		Token:     res.Token,
		Username:  username,
		Admin:     res.IsSuperuser,
		BaseURL:   client.BaseURL(),
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Save(s); err != nil {
		return session.Anonymous, fmt.Errorf("saving session: %w", err)
	}
	sess = s
	logger.Log.WithFields(logrus.Fields{"user": username, "admin": s.Admin}).Info("logged in")
	return s, nil
}

// readPassword reads without echo on a terminal, or a plain line otherwise.
func readPassword(in *bufio.Reader, fromStdin bool) (string, error) {
	if !fromStdin && util.IsTTY() && util.IsInputTTY() {
		fmt.Print("Password: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := store.Clear(); err != nil {
				return fmt.Errorf("removing session: %w", err)
			}
			guard.CancelAll()
			logger.Log.WithField("user", sess.Username).Info("logged out")
			sess = session.Anonymous
			ok("Logged out")
			if cfg != nil && cfg.API.Token != "" {
				warn("%s is still set in the environment and will be used", cfg.API.TokenEnv)
			}
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sess.Authenticated() {
				if jsonOut {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{"authenticated": false})
				}
				warn("Not logged in. Run: libctl login")
				return nil
			}

			p, err := client.GetProfile(cmd.Context(), sess.Credential())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"authenticated": true,
					"admin":         sess.Admin,
					"profile":       p,
					"complete":      profile.IsComplete(*p),
				})
			}

			header("Session")
			printField("user", sess.String())
			printField("backend", client.BaseURL())
			if !sess.CreatedAt.IsZero() {
				printField("since", sess.CreatedAt.Local().Format("2006-01-02 15:04"))
			}
			fmt.Println()
			printProfile(*p)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func printProfile(p api.Profile) {
	header("Profile")
	printField("username", p.Username)
	printField("email", orDash(p.Email))
	printField("fullname", orDash(p.Fullname))
	printField("role", orDash(p.Role))
	printField("student id", orDash(p.StudentID))
	printField("age", intOrDash(p.Age))
	printField("course", orDash(p.Course))
	printField("address", orDash(p.Address))
	printField("contact", orDash(p.ContactNumber))
	printField("birthdate", orDash(p.Birthdate))

	status := color.GreenString("complete")
	if missing := profile.Missing(p); len(missing) > 0 {
		status = color.YellowString("incomplete") + "  missing " + strings.Join(missing, ", ")
	}
	printField("status", status)
}
