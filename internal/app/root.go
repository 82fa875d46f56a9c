package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/config"
	"github.com/blackwell-systems/libctl/internal/inflight"
	"github.com/blackwell-systems/libctl/internal/logger"
	"github.com/blackwell-systems/libctl/internal/session"
	"github.com/blackwell-systems/libctl/internal/tui"
	"github.com/blackwell-systems/libctl/internal/util"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.Config
	client    *api.Client
	store     *session.Store
	sess      = session.Anonymous
	guard     = inflight.New()
	logCloser io.Closer

	flagNoColor       bool
	flagNoInteractive bool
	flagConfig        string
)

var rootCmd = &cobra.Command{
	Use:   "libctl",
	Short: "Browse the library catalog and manage borrowing from the terminal",
	Long: `libctl is a client for the library management service.

Anyone can browse the catalog. Logged-in users can request books and
complete their profile. Admins review borrow requests, track borrowing
records and maintain the catalog.

Run 'libctl' with no arguments to launch the interactive dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tui.ShouldUseTUI(cmd) {
			return runUnifiedTUI(cmd.Context())
		}
		return cmd.Help()
	},
}

// Execute is the entry point called from main.
func Execute() {
	err := rootCmd.Execute()
	if logCloser != nil {
		_ = logCloser.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		if errors.Is(err, api.ErrUnauthorized) {
			fmt.Fprintln(os.Stderr, "  run 'libctl login' to sign in again")
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagNoInteractive, "no-interactive", false, "Disable interactive TUI mode")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/libctl/config.yml)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		util.InitColor(flagNoColor)

		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			// init repairs or replaces a broken config.
			if cmd.Name() == "init" {
				cfg = nil
				return nil
			}
			return fmt.Errorf("loading config: %w", err)
		}

		logCloser, err = logger.Init(cfg.Log.Level, cfg.Log.File)
		if err != nil {
			warn("Logging disabled: %v", err)
		}

		client = newClient(cfg)
		store = session.NewStore(cfg.Session.Path)
		sess = resolveSession(cfg, store)
		return nil
	}

	rootCmd.AddCommand(
		newInitCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newBooksCmd(),
		newBookCmd(),
		newRequestCmd(),
		newRequestsCmd(),
		newAcceptCmd(),
		newRecordsCmd(),
		newReturnCmd(),
		newProfileCmd(),
		newUsersCmd(),
		newStatusCmd(),
		newCompletionCmd(),
		newVersionCmd(),
	)
}

func newClient(c *config.Config) *api.Client {
	return api.New(c.API.BaseURL,
		api.WithTimeout(c.API.Timeout),
		api.WithAuthScheme(c.API.AuthScheme),
	)
}

// resolveSession picks the credential for this run. A token from the
// environment wins over the saved session; a session saved against a
// different backend is ignored.
func resolveSession(c *config.Config, st *session.Store) session.Session {
	if c.API.Token != "" {
		return session.Session{Token: c.API.Token, BaseURL: c.API.BaseURL}
	}
	s, err := st.Load()
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			warn("Ignoring session file: %v", err)
		}
		return session.Anonymous
	}
	if s.BaseURL != "" && s.BaseURL != c.API.BaseURL {
		warn("Saved session belongs to %s, not %s; run 'libctl login'", s.BaseURL, c.API.BaseURL)
		return session.Anonymous
	}
	return s
}

// ok prints a green success line.
func ok(format string, a ...interface{}) {
	fmt.Println(color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// warn prints a yellow warning line.
func warn(format string, a ...interface{}) {
	fmt.Fprintln(os.Stderr, color.YellowString("!"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading.
func header(format string, a ...interface{}) {
	fmt.Println(color.CyanString(fmt.Sprintf(format, a...)))
}
