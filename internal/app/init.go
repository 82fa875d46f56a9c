package app

import (
	"fmt"
	"os"
	"time"

	"github.com/blackwell-systems/libctl/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		baseURL    string
		authScheme string
		timeout    time.Duration
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file pointing libctl at a library backend",
		Long: `Write a config file pointing libctl at a library backend.

The file holds connection settings only. Credentials are never written
here; 'libctl login' keeps the session in its own file.`,
		Example: `  # Local development backend
  libctl init

  # Hosted backend using bearer tokens
  libctl init --base-url https://library.example.com/api --auth-scheme Bearer`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flagConfig
			if path == "" {
				path = config.DefaultPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			next := config.Default()
			if cfg != nil {
				next = cfg
			}
			if cmd.Flags().Changed("base-url") || cfg == nil {
				next.API.BaseURL = baseURL
			}
			if cmd.Flags().Changed("auth-scheme") || cfg == nil {
				next.API.AuthScheme = authScheme
			}
			if cmd.Flags().Changed("timeout") || cfg == nil {
				next.API.Timeout = timeout
			}
			if err := next.Validate(); err != nil {
				return err
			}

			if err := config.Save(next, path); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			ok("Wrote %s", path)
			fmt.Println()
			fmt.Println("Next:")
			fmt.Printf("  %s\n", color.CyanString("libctl login"))
			fmt.Printf("  %s\n", color.CyanString("libctl books"))
			return nil
		},
	}

	defaults := config.Default()
	cmd.Flags().StringVar(&baseURL, "base-url", defaults.API.BaseURL, "API root of the library backend")
	cmd.Flags().StringVar(&authScheme, "auth-scheme", defaults.API.AuthScheme, "Authorization scheme (Token or Bearer)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaults.API.Timeout, "Per-request timeout")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
