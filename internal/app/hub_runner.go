package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/blackwell-systems/libctl/internal/unified"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
)

// runUnifiedTUI launches the dashboard. Some actions (logging in) need the
// normal terminal, so the program exits, the action runs, and the
// dashboard restarts with the new session.
func runUnifiedTUI(ctx context.Context) error {
	for {
		m := unified.New(ctx, unified.Deps{Client: client, Session: sess, Guard: guard})
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
		finalModel, err := p.Run()
		if err != nil {
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		}

		final, ok := finalModel.(unified.Model)
		if !ok {
			return nil
		}

		switch final.GetPendingCommand() {
		case "login":
			if err := runLoginPrompt(ctx); err != nil {
				if errors.Is(err, api.ErrInvalidCredentials) {
					warn("Login failed: %v", err)
				} else {
					warn("Login did not complete: %v", err)
				}
				fmt.Println("\nPress Enter to return to the dashboard...")
				fmt.Scanln() //nolint:errcheck
			}
			continue
		case "":
			return nil
		default:
			warn("Unknown command: %s", final.GetPendingCommand())
			return nil
		}
	}
}

func runLoginPrompt(ctx context.Context) error {
	fmt.Println()
	header("Log in to %s", client.BaseURL())
	fmt.Println()

	cmd := newLoginCmd()
	cmd.SetContext(ctx)
	cmd.SetIn(os.Stdin)
	cmd.SetArgs([]string{})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		return err
	}
	fmt.Println(color.CyanString("Opening the dashboard..."))
	return nil
}
