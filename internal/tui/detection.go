package tui

import (
	"github.com/blackwell-systems/libctl/internal/util"
	"github.com/spf13/cobra"
)

// ShouldUseTUI reports whether cmd may take over the terminal. It is false
// when stdout is piped, when --no-interactive is set, or when the user
// asked for machine-readable output.
func ShouldUseTUI(cmd *cobra.Command) bool {
	if !util.IsTTY() {
		return false
	}
	if off, _ := cmd.Flags().GetBool("no-interactive"); off {
		return false
	}
	for _, flag := range []string{"json", "yaml"} {
		if on, _ := cmd.Flags().GetBool(flag); on {
			return false
		}
	}
	return true
}
