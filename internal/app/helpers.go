package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/blackwell-systems/libctl/internal/api"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

func printField(label, value string) {
	fmt.Printf("  %-16s %s\n", color.CyanString(label+":"), value)
}

// requireLogin fails fast, before any prompt, when there is no credential.
func requireLogin() error {
	if !sess.Authenticated() {
		return api.ErrAuthRequired
	}
	return nil
}

// explain prefixes err with the message a user would see in the dashboard.
func explain(msg string, err error) error {
	if msg == "" {
		return err
	}
	return fmt.Errorf("%s (%w)", strings.TrimSuffix(msg, "."), err)
}

// confirm asks a yes/no question on out and reads the answer from in.
// Anything but y/yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s (y/n): ", question)
	line, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// newTable returns a go-pretty table writing to w.
func newTable(w io.Writer, headers ...interface{}) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(headers))
	return t
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func intOrDash(p *int) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *p)
}
