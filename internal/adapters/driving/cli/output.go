package cli

import (
	"encoding/json"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// palette is the colour scheme of terminal output.
var palette = struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}{
	Primary: lipgloss.Color("#7C3AED"), // Purple
	Muted:   lipgloss.Color("#6C7086"), // Medium gray
	Success: lipgloss.Color("#A6E3A1"), // Green
	Warning: lipgloss.Color("#F9E2AF"), // Yellow
	Error:   lipgloss.Color("#F38BA8"), // Red
}

// styles holds the styles for one output stream.
type styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

// stylesFor returns coloured styles when w is a terminal and plain ones otherwise.
func stylesFor(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{Title: plain, Muted: plain, Success: plain, Warning: plain, Error: plain}
	}
	return styles{
		Title:   lipgloss.NewStyle().Foreground(palette.Primary).Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(palette.Muted),
		Success: lipgloss.NewStyle().Foreground(palette.Success),
		Warning: lipgloss.NewStyle().Foreground(palette.Warning),
		Error:   lipgloss.NewStyle().Foreground(palette.Error),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printJSON writes v as indented JSON to the command output.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
