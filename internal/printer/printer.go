package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Stdout and Stderr are where the printer writes. Tests swap them for buffers.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(Stdout, msg)
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Warning prints a warning message in yellow to stderr
func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(Stderr, msg)
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(Stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title, explanation, optional context and suggestions
// to stderr, and returns a simple error carrying only the title for Cobra.
func Error(title string, explanation string, context map[string]string, suggestions ...string) error {
	red.Fprintf(Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Stderr, "%s\n", explanation)
	}

	if len(context) > 0 {
		fmt.Fprintf(Stderr, "\n")
		keys := make([]string, 0, len(context))
		for key := range context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(Stderr, "  %s: %s\n", key, context[key])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Cobra won't print it again because of SilenceErrors
	return fmt.Errorf("%s", title)
}

// Table renders rows under header as an aligned table on stdout
func Table(header []string, rows [][]string) {
	table := tablewriter.NewWriter(Stdout)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.AppendBulk(rows)
	table.Render()
}
