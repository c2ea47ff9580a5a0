package helpers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	// SuccessColor for successful operations
	SuccessColor = color.New(color.FgGreen, color.Bold)

	// ErrorColor for error messages
	ErrorColor = color.New(color.FgRed, color.Bold)

	// WarningColor for warning messages
	WarningColor = color.New(color.FgYellow, color.Bold)

	// InfoColor for informational messages
	InfoColor = color.New(color.FgCyan, color.Bold)

	// TitleColor for titles and headers
	TitleColor = color.New(color.FgMagenta, color.Bold)

	// DiagnosticColor for messages that are only of interest when debugging
	DiagnosticColor = color.New(color.FgHiBlack)
)

// SetOutput redirects all helper output. The interactive session points this
// at its log file so diagnostics never draw over the screen.
func SetOutput(w io.Writer) {
	color.Output = w
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	SuccessColor.Fprintf(color.Output, "✅ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	ErrorColor.Fprintf(color.Output, "❌ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	WarningColor.Fprintf(color.Output, "⚠️  "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	InfoColor.Fprintf(color.Output, "ℹ️  "+format+"\n", args...)
}

// PrintTitle prints a title
func PrintTitle(format string, args ...interface{}) {
	TitleColor.Fprintf(color.Output, "🎯 "+format+"\n", args...)
}

// PrintDiagnostic prints a diagnostic message
func PrintDiagnostic(format string, args ...interface{}) {
	DiagnosticColor.Fprintf(color.Output, "🔧 "+format+"\n", args...)
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Fprintln(color.Output, strings.Repeat("─", 80))
}

// IsTerminal checks if f is attached to a terminal
func IsTerminal(f *os.File) bool {
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
