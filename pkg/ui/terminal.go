package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ASCIILogo is printed at the start of an interactive session
const ASCIILogo = `
    ╔══════════════════════════════════════════════════════╗
    ║  ___ _ __   __ _ _ __  _ __ ___   __ _ _ __          ║
    ║ / __| '_ \ / _' | '_ \| '_ ' _ \ / _' | '_ \         ║
    ║ \__ \ | | | (_| | |_) | | | | | | (_| | |_) |        ║
    ║ |___/_| |_|\__,_| .__/|_| |_| |_|\__,_| .__/ archiver ║
    ║                 |_|                   |_|            ║
    ╚══════════════════════════════════════════════════════╝
`

// Output is where all ui helpers print. Tests swap it for a buffer.
var Output io.Writer = os.Stdout

// colorEnabled is decided once; escape codes are only emitted to a terminal
var colorEnabled = term.IsTerminal(int(os.Stdout.Fd()))

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetColor forces ANSI colors on or off
func SetColor(enabled bool) {
	colorEnabled = enabled
}

// IsInteractive reports whether stdout is a terminal. Progress lines that
// rewrite themselves with \r are only useful there.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Width returns the terminal width, or fallback when it cannot be read
func Width(fallback int) int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label/value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}
