package ui

import (
	"fmt"
	"io"
	"os"
)

// ASCIILogo is printed at the start of every campaign command.
const ASCIILogo = `
    ╔══════════════════════════════════════════════════════════════════╗
    ║ ██╗███╗   ██╗███████╗████████╗ █████╗ ██████╗  ██████╗ ████████╗ ║
    ║ ██║████╗  ██║██╔════╝╚══██╔══╝██╔══██╗██╔══██╗██╔═══██╗╚══██╔══╝ ║
    ║ ██║██╔██╗ ██║███████╗   ██║   ███████║██████╔╝██║   ██║   ██║    ║
    ║ ██║██║╚██╗██║╚════██║   ██║   ██╔══██║██╔══██╗██║   ██║   ██║    ║
    ║ ██║██║ ╚████║███████║   ██║   ██║  ██║██████╔╝╚██████╔╝   ██║    ║
    ║ ╚═╝╚═╝  ╚═══╝╚══════╝   ╚═╝   ╚═╝  ╚═╝╚═════╝  ╚═════╝    ╚═╝    ║
    ║            FOLLOW / UNFOLLOW / LIKE AUTOMATION                   ║
    ╚══════════════════════════════════════════════════════════════════╝
`

// Output is where every Print function writes. Tests swap it out.
var Output io.Writer = os.Stdout

var colorEnabled = true

// SetColor turns ANSI colors on or off.
func SetColor(enabled bool) { colorEnabled = enabled }

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

// PrintInfo prints a label and value pair
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

// PrintList prints one dimmed bullet per item under a heading.
func PrintList(heading string, items []string) {
	PrintHighlight(fmt.Sprintf("%s (%d)", heading, len(items)))
	for _, item := range items {
		fmt.Fprintf(Output, "  %s %s\n", Dim("-"), item)
	}
}
