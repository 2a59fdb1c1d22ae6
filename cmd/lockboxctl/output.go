package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	successMark = color.New(color.FgGreen, color.Bold)
	errorMark   = color.New(color.FgRed, color.Bold)
	warnMark    = color.New(color.FgYellow)
	highlight   = color.New(color.FgCyan)
)

func init() {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		color.NoColor = true
	}
}

func printSuccess(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", successMark.Sprint("✓"), fmt.Sprintf(format, a...))
}

func printFailure(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", errorMark.Sprint("✗"), fmt.Sprintf(format, a...))
}

func printWarning(w io.Writer, format string, a ...any) {
	fmt.Fprintf(w, "%s %s\n", warnMark.Sprint("!"), fmt.Sprintf(format, a...))
}
