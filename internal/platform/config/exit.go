package config

import (
	"fmt"
	"io"
	"os"
)

// Exitf writes a formatted error message to stderr and exits with code 1.
// Command entry points use it for unrecoverable startup failures.
func Exitf(format string, args ...any) {
	fprintExit(os.Stderr, format, args...)
	os.Exit(1)
}

func fprintExit(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, format+"\n", args...)
}
