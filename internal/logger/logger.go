// Package logger provides process logging for the trinity CLI.
// Debug, Info and Warn print only in verbose mode (--verbose); Error always
// prints. Output goes to stderr unless redirected with SetOutput.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func printf(always bool, level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !always && !verbose {
		return
	}
	fmt.Fprintf(output, level+prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	printf(false, "[DEBUG] ", "", format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	printf(false, "[INFO] ", "", format, args...)
}

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) {
	printf(false, "[WARN] ", "", format, args...)
}

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) {
	printf(true, "[ERROR] ", "", format, args...)
}

// Scoped prefixes every message with a fixed tag, such as a stage run id.
type Scoped struct {
	prefix string
}

// With returns a logger that prefixes messages with "[tag] ".
func With(tag string) Scoped {
	return Scoped{prefix: "[" + tag + "] "}
}

// Debug prints a prefixed message if verbose mode is enabled.
func (s Scoped) Debug(format string, args ...any) {
	printf(false, "[DEBUG] ", s.prefix, format, args...)
}

// Info prints a prefixed message if verbose mode is enabled.
func (s Scoped) Info(format string, args ...any) {
	printf(false, "[INFO] ", s.prefix, format, args...)
}

// Warn prints a prefixed message if verbose mode is enabled.
func (s Scoped) Warn(format string, args ...any) {
	printf(false, "[WARN] ", s.prefix, format, args...)
}

// Error prints a prefixed message regardless of verbose mode.
func (s Scoped) Error(format string, args ...any) {
	printf(true, "[ERROR] ", s.prefix, format, args...)
}
