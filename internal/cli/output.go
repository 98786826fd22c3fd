package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/rs/zerolog"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (bad ciphertext, decryption error, etc.)
	ExitCommandError = 2 // Command error (bad flags, unreadable key file, etc.)
)

// Error codes reported in JSON output.
const (
	ErrCodeGeneric  = "E001"
	ErrCodeKeyFile  = "E002"
	ErrCodeInput    = "E003"
	ErrCodeCrypto   = "E004"
	ErrCodeNotFound = "E005"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
	Log    zerolog.Logger // Diagnostics; never written to Writer
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	lvl := zerolog.WarnLevel
	if opts.Verbose {
		lvl = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: errOut, NoColor: true}).Level(lvl).With().Timestamp().Logger()
	return &OutputFormatter{Format: opts.Format, Writer: out, Log: log}
}

// Success outputs fields in the configured format. Text output is one
// "key: value" line per field, sorted by key.
func (f *OutputFormatter) Success(fields map[string]string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: fields})
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(f.Writer, "%s: %s\n", k, fields[k]); err != nil {
			return err
		}
	}
	return nil
}

// Fail reports an error in the configured format and returns it as an ExitError.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error) error {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %v", message, err)
	}
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: msg},
		})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, msg)
	}
	return WrapExitError(exitCode, fmt.Sprintf("%s: %s", code, message), err)
}
