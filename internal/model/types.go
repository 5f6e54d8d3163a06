// Package model defines the shared types for the coolutils CLI.
//
// These types are passed between the cli package and the library packages
// (jsonfile, installer, notify, config). None of them are persisted; they
// exist for the duration of one command invocation.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Dialect selects how a JSON-like file is turned into strict JSON before
// it is handed to encoding/json.
type Dialect string

const (
	// DialectStrict accepts plain RFC 8259 JSON only. The file contents are
	// passed to the decoder unchanged.
	DialectStrict Dialect = "strict"

	// DialectComments strips // and /* */ comments with the built-in
	// minifier and removes trailing commas before ] and }.
	DialectComments Dialect = "comments"

	// DialectJSONC converts the input with github.com/tidwall/jsonc.
	DialectJSONC Dialect = "jsonc"

	// DialectHuJSON standardizes the input with github.com/tailscale/hujson,
	// which rejects malformed comments instead of guessing.
	DialectHuJSON Dialect = "hujson"
)

// String returns the string representation of Dialect.
func (d Dialect) String() string {
	return string(d)
}

// IsValid checks whether the Dialect value is one of the predefined dialects.
func (d Dialect) IsValid() bool {
	switch d {
	case DialectStrict, DialectComments, DialectJSONC, DialectHuJSON:
		return true
	default:
		return false
	}
}

// ParseDialect converts a string to a Dialect.
// Returns an error if the string does not match any valid dialect.
func ParseDialect(s string) (Dialect, error) {
	dialect := Dialect(strings.ToLower(s))
	if !dialect.IsValid() {
		return "", fmt.Errorf("invalid dialect: %q (valid: strict, comments, jsonc, hujson)", s)
	}
	return dialect, nil
}

// InstallAction records what the installer decided for a single source path.
type InstallAction string

const (
	// ActionUpdated means the destination was missing or older than the
	// source and the file was copied.
	ActionUpdated InstallAction = "updated"

	// ActionSkipped means the destination is at least as new as the source.
	ActionSkipped InstallAction = "skipped"

	// ActionFailed means the source could not be installed. The error is
	// carried in InstallResult.Err.
	ActionFailed InstallAction = "failed"
)

// String returns the string representation of InstallAction.
func (a InstallAction) String() string {
	return string(a)
}

// IsValid checks whether the InstallAction value is one of the predefined actions.
func (a InstallAction) IsValid() bool {
	switch a {
	case ActionUpdated, ActionSkipped, ActionFailed:
		return true
	default:
		return false
	}
}

// InstallResult is one line of an installer report.
type InstallResult struct {
	// Source is the absolute path of the file or directory that was examined.
	Source string `json:"source"`

	// Destination is the path the source is (or would be) installed to.
	Destination string `json:"destination"`

	// Action is the decision taken for this source.
	Action InstallAction `json:"action"`

	// Err is set when Action is ActionFailed.
	Err error `json:"-"`
}

// MarshalJSON renders Err as a plain "error" string, since error values
// do not serialize on their own.
func (r InstallResult) MarshalJSON() ([]byte, error) {
	type plain InstallResult
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(r)}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// ExitCode defines the process exit codes of the CLI.
// Scripts can branch on these to tell failure kinds apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitFileNotFound indicates an input file does not exist.
	ExitFileNotFound ExitCode = 2

	// ExitInvalidJSON indicates an input file could not be decoded as JSON
	// after dialect normalization.
	ExitInvalidJSON ExitCode = 3

	// ExitInstallFailed indicates one or more sources failed to install.
	ExitInstallFailed ExitCode = 4

	// ExitNotifyFailed indicates the notification email could not be sent.
	ExitNotifyFailed ExitCode = 5

	// ExitInvalidConfig indicates the configuration file is missing or malformed.
	ExitInvalidConfig ExitCode = 6
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
