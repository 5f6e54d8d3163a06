// Package model defines the shared types and value objects for the
// coolutils CLI.
//
// This package contains plain data structures with no external dependencies:
// the Dialect and InstallAction enumerations, the InstallResult record
// produced by the installer, exit codes (ExitCode), and a custom error type
// (CLIError) that carries an exit code for proper OS process exit handling.
package model
