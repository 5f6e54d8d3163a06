// Package cli implements the cobra-based CLI commands for coolutils.
//
// Each subcommand (minify, check, convert, install, notify) is defined in its
// own file within this package. This file defines the root command that
// serves as the parent for all subcommands and handles global flags, the
// optional configuration file, and logging.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mmr-tortoise/coolutils/internal/config"
	"github.com/mmr-tortoise/coolutils/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, all output uses structured JSON format for machine consumption.
	// When false (default), output uses human-readable text format.
	jsonOutput bool

	// verbose lowers the log level to debug.
	verbose bool

	// noColor disables ANSI colors in text output.
	noColor bool

	// configPath is the --config flag. Empty means the default location.
	configPath string
)

// State prepared by the root command before any subcommand runs.
var (
	// cfg holds the loaded configuration file, or an empty Config.
	cfg = &config.Config{}

	// logger writes progress and debug messages to stderr.
	logger = zap.NewNop()

	// au colors human-facing status words. Colors are disabled with
	// --no-color, the NO_COLOR environment variable, or --json.
	au = aurora.NewAurora(false)
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action. It provides help
// text and global flags, and its PersistentPreRunE prepares the
// configuration, logger, and colors shared by every subcommand.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "coolutils",
		Short: "Small utilities for JSON files, installs, and notifications",
		Long: `coolutils bundles a few everyday helpers:

  minify    strip comments (and whitespace) from JSON-with-comments
  check     validate JSON files written in a chosen dialect
  convert   rewrite a JSON-with-comments file as clean, indented JSON
  install   copy files and directories, skipping up-to-date ones
  notify    email yourself a short message, e.g. when a job finishes

Defaults for most flags can be set in a YAML configuration file
(see --config).`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
	}

	// PersistentFlags are inherited by all subcommands. This is the cobra
	// mechanism for global flags: any flag defined here is automatically
	// available in every subcommand without re-declaration.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the YAML configuration file (default: <user config dir>/coolutils/config.yaml)")

	// Register subcommands. Each subcommand is defined in its own file
	// (minify.go, check.go, etc.) and returns a *cobra.Command.
	rootCmd.AddCommand(NewMinifyCommand())
	rootCmd.AddCommand(NewCheckCommand())
	rootCmd.AddCommand(NewConvertCommand())
	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewNotifyCommand())

	return rootCmd
}

// setup builds the logger and colors, then loads the configuration file.
func setup(cmd *cobra.Command) error {
	logger = newLogger(cmd.ErrOrStderr(), verbose)
	au = aurora.NewAurora(colorEnabled())

	// An explicit --config must exist; the default location is optional.
	path := configPath
	explicit := path != ""
	if !explicit {
		defaultPath, err := config.DefaultPath()
		if err != nil {
			VerboseLog("no user config directory: %v", err)
		}
		path = defaultPath
	}

	loaded, err := config.Load(path, explicit)
	if err != nil {
		return err
	}
	cfg = loaded
	VerboseLog("using configuration %s", path)
	return nil
}

// newLogger returns a console logger writing to w. Debug messages are only
// enabled in verbose mode.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(w), level)
	return zap.New(core)
}

// colorEnabled reports whether text output may use ANSI colors.
func colorEnabled() bool {
	if noColor || jsonOutput {
		return false
	}
	_, set := os.LookupEnv("NO_COLOR")
	return !set
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
//
// An interrupt cancels the command context, which stops a running install
// between files and aborts a pending SMTP dial.
func Execute(rootCmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Exit(int(handleError(os.Stderr, err)))
	}
}

// handleError prints err and returns the exit code it maps to.
func handleError(w io.Writer, err error) model.ExitCode {
	// errors.As also finds a CLIError wrapped by fmt.Errorf("%w").
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(w, cliErr.Message, cliErr.Err)
		return cliErr.Code
	}

	// Generic error: exit with code 1.
	printError(w, err.Error(), nil)
	return model.ExitGeneralError
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// We write to stderr for errors, even in JSON mode, because stdout
		// is reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
	} else {
		// Text format: "Error: <message>" on stderr.
		if underlying != nil {
			fmt.Fprintf(w, "%s %s: %v\n", au.Red("Error:"), message, underlying)
		} else {
			fmt.Fprintf(w, "%s %s\n", au.Red("Error:"), message)
		}
	}
}

// VerboseLog writes a debug message. It is only visible when verbose mode
// is enabled.
func VerboseLog(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v as 2-space indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
