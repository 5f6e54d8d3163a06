// Package cli: check.go implements the "coolutils check" command.
//
// The check command loads each file in the selected dialect and reports
// whether it decodes as JSON. Failures include the line and column of the
// error in the original file.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/coolutils/internal/jsonfile"
	"github.com/mmr-tortoise/coolutils/internal/model"
)

// checkFlags holds the flag values for the check command.
type checkFlags struct {
	// dialect overrides json.dialect from the configuration file.
	dialect string
}

// checkResult is the outcome for one file. It is also the JSON output shape.
type checkResult struct {
	File   string `json:"file"`
	OK     bool   `json:"ok"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
	Error  string `json:"error,omitempty"`
}

// NewCheckCommand creates the "check" cobra command.
func NewCheckCommand() *cobra.Command {
	flags := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate JSON files",
		Long: `Check that each file is valid JSON in the selected dialect.

Dialects:
  strict     plain JSON
  comments   JSON with // and /* */ comments and trailing commas (default)
  jsonc      JSON with comments, converted by tidwall/jsonc
  hujson     JWCC, standardized by tailscale/hujson

Examples:
  coolutils check .vscode/settings.json
  coolutils check --dialect strict package.json composer.json
  coolutils check --json config/*.jsonc`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, flags, args)
		},
	}

	cmd.Flags().StringVar(&flags.dialect, "dialect", "",
		"Input dialect: strict, comments, jsonc, hujson (default from config, else comments)")

	return cmd
}

// runCheck validates every file and returns ExitInvalidJSON if any failed.
func runCheck(cmd *cobra.Command, flags *checkFlags, files []string) error {
	dialect, err := resolveDialect(flags.dialect)
	if err != nil {
		return err
	}
	VerboseLog("checking %d file(s) as %s", len(files), dialect)

	results := make([]checkResult, 0, len(files))
	failed := 0
	for _, file := range files {
		result := checkFile(file, dialect)
		if !result.OK {
			failed++
		}
		results = append(results, result)
	}

	if err := printCheckResults(cmd.OutOrStdout(), results); err != nil {
		return err
	}

	if failed > 0 {
		return model.NewCLIError(model.ExitInvalidJSON,
			fmt.Sprintf("%d of %d file(s) are not valid %s JSON", failed, len(files), dialect))
	}
	return nil
}

// checkFile loads one file and converts the outcome into a checkResult.
func checkFile(file string, dialect model.Dialect) checkResult {
	var v any
	err := jsonfile.Load(file, dialect, &v)
	if err == nil {
		return checkResult{File: file, OK: true}
	}

	result := checkResult{File: file, Error: err.Error()}
	var perr *jsonfile.ParseError
	if errors.As(err, &perr) {
		result.Line = perr.Line
		result.Column = perr.Column
		result.Error = perr.Err.Error()
	}
	return result
}

// printCheckResults writes the results as a JSON array or as one status
// line per file.
func printCheckResults(w io.Writer, results []checkResult) error {
	if IsJSONOutput() {
		return printJSON(w, results)
	}

	for _, r := range results {
		switch {
		case r.OK:
			fmt.Fprintf(w, "%s   %s\n", au.Green("OK"), r.File)
		case r.Line > 0:
			fmt.Fprintf(w, "%s %s:%d:%d: %s\n", au.Red("FAIL"), r.File, r.Line, r.Column, r.Error)
		default:
			fmt.Fprintf(w, "%s %s: %s\n", au.Red("FAIL"), r.File, r.Error)
		}
	}
	return nil
}

// resolveDialect parses the --dialect flag value, falling back to the
// configuration file and then to the default dialect.
func resolveDialect(flagValue string) (model.Dialect, error) {
	if flagValue == "" {
		return cfg.Dialect(), nil
	}
	d, err := model.ParseDialect(flagValue)
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("invalid dialect %q: valid values are strict, comments, jsonc, hujson", flagValue), err)
	}
	return d, nil
}
