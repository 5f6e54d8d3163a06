// Package cli: minify.go implements the "coolutils minify" command.
//
// The minify command removes // and /* */ comments from a JSON-like
// document read from a file or stdin. By default all insignificant
// whitespace is removed as well; --keep-whitespace instead replaces comments
// with spaces so that every remaining character keeps its line and column.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmr-tortoise/coolutils/internal/minify"
	"github.com/mmr-tortoise/coolutils/internal/model"
)

// minifyFlags holds the flag values for the minify command.
type minifyFlags struct {
	// keepWhitespace pads comments with spaces instead of removing them
	// together with all whitespace.
	keepWhitespace bool

	// trailingCommas removes commas that directly precede ] or }.
	trailingCommas bool
}

// NewMinifyCommand creates the "minify" cobra command.
func NewMinifyCommand() *cobra.Command {
	flags := &minifyFlags{}

	cmd := &cobra.Command{
		Use:   "minify [file|-]",
		Short: "Strip comments and whitespace from a JSON document",
		Long: `Remove // line comments and /* */ block comments from a JSON document.

String literals are never modified. Without a file argument, or with "-",
the document is read from standard input.

Examples:
  coolutils minify settings.jsonc
  coolutils minify --keep-whitespace settings.jsonc
  cat tsconfig.json | coolutils minify --trailing-commas`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runMinify(cmd, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.keepWhitespace, "keep-whitespace", false,
		"Replace comments with spaces and keep all whitespace")
	cmd.Flags().BoolVar(&flags.trailingCommas, "trailing-commas", false,
		"Also remove trailing commas before ] and }")

	return cmd
}

// runMinify reads the input, minifies it, and writes the result to stdout.
func runMinify(cmd *cobra.Command, flags *minifyFlags, args []string) error {
	// Step 1: Read the document from the file argument or stdin.
	name := "-"
	if len(args) == 1 {
		name = args[0]
	}
	data, err := readInput(cmd.InOrStdin(), name)
	if err != nil {
		return err
	}
	VerboseLog("read %d bytes from %s", len(data), name)

	// Step 2: Minify and optionally drop trailing commas.
	out := minify.Minify(string(data), !flags.keepWhitespace)
	if flags.trailingCommas {
		if flags.keepWhitespace {
			out = minify.BlankTrailingCommas(out)
		} else {
			out = minify.StripTrailingCommas(out)
		}
	}

	// Step 3: Write the result.
	w := cmd.OutOrStdout()
	if IsJSONOutput() {
		return printJSON(w, struct {
			Output string `json:"output"`
		}{Output: out})
	}
	if flags.keepWhitespace {
		// Layout-preserving output is written exactly as produced.
		_, err = io.WriteString(w, out)
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// readInput returns the contents of the named file, or of stdin when name
// is "-".
func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read standard input: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, model.WrapCLIError(model.ExitFileNotFound,
				fmt.Sprintf("file not found: %s", name), err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}
