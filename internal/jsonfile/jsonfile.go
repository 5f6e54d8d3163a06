// Package jsonfile loads and saves JSON files.
//
// Files are read in one of several dialects (see model.Dialect). Every
// dialect is first normalized to strict JSON and then decoded with the
// standard encoding/json package:
//
//   - strict: passed through unchanged
//   - comments: built-in minifier in layout-preserving mode, then trailing
//     commas before ] and } are blanked out
//   - jsonc: github.com/tidwall/jsonc
//   - hujson: github.com/tailscale/hujson
//
// All normalizers keep byte offsets stable, so the line and column of a
// decode error refer to the file on disk.
package jsonfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
	"github.com/tidwall/jsonc"

	"github.com/mmr-tortoise/coolutils/internal/minify"
	"github.com/mmr-tortoise/coolutils/internal/model"
)

// ParseError describes a file whose contents could not be decoded.
// Line and Column are 1-based and zero when the position is unknown.
type ParseError struct {
	// Path is the absolute path of the offending file.
	Path string

	// Line and Column locate the error in the original file.
	Line   int
	Column int

	// Err is the error returned by the decoder or normalizer.
	Err error
}

// Error formats the path, position, and the original decoder message.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error parsing JSON in file %q (line %d, column %d): %v", e.Path, e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("error parsing JSON in file %q: %v", e.Path, e.Err)
}

// Unwrap returns the decoder error so callers can use errors.As to reach
// *json.SyntaxError or *json.UnmarshalTypeError.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Normalize converts data written in dialect d into strict JSON.
// Only the hujson dialect can fail here; the others always succeed and
// leave validation to the decoder.
func Normalize(data []byte, d model.Dialect) ([]byte, error) {
	switch d {
	case model.DialectStrict:
		return data, nil
	case model.DialectComments:
		// Layout-preserving minify keeps decoder offsets aligned with the
		// source, which is what we report to the user.
		clean := minify.Minify(string(data), false)
		return []byte(minify.BlankTrailingCommas(clean)), nil
	case model.DialectJSONC:
		return jsonc.ToJSON(data), nil
	case model.DialectHuJSON:
		// Standardize works in place, so hand it a copy to keep data intact.
		return hujson.Standardize(bytes.Clone(data))
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
}

// Load reads the file at path, normalizes it from dialect d, and decodes it
// into v.
//
// A missing file is reported as a CLIError with ExitFileNotFound. Decode
// failures are reported as a CLIError with ExitInvalidJSON that wraps a
// *ParseError carrying the absolute path and the error position.
func Load(path string, d model.Dialect, v any) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return model.WrapCLIError(
				model.ExitFileNotFound,
				fmt.Sprintf("file not found: %s", absPath),
				err,
			)
		}
		return fmt.Errorf("failed to read %s: %w", absPath, err)
	}

	return Decode(absPath, data, d, v)
}

// Decode normalizes data from dialect d and decodes it into v. The path is
// only used for error messages, which lets callers decode stdin or
// in-memory buffers with the same error reporting as Load.
func Decode(path string, data []byte, d model.Dialect, v any) error {
	clean, err := Normalize(data, d)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidJSON, "invalid JSON", &ParseError{Path: path, Err: err})
	}

	if err := json.Unmarshal(clean, v); err != nil {
		perr := &ParseError{Path: path, Err: err}
		if offset, ok := errorOffset(err); ok {
			perr.Line, perr.Column = Position(data, offset)
		}
		return model.WrapCLIError(model.ExitInvalidJSON, "invalid JSON", perr)
	}

	return nil
}

// errorOffset extracts the byte offset from the encoding/json error types
// that carry one.
func errorOffset(err error) (int64, bool) {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Offset, true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return typeErr.Offset, true
	}
	return 0, false
}

// Position converts a decoder offset (the number of bytes consumed when the
// error was detected) into a 1-based line and column in data. Lines end
// with \n, \r\n or a bare \r, the same terminators the minifier knows.
func Position(data []byte, offset int64) (line, col int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	if offset < 0 {
		offset = 0
	}

	line, lineStart := 1, 0
	for i := 0; i < int(offset); i++ {
		switch data[i] {
		case '\r':
			// \r\n is one terminator; the \n ends the line.
			if i+1 < len(data) && data[i+1] == '\n' {
				continue
			}
			line++
			lineStart = i + 1
		case '\n':
			line++
			lineStart = i + 1
		}
	}

	col = int(offset) - lineStart
	if col < 1 {
		col = 1
	}
	return line, col
}

// Save writes data as 4-space indented JSON to path, creating parent
// directories as needed. Map keys are written in sorted order by
// encoding/json, which keeps the output stable across runs.
func Save(path string, data any) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	// os.MkdirAll is a no-op if the directory already exists.
	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	// Encode appends the trailing newline.
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to serialize JSON for %s: %w", absPath, err)
	}

	if err := os.WriteFile(absPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", absPath, err)
	}

	return nil
}
