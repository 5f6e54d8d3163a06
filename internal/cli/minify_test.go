package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/coolutils/internal/model"
)

// TestMinifyCommand_Stdin verifies the flag combinations on stdin input.
func TestMinifyCommand_Stdin(t *testing.T) {
	const input = "{\"a\": 1, // one\n \"b\": [1, 2,],}\n"

	tests := []struct {
		name  string
		flags []string
		want  string
	}{
		{
			name: "strip comments and whitespace",
			want: "{\"a\":1,\"b\":[1,2,],}\n",
		},
		{
			name:  "strip trailing commas",
			flags: []string{"--trailing-commas"},
			want:  "{\"a\":1,\"b\":[1,2]}\n",
		},
		{
			name:  "keep whitespace",
			flags: []string{"--keep-whitespace"},
			want:  "{\"a\": 1,       \n \"b\": [1, 2,],}\n",
		},
		{
			name:  "keep whitespace and blank trailing commas",
			flags: []string{"--keep-whitespace", "--trailing-commas"},
			want:  "{\"a\": 1,       \n \"b\": [1, 2 ] }\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"minify"}, tt.flags...)
			res := executeCommand(t, strings.NewReader(input), args...)
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.stdout)
		})
	}
}

// TestMinifyCommand_File verifies reading from a file argument, and that
// "-" still means stdin.
func TestMinifyCommand_File(t *testing.T) {
	path := writeFile(t, t.TempDir(), "settings.jsonc", "/* header */\n{\"url\": \"http://x//y\"}\n")

	res := executeCommand(t, nil, "minify", path)
	require.NoError(t, res.err)
	assert.Equal(t, "{\"url\":\"http://x//y\"}\n", res.stdout)

	res = executeCommand(t, strings.NewReader("[1, /* two */ 3]"), "minify", "-")
	require.NoError(t, res.err)
	assert.Equal(t, "[1,3]\n", res.stdout)
}

// TestMinifyCommand_MissingFile verifies the file-not-found exit code.
func TestMinifyCommand_MissingFile(t *testing.T) {
	res := executeCommand(t, nil, "minify", filepath.Join(t.TempDir(), "nope.json"))
	requireExitCode(t, res.err, model.ExitFileNotFound)
}

// TestMinifyCommand_JSON verifies the --json output object.
func TestMinifyCommand_JSON(t *testing.T) {
	res := executeCommand(t, strings.NewReader(`{"a": /* x */ 1}`), "--json", "minify")
	require.NoError(t, res.err)

	var out struct {
		Output string `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	assert.Equal(t, `{"a":1}`, out.Output)
}
