package cli

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmr-tortoise/coolutils/internal/model"
	"github.com/mmr-tortoise/coolutils/internal/notify"
)

// stubNotifier replaces the package notifier with one whose dialer records
// the address and fails, so no network traffic leaves the test.
func stubNotifier(t *testing.T) *string {
	t.Helper()
	saved := notifier
	t.Cleanup(func() { notifier = saved })

	var dialed string
	notifier = &notify.Notifier{
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialed = addr
			return nil, errors.New("connection refused")
		},
	}
	return &dialed
}

// TestNotifyCommand_Validation verifies the errors reported before dialing.
func TestNotifyCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no server", []string{"notify", "--address", "me@example.com", "done"}},
		{"bad server", []string{"notify", "--server", "host:abc", "--address", "me@example.com", "done"}},
		{"no address", []string{"notify", "--server", "smtp.example.com", "done"}},
		{"bad address", []string{"notify", "--server", "smtp.example.com", "--address", "nobody", "done"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialed := stubNotifier(t)
			res := executeCommand(t, nil, tt.args...)
			requireExitCode(t, res.err, model.ExitGeneralError)
			assert.Empty(t, *dialed)
		})
	}
}

// TestNotifyCommand_SendFailure verifies that a delivery failure maps to
// ExitNotifyFailed and that the default port is used.
func TestNotifyCommand_SendFailure(t *testing.T) {
	dialed := stubNotifier(t)

	res := executeCommand(t, nil, "notify", "--server", "smtp.example.com", "--address", "me@example.com", "done")
	requireExitCode(t, res.err, model.ExitNotifyFailed)
	assert.Equal(t, "smtp.example.com:25", *dialed)
	assert.Contains(t, res.err.Error(), "connection refused")
}

// TestNotifyCommand_ConfigDefaults verifies that server and address come
// from the configuration file and that --server overrides it.
func TestNotifyCommand_ConfigDefaults(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "config.yaml", `
notify:
  server: mail.example.com:587
  address: me@example.com
  passwordEnv: TEST_COOLUTILS_SMTP_PASSWORD
`)

	dialed := stubNotifier(t)
	res := executeCommand(t, nil, "--config", cfgPath, "notify", "done")
	requireExitCode(t, res.err, model.ExitNotifyFailed)
	assert.Equal(t, "mail.example.com:587", *dialed)

	res = executeCommand(t, nil, "--config", cfgPath, "notify", "--server", "other.example.com:2525", "done")
	requireExitCode(t, res.err, model.ExitNotifyFailed)
	assert.Equal(t, "other.example.com:2525", *dialed)
}

// TestNotifyCommand_Args verifies that the message must be a single argument.
func TestNotifyCommand_Args(t *testing.T) {
	stubNotifier(t)
	res := executeCommand(t, nil, "notify", "one", "two")
	require.Error(t, res.err)
}
