package notify

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/mail"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMTP is a minimal single-connection SMTP server for tests. It
// records every command line and the message received after DATA.
// Fields must only be read after done is closed.
type fakeSMTP struct {
	ln         net.Listener
	advertise  []string // extensions announced in the EHLO reply
	rejectRcpt bool

	commands []string
	data     string
	done     chan struct{}
}

// startFakeSMTP listens on an ephemeral localhost port and serves exactly
// one SMTP session in the background.
func startFakeSMTP(t *testing.T, advertise ...string) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	return &fakeSMTP{ln: ln, advertise: advertise, done: make(chan struct{})}
}

// run starts the session goroutine. It is separate from startFakeSMTP so
// tests can adjust the behavior flags first.
func (f *fakeSMTP) run() {
	go f.serve()
}

func (f *fakeSMTP) server(t *testing.T) Server {
	t.Helper()
	addr := f.ln.Addr().(*net.TCPAddr)
	return Server{Host: "127.0.0.1", Port: addr.Port}
}

func (f *fakeSMTP) serve() {
	defer close(f.done)

	conn, err := f.ln.Accept()
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()

	r := bufio.NewReader(conn)
	reply := func(line string) { _, _ = fmt.Fprintf(conn, "%s\r\n", line) }

	reply("220 localhost ESMTP fake")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		f.commands = append(f.commands, line)

		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		switch verb {
		case "EHLO":
			if len(f.advertise) == 0 {
				reply("250 localhost")
				continue
			}
			reply("250-localhost")
			for i, ext := range f.advertise {
				if i == len(f.advertise)-1 {
					reply("250 " + ext)
				} else {
					reply("250-" + ext)
				}
			}
		case "AUTH":
			reply("235 2.7.0 Authentication successful")
		case "MAIL":
			reply("250 OK")
		case "RCPT":
			if f.rejectRcpt {
				reply("550 no such user")
				continue
			}
			reply("250 OK")
		case "DATA":
			reply("354 End data with <CR><LF>.<CR><LF>")
			var sb strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				sb.WriteString(l)
			}
			f.data = sb.String()
			reply("250 OK queued")
		case "QUIT":
			reply("221 Bye")
			return
		default:
			reply("502 command not implemented")
		}
	}
}

// hasCommand reports whether a recorded command starts with prefix.
func (f *fakeSMTP) hasCommand(prefix string) bool {
	for _, c := range f.commands {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

// TestNotifySelf_WithAuth verifies the full SMTP dialogue including PLAIN
// authentication, and that the delivered message decodes to the inputs.
func TestNotifySelf_WithAuth(t *testing.T) {
	srv := startFakeSMTP(t, "AUTH PLAIN")
	srv.run()

	n := &Notifier{Now: func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }}
	mailbox := Mailbox{Address: "me@example.com", Password: "secret"}
	err := n.NotifySelf(context.Background(), srv.server(t), mailbox, "Build finished ✓", "CI report")
	require.NoError(t, err)
	<-srv.done

	wantAuth := base64.StdEncoding.EncodeToString([]byte("\x00me@example.com\x00secret"))
	assert.Contains(t, srv.commands, "AUTH PLAIN "+wantAuth)
	assert.True(t, srv.hasCommand("MAIL FROM:<me@example.com>"))
	assert.True(t, srv.hasCommand("RCPT TO:<me@example.com>"))
	assert.True(t, srv.hasCommand("QUIT"))

	msg, err := mail.ReadMessage(strings.NewReader(srv.data))
	require.NoError(t, err)
	assert.Equal(t, `"Me" <me@example.com>`, msg.Header.Get("From"))
	assert.Equal(t, `"Me" <me@example.com>`, msg.Header.Get("To"))
	assert.Equal(t, "CI report", msg.Header.Get("Subject"))
	assert.Equal(t, "Mon, 06 May 2024 07:08:09 +0000", msg.Header.Get("Date"))
	assert.True(t, strings.HasSuffix(msg.Header.Get("Message-ID"), "@example.com>"))

	body, err := io.ReadAll(msg.Body)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(body), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, "Build finished ✓", string(decoded))
}

// TestNotifySelf_NoAuthAdvertised verifies that a configured password is
// not silently ignored when the server does not offer AUTH: the session is
// aborted before MAIL FROM.
func TestNotifySelf_NoAuthAdvertised(t *testing.T) {
	srv := startFakeSMTP(t)
	srv.run()

	mailbox := Mailbox{Address: "me@example.com", Password: "secret"}
	err := (&Notifier{}).NotifySelf(context.Background(), srv.server(t), mailbox, "hi", "test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthUnsupported))
	<-srv.done

	assert.True(t, srv.hasCommand("EHLO localhost"))
	assert.False(t, srv.hasCommand("AUTH"))
	assert.False(t, srv.hasCommand("MAIL"))
	assert.Empty(t, srv.data)
}

// TestNotifySelf_NoPasswordNoAuth verifies that a mailbox without a
// password is delivered without authentication.
func TestNotifySelf_NoPasswordNoAuth(t *testing.T) {
	srv := startFakeSMTP(t)
	srv.run()

	require.NoError(t, (&Notifier{}).NotifySelf(context.Background(), srv.server(t), Mailbox{Address: "me@example.com"}, "hi", "test"))
	<-srv.done

	assert.False(t, srv.hasCommand("AUTH"))
	assert.True(t, srv.hasCommand("MAIL FROM:<me@example.com>"))
	assert.NotEmpty(t, srv.data)
}

// TestNotifySelf_RecipientRejected verifies that SMTP errors are wrapped
// with the failing step.
func TestNotifySelf_RecipientRejected(t *testing.T) {
	srv := startFakeSMTP(t)
	srv.rejectRcpt = true
	srv.run()

	err := (&Notifier{}).NotifySelf(context.Background(), srv.server(t), Mailbox{Address: "me@example.com"}, "hi", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RCPT TO rejected")
	assert.Contains(t, err.Error(), "550")
}

// TestNotifySelf_InvalidInputs verifies argument validation before any
// network activity.
func TestNotifySelf_InvalidInputs(t *testing.T) {
	n := &Notifier{
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			t.Fatal("dial must not be called")
			return nil, nil
		},
	}

	err := n.NotifySelf(context.Background(), Server{}, Mailbox{Address: "me@example.com"}, "x", "y")
	assert.True(t, errors.Is(err, ErrInvalidServer))

	err = n.NotifySelf(context.Background(), Server{Host: "localhost"}, Mailbox{}, "x", "y")
	assert.True(t, errors.Is(err, ErrInvalidMailbox))

	err = n.NotifySelf(context.Background(), Server{Host: "localhost"}, Mailbox{Address: "not an address"}, "x", "y")
	assert.True(t, errors.Is(err, ErrInvalidMailbox))
}

// TestNotifySelf_CanceledContext verifies that dialing honors the context.
func TestNotifySelf_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&Notifier{}).NotifySelf(ctx, Server{Host: "127.0.0.1", Port: 1}, Mailbox{Address: "me@example.com"}, "x", "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect")
}

// TestParseServer verifies the accepted server formats.
func TestParseServer(t *testing.T) {
	tests := []struct {
		input    string
		expected Server
		hasError bool
	}{
		{"smtp.example.com", Server{Host: "smtp.example.com", Port: 25}, false},
		{"smtp.example.com:587", Server{Host: "smtp.example.com", Port: 587}, false},
		{" localhost:2525 ", Server{Host: "localhost", Port: 2525}, false},
		{"[::1]", Server{Host: "::1", Port: 25}, false},
		{"[::1]:465", Server{Host: "::1", Port: 465}, false},
		{"::1", Server{Host: "::1", Port: 25}, false},
		{"2001:db8::25", Server{Host: "2001:db8::25", Port: 25}, false},
		{"", Server{}, true},
		{":25", Server{}, true},
		{"host:abc", Server{}, true},
		{"host:70000", Server{}, true},
		{"a:b:c", Server{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseServer(tt.input)
			if tt.hasError {
				assert.True(t, errors.Is(err, ErrInvalidServer), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestServer_Addr verifies dial address formatting, including IPv6.
func TestServer_Addr(t *testing.T) {
	assert.Equal(t, "smtp.example.com:25", Server{Host: "smtp.example.com", Port: 25}.Addr())
	assert.Equal(t, "[::1]:465", Server{Host: "::1", Port: 465}.Addr())
}

// TestBuildMessage verifies header encoding and base64 line wrapping.
func TestBuildMessage(t *testing.T) {
	body := strings.Repeat("long line of text ", 20)
	raw := BuildMessage("me@example.com", "Ünïcode subject", body, time.Unix(0, 0).UTC())

	for _, line := range strings.Split(string(raw), "\r\n") {
		assert.LessOrEqual(t, len(line), 78, "line too long: %q", line)
	}

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Ünïcode subject", subject)
	assert.Equal(t, "1.0", msg.Header.Get("MIME-Version"))
	assert.Equal(t, `text/plain; charset="utf-8"`, msg.Header.Get("Content-Type"))
	assert.Equal(t, "base64", msg.Header.Get("Content-Transfer-Encoding"))

	encoded, err := io.ReadAll(msg.Body)
	require.NoError(t, err)
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, body, string(decoded))
}

// TestBuildMessage_UniqueMessageID verifies that every message gets its
// own Message-ID.
func TestBuildMessage_UniqueMessageID(t *testing.T) {
	a, err := mail.ReadMessage(strings.NewReader(string(BuildMessage("me@example.com", "s", "b", time.Now()))))
	require.NoError(t, err)
	b, err := mail.ReadMessage(strings.NewReader(string(BuildMessage("me@example.com", "s", "b", time.Now()))))
	require.NoError(t, err)
	assert.NotEqual(t, a.Header.Get("Message-ID"), b.Header.Get("Message-ID"))
}
