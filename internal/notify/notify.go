// Package notify sends short plain-text emails from a mailbox to itself,
// typically to signal that a long-running job has finished.
package notify

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPort is used when a server is given without a port.
const DefaultPort = 25

// Sentinel errors for package notify.
var (
	ErrInvalidServer   = errors.New("invalid SMTP server, expected host or host:port")
	ErrInvalidMailbox  = errors.New("invalid mailbox, an email address is required")
	ErrAuthUnsupported = errors.New("authentication required but server does not advertise AUTH")
)

// Server is the address of an SMTP submission service.
type Server struct {
	Host string
	Port int
}

// Addr returns the host:port form used for dialing.
func (s Server) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ParseServer accepts "host" or "host:port". A bare host uses DefaultPort.
func ParseServer(s string) (Server, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Server{}, ErrInvalidServer
	}

	// A bare host, or an IPv6 literal without a port, bracketed or not.
	if !strings.Contains(s, ":") {
		return Server{Host: s, Port: DefaultPort}, nil
	}
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return Server{Host: s[1 : len(s)-1], Port: DefaultPort}, nil
	}
	if ip := net.ParseIP(s); ip != nil && ip.To4() == nil {
		return Server{Host: s, Port: DefaultPort}, nil
	}

	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Server{}, fmt.Errorf("%w: %v", ErrInvalidServer, err)
	}
	if host == "" {
		return Server{}, fmt.Errorf("%w: %q", ErrInvalidServer, s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return Server{}, fmt.Errorf("%w: bad port in %q", ErrInvalidServer, s)
	}
	return Server{Host: host, Port: port}, nil
}

// Mailbox holds the credentials of the account that sends (and receives)
// the notification.
type Mailbox struct {
	Address  string
	Password string
}

// Validate checks that the mailbox has a parseable address.
func (m Mailbox) Validate() error {
	if strings.TrimSpace(m.Address) == "" {
		return ErrInvalidMailbox
	}
	if _, err := mail.ParseAddress(m.Address); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMailbox, err)
	}
	return nil
}

// Notifier sends notification emails. The zero value is ready to use.
type Notifier struct {
	// Dial opens the connection to the server. Defaults to a net.Dialer
	// with a 30 second timeout.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)

	// TLSConfig is used for STARTTLS. When nil, a config with ServerName
	// set to the server host is used.
	TLSConfig *tls.Config

	// LocalName is sent in EHLO. Defaults to "localhost".
	LocalName string

	// Now returns the time used for the Date header. Defaults to time.Now.
	Now func() time.Time
}

// NotifySelf sends body with the given subject from mailbox.Address to
// itself through server. When the mailbox has a password, PLAIN
// authentication is required and ErrAuthUnsupported is returned if the
// server does not advertise AUTH. STARTTLS is negotiated whenever the
// server offers it.
func (n *Notifier) NotifySelf(ctx context.Context, server Server, mailbox Mailbox, body, subject string) error {
	if server.Host == "" {
		return ErrInvalidServer
	}
	if server.Port == 0 {
		server.Port = DefaultPort
	}
	if err := mailbox.Validate(); err != nil {
		return err
	}

	conn, err := n.dial(ctx, server.Addr())
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", server.Addr(), err)
	}
	// The SMTP client has no context support, so the context deadline is
	// applied to the connection instead.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, server.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to start SMTP session with %s: %w", server.Addr(), err)
	}
	defer func() { _ = c.Close() }()

	if err := c.Hello(n.localName()); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := n.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: server.Host}
		}
		if err := c.StartTLS(cfg); err != nil {
			return fmt.Errorf("STARTTLS failed: %w", err)
		}
	}

	if mailbox.Password != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return ErrAuthUnsupported
		}
		auth := smtp.PlainAuth("", mailbox.Address, mailbox.Password, server.Host)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("authentication failed: %w", err)
		}
	}

	if err := c.Mail(mailbox.Address); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	if err := c.Rcpt(mailbox.Address); err != nil {
		return fmt.Errorf("RCPT TO rejected: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA rejected: %w", err)
	}
	msg := BuildMessage(mailbox.Address, subject, body, n.now())
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	if err := c.Quit(); err != nil {
		return fmt.Errorf("QUIT failed: %w", err)
	}
	return nil
}

func (n *Notifier) dial(ctx context.Context, addr string) (net.Conn, error) {
	if n.Dial != nil {
		return n.Dial(ctx, "tcp", addr)
	}
	d := &net.Dialer{Timeout: 30 * time.Second}
	return d.DialContext(ctx, "tcp", addr)
}

func (n *Notifier) localName() string {
	if n.LocalName != "" {
		return n.LocalName
	}
	return "localhost"
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}

// BuildMessage renders an RFC 5322 message from addr to itself. The sender
// and recipient display name is "Me"; the subject is RFC 2047 encoded and
// the UTF-8 body is base64 encoded in 76-column lines.
func BuildMessage(addr, subject, body string, now time.Time) []byte {
	self := (&mail.Address{Name: "Me", Address: addr}).String()

	domain := "localhost"
	if at := strings.LastIndexByte(addr, '@'); at >= 0 && at < len(addr)-1 {
		domain = addr[at+1:]
	}

	var b strings.Builder
	writeHeader := func(key, value string) {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	writeHeader("From", self)
	writeHeader("To", self)
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader("Date", now.Format(time.RFC1123Z))
	writeHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", `text/plain; charset="utf-8"`)
	writeHeader("Content-Transfer-Encoding", "base64")
	b.WriteString("\r\n")

	encoded := base64.StdEncoding.EncodeToString([]byte(body))
	for len(encoded) > 76 {
		b.WriteString(encoded[:76])
		b.WriteString("\r\n")
		encoded = encoded[76:]
	}
	b.WriteString(encoded)
	b.WriteString("\r\n")

	return []byte(b.String())
}
