// Package smtp delivers automation messages through an SMTP relay.
package smtp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/messagemind/automaton/internal/logging"
	"github.com/messagemind/automaton/pkg/domain"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender implements ports.MessageSender over SMTP with PLAIN auth.
type Sender struct {
	host     string
	port     int
	user     string
	password string
	fromName string
	send     SendFunc
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Sender.
type Option func(*Sender)

// WithFromName sets the display name of the From header.
func WithFromName(name string) Option {
	return func(s *Sender) {
		s.fromName = name
	}
}

// WithSendFunc replaces smtp.SendMail, mostly for tests.
func WithSendFunc(fn SendFunc) Option {
	return func(s *Sender) {
		s.send = fn
	}
}

// WithLogger sets the logger of the sender.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sender) {
		s.logger = logger
	}
}

// New creates a sender authenticating as user, who is also the envelope sender.
func New(host string, port int, user, password string, opts ...Option) *Sender {
	s := &Sender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		fromName: "MessageMind",
		send:     smtp.SendMail,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers msg. smtp.SendMail takes no context, so ctx is only checked
// before dialing and a canceled send may still complete.
func (s *Sender) Send(ctx context.Context, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := mail.ParseAddress(msg.To)
	if err != nil {
		return fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	body, err := s.compose(to, msg)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))
	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	start := s.now()
	if err := s.send(addr, auth, s.user, []string{to.Address}, body); err != nil {
		return fmt.Errorf("smtp send to %s failed: %w", to.Address, err)
	}
	s.logger.Debug("message sent", "to", to.Address, "subject", msg.Subject, "duration", s.now().Sub(start))
	return nil
}

func (s *Sender) compose(to *mail.Address, msg domain.Message) ([]byte, error) {
	if strings.ContainsAny(msg.Subject, "\r\n") {
		return nil, errors.New("subject must not contain line breaks")
	}
	from := mail.Address{Name: s.fromName, Address: s.user}

	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from.String())
	header("To", to.String())
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", s.now().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), s.host))
	header("MIME-Version", "1.0")

	html := msg.HTML
	if html == "" {
		header("Content-Type", `text/plain; charset="utf-8"`)
		header("Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		if err := writeQP(&buf, msg.Text); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	boundary := "automaton-" + uuid.NewString()
	header("Content-Type", fmt.Sprintf(`multipart/alternative; boundary="%s"`, boundary))
	buf.WriteString("\r\n")
	for _, part := range []struct{ kind, content string }{
		{"text/plain", msg.Text},
		{"text/html", html},
	} {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		fmt.Fprintf(&buf, "Content-Type: %s; charset=\"utf-8\"\r\n", part.kind)
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		if err := writeQP(&buf, part.content); err != nil {
			return nil, err
		}
		buf.WriteString("\r\n")
	}
	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes(), nil
}

func writeQP(buf *bytes.Buffer, s string) error {
	w := quotedprintable.NewWriter(buf)
	if _, err := w.Write([]byte(s)); err != nil {
		return fmt.Errorf("failed to encode body: %w", err)
	}
	return w.Close()
}
