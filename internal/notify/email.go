package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// ValidSMTPPorts are the only ports Email will talk to: 25 plain, 587 with
// STARTTLS and 465 with implicit TLS.
var ValidSMTPPorts = []int{25, 587, 465}

const (
	SubjectError = "State Checker Error"
	SubjectInfo  = "State Checker Information"
)

// Email sends one HTML mail per recipient.
type Email struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	ErrorTo  []string
	InfoTo   []string
	Timeout  time.Duration

	// send is swapped out in tests.
	send func(ctx context.Context, to string, msg []byte) error
}

func NewEmail(host string, port int, user, password, from string, errorTo, infoTo []string) (*Email, error) {
	if !slices.Contains(ValidSMTPPorts, port) {
		return nil, fmt.Errorf("smtp port %d not one of %v", port, ValidSMTPPorts)
	}
	if from == "" {
		from = user
	}
	e := &Email{
		Host: host, Port: port, User: user, Password: password, From: from,
		ErrorTo: errorTo, InfoTo: infoTo, Timeout: 15 * time.Second,
	}
	e.send = e.deliver
	return e, nil
}

func (e *Email) Send(ctx context.Context, audience Audience, text string) error {
	recipients, subject := e.ErrorTo, SubjectError
	if audience == AudienceInfo {
		recipients, subject = e.InfoTo, SubjectInfo
	}
	var errs error
	for _, to := range recipients {
		msg := buildMail(e.From, to, subject, text)
		if err := e.send(ctx, to, msg); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mail %s: %w", to, err))
		}
	}
	return errs
}

// buildMail wraps text in a minimal HTML body; newlines become <br/>.
func buildMail(from, to, subject, text string) []byte {
	body := strings.ReplaceAll("<html><body>"+text+"</body></html>", "\n", "<br/>")
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return b.Bytes()
}

func (e *Email) deliver(ctx context.Context, to string, msg []byte) error {
	addr := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	tlsCfg := &tls.Config{ServerName: e.Host}
	var (
		conn net.Conn
		err  error
	)
	if e.Port == 465 {
		d := &tls.Dialer{Config: tlsCfg}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	c, err := smtp.NewClient(conn, e.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer c.Close()

	if e.Port == 587 {
		if err := c.StartTLS(tlsCfg); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if e.User != "" {
		if err := c.Auth(smtp.PlainAuth("", e.User, e.Password, e.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(e.From); err != nil {
		return err
	}
	if err := c.Rcpt(to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
