// Package mailer renders invitation emails and sends them over SMTP.  It
// is the Handler plugged into the notification queue consumer.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"syscall"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/iliyamo/cinema-invitations/internal/config"
	"github.com/iliyamo/cinema-invitations/internal/queue"
)

// sender is the part of *mail.Client the mailer uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer turns queue events into emails.
type Mailer struct {
	cfg    config.MailConfig
	client sender
	log    *slog.Logger
	wait   func(context.Context, time.Duration) bool
}

// New builds a Mailer backed by a go-mail SMTP client.  SMTP auth is only
// enabled when a username is configured.
func New(cfg config.MailConfig, log *slog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return newWithSender(cfg, c, log), nil
}

func newWithSender(cfg config.MailConfig, s sender, log *slog.Logger) *Mailer {
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{cfg: cfg, client: s, log: log, wait: waitCtx}
}

// Handle renders ev and sends it.  A refused connection is retried
// cfg.Retries times with doubling delays; any other error fails at once.
func (m *Mailer) Handle(ctx context.Context, ev queue.InvitationEvent) error {
	msg, err := m.Build(ev)
	if err != nil {
		return err
	}
	delay := m.cfg.RetryBase
	for attempt := 0; ; attempt++ {
		err = m.client.DialAndSendWithContext(ctx, msg)
		if err == nil {
			m.log.Info("email sent", "type", ev.Type, "invitation_id", ev.InvitationID, "attempt", attempt+1)
			return nil
		}
		if !errors.Is(err, syscall.ECONNREFUSED) || attempt >= m.cfg.Retries {
			return fmt.Errorf("send %s to invitation %d: %w", ev.Type, ev.InvitationID, err)
		}
		m.log.Warn("smtp connection refused, retrying", "attempt", attempt+1, "retry_in", delay)
		if !m.wait(ctx, delay) {
			return ctx.Err()
		}
		delay *= 2
	}
}

// Build renders the message for ev without sending it.
func (m *Mailer) Build(ev queue.InvitationEvent) (*mail.Msg, error) {
	subject, html, err := Render(ev)
	if err != nil {
		return nil, err
	}
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(ev.Email); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)
	if ev.ID != "" {
		msg.SetMessageIDWithValue(ev.ID)
	}
	return msg, nil
}

type view struct {
	Inviter  string
	Movie    string
	Cinema   string
	Date     string
	Time     string
	Row      int
	Seat     int
	Previous *queue.SessionInfo
}

var (
	invitationTmpl = template.Must(template.New("invitation").Parse(`<p>Hello,</p>
<p>{{.Inviter}} invited you to watch <strong>{{.Movie}}</strong> at {{.Cinema}}.</p>
<p>Date: {{.Date}} at {{.Time}}<br>Row {{.Row}}, seat {{.Seat}}</p>
<p>This is a system-generated message. Do not reply to this email.</p>`))

	changedTmpl = template.Must(template.New("changed").Parse(`<p>Hello,</p>
<p>The screening of <strong>{{.Movie}}</strong> you were invited to by {{.Inviter}} has changed.</p>
<p>New schedule: {{.Date}} at {{.Time}}, {{.Cinema}}.</p>
{{with .Previous}}<p>Previously: {{.Date}} at {{.Time}}, {{.CinemaName}}.</p>{{end}}
<p>This is a system-generated message. Do not reply to this email.</p>`))
)

// Render returns the subject and HTML body for ev.  Seats are shown
// one-based.
func Render(ev queue.InvitationEvent) (string, string, error) {
	v := view{
		Inviter:  ev.InviterName,
		Movie:    ev.Session.MovieTitle,
		Cinema:   ev.Session.CinemaName,
		Date:     ev.Session.Date,
		Time:     ev.Session.Time,
		Row:      ev.Row + 1,
		Seat:     ev.Column + 1,
		Previous: ev.Previous,
	}
	var (
		subject string
		tmpl    *template.Template
	)
	switch ev.Type {
	case queue.TypeInvitationCreated:
		subject = fmt.Sprintf("%s invited you to watch the movie %s", ev.InviterName, ev.Session.MovieTitle)
		tmpl = invitationTmpl
	case queue.TypeSessionChanged:
		subject = fmt.Sprintf("We are sorry but there was a change considering the screening of movie %s", ev.Session.MovieTitle)
		tmpl = changedTmpl
	default:
		return "", "", fmt.Errorf("no template for event type %q", ev.Type)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, v); err != nil {
		return "", "", fmt.Errorf("render %s: %w", ev.Type, err)
	}
	return subject, buf.String(), nil
}

func waitCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
