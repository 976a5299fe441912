// Package mailer renders and sends the expiry alert email over SMTP.
package mailer

import (
	"bytes"
	"context"
	"domainwatch/internal/alert"
	"domainwatch/internal/config"
	"domainwatch/pkg/domain"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/wneessen/go-mail"
)

//go:embed templates/alert.html
var templates embed.FS

// SubjectPrefix precedes the current date in the alert subject.
const SubjectPrefix = "Domain Expiration Alert - "

// Options describe the SMTP endpoint.
type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	// UseTLS makes STARTTLS mandatory, otherwise it is used when offered.
	UseTLS bool
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	smtp := cfg.EmailAlert.SMTP

	return Options{
		Host:     smtp.Host,
		Port:     smtp.Port,
		Username: smtp.Username,
		Password: smtp.Password,
		UseTLS:   smtp.UseTLS,
	}
}

// SendFunc delivers a composed message.
type SendFunc func(ctx context.Context, msg *mail.Msg) error

// Mailer implements alert.Notifier with an HTML email.
type Mailer struct {
	options Options
	tmpl    *template.Template
	now     func() time.Time
	send    SendFunc
}

// Ensure Mailer conforms to the alert.Notifier interface at compile time.
var _ alert.Notifier = (*Mailer)(nil)

// Option configures a Mailer.
type Option func(*Mailer)

// WithClock replaces time.Now for the subject date.
func WithClock(now func() time.Time) Option {
	return func(m *Mailer) { m.now = now }
}

// WithSender replaces SMTP delivery.
func WithSender(send SendFunc) Option {
	return func(m *Mailer) { m.send = send }
}

// New creates a Mailer.
func New(options Options, opts ...Option) (*Mailer, error) {
	tmpl, err := template.ParseFS(templates, "templates/alert.html")
	if err != nil {
		return nil, fmt.Errorf("could not parse alert template: %w", err)
	}

	m := &Mailer{options: options, tmpl: tmpl, now: time.Now}
	m.send = m.dialAndSend
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// row is one table row of the alert.
type row struct {
	Domain          string
	ExpiryDate      string
	DaysUntilExpiry int
	Registrar       string
	StatusClass     string
}

// StatusClass is the CSS class of a domain expiring in days.
func StatusClass(days int) string {
	return "days-" + string(alert.TierOf(days))
}

// Subject returns the alert subject for today.
func (m *Mailer) Subject() string {
	return SubjectPrefix + m.now().Format(time.DateOnly)
}

// Render returns the HTML body listing records in the given order.
func (m *Mailer) Render(records []domain.Record) (string, error) {
	rows := make([]row, 0, len(records))
	for _, r := range records {
		expiry := "N/A"
		if r.HasExpiry() {
			expiry = r.ExpiresAt.Format(time.DateOnly)
		}
		registrar := r.Registrar
		if registrar == "" {
			registrar = "Unknown"
		}
		rows = append(rows, row{
			Domain:          r.Name,
			ExpiryDate:      expiry,
			DaysUntilExpiry: r.DaysUntilExpiry,
			Registrar:       registrar,
			StatusClass:     StatusClass(r.DaysUntilExpiry),
		})
	}

	var buf bytes.Buffer
	if err := m.tmpl.Execute(&buf, struct {
		Date    string
		Domains []row
	}{
		Date:    m.now().Format(time.DateOnly),
		Domains: rows,
	}); err != nil {
		return "", fmt.Errorf("could not render alert: %w", err)
	}

	return buf.String(), nil
}

// Message composes the alert email.
func (m *Mailer) Message(recipients []string, records []domain.Record) (*mail.Msg, error) {
	body, err := m.Render(records)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.options.Username); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", m.options.Username, err)
	}
	if err := msg.To(recipients...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	msg.Subject(m.Subject())
	msg.SetBodyString(mail.TypeTextHTML, body)

	return msg, nil
}

// Notify sends one alert email listing records to recipients.
func (m *Mailer) Notify(ctx context.Context, recipients []string, records []domain.Record) error {
	if len(recipients) == 0 || len(records) == 0 {
		return nil
	}

	msg, err := m.Message(recipients, records)
	if err != nil {
		return err
	}

	return m.send(ctx, msg)
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	tlsPolicy := mail.TLSOpportunistic
	if m.options.UseTLS {
		tlsPolicy = mail.TLSMandatory
	}
	opts := []mail.Option{
		mail.WithPort(m.options.Port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if m.options.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.options.Username),
			mail.WithPassword(m.options.Password))
	}

	client, err := mail.NewClient(m.options.Host, opts...)
	if err != nil {
		return fmt.Errorf("could not create smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("could not send alert email: %w", err)
	}

	return nil
}
