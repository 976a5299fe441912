package mailer_test

import (
	"context"
	"domainwatch/internal/mailer"
	"domainwatch/pkg/domain"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

var today = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) //nolint: gochecknoglobals

func records() []domain.Record {
	return []domain.Record{
		{Name: "soon.com", ExpiresAt: today.AddDate(0, 0, 5), DaysUntilExpiry: 5, Registrar: "GoDaddy"},
		{Name: "<b>odd</b>.com", ExpiresAt: today.AddDate(0, 0, 45), DaysUntilExpiry: 45},
		{Name: "later.com", ExpiresAt: today.AddDate(0, 0, 90), DaysUntilExpiry: 90, Registrar: "Example NIC"},
	}
}

func newMailer(t *testing.T, opts ...mailer.Option) *mailer.Mailer {
	t.Helper()
	opts = append([]mailer.Option{mailer.WithClock(func() time.Time { return today })}, opts...)
	m, err := mailer.New(mailer.Options{Host: "smtp.example.com", Port: 587, Username: "alerts@example.com"}, opts...)
	require.NoError(t, err)

	return m
}

func TestStatusClass(t *testing.T) {
	require.Equal(t, "days-critical", mailer.StatusClass(30))
	require.Equal(t, "days-warning", mailer.StatusClass(31))
	require.Equal(t, "days-warning", mailer.StatusClass(60))
	require.Equal(t, "days-normal", mailer.StatusClass(61))
}

func TestSubject(t *testing.T) {
	require.Equal(t, "Domain Expiration Alert - 2025-03-04", newMailer(t).Subject())
}

func TestRender(t *testing.T) {
	body, err := newMailer(t).Render(records())
	require.NoError(t, err)

	require.Contains(t, body, "<td>soon.com</td>")
	require.Contains(t, body, "<td>2025-03-09</td>")
	require.Contains(t, body, `<td class="days-critical">5</td>`)
	require.Contains(t, body, `<td class="days-warning">45</td>`)
	require.Contains(t, body, `<td class="days-normal">90</td>`)
	require.Contains(t, body, "<td>Unknown</td>")
	require.Contains(t, body, "&lt;b&gt;odd&lt;/b&gt;.com", "domain names are escaped")
	require.Less(t, strings.Index(body, "soon.com"), strings.Index(body, "later.com"), "input order is kept")
}

func TestRender_unknownExpiry(t *testing.T) {
	body, err := newMailer(t).Render([]domain.Record{{Name: "unknown.com"}})
	require.NoError(t, err)
	require.Contains(t, body, "<td>N/A</td>")
}

func TestNotify(t *testing.T) {
	var sent *mail.Msg
	m := newMailer(t, mailer.WithSender(func(_ context.Context, msg *mail.Msg) error {
		sent = msg

		return nil
	}))

	require.NoError(t, m.Notify(context.Background(), []string{"ops@example.com", "dev@example.com"}, records()))
	require.NotNil(t, sent)

	require.Equal(t, []string{"Domain Expiration Alert - 2025-03-04"}, sent.GetGenHeader(mail.HeaderSubject))
	rcpts, err := sent.GetRecipients()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"ops@example.com", "dev@example.com"}, rcpts)
	from := sent.GetFrom()
	require.Len(t, from, 1)
	require.Equal(t, "alerts@example.com", from[0].Address)
}

func TestNotify_nothingToSend(t *testing.T) {
	m := newMailer(t, mailer.WithSender(func(context.Context, *mail.Msg) error {
		t.Fatal("nothing must be sent")

		return nil
	}))

	require.NoError(t, m.Notify(context.Background(), nil, records()))
	require.NoError(t, m.Notify(context.Background(), []string{"ops@example.com"}, nil))
}

func TestNotify_errors(t *testing.T) {
	sendErr := errors.New("454 TLS not available")
	m := newMailer(t, mailer.WithSender(func(context.Context, *mail.Msg) error { return sendErr }))
	require.ErrorIs(t, m.Notify(context.Background(), []string{"ops@example.com"}, records()), sendErr)

	require.Error(t, m.Notify(context.Background(), []string{"not an address"}, records()))
}

func TestNotify_smtpFailureIsReturned(t *testing.T) {
	m, err := mailer.New(mailer.Options{Host: "127.0.0.1", Port: 1, Username: "alerts@example.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.Error(t, m.Notify(ctx, []string{"ops@example.com"}, records()))
}
