package domain_test

import (
	"domainwatch/pkg/domain"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{name: "exact days", at: now.Add(10 * 24 * time.Hour), want: 10},
		{name: "partial day rounds down", at: now.Add(10*24*time.Hour - time.Minute), want: 9},
		{name: "same instant", at: now, want: 0},
		{name: "expired an hour ago", at: now.Add(-time.Hour), want: -1},
		{name: "expired three days ago", at: now.Add(-72 * time.Hour), want: -3},
		{name: "sub-second before a day boundary", at: now.Add(24*time.Hour - time.Nanosecond), want: 0},
		{name: "sub-second after expiry", at: now.Add(-time.Nanosecond), want: -1},
		{name: "far future beyond duration range", at: time.Date(2400, 6, 1, 12, 0, 0, 0, time.UTC), want: 136966},
		{name: "far past beyond duration range", at: time.Date(1600, 6, 1, 12, 0, 0, 0, time.UTC), want: -155228},
		{name: "other time zone", at: time.Date(2025, 6, 2, 14, 0, 0, 0, time.FixedZone("CEST", 2*60*60)), want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, domain.DaysUntil(tt.at, now))
		})
	}
}

func TestStatusDisplay(t *testing.T) {
	tests := []struct {
		name   string
		status domain.Status
		days   int
		want   string
	}{
		{name: "critical active", status: domain.StatusActive, days: 10, want: "⚠️ ✅ Active"},
		{name: "boundary critical", status: domain.StatusActive, days: 30, want: "⚠️ ✅ Active"},
		{name: "warning", status: domain.StatusActive, days: 45, want: "⚡ ✅ Active"},
		{name: "boundary warning", status: domain.StatusAwaitingDocumentUpload, days: 90, want: "⚡ 📄 Document Upload Pending"},
		{name: "no marker", status: domain.StatusActive, days: 200, want: "✅ Active"},
		{name: "expired", status: domain.StatusActive, days: -5, want: "⚠️ ✅ Active"},
		{name: "unknown pass-through", status: domain.Status("PENDING_TRANSFER"), days: 400, want: "❓ PENDING_TRANSFER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, domain.StatusDisplay(tt.status, tt.days))
		})
	}
}

func TestAccountRateLimit(t *testing.T) {
	require.Equal(t, domain.DefaultRequestsPerMinute, domain.Account{}.RateLimit())
	require.Equal(t, 2, domain.Account{RequestsPerMinute: 2}.RateLimit())
}

func TestRecordHasExpiry(t *testing.T) {
	require.False(t, domain.Record{Name: "example.com"}.HasExpiry())
	require.True(t, domain.Record{Name: "example.com", ExpiresAt: time.Now()}.HasExpiry())
}
