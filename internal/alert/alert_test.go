package alert_test

import (
	"context"
	"domainwatch/internal/alert"
	mockalert "domainwatch/internal/alert/mock"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment, false)
	m.Run()
}

func record(name string, days int) domain.Record {
	return domain.Record{
		Name:            name,
		ExpiresAt:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days),
		DaysUntilExpiry: days,
	}
}

func TestShouldAlert(t *testing.T) {
	policy := alert.Policy{Whitelist: []string{"Keep.com"}, Threshold: 60}

	tests := []struct {
		name string
		rec  domain.Record
		want bool
	}{
		{name: "at threshold", rec: record("a.com", 60), want: true},
		{name: "beyond threshold", rec: record("a.com", 61), want: false},
		{name: "expired", rec: record("a.com", -3), want: true},
		{name: "whitelisted", rec: record("keep.com", 1), want: false},
		{name: "unknown expiry", rec: domain.Record{Name: "a.com"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, alert.ShouldAlert(tt.rec, policy))
		})
	}
}

func TestShouldAlert_defaultThreshold(t *testing.T) {
	require.True(t, alert.ShouldAlert(record("a.com", alert.DefaultThreshold), alert.Policy{}))
	require.False(t, alert.ShouldAlert(record("a.com", alert.DefaultThreshold+1), alert.Policy{}))
}

func TestSelectForAlert(t *testing.T) {
	policy := alert.Policy{Whitelist: []string{"skip.com"}, Threshold: 30}
	records := []domain.Record{
		record("late.com", 25),
		record("far.com", 300),
		record("skip.com", 2),
		{Name: "unknown.com"},
		record("soon.com", 3),
		record("expired.com", -1),
		record("tie.com", 25),
	}

	selected := alert.SelectForAlert(records, policy)

	got := make([]string, 0, len(selected))
	for _, r := range selected {
		got = append(got, r.Name)
	}
	require.Equal(t, []string{"expired.com", "soon.com", "late.com", "tie.com"}, got)
	require.Empty(t, alert.SelectForAlert(nil, policy))
}

func TestSelectForAlert_sortedAndWhitelistFreeForRandomInput(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2)) //nolint: gosec
	whitelist := []string{"d3.com", "d7.com", "d11.com"}
	policy := alert.Policy{Whitelist: whitelist, Threshold: 45}

	for range 50 {
		var records []domain.Record
		for i := range rng.IntN(30) {
			records = append(records, record("d"+string(rune('0'+i%10))+".com", rng.IntN(200)-20))
		}

		selected := alert.SelectForAlert(records, policy)
		for i, r := range selected {
			require.NotContains(t, whitelist, r.Name)
			require.LessOrEqual(t, r.DaysUntilExpiry, 45)
			if i > 0 {
				require.LessOrEqual(t, selected[i-1].DaysUntilExpiry, r.DaysUntilExpiry)
			}
		}
	}
}

func TestTierOf(t *testing.T) {
	require.Equal(t, alert.TierCritical, alert.TierOf(-5))
	require.Equal(t, alert.TierCritical, alert.TierOf(30))
	require.Equal(t, alert.TierWarning, alert.TierOf(31))
	require.Equal(t, alert.TierWarning, alert.TierOf(60))
	require.Equal(t, alert.TierNormal, alert.TierOf(61))
}

func TestEvaluator_Dispatch(t *testing.T) {
	records := []domain.Record{record("b.com", 20), record("a.com", 5), record("c.com", 400)}
	policy := alert.Policy{Recipients: []string{"ops@example.com"}, Threshold: 60}

	t.Run("notifies selected records", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mockalert.NewMockNotifier(ctrl)
		m := metrics.New()
		notifier.EXPECT().Notify(gomock.Any(), policy.Recipients, []domain.Record{records[1], records[0]}).Return(nil)

		selected, err := alert.NewEvaluator(policy, notifier, m).Dispatch(context.Background(), records)
		require.NoError(t, err)
		require.Len(t, selected, 2)
		expected := `
# HELP domainwatch_alerts_selected Domains selected for the expiry alert in the last run.
# TYPE domainwatch_alerts_selected gauge
domainwatch_alerts_selected 2
`
		require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "domainwatch_alerts_selected"))
	})

	t.Run("delivery failure keeps the selection", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mockalert.NewMockNotifier(ctrl)
		smtpErr := errors.New("connection refused")
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Return(smtpErr)

		selected, err := alert.NewEvaluator(policy, notifier, nil).Dispatch(context.Background(), records)
		require.ErrorIs(t, err, smtpErr)
		require.Len(t, selected, 2)
	})

	t.Run("nothing selected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mockalert.NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		selected, err := alert.NewEvaluator(policy, notifier, nil).Dispatch(context.Background(), records[2:])
		require.NoError(t, err)
		require.Empty(t, selected)
	})

	t.Run("no recipients", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		notifier := mockalert.NewMockNotifier(ctrl)
		notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		selected, err := alert.NewEvaluator(alert.Policy{}, notifier, nil).Dispatch(context.Background(), records)
		require.NoError(t, err)
		require.Len(t, selected, 2)
	})
}
