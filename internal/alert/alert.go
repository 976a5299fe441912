// Package alert decides which domains are reported by email.
package alert

import (
	"context"
	"domainwatch/internal/config"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
)

// DefaultThreshold is the alert threshold in days.
const DefaultThreshold = 60

// Tier is the severity class used when rendering an alert.
type Tier string

// Tiers, most urgent first.
const (
	TierCritical Tier = "critical"
	TierWarning  Tier = "warning"
	TierNormal   Tier = "normal"
)

// Tier boundaries, in days.
const (
	CriticalDays = 30
	WarningDays  = 60
)

// TierOf returns the tier of a domain expiring in days.
func TierOf(days int) Tier {
	switch {
	case days <= CriticalDays:
		return TierCritical
	case days <= WarningDays:
		return TierWarning
	default:
		return TierNormal
	}
}

// Policy is the read-only alerting configuration.
type Policy struct {
	Recipients []string
	// Whitelist lists domains that never alert, compared case-insensitively.
	Whitelist []string
	// Threshold is the days-until-expiry at or below which a domain alerts.
	Threshold int
}

// NewPolicy constructs a Policy from the provided application config.
func NewPolicy(cfg *config.Config) Policy {
	return Policy{
		Recipients: cfg.EmailAlert.Recipients,
		Whitelist:  cfg.EmailAlert.Whitelist,
		Threshold:  cfg.EmailAlert.AlertThreshold,
	}
}

func (p Policy) threshold() int {
	if p.Threshold <= 0 {
		return DefaultThreshold
	}

	return p.Threshold
}

func (p Policy) whitelisted(name string) bool {
	return slices.ContainsFunc(p.Whitelist, func(w string) bool {
		return strings.EqualFold(strings.TrimSpace(w), name)
	})
}

// ShouldAlert reports whether rec is due for an alert. Whitelisted domains and
// domains without a known expiry never are.
func ShouldAlert(rec domain.Record, p Policy) bool {
	if p.whitelisted(rec.Name) || !rec.HasExpiry() {
		return false
	}

	return rec.DaysUntilExpiry <= p.threshold()
}

// SelectForAlert returns the records due for an alert, sorted by ascending
// days until expiry. Records expiring on the same day keep their input order.
func SelectForAlert(records []domain.Record, p Policy) []domain.Record {
	var selected []domain.Record
	for _, rec := range records {
		if ShouldAlert(rec, p) {
			selected = append(selected, rec)
		}
	}
	slices.SortStableFunc(selected, func(a, b domain.Record) int {
		return a.DaysUntilExpiry - b.DaysUntilExpiry
	})

	return selected
}

// Evaluator selects the records to alert about and hands them to a Notifier.
type Evaluator struct {
	policy   Policy
	notifier Notifier
	metrics  *metrics.Metrics
}

// NewEvaluator creates an Evaluator. m may be nil.
func NewEvaluator(policy Policy, notifier Notifier, m *metrics.Metrics) *Evaluator {
	return &Evaluator{policy: policy, notifier: notifier, metrics: m}
}

// Dispatch selects the records due for an alert and notifies about them. The
// selection is returned even when delivery fails; delivery errors never
// affect the check results.
func (e *Evaluator) Dispatch(ctx context.Context, records []domain.Record) ([]domain.Record, error) {
	selected := SelectForAlert(records, e.policy)
	e.metrics.AlertsSelected(len(selected))

	switch {
	case len(selected) == 0:
		logger.Info(ctx, "no domains within the alert threshold", zap.Int("threshold", e.policy.threshold()))

		return selected, nil
	case len(e.policy.Recipients) == 0:
		logger.Warn(ctx, "domains within the alert threshold but no recipients configured",
			zap.Int("domains", len(selected)))

		return selected, nil
	}

	if err := e.notifier.Notify(ctx, e.policy.Recipients, selected); err != nil {
		return selected, fmt.Errorf("could not send alert: %w", err)
	}
	logger.Info(ctx, "alert sent",
		zap.Int("domains", len(selected)),
		zap.Strings("recipients", e.policy.Recipients))

	return selected, nil
}
