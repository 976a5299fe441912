// Package monitor runs one check of every domain: the primary registrar
// account first, then WHOIS for configured domains it did not cover.
package monitor

import (
	"context"
	"domainwatch/internal/config"
	"domainwatch/internal/ratelimit"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"domainwatch/pkg/registrar"
	"domainwatch/pkg/serrors"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// AllAccounts as primary account polls every configured account.
const AllAccounts = "*"

// Options configure which accounts are polled.
type Options struct {
	// PrimaryAccount is the name of the account whose domains are authoritative.
	PrimaryAccount string
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{PrimaryAccount: cfg.Monitor.PrimaryAccount}
}

// Monitor aggregates registrar and WHOIS results into one record per domain.
type Monitor struct {
	options   Options
	registrar registrar.Client
	resolver  Resolver
	limits    LimitChecker
	metrics   *metrics.Metrics
}

// New creates a Monitor. limits and m may be nil.
func New(client registrar.Client, resolver Resolver, limits LimitChecker, m *metrics.Metrics, options Options) *Monitor {
	if options.PrimaryAccount == "" {
		options.PrimaryAccount = config.DefaultPrimaryAccount
	}

	return &Monitor{
		options:   options,
		registrar: client,
		resolver:  resolver,
		limits:    limits,
		metrics:   m,
	}
}

// CheckAll returns exactly one record per domain name: registrar records
// first, in listing order, then WHOIS records for the configured names the
// registrar did not return, in configuration order.
//
// Failures of single domains are logged and skipped. An error is only
// returned when ctx is done, together with the records gathered so far.
func (m *Monitor) CheckAll(ctx context.Context, accounts []domain.Account, names []string) ([]domain.Record, error) {
	agg := &aggregate{seen: make(map[string]struct{}), metrics: m.metrics}

	for _, account := range m.primaryAccounts(ctx, accounts) {
		if err := m.checkAccount(ctx, account, agg); err != nil {
			return agg.records, err
		}
	}

	toCheck := pending(names, agg.seen)
	if len(toCheck) > 0 {
		logger.Info(ctx, "checking domains via whois", zap.Int("domains", len(toCheck)))
	}
	for _, name := range toCheck {
		if err := ctx.Err(); err != nil {
			return agg.records, fmt.Errorf("check interrupted: %w", err)
		}

		rec, err := m.resolver.Resolve(ctx, name)
		if err != nil {
			logSkip(ctx, name, err)

			continue
		}
		agg.add(ctx, *rec)
	}

	return agg.records, nil
}

// aggregate collects records keyed by lower-cased domain name.
type aggregate struct {
	records []domain.Record
	seen    map[string]struct{}
	metrics *metrics.Metrics
}

func (a *aggregate) has(name string) bool {
	_, ok := a.seen[strings.ToLower(name)]

	return ok
}

// add appends rec unless a record of the same name exists, which would be a
// bug upstream and is only logged.
func (a *aggregate) add(ctx context.Context, rec domain.Record) {
	if a.has(rec.Name) {
		logger.Error(ctx, "duplicate domain record dropped",
			zap.String("domain", rec.Name), zap.String("account", rec.Account))

		return
	}
	a.seen[strings.ToLower(rec.Name)] = struct{}{}
	a.records = append(a.records, rec)
	a.metrics.ObserveRecord(rec)
}

// primaryAccounts selects the accounts polled through the registrar.
func (m *Monitor) primaryAccounts(ctx context.Context, accounts []domain.Account) []domain.Account {
	if m.options.PrimaryAccount == AllAccounts {
		return accounts
	}
	for _, account := range accounts {
		if account.Name == m.options.PrimaryAccount {
			return []domain.Account{account}
		}
	}
	logger.Warn(ctx, "primary account not configured, only configured domains are checked",
		zap.String("account", m.options.PrimaryAccount))

	return nil
}

func (m *Monitor) checkAccount(ctx context.Context, account domain.Account, agg *aggregate) error {
	ctx = logger.WithFields(ctx, zap.String("account", account.Name))

	refs, err := m.registrar.ListDomains(ctx, account)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("check interrupted: %w", ctxErr)
		}
		if errors.Is(err, serrors.ErrForbidden) || errors.Is(err, serrors.ErrUnauthorized) {
			m.metrics.CheckCompleted(metrics.SourceRegistrar, metrics.OutcomeForbidden)
			logger.Error(ctx, "access denied while listing domains", zap.Error(err))
		} else {
			m.metrics.CheckCompleted(metrics.SourceRegistrar, metrics.OutcomeError)
			logger.Error(ctx, "could not list domains", zap.Error(err))
		}

		return nil
	}

	if m.limits != nil {
		m.limits.CheckDomainLimits(ctx, account, len(refs))
	}
	logger.Info(ctx, "fetching domain details",
		zap.Int("domains", len(refs)),
		zap.Int("requestsPerMinute", account.RateLimit()),
		zap.Duration("estimated", ratelimit.EstimateDuration(len(refs), account.RateLimit())))

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("check interrupted: %w", err)
		}
		if agg.has(ref.Name) {
			logger.Debug(ctx, "domain already checked under another account", zap.String("domain", ref.Name))

			continue
		}

		rec, err := m.registrar.FetchDetail(ctx, account, ref.Name)
		switch {
		case err == nil:
			m.metrics.CheckCompleted(metrics.SourceRegistrar, metrics.OutcomeOK)
			agg.add(ctx, *rec)
		case errors.Is(err, serrors.ErrNotFound):
			m.metrics.CheckCompleted(metrics.SourceRegistrar, metrics.OutcomeNotFound)
			logger.Debug(ctx, "domain not found at registrar, skipped", zap.String("domain", ref.Name))
		case errors.Is(err, serrors.ErrForbidden):
			m.metrics.CheckCompleted(metrics.SourceRegistrar, metrics.OutcomeForbidden)
			logger.Warn(ctx, "access denied to domain, skipped", zap.String("domain", ref.Name))
		default:
			m.metrics.CheckCompleted(metrics.SourceRegistrar, metrics.OutcomeError)
			logger.Error(ctx, "could not fetch domain details, skipped", zap.String("domain", ref.Name), zap.Error(err))
		}
	}

	return nil
}

// pending returns the configured names not present in seen, trimmed and
// deduplicated case-insensitively, in configuration order.
func pending(names []string, seen map[string]struct{}) []string {
	var out []string
	queued := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		if _, ok := queued[key]; ok {
			continue
		}
		queued[key] = struct{}{}
		out = append(out, name)
	}

	return out
}

func logSkip(ctx context.Context, name string, err error) {
	field := zap.String("domain", name)
	switch {
	case errors.Is(err, serrors.ErrNotFound):
		logger.Warn(ctx, "domain does not exist, skipped", field, zap.Error(err))
	case errors.Is(err, serrors.ErrMalformed):
		logger.Warn(ctx, "could not determine expiration date, skipped", field, zap.Error(err))
	default:
		logger.Error(ctx, "whois check failed, skipped", field, zap.Error(err))
	}
}
