// Package resolver resolves domains that no registrar account manages, first
// through the manual override table and otherwise through WHOIS with a bounded
// retry policy.
package resolver

import (
	"context"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"domainwatch/pkg/serrors"
	"domainwatch/pkg/whois"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	// OverrideSuffix is the only suffix looked up in the override table.
	OverrideSuffix = ".ai"
	// OverrideDateLayout is the layout of Override.ExpiryDate.
	OverrideDateLayout = "2006-01-02"
	// DefaultOverrideRegistrar is used for overrides without a registrar.
	DefaultOverrideRegistrar = "Anguilla NIC"
	// UnknownRegistrar is used when WHOIS names neither registrar nor registrant.
	UnknownRegistrar = "Unknown"
	// SynthesizedNameSuffix marks registries that may omit the domain name field.
	SynthesizedNameSuffix = ".au"
)

// Defaults of Policy.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
	DefaultTimeout     = 10 * time.Second
)

// Override is a manually curated expiry for a domain WHOIS cannot answer for.
type Override struct {
	ExpiryDate string
	Registrar  string
}

// Policy bounds the WHOIS retries of a single domain.
type Policy struct {
	// MaxAttempts is the total number of queries, including the first.
	MaxAttempts int
	// RetryDelay is the fixed pause between attempts.
	RetryDelay time.Duration
	// Timeout bounds each query.
	Timeout time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultRetryDelay
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultTimeout
	}

	return p
}

// Resolver produces WHOIS-sourced domain records.
type Resolver struct {
	querier   whois.Querier
	overrides map[string]Override
	policy    Policy
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithOverrides sets the override table, keyed by domain name.
func WithOverrides(overrides map[string]Override) Option {
	return func(r *Resolver) {
		r.overrides = make(map[string]Override, len(overrides))
		for name, o := range overrides {
			r.overrides[strings.ToLower(name)] = o
		}
	}
}

// WithPolicy overrides the default retry policy. Zero fields keep their default.
func WithPolicy(p Policy) Option {
	return func(r *Resolver) { r.policy = p.withDefaults() }
}

// WithMetrics records attempts and outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithClock replaces time.Now when deriving days until expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// New creates a Resolver querying q.
func New(q whois.Querier, opts ...Option) *Resolver {
	r := &Resolver{
		querier:   q,
		overrides: map[string]Override{},
		policy:    Policy{}.withDefaults(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the record of name. Every error means "no record": callers
// log it and continue with the next domain.
//
// Errors carry serrors.ErrNotFound when WHOIS has no match, ErrMalformed when
// no expiry could be determined or the response could not be parsed and
// ErrUnavailable when every attempt came back empty.
func (r *Resolver) Resolve(ctx context.Context, name string) (*domain.Record, error) {
	ctx = logger.WithFields(ctx, zap.String("domain", name))

	if o, ok := r.override(name); ok {
		rec, err := r.fromOverride(name, o)
		if err != nil {
			r.metrics.CheckCompleted(metrics.SourceOverride, metrics.OutcomeError)

			return nil, err
		}
		r.metrics.CheckCompleted(metrics.SourceOverride, metrics.OutcomeOK)

		return rec, nil
	}

	rec, err := r.resolveWhois(ctx, name)
	switch {
	case err == nil:
		r.metrics.CheckCompleted(metrics.SourceWhois, metrics.OutcomeOK)
	case errors.Is(err, serrors.ErrNotFound):
		r.metrics.CheckCompleted(metrics.SourceWhois, metrics.OutcomeNotFound)
	default:
		r.metrics.CheckCompleted(metrics.SourceWhois, metrics.OutcomeError)
	}

	return rec, err
}

func (r *Resolver) override(name string) (Override, bool) {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, OverrideSuffix) {
		return Override{}, false
	}
	o, ok := r.overrides[lower]

	return o, ok
}

func (r *Resolver) fromOverride(name string, o Override) (*domain.Record, error) {
	expires, err := time.Parse(OverrideDateLayout, strings.TrimSpace(o.ExpiryDate))
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "invalid override expiry date of %s", name)
	}
	registrar := o.Registrar
	if registrar == "" {
		registrar = DefaultOverrideRegistrar
	}

	return &domain.Record{
		Name:            name,
		Account:         domain.ManualAccount,
		ExpiresAt:       expires,
		DaysUntilExpiry: domain.DaysUntil(expires, r.now()),
		Registrar:       registrar,
		Status:          domain.StatusActive,
		StatusDisplay:   domain.StatusActive.Label(),
		NameServers:     []string{},
	}, nil
}

func (r *Resolver) resolveWhois(ctx context.Context, name string) (*domain.Record, error) {
	var (
		rec     *domain.Record
		attempt int
	)

	backoff := retry.WithMaxRetries(uint64(r.policy.MaxAttempts-1), retry.NewConstant(r.policy.RetryDelay)) //nolint: gosec
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		actx := logger.WithFields(ctx, zap.Int("attempt", attempt))
		last := attempt >= r.policy.MaxAttempts

		resp, err := r.query(actx, name)
		if err != nil {
			if retryable(ctx, err) {
				logAttemptFailure(actx, last, "whois query failed", err)

				return retry.RetryableError(err)
			}

			return err
		}

		if noData(resp) {
			err := serrors.With(serrors.ErrUnavailable, "no whois data available for %s", name)
			logAttemptFailure(actx, last, "whois returned no data", err)

			return retry.RetryableError(err)
		}

		if got := returnedName(resp, name); got != "" && !strings.Contains(got, strings.ToLower(name)) {
			if !last {
				logger.Warn(actx, "whois domain name mismatch, retrying", zap.String("returned", got))

				return retry.RetryableError(serrors.With(serrors.ErrUnavailable, "whois answered for %s instead of %s", got, name))
			}
			logger.Warn(actx, "whois domain name mismatch on last attempt, accepting response", zap.String("returned", got))
		}

		rec, err = r.toRecord(name, resp)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("could not resolve %s after %d attempt(s): %w", name, attempt, err)
	}

	return rec, nil
}

// query runs one attempt under its own timeout.
func (r *Resolver) query(ctx context.Context, name string) (*whois.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := r.querier.Query(ctx, name)
	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, serrors.ErrNotFound):
		outcome = metrics.OutcomeNotFound
	case err != nil:
		outcome = metrics.OutcomeError
	}
	r.metrics.WhoisAttempt(outcome, time.Since(start))
	logger.Debug(ctx, "whois query finished", zap.String("outcome", outcome), zap.Duration("took", time.Since(start)))

	return resp, err //nolint: wrapcheck
}

// retryable reports whether a failed query is worth another attempt.
// Definitive answers (no match, unparsable) are not, and neither is anything
// after the run itself was canceled.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if serrors.IsTransient(err) {
		return true
	}

	return serrors.KindOf(err) == nil
}

func logAttemptFailure(ctx context.Context, last bool, msg string, err error) {
	if last {
		logger.Error(ctx, msg+", giving up", zap.Error(err))

		return
	}
	logger.Warn(ctx, msg+", retrying", zap.Error(err))
}

// noData reports whether resp carries neither a domain name nor any expiry.
func noData(resp *whois.Response) bool {
	return resp.Empty() ||
		(resp.DomainName.Absent() && resp.ExpirationDate.Absent() && resp.RegistryExpiryDate.Absent())
}

// returnedName is the lower-cased domain name WHOIS answered for, or "" if
// it did not say.
func returnedName(resp *whois.Response, queried string) string {
	if got, ok := whois.FirstString(resp.DomainName); ok {
		return strings.ToLower(got)
	}
	if strings.HasSuffix(strings.ToLower(queried), SynthesizedNameSuffix) {
		return strings.ToLower(queried)
	}

	return ""
}

func (r *Resolver) toRecord(name string, resp *whois.Response) (*domain.Record, error) {
	expires, ok := whois.Earliest(resp.ExpirationDate)
	if !ok {
		expires, ok = whois.Earliest(resp.RegistryExpiryDate)
	}
	if !ok {
		return nil, serrors.With(serrors.ErrMalformed, "could not determine expiration date for %s", name)
	}

	registrar, ok := whois.FirstString(resp.Registrar)
	if !ok {
		registrar, ok = whois.FirstString(resp.Registrant)
	}
	if !ok {
		registrar = UnknownRegistrar
	}

	created, _ := whois.Earliest(resp.CreationDate)

	nameServers := []string{}
	for _, ns := range resp.NameServers.Values() {
		if ns = strings.TrimSpace(ns); ns != "" {
			nameServers = append(nameServers, strings.ToLower(ns))
		}
	}

	return &domain.Record{
		Name:            name,
		Account:         domain.ManualAccount,
		ExpiresAt:       expires,
		DaysUntilExpiry: domain.DaysUntil(expires, r.now()),
		Registrar:       registrar,
		Status:          domain.StatusActive,
		StatusDisplay:   domain.StatusActive.Label(),
		CreatedAt:       created,
		NameServers:     nameServers,
	}, nil
}
