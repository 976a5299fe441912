// Package ratelimit throttles registrar requests per account with a fixed
// 60 second window.
package ratelimit

import (
	"context"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"domainwatch/pkg/metrics"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Window is the accounting period of the limiter.
const Window = time.Minute

// window is the rolling counter of one account.
type window struct {
	count int
	start time.Time
}

// Limiter keeps one fixed window per account name. Each window is only ever
// driven by the flow processing that account, the mutex just guards the map.
//
// Admission:
//  1. If the current window is older than Window, it is restarted at now.
//  2. If fewer than the account's budget were admitted in the window, the
//     request is counted and admitted immediately.
//  3. Otherwise the caller is suspended until the window ends, then the
//     window is reset to an empty one starting after the wait. The request
//     that waited is not counted in it.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	now     func() time.Time
	sleep   func(ctx context.Context, d time.Duration) error
	metrics *metrics.Metrics
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleeper replaces the context-aware sleep used while waiting for a window.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

// WithMetrics records waits on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// New creates a Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint: wrapcheck
	case <-t.C:
		return nil
	}
}

func (l *Limiter) windowFor(account string) *window {
	w, ok := l.windows[account]
	if !ok {
		w = &window{}
		l.windows[account] = w
	}

	return w
}

// Admit blocks until account may issue one more request. It only fails when
// ctx is done while waiting.
func (l *Limiter) Admit(ctx context.Context, account domain.Account) error {
	limit := account.RateLimit()

	l.mu.Lock()
	w := l.windowFor(account.Name)
	now := l.now()
	if now.Sub(w.start) >= Window {
		w.count = 0
		w.start = now
	}
	if w.count < limit {
		w.count++
		l.mu.Unlock()

		return nil
	}
	wait := Window - now.Sub(w.start)
	l.mu.Unlock()

	logger.Info(ctx, "rate limit reached, waiting for next window",
		zap.String("account", account.Name),
		zap.Int("limit", limit),
		zap.Duration("wait", wait))
	l.metrics.RateLimitWaited(account.Name, wait)

	if err := l.sleep(ctx, wait); err != nil {
		return fmt.Errorf("could not wait for rate limit window: %w", err)
	}

	l.mu.Lock()
	w.count = 0
	w.start = l.now()
	l.mu.Unlock()

	return nil
}

// HasCapacity reports, without blocking or counting, whether a request for
// account would be admitted immediately.
func (l *Limiter) HasCapacity(account domain.Account) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[account.Name]
	if !ok || l.now().Sub(w.start) >= Window {
		return true
	}

	return w.count < account.RateLimit()
}

// CheckDomainLimits compares the number of domains observed under account
// with the configured per-category floors and returns the categories that
// may be restricted, sorted by name. It warns but never blocks.
func (l *Limiter) CheckDomainLimits(ctx context.Context, account domain.Account, domainCount int) []string {
	var restricted []string
	for category, floor := range account.DomainLimits {
		if domainCount < floor {
			restricted = append(restricted, category)
		}
	}
	sort.Strings(restricted)

	for _, category := range restricted {
		logger.Warn(ctx, "account below domain count floor, API access may be restricted",
			zap.String("account", account.Name),
			zap.String("category", category),
			zap.Int("domains", domainCount),
			zap.Int("required", account.DomainLimits[category]))
	}

	return restricted
}

// EstimateDuration returns how long fetching count domains takes at
// requestsPerMinute, rounded up to whole minutes.
func EstimateDuration(count, requestsPerMinute int) time.Duration {
	if count <= 0 {
		return 0
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = domain.DefaultRequestsPerMinute
	}
	minutes := math.Ceil(float64(count) / float64(requestsPerMinute))

	return time.Duration(minutes) * time.Minute
}
