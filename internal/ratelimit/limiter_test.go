package ratelimit_test

import (
	"context"
	"domainwatch/internal/ratelimit"
	"domainwatch/pkg/domain"
	"domainwatch/pkg/logger"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment, false)
	m.Run()
}

// fakeClock only moves when told to, or when the limiter sleeps on it.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	// sleptAfter records how many admissions had completed when each sleep started.
	sleptAfter []int
	admitted   int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.sleeps = append(c.sleeps, d)
	c.sleptAfter = append(c.sleptAfter, c.admitted)
	c.now = c.now.Add(d)

	return nil
}

func newLimiter(c *fakeClock) *ratelimit.Limiter {
	return ratelimit.New(ratelimit.WithClock(c.Now), ratelimit.WithSleeper(c.Sleep))
}

func TestAdmit_WaitsFullWindowAfterBudgetIsSpent(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	account := domain.Account{Name: "SK", RequestsPerMinute: 2}

	// five detail fetches at 2/min
	for range 5 {
		require.NoError(t, l.Admit(context.Background(), account))
		clock.admitted++
	}

	// exactly one wait, after the 2nd request, lasting the whole window
	require.Equal(t, []time.Duration{60 * time.Second}, clock.sleeps)
	require.Equal(t, []int{2}, clock.sleptAfter)
}

func TestAdmit_WaitingRequestIsNotCounted(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	account := domain.Account{Name: "SK", RequestsPerMinute: 1}

	require.NoError(t, l.Admit(context.Background(), account))
	require.NoError(t, l.Admit(context.Background(), account))
	require.Len(t, clock.sleeps, 1)
	require.True(t, l.HasCapacity(account), "the window restarts empty after a wait")

	require.NoError(t, l.Admit(context.Background(), account))
	require.Len(t, clock.sleeps, 1)
	require.False(t, l.HasCapacity(account))

	require.NoError(t, l.Admit(context.Background(), account))
	require.Len(t, clock.sleeps, 2)
}

func TestAdmit_WaitsOnlyForTheRemainderOfTheWindow(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	account := domain.Account{Name: "SK", RequestsPerMinute: 1}

	require.NoError(t, l.Admit(context.Background(), account))
	clock.now = clock.now.Add(45 * time.Second)
	require.NoError(t, l.Admit(context.Background(), account))

	require.Equal(t, []time.Duration{15 * time.Second}, clock.sleeps)
}

func TestAdmit_WindowResetsAfterSixtySeconds(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	account := domain.Account{Name: "SK", RequestsPerMinute: 2}

	require.NoError(t, l.Admit(context.Background(), account))
	require.NoError(t, l.Admit(context.Background(), account))
	clock.now = clock.now.Add(60 * time.Second)
	require.NoError(t, l.Admit(context.Background(), account))
	require.NoError(t, l.Admit(context.Background(), account))

	require.Empty(t, clock.sleeps)
}

func TestAdmit_DefaultBudget(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	account := domain.Account{Name: "Default"}

	for range domain.DefaultRequestsPerMinute {
		require.NoError(t, l.Admit(context.Background(), account))
	}
	require.Empty(t, clock.sleeps)

	require.NoError(t, l.Admit(context.Background(), account))
	require.Len(t, clock.sleeps, 1)
}

func TestAdmit_AccountsAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	a := domain.Account{Name: "A", RequestsPerMinute: 1}
	b := domain.Account{Name: "B", RequestsPerMinute: 1}

	require.NoError(t, l.Admit(context.Background(), a))
	require.NoError(t, l.Admit(context.Background(), b))
	require.Empty(t, clock.sleeps)
}

func TestAdmit_WaitsOncePerFullWindow(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 7, 60} {
		clock := newFakeClock()
		l := newLimiter(clock)
		account := domain.Account{Name: "SK", RequestsPerMinute: limit}

		// the first window takes limit requests, every later one limit+1
		total := limit + 3*(limit+1)
		for range total {
			require.NoError(t, l.Admit(context.Background(), account))
		}

		require.Len(t, clock.sleeps, 3, "limit %d", limit)
		for _, d := range clock.sleeps {
			require.Equal(t, ratelimit.Window, d, "limit %d", limit)
		}
	}
}

func TestAdmit_ContextCanceledWhileWaiting(t *testing.T) {
	l := ratelimit.New()
	account := domain.Account{Name: "SK", RequestsPerMinute: 1}

	require.NoError(t, l.Admit(context.Background(), account))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.Admit(ctx, account)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestHasCapacity(t *testing.T) {
	clock := newFakeClock()
	l := newLimiter(clock)
	account := domain.Account{Name: "SK", RequestsPerMinute: 1}

	require.True(t, l.HasCapacity(account))
	require.NoError(t, l.Admit(context.Background(), account))
	require.False(t, l.HasCapacity(account))
	require.False(t, l.HasCapacity(account), "checking capacity must not consume it")

	clock.now = clock.now.Add(time.Minute)
	require.True(t, l.HasCapacity(account))
}

func TestCheckDomainLimits(t *testing.T) {
	l := ratelimit.New()
	account := domain.Account{
		Name:         "SK",
		DomainLimits: map[string]int{"availability": 50, "management": 10, "appraisal": 5},
	}

	require.Equal(t, []string{"availability", "management"}, l.CheckDomainLimits(context.Background(), account, 7))
	require.Empty(t, l.CheckDomainLimits(context.Background(), account, 50))
	require.True(t, l.HasCapacity(account), "domain limit checks are advisory")
}

func TestEstimateDuration(t *testing.T) {
	require.Equal(t, time.Duration(0), ratelimit.EstimateDuration(0, 60))
	require.Equal(t, time.Minute, ratelimit.EstimateDuration(60, 60))
	require.Equal(t, 2*time.Minute, ratelimit.EstimateDuration(61, 60))
	require.Equal(t, 3*time.Minute, ratelimit.EstimateDuration(5, 2))
	require.Equal(t, time.Minute, ratelimit.EstimateDuration(10, 0))
}
