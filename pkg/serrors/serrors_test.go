package serrors_test

import (
	"domainwatch/pkg/serrors"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type customError struct{ msg string }

func (e customError) Error() string { return e.msg }

func TestDefaultKindsDistinct(t *testing.T) {
	kinds := []serrors.Kind{
		serrors.ErrNotFound,
		serrors.ErrUnauthorized,
		serrors.ErrForbidden,
		serrors.ErrBadRequest,
		serrors.ErrInternal,
		serrors.ErrTimeout,
		serrors.ErrUnavailable,
		serrors.ErrRateLimited,
		serrors.ErrMalformed,
		serrors.ErrConfig,
	}
	seen := map[serrors.Kind]bool{}
	for i, k := range kinds {
		require.NotNil(t, k, "kind at index %d is nil", i)
		require.False(t, seen[k], "kind at index %d is duplicate: %v", i, k)
		seen[k] = true
	}
}

func TestErrorFormatting(t *testing.T) {
	base := errors.New("connection reset")

	e1 := serrors.With(serrors.ErrNotFound, "domain %s not found", "example.com")
	require.Equal(t, "domain example.com not found", e1.Error())

	e2 := serrors.Wrap(serrors.ErrTimeout, base, "whois example.com")
	require.Equal(t, "whois example.com: connection reset", e2.Error())

	e3 := serrors.With(serrors.ErrForbidden, "")
	require.Equal(t, "FORBIDDEN", e3.Error())
}

func TestIsMatchesKindAndWrapped(t *testing.T) {
	base := customError{"root cause"}
	e := serrors.Wrap(serrors.ErrNotFound, base, "reading")

	require.ErrorIs(t, e, serrors.ErrNotFound)
	require.ErrorIs(t, e, base)
	require.NotErrorIs(t, e, serrors.ErrForbidden)
}

func TestAsMatchesKindAndWrapped(t *testing.T) {
	base := &customError{"root cause"}
	e := serrors.Wrap(serrors.ErrMalformed, base, "parsing")

	var k serrors.Kind
	require.ErrorAs(t, e, &k)
	require.Equal(t, serrors.ErrMalformed, k)

	var ce *customError
	require.ErrorAs(t, e, &ce)
	require.Equal(t, base, ce)
}

func TestAccessors(t *testing.T) {
	base := errors.New("boom")
	e := serrors.Wrap(serrors.ErrUnauthorized, base, "bad key")
	require.Equal(t, serrors.ErrUnauthorized, e.Kind())
	require.Equal(t, base, errors.Unwrap(e))
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("could not fetch: %w", serrors.With(serrors.ErrForbidden, "denied"))
	require.Equal(t, serrors.ErrForbidden, serrors.KindOf(wrapped))
	require.Nil(t, serrors.KindOf(errors.New("plain")))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "timeout", err: serrors.With(serrors.ErrTimeout, "dial"), want: true},
		{name: "unavailable wrapped", err: fmt.Errorf("x: %w", serrors.With(serrors.ErrUnavailable, "upstream")), want: true},
		{name: "rate limited", err: serrors.With(serrors.ErrRateLimited, "upstream"), want: true},
		{name: "not found", err: serrors.With(serrors.ErrNotFound, "upstream"), want: false},
		{name: "malformed", err: serrors.With(serrors.ErrMalformed, "upstream"), want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, serrors.IsTransient(tt.err))
		})
	}
}
