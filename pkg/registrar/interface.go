// Package registrar defines the authenticated registrar API used to list the
// domains of an account and fetch their expiry details.
package registrar

import (
	"context"
	"domainwatch/pkg/domain"
)

// DomainRef is one entry of an account's domain listing.
type DomainRef struct {
	Name string
}

// Client is the abstraction over registrar APIs. Every call is expected to be
// gated by the account's rate limiter.
//
//go:generate mockgen -package mockregistrar -source=interface.go -destination=mock/mockregistrar.go *
type Client interface {
	// ListDomains returns the active and document-pending domains of account.
	// A rejected listing returns serrors.ErrForbidden or
	// serrors.ErrUnauthorized.
	ListDomains(ctx context.Context, account domain.Account) ([]DomainRef, error)
	// FetchDetail returns the expiry record of one domain. A domain the account
	// cannot see yields serrors.ErrNotFound or serrors.ErrForbidden, which
	// callers treat as "skip", not as a failure of the run.
	FetchDetail(ctx context.Context, account domain.Account, name string) (*domain.Record, error)
}
