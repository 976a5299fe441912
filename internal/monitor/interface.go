package monitor

import (
	"context"
	"domainwatch/pkg/domain"
)

// Resolver resolves a domain no registrar account manages.
//
//go:generate mockgen -package mockmonitor -source=interface.go -destination=mock/mockmonitor.go *
type Resolver interface {
	// Resolve returns the record of name, or an error meaning "no record".
	Resolve(ctx context.Context, name string) (*domain.Record, error)
}

// LimitChecker warns about accounts that own too few domains for some API
// categories.
type LimitChecker interface {
	CheckDomainLimits(ctx context.Context, account domain.Account, domainCount int) []string
}
