// Package whois describes the unauthenticated WHOIS lookups used for domains
// that no registrar account manages. Registries disagree on which fields they
// return and whether a field holds one value or several, so every field of a
// Response is a Field that is either absent, single or multiple.
package whois

import (
	"context"
	"errors"
)

var (
	// ErrNoMatch is the cause of a definitive "no match for domain" answer.
	// Querier implementations wrap it with serrors.ErrNotFound.
	ErrNoMatch = errors.New("no match for domain")
	// ErrParse is the cause of a response that could not be parsed.
	// Querier implementations wrap it with serrors.ErrMalformed.
	ErrParse = errors.New("could not parse whois response")
)

// Querier is the abstraction over WHOIS clients.
//
// Query returns an empty, non-nil Response when the server answered with
// nothing usable. Errors carry a serrors kind: ErrTimeout or ErrUnavailable
// for transport failures, ErrNotFound for ErrNoMatch and ErrMalformed for
// ErrParse. Any other error is unclassified.
//
//go:generate mockgen -package mockwhois -source=interface.go -destination=mock/mockwhois.go *
type Querier interface {
	Query(ctx context.Context, name string) (*Response, error)
}

// Response holds the fields of a WHOIS answer the resolver looks at.
type Response struct {
	DomainName         Field[string]
	ExpirationDate     Field[Date]
	RegistryExpiryDate Field[Date]
	Registrar          Field[string]
	Registrant         Field[string]
	CreationDate       Field[Date]
	NameServers        Field[string]
}

// Empty reports whether r is nil or carries no field at all.
func (r *Response) Empty() bool {
	if r == nil {
		return true
	}

	return r.DomainName.Absent() &&
		r.ExpirationDate.Absent() &&
		r.RegistryExpiryDate.Absent() &&
		r.Registrar.Absent() &&
		r.Registrant.Absent() &&
		r.CreationDate.Absent() &&
		r.NameServers.Absent()
}
