// Package likexian implements whois.Querier on top of the likexian WHOIS
// client and parser.
package likexian

import (
	"context"
	"domainwatch/pkg/serrors"
	"domainwatch/pkg/whois"
	"errors"
	"net"
	"os"
	"regexp"
	"strings"
	"time"

	likexianwhois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
)

// DefaultTimeout is used when the query context carries no deadline.
const DefaultTimeout = 10 * time.Second

// registryExpiryPattern matches the "Registry Expiry Date" lines of thin
// registries, which the parser folds into the registrar's expiration date.
var registryExpiryPattern = regexp.MustCompile(`(?im)^\s*registry expiry date:\s*(.+?)\s*$`)

// LookupFunc fetches the raw WHOIS text of name.
type LookupFunc func(name string, timeout time.Duration) (string, error)

// Querier queries WHOIS servers with the likexian client.
type Querier struct {
	lookup LookupFunc
}

// Ensure Querier conforms to the whois.Querier interface at compile time.
var _ whois.Querier = (*Querier)(nil)

// Option configures a Querier.
type Option func(*Querier)

// WithLookup replaces the network lookup.
func WithLookup(fn LookupFunc) Option {
	return func(q *Querier) { q.lookup = fn }
}

// New creates a Querier.
func New(opts ...Option) *Querier {
	q := &Querier{lookup: lookup}
	for _, opt := range opts {
		opt(q)
	}

	return q
}

// lookup uses a fresh client per query so the timeout never leaks into the
// next one.
func lookup(name string, timeout time.Duration) (string, error) {
	return likexianwhois.NewClient().SetTimeout(timeout).Whois(name) //nolint: wrapcheck
}

type result struct {
	raw string
	err error
}

// Query looks name up. The connection timeout is the time left until the
// context deadline, or DefaultTimeout.
func (q *Querier) Query(ctx context.Context, name string) (*whois.Response, error) {
	timeout := DefaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return nil, serrors.Wrap(serrors.ErrTimeout, context.DeadlineExceeded, "whois query for %s", name)
	}

	done := make(chan result, 1)
	go func() {
		raw, err := q.lookup(name, timeout)
		done <- result{raw: raw, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, serrors.Wrap(serrors.ErrTimeout, ctx.Err(), "whois query for %s", name)
	case res = <-done:
	}

	if res.err != nil {
		return nil, classify(name, res.err)
	}
	if strings.TrimSpace(res.raw) == "" {
		return &whois.Response{}, nil
	}

	info, err := whoisparser.Parse(res.raw)
	switch {
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return nil, serrors.Wrap(serrors.ErrNotFound, whois.ErrNoMatch, "whois query for %s", name)
	case errors.Is(err, whoisparser.ErrDomainLimitExceed):
		return nil, serrors.Wrap(serrors.ErrRateLimited, err, "whois query for %s", name)
	case err != nil:
		return nil, serrors.Wrap(serrors.ErrMalformed, errors.Join(whois.ErrParse, err), "whois query for %s", name)
	}

	return FromParsed(info, res.raw), nil
}

// classify maps a transport error to a semantic kind.
func classify(name string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return serrors.Wrap(serrors.ErrTimeout, err, "whois query for %s", name)
	case errors.As(err, &netErr) && netErr.Timeout():
		return serrors.Wrap(serrors.ErrTimeout, err, "whois query for %s", name)
	case errors.As(err, &netErr):
		return serrors.Wrap(serrors.ErrUnavailable, err, "whois query for %s", name)
	default:
		return err
	}
}

// FromParsed converts parser output into a Response. raw is scanned for the
// registry expiry date, which the parser does not keep apart.
func FromParsed(info whoisparser.WhoisInfo, raw string) *whois.Response {
	r := &whois.Response{}

	if d := info.Domain; d != nil {
		if d.Domain != "" {
			r.DomainName = whois.Single(d.Domain)
		}
		if d.ExpirationDate != "" {
			r.ExpirationDate = whois.Single(whois.DateText(d.ExpirationDate))
		}
		if d.CreatedDate != "" {
			r.CreationDate = whois.Single(whois.DateText(d.CreatedDate))
		}
		if len(d.NameServers) > 0 {
			r.NameServers = whois.Multiple(d.NameServers...)
		}
	}

	if name := contactName(info.Registrar); name != "" {
		r.Registrar = whois.Single(name)
	}
	if name := contactName(info.Registrant); name != "" {
		r.Registrant = whois.Single(name)
	}

	var registryExpiry []whois.Date
	for _, m := range registryExpiryPattern.FindAllStringSubmatch(raw, -1) {
		registryExpiry = append(registryExpiry, whois.DateText(m[1]))
	}
	switch len(registryExpiry) {
	case 0:
	case 1:
		r.RegistryExpiryDate = whois.Single(registryExpiry[0])
	default:
		r.RegistryExpiryDate = whois.Multiple(registryExpiry...)
	}

	return r
}

func contactName(c *whoisparser.Contact) string {
	if c == nil {
		return ""
	}
	if c.Name != "" {
		return c.Name
	}

	return c.Organization
}
