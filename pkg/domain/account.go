package domain

// DefaultRequestsPerMinute is the registrar request budget used when an
// account does not configure one.
const DefaultRequestsPerMinute = 60

// Account is one registrar credential set together with the options that
// control how it is polled. It is built once from configuration and never
// persisted.
type Account struct {
	// Name is the display name used in logs and in the report's Account column.
	Name string
	// APIKey and APISecret form the "sso-key" authorization header.
	APIKey    string
	APISecret string
	// APIURL is the registrar's domains endpoint, e.g. https://api.godaddy.com/v1/domains.
	APIURL string
	// PageSize is the listing page size.
	PageSize int
	// RequestsPerMinute is the request budget of the fixed 60 second window.
	RequestsPerMinute int
	// DomainLimits maps an API category to the minimum number of domains an
	// account needs for that category to be available.
	DomainLimits map[string]int
}

// RateLimit returns the configured budget, falling back to DefaultRequestsPerMinute.
func (a Account) RateLimit() int {
	if a.RequestsPerMinute <= 0 {
		return DefaultRequestsPerMinute
	}

	return a.RequestsPerMinute
}
