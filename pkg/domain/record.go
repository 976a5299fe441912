package domain

import "time"

// ManualAccount is the account name given to records that did not come from
// an authenticated registrar account.
const ManualAccount = "Manual"

// Record is the expiry information of a single domain, produced either by the
// registrar client or by the WHOIS resolver.
type Record struct {
	// Name is the domain name and the record's key.
	Name string `json:"domain"`
	// Account is the owning account name, ManualAccount for WHOIS-sourced records.
	Account string `json:"account"`
	// ExpiresAt is the expiry timestamp; the zero value means unknown.
	ExpiresAt time.Time `json:"expiresAt"`
	// DaysUntilExpiry is only meaningful when HasExpiry reports true. It is
	// negative for already expired domains.
	DaysUntilExpiry int `json:"daysUntilExpiry"`
	// Registrar is the registrar's name.
	Registrar string `json:"registrar"`
	// Status is the registrar lifecycle status.
	Status Status `json:"status"`
	// StatusDisplay is the human label, possibly prefixed with an urgency marker.
	StatusDisplay string `json:"statusDisplay"`
	// CreatedAt is the registration timestamp; the zero value means unknown.
	CreatedAt time.Time `json:"createdAt,omitzero"`
	// NameServers holds the delegated nameserver hostnames in registry order.
	NameServers []string `json:"nameServers"`
	// Privacy is nil when the source does not expose privacy protection.
	Privacy *bool `json:"privacy,omitempty"`
}

// HasExpiry reports whether the expiry date is known.
func (r Record) HasExpiry() bool {
	return !r.ExpiresAt.IsZero()
}

const secondsPerDay = 24 * 60 * 60

// DaysUntil returns the whole days from now until t, rounding down, so a
// domain that expired an hour ago yields -1. It works on Unix seconds rather
// than time.Duration, which saturates about 292 years out.
func DaysUntil(t, now time.Time) int {
	secs := t.Unix() - now.Unix()
	if t.Nanosecond() < now.Nanosecond() {
		secs--
	}
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}

	return int(days)
}
