package domain

// Status is the registrar lifecycle status of a domain. Values other than the
// declared constants are passed through untouched.
type Status string

const (
	// StatusActive indicates a registered, active domain.
	StatusActive Status = "ACTIVE"
	// StatusAwaitingDocumentUpload indicates the registry is waiting for documents.
	StatusAwaitingDocumentUpload Status = "AWAITING_DOCUMENT_UPLOAD"
)

// Urgency markers prefixed to the status display.
const (
	CriticalMarker = "⚠️ "
	WarningMarker  = "⚡ "
)

// Urgency windows, in days.
const (
	CriticalDays = 30
	WarningDays  = 90
)

// Label returns the human readable label with its icon.
func (s Status) Label() string {
	switch s {
	case StatusActive:
		return "✅ Active"
	case StatusAwaitingDocumentUpload:
		return "📄 Document Upload Pending"
	default:
		return "❓ " + string(s)
	}
}

// UrgencyMarker returns the prefix for the given days until expiry, or "".
func UrgencyMarker(days int) string {
	switch {
	case days <= CriticalDays:
		return CriticalMarker
	case days <= WarningDays:
		return WarningMarker
	default:
		return ""
	}
}

// StatusDisplay builds the label shown for a registrar-sourced domain.
func StatusDisplay(s Status, days int) string {
	return UrgencyMarker(days) + s.Label()
}
