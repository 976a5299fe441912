package alert

import (
	"context"
	"domainwatch/pkg/domain"
)

// Notifier delivers an alert about the selected records.
//
//go:generate mockgen -package mockalert -source=interface.go -destination=mock/mockalert.go *
type Notifier interface {
	// Notify sends one alert listing records, already sorted by urgency.
	Notify(ctx context.Context, recipients []string, records []domain.Record) error
}
