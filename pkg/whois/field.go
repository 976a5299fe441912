package whois

import (
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Shape tells how many values a Field holds.
type Shape int

const (
	// ShapeAbsent is the zero Shape; the server did not return the field.
	ShapeAbsent Shape = iota
	// ShapeSingle is a scalar field.
	ShapeSingle
	// ShapeMultiple is a list field. It may still hold zero or one value.
	ShapeMultiple
)

// Field is a WHOIS field that is either absent, a single value or a list.
// The zero value is absent.
type Field[T any] struct {
	shape  Shape
	values []T
}

// Single returns a scalar field.
func Single[T any](v T) Field[T] {
	return Field[T]{shape: ShapeSingle, values: []T{v}}
}

// Multiple returns a list field.
func Multiple[T any](vs ...T) Field[T] {
	return Field[T]{shape: ShapeMultiple, values: slices.Clone(vs)}
}

// Shape returns the shape of f.
func (f Field[T]) Shape() Shape { return f.shape }

// Absent reports whether the field was not returned.
func (f Field[T]) Absent() bool { return f.shape == ShapeAbsent }

// Values returns the values in response order.
func (f Field[T]) Values() []T { return f.values }

// FirstString returns the first value that is not blank, trimmed.
func FirstString(f Field[string]) (string, bool) {
	for _, v := range f.values {
		if v = strings.TrimSpace(v); v != "" {
			return v, true
		}
	}

	return "", false
}

// Date is a WHOIS date. Servers return either free-form text, kept in Raw,
// or an already parsed timestamp in At.
type Date struct {
	Raw string
	At  time.Time
}

// DateText returns a Date holding unparsed text.
func DateText(raw string) Date { return Date{Raw: raw} }

// DateAt returns a Date holding a parsed timestamp.
func DateAt(t time.Time) Date { return Date{At: t} }

// Time returns the timestamp of d. Parsed timestamps pass through, text is
// parsed leniently.
func (d Date) Time() (time.Time, bool) {
	if !d.At.IsZero() {
		return d.At, true
	}
	raw := strings.TrimSpace(d.Raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}

	return t, true
}

// Earliest returns the earliest usable timestamp of f. For a scalar field
// this is just its value.
func Earliest(f Field[Date]) (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, d := range f.values {
		t, ok := d.Time()
		if !ok {
			continue
		}
		if !found || t.Before(earliest) {
			earliest, found = t, true
		}
	}

	return earliest, found
}
