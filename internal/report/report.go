// Package report prints the check results for the operator, either as a
// colored console table with a summary or as JSON.
package report

import (
	"cmp"
	"domainwatch/pkg/domain"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Format selects the output representation.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q, expected table or json", s)
	}
}

const (
	// Title is printed above the table.
	Title = "Domain Expiration Information"
	// EmptyMessage is printed instead of a table when there is nothing to show.
	EmptyMessage = "No domain information found or errors occurred during check."

	timeLayout = "2006-01-02 15:04:05"
	notAvail   = "N/A"
	locked     = "🔒"
	unlocked   = "🔓"
)

// Renderer writes reports to an io.Writer.
type Renderer struct {
	w     io.Writer
	now   func() time.Time
	color bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock replaces time.Now for the "Last Updated" caption.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithColor forces colors on or off. By default they follow whether the
// standard output is a terminal.
func WithColor(enabled bool) Option {
	return func(r *Renderer) { r.color = enabled }
}

// New creates a Renderer writing to w.
func New(w io.Writer, opts ...Option) *Renderer {
	r := &Renderer{w: w, now: time.Now, color: !color.NoColor}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Render writes records in the given format. Records are sorted by days
// until expiry, unknown expiries last; the input slice is not modified.
func (r *Renderer) Render(records []domain.Record, format Format) error {
	sorted := Sorted(records)
	if format == FormatJSON {
		return r.renderJSON(sorted)
	}

	return r.renderTable(sorted)
}

// Sorted returns a copy of records ordered by ascending days until expiry,
// with records of unknown expiry at the end.
func Sorted(records []domain.Record) []domain.Record {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b domain.Record) int {
		switch {
		case a.HasExpiry() && !b.HasExpiry():
			return -1
		case !a.HasExpiry() && b.HasExpiry():
			return 1
		default:
			return cmp.Compare(a.DaysUntilExpiry, b.DaysUntilExpiry)
		}
	})

	return sorted
}

func (r *Renderer) renderJSON(records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		GeneratedAt time.Time       `json:"generatedAt"`
		Domains     []domain.Record `json:"domains"`
	}{
		GeneratedAt: r.now(),
		Domains:     records,
	}); err != nil {
		return fmt.Errorf("could not encode report: %w", err)
	}

	return nil
}

func (r *Renderer) paint(s string, attrs ...color.Attribute) string {
	c := color.New(attrs...)
	if r.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	return c.Sprint(s)
}

// daysColor picks the color of the days left cell.
func daysColor(days int) color.Attribute {
	switch {
	case days <= domain.CriticalDays:
		return color.FgRed
	case days <= domain.WarningDays:
		return color.FgYellow
	default:
		return color.FgGreen
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return notAvail
	}

	return t.Format(timeLayout)
}

func formatNameServers(ns []string) string {
	switch {
	case len(ns) == 0:
		return notAvail
	case len(ns) > 2: //nolint: mnd
		return ns[0] + "\n" + ns[1] + "\n..."
	default:
		return strings.Join(ns, "\n")
	}
}

func (r *Renderer) row(rec domain.Record) []string {
	days := notAvail
	if rec.HasExpiry() {
		days = r.paint(fmt.Sprintf("%d days", rec.DaysUntilExpiry), daysColor(rec.DaysUntilExpiry))
	}
	privacy := unlocked
	if rec.Privacy != nil && *rec.Privacy {
		privacy = locked
	}

	return []string{
		rec.StatusDisplay,
		rec.Account,
		rec.Name,
		formatTime(rec.CreatedAt),
		formatTime(rec.ExpiresAt),
		days,
		formatNameServers(rec.NameServers),
		privacy,
	}
}

func (r *Renderer) renderTable(records []domain.Record) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(r.w, r.paint(EmptyMessage, color.FgRed))

		return err //nolint: wrapcheck
	}

	if _, err := fmt.Fprintf(r.w, "\n%s\n", r.paint(Title, color.FgCyan, color.Bold)); err != nil {
		return err //nolint: wrapcheck
	}

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"Status", "Account", "Domain", "Creation Date", "Expiry Date", "Days Left", "Nameservers", "Privacy"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetCaption(true, "Last Updated: "+r.now().Format(timeLayout))
	for _, rec := range records {
		table.Append(r.row(rec))
	}
	table.Render()

	return r.renderSummary(Summarize(records))
}

// Summary counts the records shown in a report.
type Summary struct {
	Processed int
	// Critical expire within domain.CriticalDays.
	Critical int
	// Warning expire after domain.CriticalDays but within domain.WarningDays.
	Warning int
}

// Summarize counts records per urgency window. Records without expiry only
// count as processed.
func Summarize(records []domain.Record) Summary {
	s := Summary{Processed: len(records)}
	for _, rec := range records {
		if !rec.HasExpiry() {
			continue
		}
		switch {
		case rec.DaysUntilExpiry <= domain.CriticalDays:
			s.Critical++
		case rec.DaysUntilExpiry <= domain.WarningDays:
			s.Warning++
		}
	}

	return s
}

func (r *Renderer) renderSummary(s Summary) error {
	lines := []string{
		"",
		fmt.Sprintf("%s Successfully processed: %s domains", r.paint("✓", color.FgGreen), r.paint(fmt.Sprint(s.Processed), color.FgCyan)),
	}
	if s.Critical > 0 {
		lines = append(lines, r.paint(fmt.Sprintf("%s%d domains will expire within %d days",
			domain.CriticalMarker, s.Critical, domain.CriticalDays), color.FgRed))
	}
	if s.Warning > 0 {
		lines = append(lines, r.paint(fmt.Sprintf("%s%d domains will expire within %d days",
			domain.WarningMarker, s.Warning, domain.WarningDays), color.FgYellow))
	}
	lines = append(lines,
		"",
		"Legend:",
		r.paint(domain.CriticalMarker+"Expiring within 30 days", color.FgRed),
		r.paint(domain.WarningMarker+"Expiring within 90 days", color.FgYellow),
		r.paint("✅ Expiring after 90 days", color.FgGreen),
		locked+" Privacy protection enabled",
		unlocked+" Privacy protection disabled",
	)

	_, err := fmt.Fprintln(r.w, strings.Join(lines, "\n"))

	return err //nolint: wrapcheck
}
