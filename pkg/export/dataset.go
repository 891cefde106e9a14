package export

import (
	"strings"

	"github.com/spf13/cast"
)

// ColumnKind selects how a cell value is normalised before rendering.
type ColumnKind uint8

const (
	ColumnText ColumnKind = iota
	ColumnDate
	ColumnStatus
)

// Dataset defines tabular export content. Kinds maps a header to its column kind;
// headers without an entry render as text.
type Dataset struct {
	Headers []string
	Kinds   map[string]ColumnKind
	Rows    []map[string]string
}

// Value returns the rendered cell for header in row.
func (d Dataset) Value(row map[string]string, header string) string {
	raw := strings.TrimSpace(row[header])
	switch d.Kinds[header] {
	case ColumnDate:
		return formatDate(raw)
	case ColumnStatus:
		return strings.ToLower(raw)
	default:
		return raw
	}
}

func (d Dataset) kind(header string) ColumnKind {
	return d.Kinds[header]
}

// formatDate renders parsable dates as a calendar day in UTC and keeps anything else verbatim.
func formatDate(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := cast.StringToDate(raw)
	if err != nil {
		return raw
	}
	return t.UTC().Format("2006-01-02")
}
