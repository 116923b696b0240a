package source

import (
	"fmt"
	"regexp"
	"strings"
)

// Dialect selects placeholder and cast syntax for a SQL backend
type Dialect int

const (
	DialectClickHouse Dialect = iota
	DialectPostgres
	DialectMySQL
)

// HistoryQuery describes where medal history lives in a table. Total may be
// empty, in which case it is computed from the three medal columns.
type HistoryQuery struct {
	Table      string
	Period     string
	Entity     string
	Gold       string
	Silver     string
	Bronze     string
	Total      string
	FromPeriod int // Inclusive, 0 for no bound
	ToPeriod   int // Inclusive, 0 for no bound
}

// DefaultHistoryQuery uses the column names of the canonical CSV export
func DefaultHistoryQuery(table string) HistoryQuery {
	return HistoryQuery{
		Table:  table,
		Period: "year",
		Entity: "country",
		Gold:   "gold",
		Silver: "silver",
		Bronze: "bronze",
		Total:  "total",
	}
}

// identifiers may be schema-qualified but never quoted or expressions
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}(\.[A-Za-z_][A-Za-z0-9_]{0,62})?$`)

// Validate checks every identifier against the safe pattern
func (q HistoryQuery) Validate() error {
	for _, id := range []struct{ role, name string }{
		{"table", q.Table},
		{"period column", q.Period},
		{"entity column", q.Entity},
		{"gold column", q.Gold},
		{"silver column", q.Silver},
		{"bronze column", q.Bronze},
	} {
		if !identifierPattern.MatchString(id.name) {
			return fmt.Errorf("invalid %s: %q", id.role, id.name)
		}
	}
	if q.Total != "" && !identifierPattern.MatchString(q.Total) {
		return fmt.Errorf("invalid total column: %q", q.Total)
	}
	if q.FromPeriod != 0 && q.ToPeriod != 0 && q.FromPeriod > q.ToPeriod {
		return fmt.Errorf("period range %d..%d is empty", q.FromPeriod, q.ToPeriod)
	}
	return nil
}

func (d Dialect) toInt(expr string) string {
	switch d {
	case DialectClickHouse:
		return fmt.Sprintf("toInt64(%s)", expr)
	case DialectMySQL:
		return fmt.Sprintf("CAST(%s AS SIGNED)", expr)
	default:
		return fmt.Sprintf("CAST(%s AS BIGINT)", expr)
	}
}

func (d Dialect) toText(expr string) string {
	switch d {
	case DialectClickHouse:
		return fmt.Sprintf("toString(%s)", expr)
	case DialectMySQL:
		return fmt.Sprintf("CAST(%s AS CHAR)", expr)
	default:
		return fmt.Sprintf("CAST(%s AS TEXT)", expr)
	}
}

func (d Dialect) placeholder(n int) string {
	if d == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// BuildHistoryQuery constructs a safe SELECT returning
// period, entity, gold, silver, bronze, total as int64/string columns.
func BuildHistoryQuery(d Dialect, q HistoryQuery) (string, []interface{}, error) {
	// 1. Validate identifiers
	if err := q.Validate(); err != nil {
		return "", nil, err
	}

	count := func(col string) string {
		return d.toInt(fmt.Sprintf("COALESCE(%s, 0)", col))
	}

	// 2. Select clause
	// A missing or NULL total is derived from the three medal counts
	total := fmt.Sprintf("%s + %s + %s", count(q.Gold), count(q.Silver), count(q.Bronze))
	if q.Total != "" {
		total = fmt.Sprintf("COALESCE(%s, %s)", d.toInt(q.Total), total)
	}
	columns := []string{
		count(q.Period),
		fmt.Sprintf("COALESCE(%s, '')", d.toText(q.Entity)),
		count(q.Gold),
		count(q.Silver),
		count(q.Bronze),
		total,
	}

	// 3. Build query
	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s WHERE 1=1", strings.Join(columns, ", "), q.Table)
	var args []interface{}

	// 4. Filters
	if q.FromPeriod != 0 {
		args = append(args, q.FromPeriod)
		fmt.Fprintf(&sb, " AND %s >= %s", q.Period, d.placeholder(len(args)))
	}
	if q.ToPeriod != 0 {
		args = append(args, q.ToPeriod)
		fmt.Fprintf(&sb, " AND %s <= %s", q.Period, d.placeholder(len(args)))
	}

	// 5. Order by
	fmt.Fprintf(&sb, " ORDER BY %s, %s", q.Period, q.Entity)

	return sb.String(), args, nil
}
