package logic

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/openmohaa/medal-forecast/internal/models"
)

// Aggregate groups table rows into per-entity histories ordered by period.
// Rows without an entity or a non-zero period are dropped. When an entity
// reports the same period twice, the later row wins.
func Aggregate(table *Table) (map[string]models.EntityHistory, error) {
	cols, err := ResolveColumns(table.Header)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]models.Record)
	kept := 0
	for _, row := range table.Rows {
		rec, ok := recordFromRow(row, cols)
		if !ok {
			continue
		}
		grouped[rec.Entity] = append(grouped[rec.Entity], rec)
		kept++
	}

	if kept == 0 {
		return nil, &DataError{Reason: fmt.Sprintf("no usable rows among %d data rows", len(table.Rows))}
	}

	histories := make(map[string]models.EntityHistory, len(grouped))
	for entity, records := range grouped {
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Period < records[j].Period
		})
		histories[entity] = models.EntityHistory{
			Entity:  entity,
			Records: dedupePeriods(records),
		}
	}

	return histories, nil
}

// dedupePeriods keeps the last record of each run of equal periods.
// Input must already be stable-sorted by period.
func dedupePeriods(records []models.Record) []models.Record {
	out := records[:0]
	for i, rec := range records {
		if i+1 < len(records) && records[i+1].Period == rec.Period {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func recordFromRow(row []string, cols Columns) (models.Record, bool) {
	entity := field(row, cols.Entity)
	period, _ := parseCount(field(row, cols.Period))
	if entity == "" || period == 0 {
		return models.Record{}, false
	}

	rec := models.Record{
		Entity: entity,
		Period: period,
		Gold:   countOrZero(field(row, cols.Gold)),
		Silver: countOrZero(field(row, cols.Silver)),
		Bronze: countOrZero(field(row, cols.Bronze)),
	}

	if total, ok := parseCount(field(row, cols.Total)); ok {
		rec.Total = max(total, 0)
	} else {
		rec.Total = rec.Gold + rec.Silver + rec.Bronze
	}

	return rec, true
}

// field returns the trimmed cell at idx, or "" for absent columns and short rows
func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseCount reads an integer cell. Decimal forms such as "2016.0" are truncated.
func parseCount(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && math.Abs(f) < math.MaxInt32 {
		return int(f), true
	}
	return 0, false
}

func countOrZero(s string) int {
	n, _ := parseCount(s)
	return max(n, 0)
}

// CountRecords returns the number of records across all histories
func CountRecords(histories map[string]models.EntityHistory) int {
	n := 0
	for _, h := range histories {
		n += len(h.Records)
	}
	return n
}
