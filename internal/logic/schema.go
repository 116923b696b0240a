package logic

import (
	"fmt"
	"strings"
)

// Columns holds resolved header indices; -1 marks an absent optional column
type Columns struct {
	Period int
	Entity int
	Gold   int
	Silver int
	Bronze int
	Total  int
}

// columnAliases maps each logical column to the header names accepted for it
var columnAliases = map[string][]string{
	"period": {"year", "period", "edition", "annee"},
	"entity": {"country", "noc", "entity", "team", "nation", "pays"},
	"gold":   {"gold", "gold_medal", "gold medal", "or"},
	"silver": {"silver", "silver_medal", "silver medal", "argent"},
	"bronze": {"bronze", "bronze_medal", "bronze medal"},
	"total":  {"total", "total_medals", "total medals"},
}

// ResolveColumns validates the header and returns the column layout.
// Period, entity and the three medal columns are required; total is optional.
func ResolveColumns(header []string) (Columns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}

	lookup := func(column string) int {
		for _, alias := range columnAliases[column] {
			if i, ok := index[alias]; ok {
				return i
			}
		}
		return -1
	}

	cols := Columns{
		Period: lookup("period"),
		Entity: lookup("entity"),
		Gold:   lookup("gold"),
		Silver: lookup("silver"),
		Bronze: lookup("bronze"),
		Total:  lookup("total"),
	}

	var missing []string
	for _, req := range []struct {
		name string
		idx  int
	}{
		{"period", cols.Period},
		{"entity", cols.Entity},
		{"gold", cols.Gold},
		{"silver", cols.Silver},
		{"bronze", cols.Bronze},
	} {
		if req.idx < 0 {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return cols, &SchemaError{Reason: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}

	return cols, nil
}
