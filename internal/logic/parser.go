package logic

import (
	"strings"
)

// Table is delimited source text split into a header and data rows
type Table struct {
	Header []string
	Rows   [][]string
}

// ParseTable splits raw text into trimmed fields. Lines may end in \n or \r\n,
// fields may be separated by ';' or ','. Blank lines are skipped and the first
// remaining line is the header. Rows are not checked for a consistent column count.
func ParseTable(text string) (*Table, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	var lines [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, splitFields(line))
	}

	if len(lines) == 0 {
		return nil, &ParseError{Reason: "source contains no non-blank lines"}
	}

	return &Table{Header: lines[0], Rows: lines[1:]}, nil
}

func splitFields(line string) []string {
	// strings.FieldsFunc would drop empty fields and shift columns
	var fields []string
	start := 0
	for i := 0; i < len(line); i++ {
		if line[i] == ';' || line[i] == ',' {
			fields = append(fields, strings.TrimSpace(line[start:i]))
			start = i + 1
		}
	}
	return append(fields, strings.TrimSpace(line[start:]))
}
