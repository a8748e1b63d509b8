package tables

import "strings"

// Line is one non-blank row of a delimited resource.
type Line struct {
	Number int // 1-based line number in the resource
	Fields []string
}

// Parse splits text into rows on '\n' and each row on ','. There is no
// quoting or escaping. A trailing '\r' is stripped, blank lines are
// dropped and, when skipHeader is set, the first line is ignored.
func Parse(text string, skipHeader bool) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for i, row := range raw {
		if skipHeader && i == 0 {
			continue
		}
		row = strings.TrimSuffix(row, "\r")
		if strings.TrimSpace(row) == "" {
			continue
		}
		lines = append(lines, Line{Number: i + 1, Fields: strings.Split(row, ",")})
	}
	return lines
}
