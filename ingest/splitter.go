package ingest

import "strings"

// FieldCount is the number of columns in a customer export:
// id, address, city, zip, created_at.
const FieldCount = 5

const (
	fieldID = iota
	fieldAddress
	fieldCity
	fieldZip
	fieldCreatedAt
)

// SplitFields splits one logical record on commas. A comma is a split point
// only while an even number of double quotes has been seen. Fields are
// trimmed and a fully quoted field is unquoted.
func SplitFields(record string) []string {
	fields := make([]string, 0, FieldCount)
	quotes := 0
	start := 0

	for i := 0; i < len(record); i++ {
		switch record[i] {
		case '"':
			quotes++
		case ',':
			if quotes%2 == 0 {
				fields = append(fields, cleanField(record[start:i]))
				start = i + 1
			}
		}
	}
	return append(fields, cleanField(record[start:]))
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(strings.ReplaceAll(s[1:len(s)-1], `""`, `"`))
	}
	return s
}
