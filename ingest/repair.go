package ingest

import "strings"

// mojibakeRepairs undoes UTF-8 text that was decoded once as Latin-1 for the
// accented letters seen in French street names. Anything else is left alone.
var mojibakeRepairs = strings.NewReplacer(
	"Ã©", "é",
	"Ã¨", "è",
	"Ãª", "ê",
	"Ã«", "ë",
	"Ã´", "ô",
	"Ã¢", "â",
	"Ã®", "î",
	"Ã¯", "ï",
	"Ã»", "û",
	"Ã¹", "ù",
	"Ã§", "ç",
	"Ã\u00a0", "à",
	"Ã ", "à",
)

// RepairAddress fixes the enumerated double-encoding artifacts in s.
func RepairAddress(s string) string {
	return mojibakeRepairs.Replace(s)
}
