package ingest

import (
	"regexp"
	"strings"
)

// recordTerminator is the created_at token closing every logical record.
var recordTerminator = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

var newlineCollapser = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// StripHeader discards the first line of a CSV export. The line may end in
// "\r\n", "\r" or "\n".
func StripHeader(text string) string {
	text = strings.TrimPrefix(text, "\ufeff")
	i := strings.IndexAny(text, "\r\n")
	if i < 0 {
		return ""
	}
	if strings.HasPrefix(text[i:], "\r\n") {
		return text[i+2:]
	}
	return text[i+1:]
}

// Segmenter cuts header-less CSV text into logical records, each ending at a
// YYYY-MM-DD token. Newlines are collapsed to spaces first so a multi-line
// address stays in one record.
//
// A record whose created_at is missing or garbled has no terminator, so its
// text runs into the next record's span. Trailing text without a date token
// is dropped.
type Segmenter struct {
	rest    string
	current string
}

// NewSegmenter prepares body, which must not contain the header line.
func NewSegmenter(body string) *Segmenter {
	return &Segmenter{rest: newlineCollapser.Replace(body)}
}

// Scan advances to the next logical record, returning false when none is left.
func (s *Segmenter) Scan() bool {
	loc := recordTerminator.FindStringIndex(s.rest)
	if loc == nil {
		s.rest, s.current = "", ""
		return false
	}
	s.current = s.rest[:loc[1]]
	s.rest = s.rest[loc[1]:]
	return true
}

// Text returns the current logical record without surrounding whitespace.
func (s *Segmenter) Text() string {
	return strings.TrimSpace(s.current)
}

// Segment strips the header from a decoded export and returns all of its
// logical records.
func Segment(text string) []string {
	var records []string
	seg := NewSegmenter(StripHeader(text))
	for seg.Scan() {
		records = append(records, seg.Text())
	}
	return records
}
