package ingest

import (
	"strings"
	"testing"
)

const header = "id,address,city,zip,created_at\n"

func TestSegmentCountsDateTerminatedRecords(t *testing.T) {
	text := header +
		"1,123 Main St,Paris,75001,2024-01-01\n" +
		"2,\"12 Rue de la Paix,\n5eme\",Paris,75002,2024-02-02\n" +
		"3,4 Quai\r\nde Conti,Paris,75006,2024-03-03\r\n"

	got := Segment(text)
	if len(got) != 3 {
		t.Fatalf("Segment returned %d records; want 3: %q", len(got), got)
	}
	for i, rec := range got {
		if strings.ContainsAny(rec, "\r\n") {
			t.Errorf("record %d contains a newline: %q", i, rec)
		}
	}
	if got[1] != `2,"12 Rue de la Paix, 5eme",Paris,75002,2024-02-02` {
		t.Errorf("record 1 = %q", got[1])
	}
	if got[2] != "3,4 Quai de Conti,Paris,75006,2024-03-03" {
		t.Errorf("record 2 = %q", got[2])
	}
}

func TestSegmentDiscardsHeader(t *testing.T) {
	got := Segment("created_at 2020-01-01\n1,a,Paris,75001,2024-01-01\n")
	if len(got) != 1 || !strings.HasPrefix(got[0], "1,") {
		t.Errorf("Segment = %q; want the single data record", got)
	}
}

func TestSegmentCROnlyLineEndings(t *testing.T) {
	text := "id,address,city,zip,created_at\r" +
		"1,a,Paris,75001,2024-01-01\r" +
		"2,b,Lyon,69001,2024-01-02\r"

	got := Segment(text)
	want := []string{"1,a,Paris,75001,2024-01-01", "2,b,Lyon,69001,2024-01-02"}
	if len(got) != len(want) {
		t.Fatalf("Segment returned %d records; want %d: %q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q; want %q", i, got[i], want[i])
		}
	}
}

func TestStripHeaderLineEndings(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"h\nbody", "body"},
		{"h\r\nbody", "body"},
		{"h\rbody", "body"},
		{"h\r\n\nbody", "\nbody"},
		{"\ufeffh\rbody", "body"},
		{"header only", ""},
	}
	for _, tt := range tests {
		if got := StripHeader(tt.text); got != tt.want {
			t.Errorf("StripHeader(%q) = %q; want %q", tt.text, got, tt.want)
		}
	}
}

func TestSegmentHeaderOnly(t *testing.T) {
	if got := Segment("id,address,city,zip,created_at"); len(got) != 0 {
		t.Errorf("Segment of header-only text = %q; want none", got)
	}
}

func TestSegmentGarbledDateMergesIntoNextRecord(t *testing.T) {
	text := header +
		"1,a,Paris,75001,2024-01-01\n" +
		"2,b,Lyon,69001,2024/02/31\n" +
		"3,c,Nice,06000,2024-03-03\n"

	got := Segment(text)
	if len(got) != 2 {
		t.Fatalf("Segment returned %d records; want 2: %q", len(got), got)
	}
	if !strings.HasPrefix(got[1], "2,b,Lyon") || !strings.HasSuffix(got[1], "3,c,Nice,06000,2024-03-03") {
		t.Errorf("merged record = %q", got[1])
	}
}

func TestSegmentDropsUnterminatedTail(t *testing.T) {
	got := Segment(header + "1,a,Paris,75001,2024-01-01\n2,b,Lyon,69001,")
	if len(got) != 1 {
		t.Errorf("Segment = %q; want 1 record", got)
	}
}

func TestSegmenterScanIsLazy(t *testing.T) {
	seg := NewSegmenter("1,a,x,1,2024-01-01 2,b,y,2,2024-01-02")

	var got []string
	for seg.Scan() {
		got = append(got, seg.Text())
	}
	if len(got) != 2 {
		t.Fatalf("scanned %d records; want 2", len(got))
	}
	if seg.Scan() {
		t.Error("Scan after exhaustion should return false")
	}
	if seg.Text() != "" {
		t.Errorf("Text after exhaustion = %q; want empty", seg.Text())
	}
}
