package csvio

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	input := `location,text,submitter_id
Ward 12,Sewage overflowing near the market,citizen-1
,Streetlight broken on 5th Avenue,
Ward 3,  Garbage not collected for a week  ,citizen-2
`
	rows, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Text != "Sewage overflowing near the market" || rows[0].Location != "Ward 12" || rows[0].SubmitterID != "citizen-1" {
		t.Errorf("rows[0] = %+v", rows[0])
	}
	if rows[1].Location != "" || rows[1].SubmitterID != "" {
		t.Errorf("rows[1] = %+v", rows[1])
	}
	if rows[2].Text != "Garbage not collected for a week" {
		t.Errorf("text not trimmed: %q", rows[2].Text)
	}
}

func TestParseSkipsEmptyText(t *testing.T) {
	input := "text\nfirst complaint\n\n   \nsecond complaint\n"
	rows, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("len(rows) = %d, want 2", len(rows))
	}
}

func TestParseMissingTextColumn(t *testing.T) {
	if _, err := Parse(strings.NewReader("location,submitter_id\nWard 1,c1\n")); err == nil {
		t.Error("expected error for missing text column")
	}
}

func TestParseEmptyFile(t *testing.T) {
	if _, err := Parse(strings.NewReader("")); err == nil {
		t.Error("expected error for empty file")
	}
}
