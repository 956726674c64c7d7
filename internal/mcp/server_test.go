package mcp

import (
	"testing"
	"time"
)

// TestParseDateArg verifies optional date parsing: empty means the zero
// time (today downstream), valid dates parse, garbage errors.
func TestParseDateArg(t *testing.T) {
	got, err := parseDateArg("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("parseDateArg(\"\") = %v, want zero time", got)
	}

	got, err = parseDateArg("2026-03-14")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseDateArg = %v, want %v", got, want)
	}

	if _, err := parseDateArg("14/03/2026"); err == nil {
		t.Error("expected error for invalid date")
	}
}
