package system

import (
	"testing"
	"time"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}
}

func TestFixedClockConvertsToUTC(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2024, 3, 1, 14, 0, 0, 0, loc)
	clk := Fixed(at)

	got := clk.Now()
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if !got.Equal(at) || got.Hour() != 12 {
		t.Fatalf("expected %v in UTC, got %v", at, got)
	}
	if !clk.Now().Equal(got) {
		t.Fatal("expected fixed clock to be stable")
	}
}

func TestZeroClockFallsBack(t *testing.T) {
	t.Parallel()

	var clk *Clock
	if clk.Now().IsZero() {
		t.Fatal("expected nil clock to report wall time")
	}
}
