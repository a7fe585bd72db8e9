package week

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNumberMatchesISOWeek(t *testing.T) {
	d := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2030, time.December, 31, 0, 0, 0, 0, time.UTC)
	for !d.After(end) {
		wantYear, wantWeek := d.ISOWeek()
		if got := Number(d); got != wantWeek {
			t.Fatalf("Number(%s) = %d, want %d", d.Format(DateLayout), got, wantWeek)
		}
		if got := Year(d); got != wantYear {
			t.Fatalf("Year(%s) = %d, want %d", d.Format(DateLayout), got, wantYear)
		}
		d = d.AddDate(0, 0, 1)
	}
}

func TestWeeksInYearRange(t *testing.T) {
	long := map[int]bool{2015: true, 2020: true, 2026: true}
	for year := 2000; year <= 2040; year++ {
		n := WeeksInYear(year)
		if n != 52 && n != 53 {
			t.Fatalf("WeeksInYear(%d) = %d", year, n)
		}
		if long[year] && n != 53 {
			t.Fatalf("WeeksInYear(%d) = %d, want 53", year, n)
		}
	}
}

func TestStartDateIsMondayAndFixedPoint(t *testing.T) {
	for year := 2019; year <= 2027; year++ {
		for wk := 1; wk <= WeeksInYear(year); wk++ {
			id := idOf(year, wk)
			start, err := StartDate(id)
			if err != nil {
				t.Fatalf("StartDate(%s): %v", id, err)
			}
			if start.Weekday() != time.Monday {
				t.Fatalf("StartDate(%s) = %s, not a Monday", id, start.Weekday())
			}
			end, err := EndDate(id)
			if err != nil {
				t.Fatalf("EndDate(%s): %v", id, err)
			}
			if !end.Equal(start.AddDate(0, 0, 6)) {
				t.Fatalf("EndDate(%s) = %s, want start+6d", id, end.Format(DateLayout))
			}
			if got := ID(start); got != id {
				t.Fatalf("ID(StartDate(%s)) = %s", id, got)
			}
		}
	}
}

func TestAdjacencyRoundTrip(t *testing.T) {
	for year := 2019; year <= 2027; year++ {
		for wk := 1; wk <= WeeksInYear(year); wk++ {
			id := idOf(year, wk)
			next, err := Next(id)
			if err != nil {
				t.Fatalf("Next(%s): %v", id, err)
			}
			back, err := Previous(next)
			if err != nil {
				t.Fatalf("Previous(%s): %v", next, err)
			}
			if back != id {
				t.Fatalf("Previous(Next(%s)) = %s", id, back)
			}
		}
	}
}

func TestYearBoundaries(t *testing.T) {
	// 2025 has 52 ISO weeks; 2020 has 53.
	prev, err := Previous("2026-01")
	if err != nil {
		t.Fatal(err)
	}
	if prev != "2025-52" {
		t.Fatalf("Previous(2026-01) = %s, want 2025-52", prev)
	}
	next, err := Next("2020-53")
	if err != nil {
		t.Fatal(err)
	}
	if next != "2021-01" {
		t.Fatalf("Next(2020-53) = %s, want 2021-01", next)
	}
	prev, err = Previous("2021-01")
	if err != nil {
		t.Fatal(err)
	}
	if prev != "2020-53" {
		t.Fatalf("Previous(2021-01) = %s, want 2020-53", prev)
	}
}

func TestISOWeekYearEdge(t *testing.T) {
	// Dec 29 2025 is a Monday in ISO week 1 of 2026.
	if got := ID(time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC)); got != "2026-01" {
		t.Fatalf("ID(2025-12-29) = %s, want 2026-01", got)
	}
	// Jan 1 2021 (Friday) belongs to ISO week 53 of 2020.
	if got := ID(time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)); got != "2020-53" {
		t.Fatalf("ID(2021-01-01) = %s, want 2020-53", got)
	}
}

func TestInvalidIDs(t *testing.T) {
	for _, id := range []string{"", "2026", "2026-1", "2026-00", "2026-54", "26-01", "2026-aa", "2026-01-05"} {
		if Valid(id) {
			t.Fatalf("Valid(%q) = true", id)
		}
		if _, err := StartDate(id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("StartDate(%q) err = %v, want ErrInvalidID", id, err)
		}
	}
	// Week 53 is only valid in long years.
	if Valid("2025-53") {
		t.Fatal("Valid(2025-53) = true")
	}
	if !Valid("2020-53") {
		t.Fatal("Valid(2020-53) = false")
	}
}

func idOf(year, wk int) string {
	return fmt.Sprintf("%04d-%02d", year, wk)
}
