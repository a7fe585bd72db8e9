// Package week implements ISO-8601 week arithmetic over "YYYY-WW" ids.
package week

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidID reports a malformed or out-of-range week id.
var ErrInvalidID = errors.New("invalid week id")

const DateLayout = "2006-01-02"

var idPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)

// isoWeekday returns Monday=1..Sunday=7.
func isoWeekday(d time.Time) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// thursdayOf shifts d to the Thursday of its ISO week. The week's year and
// number are those of that Thursday, which anchors week 1 on the week
// containing the year's first Thursday.
func thursdayOf(d time.Time) time.Time {
	return d.AddDate(0, 0, 4-isoWeekday(d))
}

// Number returns the ISO-8601 week number of d.
func Number(d time.Time) int {
	t := thursdayOf(d)
	return (t.YearDay() + 6) / 7
}

// Year returns the ISO week-year of d. Near Jan 1 and Dec 31 this may differ
// from the calendar year.
func Year(d time.Time) int {
	return thursdayOf(d).Year()
}

// WeeksInYear returns 52 or 53 for the given ISO week-year.
func WeeksInYear(year int) int {
	dec31 := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	n := Number(dec31)
	if n == 1 {
		// Dec 31 already belongs to week 1 of the next year.
		return Number(time.Date(year, time.December, 24, 0, 0, 0, 0, time.UTC))
	}
	return n
}

// ID returns the "YYYY-WW" week id for d, using the ISO week-year.
func ID(d time.Time) string {
	return fmt.Sprintf("%04d-%02d", Year(d), Number(d))
}

// Parse splits a week id into year and week, validating both.
func Parse(id string) (year, wk int, err error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	year, _ = strconv.Atoi(m[1])
	wk, _ = strconv.Atoi(m[2])
	if wk < 1 || wk > WeeksInYear(year) {
		return 0, 0, fmt.Errorf("%w: %q has no week %d", ErrInvalidID, id, wk)
	}
	return year, wk, nil
}

// Valid reports whether id is a well-formed, in-range week id.
func Valid(id string) bool {
	_, _, err := Parse(id)
	return err == nil
}

// StartDate returns the Monday of the week. Jan 4 is always in ISO week 1.
func StartDate(id string) (time.Time, error) {
	year, wk, err := Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	firstMonday := jan4.AddDate(0, 0, -(isoWeekday(jan4) - 1))
	return firstMonday.AddDate(0, 0, (wk-1)*7), nil
}

// EndDate returns the Sunday of the week.
func EndDate(id string) (time.Time, error) {
	start, err := StartDate(id)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, 6), nil
}

// Next returns the id of the following week, rolling the year when the week
// count is exhausted.
func Next(id string) (string, error) {
	year, wk, err := Parse(id)
	if err != nil {
		return "", err
	}
	if wk >= WeeksInYear(year) {
		return fmt.Sprintf("%04d-01", year+1), nil
	}
	return fmt.Sprintf("%04d-%02d", year, wk+1), nil
}

// Previous returns the id of the preceding week, rolling into the last week
// of the prior year from week 1.
func Previous(id string) (string, error) {
	year, wk, err := Parse(id)
	if err != nil {
		return "", err
	}
	if wk <= 1 {
		return fmt.Sprintf("%04d-%02d", year-1, WeeksInYear(year-1)), nil
	}
	return fmt.Sprintf("%04d-%02d", year, wk-1), nil
}
