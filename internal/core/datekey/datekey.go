// Package datekey contains the pure date and composite-key rules.
// This is part of the Functional Core - no I/O, only pure functions.
package datekey

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layout is the user-facing date format.
const Layout = "02/01/2006"

// compactLayout is the date part of a composite key.
const compactLayout = "02012006"

// ErrInvalidDate is returned for any date the parser does not accept.
var ErrInvalidDate = errors.New("invalid date")

var (
	numericDate = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})$`)
	longDate    = regexp.MustCompile(`^(?:([a-z]+)[,\s]+)?(\d{1,2})(?:st|nd|rd|th)?\s+([a-z]+)\.?,?\s+(\d{4})$`)
	digitsOnly  = regexp.MustCompile(`^\d+$`)
)

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var weekdays = map[string]bool{
	"mon": true, "monday": true, "tue": true, "tues": true, "tuesday": true,
	"wed": true, "wednesday": true, "thu": true, "thur": true, "thurs": true, "thursday": true,
	"fri": true, "friday": true, "sat": true, "saturday": true, "sun": true, "sunday": true,
}

// Parse accepts DD/MM/YYYY (also with - or . separators and single-digit parts),
// "today", "yesterday", and the long form "Wednesday, 5 November 2025" with an
// optional weekday. The result is midnight in now's location.
func Parse(input string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	switch s {
	case "":
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	case "today":
		return today, nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}

	if m := numericDate.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		return build(input, year, time.Month(month), day, loc)
	}

	if m := longDate.FindStringSubmatch(s); m != nil {
		if m[1] != "" && !weekdays[m[1]] {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, input)
		}
		month, ok := months[m[3]]
		if !ok {
			return time.Time{}, fmt.Errorf("%w: unknown month in %q", ErrInvalidDate, input)
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[4])
		return build(input, year, month, day, loc)
	}

	return time.Time{}, fmt.Errorf("%w: %q (use DD/MM/YYYY, today or yesterday)", ErrInvalidDate, input)
}

// build rejects values time.Date would silently normalize, such as 31/02.
func build(input string, year int, month time.Month, day int, loc *time.Location) (time.Time, error) {
	if month < time.January || month > time.December || day < 1 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}
	return t, nil
}

// Format renders t as DD/MM/YYYY.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// Compact renders t as DDMMYYYY, the date part of a composite key.
func Compact(t time.Time) string {
	return t.Format(compactLayout)
}

// KeyFor builds the daily composite key {busCode}_{DDMMYYYY}.
func KeyFor(busCode string, t time.Time) string {
	return busCode + "_" + Compact(t)
}

// NormalizeDate left-pads a 7-digit compact date (day without its leading zero)
// to 8 digits. Anything else is returned unchanged.
func NormalizeDate(s string) string {
	if len(s) == 7 && digitsOnly.MatchString(s) {
		return "0" + s
	}
	return s
}

// NormalizeKey applies NormalizeDate to the date segment of a composite key, or
// to a bare compact date. It must be used on both write and read paths.
func NormalizeKey(key string) string {
	i := strings.LastIndex(key, "_")
	if i < 0 {
		return NormalizeDate(key)
	}
	return key[:i+1] + NormalizeDate(key[i+1:])
}

// ParseDisplay parses a stored DD/MM/YYYY value. Unparseable values return the
// zero time, which sorts before every real date.
func ParseDisplay(s string, loc *time.Location) time.Time {
	t, err := time.ParseInLocation(Layout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}
