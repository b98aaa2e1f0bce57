package datekey

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var rangeSeparator = regexp.MustCompile(`(?i)\s+to\s+`)

// Expand turns a date expression into an ordered, de-duplicated list of days.
// Accepted: a single date, a comma-separated list, or an inclusive range
// "D1 to D2"; list items may themselves be ranges. maxDays caps the total
// number of days (0 disables the cap).
func Expand(expr string, now time.Time, maxDays int) ([]time.Time, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty date expression", ErrInvalidDate)
	}

	seen := make(map[string]bool)
	var out []time.Time
	add := func(t time.Time) error {
		k := Compact(t)
		if seen[k] {
			return nil
		}
		seen[k] = true
		out = append(out, t)
		if maxDays > 0 && len(out) > maxDays {
			return fmt.Errorf("%w: expression covers more than %d days", ErrInvalidDate, maxDays)
		}
		return nil
	}

	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bounds := rangeSeparator.Split(part, -1)
		switch len(bounds) {
		case 1:
			t, err := Parse(bounds[0], now)
			if err != nil {
				return nil, err
			}
			if err := add(t); err != nil {
				return nil, err
			}
		case 2:
			start, err := Parse(bounds[0], now)
			if err != nil {
				return nil, err
			}
			end, err := Parse(bounds[1], now)
			if err != nil {
				return nil, err
			}
			if end.Before(start) {
				return nil, fmt.Errorf("%w: range %s ends before it starts", ErrInvalidDate, part)
			}
			for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
				if err := add(d); err != nil {
					return nil, err
				}
			}
		default:
			return nil, fmt.Errorf("%w: malformed range %q", ErrInvalidDate, part)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty date expression", ErrInvalidDate)
	}
	return out, nil
}
