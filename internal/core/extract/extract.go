// Package extract turns free chat text into typed field candidates.
// It is pure: deciding whether a candidate conflicts with session state is the
// caller's job.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/models"
)

// ErrInvalidAmount is returned for amounts that are not non-negative numbers.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	expensePattern       = regexp.MustCompile(`(?i)^\s*(?:expense|exp)\s+(.+?)\s*[:=\-]?\s*((?:₹|rs\.?|inr)?\s*[\d,]+(?:\.\d+)?)\s*(cash|online)?\s*$`)
	expenseDeletePattern = regexp.MustCompile(`(?i)^\s*(?:expense|exp)\s+(?:delete|remove|del)\s+(.+?)\s*$`)
	currencyPrefix       = regexp.MustCompile(`(?i)^(?:₹|rs\.?|inr)\s*`)
	nonDigits            = regexp.MustCompile(`\D`)
)

// Candidate is one recognized field value.
type Candidate struct {
	Field  string
	Kind   form.Kind
	Raw    string
	Value  string
	Amount decimal.Decimal
	Date   time.Time
}

// FieldError records a labelled value that could not be parsed.
type FieldError struct {
	Field string
	Raw   string
	Err   error
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Field, e.Raw, e.Err)
}

// Result is the outcome of parsing one message.
type Result struct {
	Candidates []Candidate
	Expenses   []models.ExpenseItem
	Errors     []FieldError
}

// Found reports whether the message contained anything recognizable.
func (r Result) Found() bool {
	return len(r.Candidates) > 0 || len(r.Expenses) > 0 || len(r.Errors) > 0
}

// Candidate returns the candidate for a field, if present.
func (r Result) Candidate(field string) (Candidate, bool) {
	for _, c := range r.Candidates {
		if c.Field == field {
			return c, true
		}
	}
	return Candidate{}, false
}

// Parse extracts candidates from text in the definition's field order.
// Expense lines are taken out before scalar matching so an expense named after
// a field never sets that field.
func Parse(def form.Definition, text string, now time.Time) Result {
	var res Result
	var rest []string
	seenExpense := map[string]bool{}

	for _, line := range strings.Split(text, "\n") {
		if expenseDeletePattern.MatchString(line) {
			continue
		}
		if m := expensePattern.FindStringSubmatch(line); m != nil {
			name := strings.TrimSpace(m[1])
			amt, err := ParseAmount(m[2])
			if err != nil {
				res.Errors = append(res.Errors, FieldError{Field: "expense " + name, Raw: m[2], Err: err})
				continue
			}
			if seenExpense[strings.ToLower(name)] {
				continue
			}
			seenExpense[strings.ToLower(name)] = true
			mode := strings.ToLower(m[3])
			if mode == "" {
				mode = models.ModeCash
			}
			res.Expenses = append(res.Expenses, models.ExpenseItem{Name: name, Amount: amt, Mode: mode})
			continue
		}
		rest = append(rest, line)
	}

	// Text fields claim whole lines; the remaining lines are scanned for
	// amounts, dates and phone numbers.
	claimed := make(map[string]Candidate)
	var scan []string
	for _, line := range rest {
		taken := false
		for _, f := range def.Fields {
			if f.Kind != form.KindText {
				continue
			}
			if _, dup := claimed[f.Name]; dup {
				continue
			}
			if m := f.Pattern.FindStringSubmatch(line); m != nil {
				v := strings.TrimSpace(m[1])
				if v == "" {
					continue
				}
				claimed[f.Name] = Candidate{Field: f.Name, Kind: f.Kind, Raw: m[1], Value: v}
				taken = true
				break
			}
		}
		if !taken {
			scan = append(scan, line)
		}
	}
	body := strings.Join(scan, "\n")

	for _, f := range def.Fields {
		if f.Kind == form.KindText {
			if c, ok := claimed[f.Name]; ok {
				res.Candidates = append(res.Candidates, c)
			}
			continue
		}
		m := f.Pattern.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		c, err := parseValue(f, m[1], now)
		if err != nil {
			res.Errors = append(res.Errors, FieldError{Field: f.Name, Raw: m[1], Err: err})
			continue
		}
		res.Candidates = append(res.Candidates, c)
	}
	return res
}

func parseValue(f form.Field, raw string, now time.Time) (Candidate, error) {
	c := Candidate{Field: f.Name, Kind: f.Kind, Raw: raw}
	switch f.Kind {
	case form.KindAmount:
		amt, err := ParseAmount(raw)
		if err != nil {
			return c, err
		}
		c.Amount = amt
		c.Value = amt.String()
	case form.KindDate:
		t, err := datekey.Parse(raw, now)
		if err != nil {
			return c, err
		}
		c.Date = t
		c.Value = datekey.Format(t)
	case form.KindPhone:
		digits := nonDigits.ReplaceAllString(raw, "")
		if len(digits) < 10 || len(digits) > 13 {
			return c, fmt.Errorf("mobile number must have 10 to 13 digits")
		}
		c.Value = digits
	default:
		c.Value = strings.TrimSpace(raw)
	}
	return c, nil
}

// ParseAmount parses a currency amount such as "₹1,500" or "Rs. 200.50".
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := currencyPrefix.ReplaceAllString(strings.TrimSpace(raw), "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, raw)
	}
	return d, nil
}

// ParseExpenseDelete recognizes "expense delete <name>".
func ParseExpenseDelete(text string) (string, bool) {
	m := expenseDeletePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return "", false
	}
	return m[1], true
}
