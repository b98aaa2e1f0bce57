// Package calc recomputes derived values and checks form completion.
// Session fields are held as canonical strings; absent amounts count as zero.
package calc

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/models"
)

// CashHandover is total collection minus diesel, adda, union and every extra
// expense, rounded to whole currency units.
func CashHandover(total, diesel, adda, union decimal.Decimal, expenses []models.ExpenseItem) decimal.Decimal {
	spent := diesel.Add(adda).Add(union)
	for _, e := range expenses {
		spent = spent.Add(e.Amount)
	}
	return total.Sub(spent).Round(0)
}

// BalanceDue is the fare still owed after the advance.
func BalanceDue(fare, advance decimal.Decimal) decimal.Decimal {
	return fare.Sub(advance)
}

// Amount reads a canonical amount field, returning zero when absent or malformed.
func Amount(fields map[string]string, name string) decimal.Decimal {
	v, ok := fields[name]
	if !ok || v == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Recalc refreshes the derived fields of def in place. A derived field is
// removed when its base value is absent.
func Recalc(def form.Definition, fields map[string]string, expenses []models.ExpenseItem) {
	switch def.Feature {
	case form.FeatureDaily:
		if !present(fields, form.TotalCashCollection) {
			delete(fields, form.CashHandover)
			return
		}
		fields[form.CashHandover] = CashHandover(
			Amount(fields, form.TotalCashCollection),
			Amount(fields, form.Diesel),
			Amount(fields, form.Adda),
			Amount(fields, form.Union),
			expenses,
		).String()
	case form.FeatureBooking:
		if !present(fields, form.TotalFare) {
			delete(fields, form.BalanceDue)
			return
		}
		fields[form.BalanceDue] = BalanceDue(Amount(fields, form.TotalFare), Amount(fields, form.AdvancePaid)).String()
	}
}

// Missing lists the required fields without a value, in required order.
func Missing(def form.Definition, fields map[string]string) []string {
	var missing []string
	for _, name := range def.Required {
		if !present(fields, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether every required field holds a value.
func Complete(def form.Definition, fields map[string]string) bool {
	return len(Missing(def, fields)) == 0
}

func present(fields map[string]string, name string) bool {
	return strings.TrimSpace(fields[name]) != ""
}
