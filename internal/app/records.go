package app

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/core/calc"
	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/core/session"
	"github.com/example/fleetbot/internal/models"
)

// dailyFromSession builds the record persisted on submit.
func dailyFromSession(sess *session.Session, key, sender string, now time.Time) *models.DailyRecord {
	f := sess.Fields
	expenses := make([]models.ExpenseItem, len(sess.Expenses))
	copy(expenses, sess.Expenses)
	return &models.DailyRecord{
		Key:                 key,
		BusCode:             sess.BusCode,
		Dated:               f[form.Dated],
		Diesel:              calc.Amount(f, form.Diesel),
		Adda:                calc.Amount(f, form.Adda),
		Union:               calc.Amount(f, form.Union),
		TotalCashCollection: calc.Amount(f, form.TotalCashCollection),
		Online:              calc.Amount(f, form.Online),
		CashHandover:        calc.Amount(f, form.CashHandover),
		ExtraExpenses:       expenses,
		Remarks:             f[form.Remarks],
		Sender:              sender,
		SubmittedAt:         now,
		Status:              models.StatusInitiated,
	}
}

// loadDaily copies a stored record into the session for editing.
func loadDaily(sess *session.Session, r *models.DailyRecord) {
	sess.Fields = map[string]string{
		form.Dated:               r.Dated,
		form.Diesel:              r.Diesel.String(),
		form.Adda:                r.Adda.String(),
		form.Union:               r.Union.String(),
		form.TotalCashCollection: r.TotalCashCollection.String(),
		form.Online:              r.Online.String(),
	}
	if strings.TrimSpace(r.Remarks) != "" {
		sess.Fields[form.Remarks] = r.Remarks
	}
	sess.Expenses = make([]models.ExpenseItem, len(r.ExtraExpenses))
	copy(sess.Expenses, r.ExtraExpenses)
	if sess.BusCode == "" {
		sess.BusCode = r.BusCode
	}
	calc.Recalc(sess.Definition(), sess.Fields, sess.Expenses)
}

// bookingFromSession builds a new booking record.
func bookingFromSession(sess *session.Session, key, sender string, now time.Time) *models.BookingRecord {
	f := sess.Fields
	return &models.BookingRecord{
		Key:          key,
		BusCode:      sess.BusCode,
		CustomerName: f[form.CustomerName],
		Mobile:       f[form.Mobile],
		TravelDate:   f[form.TravelDate],
		Pickup:       f[form.Pickup],
		Drop:         f[form.Drop],
		TotalFare:    calc.Amount(f, form.TotalFare),
		AdvancePaid:  calc.Amount(f, form.AdvancePaid),
		BalanceDue:   calc.Amount(f, form.BalanceDue),
		Remarks:      f[form.Remarks],
		Sender:       sender,
		SubmittedAt:  now,
		Status:       models.StatusPending,
	}
}

func money(d decimal.Decimal) string {
	return "₹" + d.String()
}
