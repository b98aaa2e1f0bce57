package app

import (
	"fmt"
	"strings"

	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/core/session"
	"github.com/example/fleetbot/internal/ports/primary"
)

const helpText = `*fleetbot commands*
daily <BUS> - start daily records for a bus
booking [<BUS>] - start a booking
Dated 05/11/2025 / Diesel 500 / Adda 100 / Union 50 / Total Cash Collection 2000 / Online 300 - fill fields
expense <name> <amount> [cash|online] - add an expense
expense delete <name> - remove an expense
summary - show what is entered so far
deposit - show outstanding cash
deposit <amount> [remarks <text>] - record a deposit
update status <DD/MM/YYYY[ to DD/MM/YYYY][, ...]> <status> [remarks <text>] - batch status update
daily status <status> / booking status <status> - list records with a status
clear - drop the current form`

// summary renders the fields entered so far in declaration order, followed
// by expenses and derived values.
func summary(sess *session.Session) string {
	def := sess.Definition()
	var b strings.Builder

	title := "Daily record"
	if def.Feature == form.FeatureBooking {
		title = "Booking"
	}
	fmt.Fprintf(&b, "*%s*", title)
	if sess.BusCode != "" {
		fmt.Fprintf(&b, " %s", sess.BusCode)
	}
	if sess.Editing {
		b.WriteString(" (editing)")
	}

	for _, f := range def.Fields {
		if v := sess.Fields[f.Name]; v != "" {
			fmt.Fprintf(&b, "\n%s: %s", f.Label, v)
		}
	}
	if len(sess.Expenses) > 0 {
		b.WriteString("\nExpenses:")
		for _, e := range sess.Expenses {
			fmt.Fprintf(&b, "\n- %s: %s (%s)", e.Name, money(e.Amount), e.Mode)
		}
	}
	for _, name := range def.Derived {
		if v := sess.Fields[name]; v != "" {
			fmt.Fprintf(&b, "\n%s: %s", def.LabelOf(name), v)
		}
	}
	return b.String()
}

func missingText(def form.Definition, missing []string) string {
	labels := make([]string, len(missing))
	for i, name := range missing {
		labels[i] = def.LabelOf(name)
	}
	return "Missing: " + strings.Join(labels, ", ")
}

func previewText(p *primary.DepositPreview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Outstanding cash for %s*", p.BusCode)
	if len(p.Daily) > 0 {
		b.WriteString("\nDaily:")
		for _, e := range p.Daily {
			fmt.Fprintf(&b, "\n- %s (%s): %s", e.Key, e.Date, money(e.Amount))
		}
	}
	if len(p.Bookings) > 0 {
		b.WriteString("\nBookings:")
		for _, e := range p.Bookings {
			fmt.Fprintf(&b, "\n- %s (%s): %s", e.Key, e.Date, money(e.Amount))
		}
	}
	fmt.Fprintf(&b, "\nDaily total: %s", money(p.DailyTotal))
	fmt.Fprintf(&b, "\nBooking total: %s", money(p.BookingTotal))
	fmt.Fprintf(&b, "\nPrevious balance: %s", money(p.PreviousBalance))
	fmt.Fprintf(&b, "\nTotal available: %s", money(p.TotalAvailable))
	b.WriteString("\nSend: deposit <amount> [remarks <text>]")
	return b.String()
}

func statusResultText(res *primary.StatusUpdateResult) string {
	var b strings.Builder
	status := strings.ToLower(string(res.Status))
	if len(res.Updated) > 0 {
		fmt.Fprintf(&b, "Updated %d to %s: %s", len(res.Updated), status, strings.Join(res.Updated, ", "))
	} else {
		fmt.Fprintf(&b, "Nothing updated to %s.", status)
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&b, "\nSkipped %d:", len(res.Skipped))
		for _, sk := range res.Skipped {
			fmt.Fprintf(&b, "\n- %s: %s", sk.Key, sk.Reason)
		}
	}
	return b.String()
}
