package app

import (
	"errors"
	"regexp"
	"strings"

	"github.com/example/fleetbot/internal/core/allocation"
	"github.com/example/fleetbot/internal/core/calc"
	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/core/extract"
	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/core/statusbatch"
	"github.com/example/fleetbot/internal/ports/primary"
)

var (
	featurePattern = regexp.MustCompile(`(?i)^(daily|booking)(?:\s+(\S+))?$`)
	depositPattern = regexp.MustCompile(`(?is)^deposit(?:\s+(.*?))?\s*$`)
	remarksSplit   = regexp.MustCompile(`(?is)^(.*?)\s*\bremarks?\s+(.+)$`)
)

// command handles command-style input. It reports false when the text is not
// a command and should go to field extraction.
func (s *ConversationServiceImpl) command(t *turn) bool {
	switch t.lower {
	case "help", "menu":
		t.say("%s", helpText)
		return true
	case "summary", "show":
		t.say("%s", summary(t.sess))
		if missing := calc.Missing(t.sess.Definition(), t.sess.Fields); len(missing) > 0 {
			t.say("%s", missingText(t.sess.Definition(), missing))
		}
		return true
	}

	if cmd, ok := statusbatch.ParseUpdateCommand(t.text); ok {
		s.updateStatus(t, cmd)
		return true
	}
	if feature, status, ok := statusbatch.ParseQueryCommand(t.text); ok {
		s.queryStatus(t, feature, status)
		return true
	}
	if m := featurePattern.FindStringSubmatch(t.text); m != nil {
		s.selectFeature(t, m[1], m[2])
		return true
	}
	if m := depositPattern.FindStringSubmatch(t.text); m != nil {
		s.deposit(t, m[1])
		return true
	}
	if name, ok := extract.ParseExpenseDelete(t.text); ok {
		s.deleteExpense(t, name)
		return true
	}
	return false
}

func (s *ConversationServiceImpl) selectFeature(t *turn, word, busArg string) {
	feature, _ := form.ParseFeature(word)
	bus := t.sess.BusCode
	if busArg != "" {
		b, ok := s.roster.Bus(busArg)
		if !ok {
			t.say("Unknown bus %s.", strings.ToUpper(busArg))
			return
		}
		bus = b.Code
	}
	if feature == form.FeatureDaily && bus == "" {
		t.say("Which bus? Send: daily <BUS>")
		return
	}

	if err := t.sess.SelectFeature(t.ctx, feature, bus); err != nil {
		s.logger.Warn("failed to select feature", "sender", t.sess.SenderID, "error", err)
	}
	def := t.sess.Definition()
	if feature == form.FeatureBooking {
		t.say("New booking. Send the booking details.")
	} else {
		t.say("Daily record for %s. Send the day's figures.", bus)
	}
	t.say("%s", missingText(def, def.Required))
}

func (s *ConversationServiceImpl) deposit(t *turn, args string) {
	bus := t.sess.BusCode
	if bus == "" {
		t.say("Select a bus first: daily <BUS>")
		return
	}

	args = strings.TrimSpace(args)
	if args == "" {
		preview, err := s.deposits.Preview(t.ctx, bus)
		if err != nil {
			t.err = err
			t.say("Could not load outstanding cash, please retry.")
			return
		}
		t.say("%s", previewText(preview))
		return
	}

	amountText, remarks := args, ""
	if m := remarksSplit.FindStringSubmatch(args); m != nil {
		amountText, remarks = m[1], strings.TrimSpace(m[2])
	}
	amount, err := extract.ParseAmount(amountText)
	if err != nil {
		t.say("Invalid deposit amount %s. Use: deposit <amount> [remarks <text>]", quote(amountText))
		return
	}

	dep, err := s.deposits.MakeDeposit(t.ctx, primary.DepositRequest{
		BusCode: bus,
		Amount:  amount,
		Date:    t.now,
		Remarks: remarks,
		Sender:  t.msg.SenderID,
	})
	var unsat *allocation.UnsatisfiableError
	switch {
	case err == nil:
	case errors.As(err, &unsat):
		t.say("Cannot deposit %s: only whole entries can be deposited. The most that can be deposited is %s.",
			money(unsat.Requested), money(unsat.MaxSatisfiable))
		return
	case errors.Is(err, allocation.ErrInvalidAmount):
		t.say("Deposit amount must be greater than zero.")
		return
	case errors.Is(err, allocation.ErrExceedsAvailable):
		t.say("Deposit amount %s exceeds the cash available for %s. Send deposit to see what is outstanding.", money(amount), bus)
		return
	default:
		t.fail(err)
		return
	}

	t.say("Deposit %s recorded: %s\nFrom daily: %s\nFrom bookings: %s\nFrom balance: %s\nNew balance: %s",
		dep.ID, money(dep.Amount), money(dep.FromDaily), money(dep.FromBookings),
		money(dep.FromBalance), money(dep.NewBalance))
}

func (s *ConversationServiceImpl) updateStatus(t *turn, cmd statusbatch.UpdateCommand) {
	res, err := s.statuses.UpdateStatus(t.ctx, primary.StatusUpdateRequest{
		Feature:  string(t.sess.Feature),
		BusCode:  t.sess.BusCode,
		DateExpr: cmd.DateExpr,
		Status:   cmd.Status,
		Remarks:  cmd.Remarks,
		Actor:    t.msg.SenderID,
	})
	switch {
	case err == nil:
		t.say("%s", statusResultText(res))
	case errors.Is(err, statusbatch.ErrInvalidStatus):
		t.say("%s.", err.Error())
	case errors.Is(err, datekey.ErrInvalidDate):
		t.say("%s. Use: update status DD/MM/YYYY[ to DD/MM/YYYY][, DD/MM/YYYY] <status> [remarks <text>]", err.Error())
	case errors.Is(err, ErrBusRequired):
		t.say("Select a bus first: daily <BUS>")
	default:
		t.fail(err)
	}
}

func (s *ConversationServiceImpl) queryStatus(t *turn, feature form.Feature, status string) {
	keys, err := s.statuses.QueryStatus(t.ctx, primary.StatusQuery{
		Feature: string(feature),
		BusCode: t.sess.BusCode,
		Status:  status,
	})
	switch {
	case err == nil:
	case errors.Is(err, statusbatch.ErrInvalidStatus):
		t.say("%s.", err.Error())
		return
	default:
		t.err = err
		t.say("Could not read records, please retry.")
		return
	}
	if len(keys) == 0 {
		t.say("No %s records are %s.", feature, strings.ToLower(status))
		return
	}
	t.say("%s records %s (%d):\n%s", feature, strings.ToLower(status), len(keys), strings.Join(keys, "\n"))
}

func (s *ConversationServiceImpl) deleteExpense(t *turn, name string) {
	if !t.sess.RemoveExpense(name) {
		t.say("No expense named %s.", name)
		return
	}
	calc.Recalc(t.sess.Definition(), t.sess.Fields, t.sess.Expenses)
	t.say("Removed expense %s.", name)
	s.checkCompletion(t)
}
