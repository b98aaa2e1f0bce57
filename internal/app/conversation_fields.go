package app

import (
	"errors"
	"time"

	"github.com/example/fleetbot/internal/core/calc"
	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/core/extract"
	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/core/session"
)

// extractFields applies the field lines of a message to the session.
//
// Candidates are applied in declaration order. The first value that differs
// from one already entered is queued for confirmation and every later match
// in the message is dropped. A key date naming a stored record stops the
// message there and offers to fetch that record.
func (s *ConversationServiceImpl) extractFields(t *turn) {
	sess := t.sess
	def := sess.Definition()
	res := extract.Parse(def, t.text, t.now)
	if !res.Found() {
		// A complete form only listens for yes, no, commands and corrections.
		if sess.State() != session.StateWaitingForSubmit {
			t.say("Sorry, I did not understand that. Send help for the list of commands.")
		}
		return
	}
	if def.Feature == form.FeatureDaily && sess.BusCode == "" {
		t.say("Select a bus first: daily <BUS>")
		return
	}

	for _, fe := range res.Errors {
		t.say("%s", fieldErrorText(def, fe))
	}

	var pending *session.PendingUpdate
	var changed int
	for _, c := range res.Candidates {
		cur := sess.Fields[c.Field]
		if cur == c.Value {
			continue
		}
		if cur != "" {
			pending = &session.PendingUpdate{
				Kind:     session.PendingField,
				Field:    c.Field,
				Current:  cur,
				Proposed: c.Value,
			}
			break
		}
		if c.Field == def.KeyDate {
			if s.changeKeyDate(t, c.Date, c.Value) {
				calc.Recalc(def, sess.Fields, sess.Expenses)
				return
			}
		}
		sess.Fields[c.Field] = c.Value
		changed++
	}

	if pending == nil && len(res.Expenses) > 0 {
		if def.Feature != form.FeatureDaily {
			t.say("Expenses only apply to daily records.")
		} else {
			for _, item := range res.Expenses {
				cur, _, ok := sess.Expense(item.Name)
				if ok && !cur.Amount.Equal(item.Amount) {
					item.Name = cur.Name
					pending = &session.PendingUpdate{
						Kind:     session.PendingExpense,
						Current:  cur.Amount.String(),
						Proposed: item.Amount.String(),
						Expense:  item,
					}
					break
				}
				if ok && cur.Mode == item.Mode {
					continue
				}
				if ok {
					item.Name = cur.Name
				}
				sess.PutExpense(item)
				changed++
			}
		}
	}

	calc.Recalc(def, sess.Fields, sess.Expenses)

	if pending != nil {
		sess.Pending = pending
		s.fire(t, session.EventConflict)
		t.say("%s is already %s. Replace it with %s? (yes/no)",
			s.pendingLabel(sess, pending), pending.Current, pending.Proposed)
		return
	}
	if changed == 0 && len(res.Errors) > 0 {
		return
	}
	s.checkCompletion(t)
}

// changeKeyDate records a new key date. It reports true when the message is
// fully handled: the date names a stored record and the user is asked to
// fetch it, or the lookup failed.
func (s *ConversationServiceImpl) changeKeyDate(t *turn, date time.Time, value string) bool {
	sess := t.sess
	def := sess.Definition()
	key := datekey.KeyFor(sess.BusCode, date)
	if sess.Editing && key != sess.PendingKey {
		sess.Editing = false
	}
	if sess.Editing {
		return false
	}

	_, exists, err := s.lookupDaily(t.ctx, key)
	if err != nil {
		t.fail(err)
		return true
	}
	sess.PendingKey = key
	if !exists {
		return false
	}
	sess.Fields[def.KeyDate] = value
	s.fire(t, session.EventRecordExists)
	t.say("A record for %s already exists (%s). Fetch it for editing? (yes/no)", value, key)
	return true
}

func fieldErrorText(def form.Definition, fe extract.FieldError) string {
	label := def.LabelOf(fe.Field)
	switch {
	case errors.Is(fe.Err, datekey.ErrInvalidDate):
		return "Invalid " + label + " " + quote(fe.Raw) + ". Use DD/MM/YYYY, today or yesterday."
	case errors.Is(fe.Err, extract.ErrInvalidAmount):
		return "Invalid amount for " + label + " " + quote(fe.Raw) + ". Use a number such as 1500."
	default:
		return "Invalid " + label + " " + quote(fe.Raw) + ": " + fe.Err.Error()
	}
}

func quote(s string) string {
	return "\"" + s + "\""
}
