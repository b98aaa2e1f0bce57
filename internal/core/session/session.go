// Package session holds the per-sender conversation state.
// The lifecycle is an explicit finite state machine; the yes/no flags are
// derived from the current state, so at most one of them is ever set.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/looplab/fsm"

	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/models"
)

// State is a conversation state.
type State string

const (
	StateIdle                 State = "idle"
	StateConfirmingFetch      State = "confirming_fetch"
	StateAwaitingCancelChoice State = "awaiting_cancel_choice"
	StateAwaitingFieldUpdate  State = "awaiting_field_update"
	StateWaitingForSubmit     State = "waiting_for_submit"
	StateConfirmingUpdate     State = "confirming_update"
)

// Event names drive transitions.
const (
	EventRecordExists     = "record_exists"
	EventFetchAccepted    = "fetch_accepted"
	EventFetchDeclined    = "fetch_declined"
	EventResumeEditing    = "resume_editing"
	EventConflict         = "conflict"
	EventConflictResolved = "conflict_resolved"
	EventComplete         = "complete"
	EventIncomplete       = "incomplete"
	EventSubmitCollision  = "submit_collision"
	EventSubmitCancelled  = "submit_cancelled"
	EventReset            = "reset"
)

var editable = []string{string(StateIdle), string(StateWaitingForSubmit)}

var allStates = []string{
	string(StateIdle), string(StateConfirmingFetch), string(StateAwaitingCancelChoice),
	string(StateAwaitingFieldUpdate), string(StateWaitingForSubmit), string(StateConfirmingUpdate),
}

func events() fsm.Events {
	return fsm.Events{
		{Name: EventRecordExists, Src: editable, Dst: string(StateConfirmingFetch)},
		{Name: EventFetchAccepted, Src: []string{string(StateConfirmingFetch)}, Dst: string(StateAwaitingCancelChoice)},
		{Name: EventFetchDeclined, Src: []string{string(StateConfirmingFetch)}, Dst: string(StateIdle)},
		{Name: EventResumeEditing, Src: []string{string(StateAwaitingCancelChoice)}, Dst: string(StateIdle)},
		{Name: EventConflict, Src: editable, Dst: string(StateAwaitingFieldUpdate)},
		{Name: EventConflictResolved, Src: []string{string(StateAwaitingFieldUpdate)}, Dst: string(StateIdle)},
		{Name: EventComplete, Src: editable, Dst: string(StateWaitingForSubmit)},
		{Name: EventIncomplete, Src: editable, Dst: string(StateIdle)},
		{Name: EventSubmitCollision, Src: []string{string(StateWaitingForSubmit)}, Dst: string(StateConfirmingUpdate)},
		{Name: EventSubmitCancelled, Src: []string{string(StateWaitingForSubmit)}, Dst: string(StateIdle)},
		{Name: EventReset, Src: allStates, Dst: string(StateIdle)},
	}
}

// PendingKind says what a queued update will change.
type PendingKind string

const (
	PendingField   PendingKind = "field"
	PendingExpense PendingKind = "expense"
)

// PendingUpdate is a conflicting value waiting for a yes/no answer.
type PendingUpdate struct {
	Kind     PendingKind
	Field    string
	Current  string
	Proposed string
	Expense  models.ExpenseItem
}

// Flags are the lifecycle booleans, derived from the state.
type Flags struct {
	ConfirmingFetch      bool
	AwaitingCancelChoice bool
	AwaitingFieldUpdate  bool
	WaitingForSubmit     bool
	ConfirmingUpdate     bool
	EditingExisting      bool
}

// Session is the conversation state of one sender.
type Session struct {
	SenderID string
	Feature  form.Feature
	BusCode  string

	Fields   map[string]string
	Expenses []models.ExpenseItem

	Pending    *PendingUpdate
	PendingKey string
	Editing    bool

	CreatedAt time.Time
	UpdatedAt time.Time

	machine *fsm.FSM
}

// New creates an idle daily session.
func New(senderID string, now time.Time) *Session {
	return &Session{
		SenderID:  senderID,
		Feature:   form.FeatureDaily,
		Fields:    make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
		machine:   fsm.NewFSM(string(StateIdle), events(), fsm.Callbacks{}),
	}
}

// State returns the current conversation state.
func (s *Session) State() State {
	return State(s.machine.Current())
}

// Fire applies an event. Firing an event that leaves the state unchanged is
// not an error.
func (s *Session) Fire(ctx context.Context, event string) error {
	err := s.machine.Event(ctx, event)
	var noTransition fsm.NoTransitionError
	if err != nil && !errors.As(err, &noTransition) {
		return err
	}
	return nil
}

// StrictlyPending reports whether only yes, no or clear are accepted.
// WaitingForSubmit still lets field lines and commands through.
func (s *Session) StrictlyPending() bool {
	switch s.State() {
	case StateConfirmingFetch, StateAwaitingCancelChoice, StateAwaitingFieldUpdate, StateConfirmingUpdate:
		return true
	}
	return false
}

// Flags derives the lifecycle booleans from the state.
func (s *Session) Flags() Flags {
	st := s.State()
	return Flags{
		ConfirmingFetch:      st == StateConfirmingFetch,
		AwaitingCancelChoice: st == StateAwaitingCancelChoice,
		AwaitingFieldUpdate:  st == StateAwaitingFieldUpdate,
		WaitingForSubmit:     st == StateWaitingForSubmit,
		ConfirmingUpdate:     st == StateConfirmingUpdate,
		EditingExisting:      s.Editing,
	}
}

// Definition returns the field table of the session's feature.
func (s *Session) Definition() form.Definition {
	def, _ := form.For(s.Feature)
	return def
}

// SelectFeature switches mode and drops any partly entered form.
func (s *Session) SelectFeature(ctx context.Context, feature form.Feature, busCode string) error {
	s.Feature = feature
	s.BusCode = busCode
	return s.Reset(ctx)
}

// Reset drops all form data and returns to idle. Mode and bus are kept.
func (s *Session) Reset(ctx context.Context) error {
	s.Fields = make(map[string]string)
	s.Expenses = nil
	s.Pending = nil
	s.PendingKey = ""
	s.Editing = false
	return s.Fire(ctx, EventReset)
}

// Expense finds an expense item by case-insensitive name.
func (s *Session) Expense(name string) (models.ExpenseItem, int, bool) {
	for i, e := range s.Expenses {
		if strings.EqualFold(e.Name, name) {
			return e, i, true
		}
	}
	return models.ExpenseItem{}, -1, false
}

// PutExpense replaces an item with the same name or appends a new one.
func (s *Session) PutExpense(item models.ExpenseItem) {
	if _, i, ok := s.Expense(item.Name); ok {
		s.Expenses[i] = item
		return
	}
	s.Expenses = append(s.Expenses, item)
}

// RemoveExpense deletes an item by name and reports whether it existed.
func (s *Session) RemoveExpense(name string) bool {
	_, i, ok := s.Expense(name)
	if !ok {
		return false
	}
	s.Expenses = append(s.Expenses[:i], s.Expenses[i+1:]...)
	return true
}

// Touch records activity for idle expiry.
func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now
}
