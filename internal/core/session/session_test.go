package session

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/models"
)

var now = time.Date(2025, time.November, 6, 10, 0, 0, 0, time.UTC)

func TestTransitions(t *testing.T) {
	tests := []struct {
		name   string
		events []string
		want   State
	}{
		{"fetch accepted", []string{EventRecordExists, EventFetchAccepted}, StateAwaitingCancelChoice},
		{"fetch declined", []string{EventRecordExists, EventFetchDeclined}, StateIdle},
		{"resume after fetch", []string{EventRecordExists, EventFetchAccepted, EventResumeEditing}, StateIdle},
		{"conflict resolved", []string{EventConflict, EventConflictResolved}, StateIdle},
		{"complete twice", []string{EventComplete, EventComplete}, StateWaitingForSubmit},
		{"complete then conflict", []string{EventComplete, EventConflict}, StateAwaitingFieldUpdate},
		{"submit collision", []string{EventComplete, EventSubmitCollision}, StateConfirmingUpdate},
		{"submit cancelled", []string{EventComplete, EventSubmitCancelled}, StateIdle},
		{"incomplete while idle", []string{EventIncomplete}, StateIdle},
		{"reset from anywhere", []string{EventComplete, EventSubmitCollision, EventReset}, StateIdle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("919900000001", now)
			for _, ev := range tt.events {
				if err := s.Fire(context.Background(), ev); err != nil {
					t.Fatalf("Fire(%s): %v", ev, err)
				}
			}
			if s.State() != tt.want {
				t.Errorf("State = %s, want %s", s.State(), tt.want)
			}
		})
	}
}

func TestInvalidTransitionIsRejected(t *testing.T) {
	s := New("919900000001", now)
	if err := s.Fire(context.Background(), EventFetchAccepted); err == nil {
		t.Error("expected error accepting a fetch that was never offered")
	}
	if err := s.Fire(context.Background(), EventConflict); err != nil {
		t.Fatal(err)
	}
	if err := s.Fire(context.Background(), EventComplete); err == nil {
		t.Error("cannot complete while a conflict is pending")
	}
}

func TestFlagsAreExclusive(t *testing.T) {
	s := New("919900000001", now)
	steps := []string{EventComplete, EventSubmitCollision, EventReset, EventRecordExists, EventFetchAccepted, EventResumeEditing, EventConflict}
	for _, ev := range steps {
		if err := s.Fire(context.Background(), ev); err != nil {
			t.Fatalf("Fire(%s): %v", ev, err)
		}
		f := s.Flags()
		count := 0
		for _, b := range []bool{f.ConfirmingFetch, f.AwaitingCancelChoice, f.AwaitingFieldUpdate, f.WaitingForSubmit, f.ConfirmingUpdate} {
			if b {
				count++
			}
		}
		if count > 1 {
			t.Fatalf("after %s more than one yes/no flag is set: %+v", ev, f)
		}
		if (count == 1) != (s.State() != StateIdle) {
			t.Fatalf("after %s flags disagree with state %s", ev, s.State())
		}
	}
}

func TestStrictlyPending(t *testing.T) {
	s := New("919900000001", now)
	_ = s.Fire(context.Background(), EventComplete)
	if s.StrictlyPending() {
		t.Error("waiting for submit must accept other input")
	}
	_ = s.Fire(context.Background(), EventSubmitCollision)
	if !s.StrictlyPending() {
		t.Error("confirming update must only accept yes or no")
	}
}

func TestResetKeepsMode(t *testing.T) {
	s := New("919900000001", now)
	if err := s.SelectFeature(context.Background(), form.FeatureBooking, "UP32"); err != nil {
		t.Fatal(err)
	}
	s.Fields[form.CustomerName] = "Ravi"
	s.PendingKey = "BK1"
	s.Editing = true
	if err := s.Reset(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Feature != form.FeatureBooking || s.BusCode != "UP32" {
		t.Errorf("mode lost: %s %s", s.Feature, s.BusCode)
	}
	if len(s.Fields) != 0 || s.PendingKey != "" || s.Editing {
		t.Errorf("form data not cleared: %+v", s)
	}
	if s.Definition().Feature != form.FeatureBooking {
		t.Error("Definition should follow the feature")
	}
}

func TestExpenses(t *testing.T) {
	s := New("919900000001", now)
	s.PutExpense(models.ExpenseItem{Name: "Tea", Amount: decimal.NewFromInt(40), Mode: models.ModeCash})
	s.PutExpense(models.ExpenseItem{Name: "toll", Amount: decimal.NewFromInt(60), Mode: models.ModeOnline})
	s.PutExpense(models.ExpenseItem{Name: "tea", Amount: decimal.NewFromInt(50), Mode: models.ModeCash})

	if len(s.Expenses) != 2 {
		t.Fatalf("len(Expenses) = %d, want 2", len(s.Expenses))
	}
	if e, _, ok := s.Expense("TEA"); !ok || !e.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Expense(TEA) = %+v, %v", e, ok)
	}
	if !s.RemoveExpense("Toll") {
		t.Error("RemoveExpense(Toll) = false")
	}
	if s.RemoveExpense("toll") {
		t.Error("second RemoveExpense should report false")
	}
	if len(s.Expenses) != 1 {
		t.Errorf("len(Expenses) = %d, want 1", len(s.Expenses))
	}
}
