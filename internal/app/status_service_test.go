package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/core/statusbatch"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
)

func newTestStatusService() (*StatusServiceImpl, *mockLedger) {
	ledger := newMockLedger()
	svc := NewStatusService(ledger, time.UTC, 62)
	svc.now = func() time.Time { return fixedNow }
	n := 0
	svc.newID = func() string {
		n++
		return "log-" + string(rune('0'+n))
	}
	return svc, ledger
}

func TestStatusService_UpdateStatus(t *testing.T) {
	svc, ledger := newTestStatusService()
	ledger.snap.Daily["BUS1_01112025"] = dailyRecord("BUS1", "01/11/2025", 100, models.StatusInitiated)
	ledger.snap.Daily["BUS1_02112025"] = dailyRecord("BUS1", "02/11/2025", 100, models.StatusCollected)
	ledger.snap.Daily["BUS1_03112025"] = dailyRecord("BUS1", "03/11/2025", 100, models.StatusInitiated)

	res, err := svc.UpdateStatus(context.Background(), primary.StatusUpdateRequest{
		Feature:  "daily",
		BusCode:  "bus1",
		DateExpr: "01/11/2025 to 04/11/2025",
		Status:   "Collected",
		Remarks:  "cash received",
		Actor:    "919000000001",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Updated) != 2 || res.Updated[0] != "BUS1_01112025" || res.Updated[1] != "BUS1_03112025" {
		t.Errorf("expected 01 and 03 updated, got %v", res.Updated)
	}
	if len(res.Skipped) != 2 {
		t.Fatalf("expected 2 skipped, got %+v", res.Skipped)
	}
	if res.Skipped[0].Key != "BUS1_02112025" || res.Skipped[1].Key != "BUS1_04112025" {
		t.Errorf("unexpected skipped keys %+v", res.Skipped)
	}
	if res.Skipped[1].Reason != "no record found" {
		t.Errorf("expected missing reason, got %q", res.Skipped[1].Reason)
	}

	if len(ledger.snap.DailyLog) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(ledger.snap.DailyLog))
	}
	entry := ledger.snap.DailyLog[0]
	if entry.ID != res.LogEntryID || entry.Remarks != "cash received" || entry.Actor != "919000000001" {
		t.Errorf("unexpected audit entry %+v", entry)
	}
	if len(entry.Keys) != 2 {
		t.Errorf("expected audit entry to list only changed keys, got %v", entry.Keys)
	}
	if ledger.snap.Daily["BUS1_01112025"].Status != models.StatusCollected {
		t.Error("expected BUS1_01112025 collected")
	}
}

func TestStatusService_UpdateStatus_Idempotent(t *testing.T) {
	svc, ledger := newTestStatusService()
	ledger.snap.Daily["BUS1_05112025"] = dailyRecord("BUS1", "05/11/2025", 100, models.StatusInitiated)
	req := primary.StatusUpdateRequest{Feature: "daily", BusCode: "BUS1", DateExpr: "05/11/2025", Status: "collected"}

	if _, err := svc.UpdateStatus(context.Background(), req); err != nil {
		t.Fatalf("first update: %v", err)
	}
	res, err := svc.UpdateStatus(context.Background(), req)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if len(res.Updated) != 0 {
		t.Errorf("expected nothing updated the second time, got %v", res.Updated)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Key != "BUS1_05112025" {
		t.Errorf("expected key skipped, got %+v", res.Skipped)
	}
	if len(ledger.snap.DailyLog) != 1 {
		t.Errorf("expected exactly one audit entry, got %d", len(ledger.snap.DailyLog))
	}
}

func TestStatusService_UpdateStatus_Bookings(t *testing.T) {
	svc, ledger := newTestStatusService()
	ledger.snap.Bookings["BK1"] = &models.BookingRecord{Key: "BK1", BusCode: "BUS1", TravelDate: "10/11/2025", Status: models.StatusPending}
	ledger.snap.Bookings["BK2"] = &models.BookingRecord{Key: "BK2", BusCode: "BUS2", TravelDate: "10/11/2025", Status: models.StatusPending}

	res, err := svc.UpdateStatus(context.Background(), primary.StatusUpdateRequest{
		Feature:  "booking",
		DateExpr: "10/11/2025, 11/11/2025",
		Status:   "confirmed",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(res.Updated) != 2 {
		t.Errorf("expected both bookings confirmed, got %v", res.Updated)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Key != "11/11/2025" {
		t.Errorf("expected empty date skipped, got %+v", res.Skipped)
	}
	if len(ledger.snap.BookingLog) != 1 || len(ledger.snap.DailyLog) != 0 {
		t.Errorf("expected one booking audit entry, got %d/%d", len(ledger.snap.BookingLog), len(ledger.snap.DailyLog))
	}
}

func TestStatusService_UpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     primary.StatusUpdateRequest
		wantErr error
	}{
		{
			name:    "status outside allow-list",
			req:     primary.StatusUpdateRequest{Feature: "daily", BusCode: "BUS1", DateExpr: "05/11/2025", Status: "initiated"},
			wantErr: statusbatch.ErrInvalidStatus,
		},
		{
			name:    "bad date",
			req:     primary.StatusUpdateRequest{Feature: "daily", BusCode: "BUS1", DateExpr: "31/02/2025", Status: "collected"},
			wantErr: datekey.ErrInvalidDate,
		},
		{
			name:    "daily without bus",
			req:     primary.StatusUpdateRequest{Feature: "daily", DateExpr: "05/11/2025", Status: "collected"},
			wantErr: ErrBusRequired,
		},
		{
			name:    "unknown feature",
			req:     primary.StatusUpdateRequest{Feature: "weekly", DateExpr: "05/11/2025", Status: "collected"},
			wantErr: ErrUnknownFeature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ledger := newTestStatusService()

			_, err := svc.UpdateStatus(context.Background(), tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if ledger.updates != 0 {
				t.Errorf("expected no writes, got %d", ledger.updates)
			}
		})
	}
}

func TestStatusService_QueryStatus(t *testing.T) {
	svc, ledger := newTestStatusService()
	ledger.snap.Daily["BUS1_02112025"] = dailyRecord("BUS1", "02/11/2025", 100, models.StatusCollected)
	ledger.snap.Daily["BUS1_01112025"] = dailyRecord("BUS1", "01/11/2025", 100, models.StatusCollected)
	ledger.snap.Daily["BUS1_03112025"] = dailyRecord("BUS1", "03/11/2025", 100, models.StatusInitiated)
	ledger.snap.Daily["BUS2_01112025"] = dailyRecord("BUS2", "01/11/2025", 100, models.StatusCollected)

	keys, err := svc.QueryStatus(context.Background(), primary.StatusQuery{Feature: "daily", BusCode: "BUS1", Status: "collected"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(keys) != 2 || keys[0] != "BUS1_01112025" || keys[1] != "BUS1_02112025" {
		t.Errorf("expected sorted BUS1 collected keys, got %v", keys)
	}

	keys, err = svc.QueryStatus(context.Background(), primary.StatusQuery{Feature: "daily", Status: "initiated"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected initial status to be queryable, got %v", keys)
	}
}
