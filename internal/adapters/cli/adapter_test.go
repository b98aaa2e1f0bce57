package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/adapters/roster"
	"github.com/example/fleetbot/internal/core/allocation"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
)

func init() {
	color.NoColor = true
}

// mockDepositService implements primary.DepositService for testing.
type mockDepositService struct {
	previewFn func(ctx context.Context, busCode string) (*primary.DepositPreview, error)
	makeFn    func(ctx context.Context, req primary.DepositRequest) (*models.DepositRecord, error)
}

func (m *mockDepositService) Preview(ctx context.Context, busCode string) (*primary.DepositPreview, error) {
	return m.previewFn(ctx, busCode)
}

func (m *mockDepositService) MakeDeposit(ctx context.Context, req primary.DepositRequest) (*models.DepositRecord, error) {
	return m.makeFn(ctx, req)
}

// mockStatusService implements primary.StatusService for testing.
type mockStatusService struct {
	updateFn func(ctx context.Context, req primary.StatusUpdateRequest) (*primary.StatusUpdateResult, error)
	queryFn  func(ctx context.Context, q primary.StatusQuery) ([]string, error)
}

func (m *mockStatusService) UpdateStatus(ctx context.Context, req primary.StatusUpdateRequest) (*primary.StatusUpdateResult, error) {
	return m.updateFn(ctx, req)
}

func (m *mockStatusService) QueryStatus(ctx context.Context, q primary.StatusQuery) ([]string, error) {
	return m.queryFn(ctx, q)
}

// mockRecordService implements primary.RecordService for testing.
type mockRecordService struct {
	daily    []*models.DailyRecord
	bookings []*models.BookingRecord
	deposits []*models.DepositRecord
	imported map[string]json.RawMessage
	err      error
}

func (m *mockRecordService) ListDaily(ctx context.Context, busCode string) ([]*models.DailyRecord, error) {
	return m.daily, m.err
}

func (m *mockRecordService) ListBookings(ctx context.Context, busCode string) ([]*models.BookingRecord, error) {
	return m.bookings, m.err
}

func (m *mockRecordService) ListDeposits(ctx context.Context, busCode string) ([]*models.DepositRecord, error) {
	return m.deposits, m.err
}

func (m *mockRecordService) Export(ctx context.Context, store string) (map[string]json.RawMessage, error) {
	return map[string]json.RawMessage{"BUS1_05112025": json.RawMessage(`{"dated":"05/11/2025"}`)}, m.err
}

func (m *mockRecordService) Import(ctx context.Context, store string, records map[string]json.RawMessage) (*primary.ImportResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.imported = records
	return &primary.ImportResult{Store: store, Added: 1, Kept: 1, Rejected: []string{"BAD"}}, nil
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestDepositAdapter_Preview(t *testing.T) {
	var out bytes.Buffer
	svc := &mockDepositService{
		previewFn: func(ctx context.Context, busCode string) (*primary.DepositPreview, error) {
			return &primary.DepositPreview{
				BusCode:        "BUS1",
				Daily:          []primary.OutstandingEntry{{Key: "BUS1_01112025", Date: "01/11/2025", Amount: d(500)}},
				DailyTotal:     d(500),
				TotalAvailable: d(500),
			}, nil
		},
	}

	adapter := NewDepositAdapter(svc, &out)
	if _, err := adapter.Preview(context.Background(), "BUS1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "BUS1_01112025") {
		t.Errorf("expected entry in output, got %q", output)
	}
	if !strings.Contains(output, "Total available:   ₹500") {
		t.Errorf("expected total in output, got %q", output)
	}
}

func TestDepositAdapter_Make(t *testing.T) {
	var out bytes.Buffer
	var got primary.DepositRequest
	svc := &mockDepositService{
		makeFn: func(ctx context.Context, req primary.DepositRequest) (*models.DepositRecord, error) {
			got = req
			return &models.DepositRecord{
				ID:        "DEP_BUS1_05112025_000",
				Amount:    req.Amount,
				FromDaily: req.Amount,
				DailyKeys: []string{"BUS1_01112025"},
			}, nil
		},
	}

	adapter := NewDepositAdapter(svc, &out)
	date := time.Date(2025, 11, 5, 0, 0, 0, 0, time.UTC)
	if _, err := adapter.Make(context.Background(), "BUS1", d(500), date, "bank", "cli"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Remarks != "bank" || !got.Date.Equal(date) {
		t.Errorf("unexpected request %+v", got)
	}
	if !strings.Contains(out.String(), "✓ Deposit recorded: DEP_BUS1_05112025_000") {
		t.Errorf("expected confirmation, got %q", out.String())
	}
}

func TestDepositAdapter_MakeUnsatisfiable(t *testing.T) {
	var out bytes.Buffer
	svc := &mockDepositService{
		makeFn: func(ctx context.Context, req primary.DepositRequest) (*models.DepositRecord, error) {
			return nil, &allocation.UnsatisfiableError{Requested: req.Amount, MaxSatisfiable: d(500)}
		},
	}

	adapter := NewDepositAdapter(svc, &out)
	_, err := adapter.Make(context.Background(), "BUS1", d(650), time.Time{}, "", "cli")
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected max satisfiable in error, got %v", err)
	}
	var unsat *allocation.UnsatisfiableError
	if !errors.As(err, &unsat) {
		t.Error("expected wrapped UnsatisfiableError")
	}
}

func TestStatusAdapter_Update(t *testing.T) {
	var out bytes.Buffer
	svc := &mockStatusService{
		updateFn: func(ctx context.Context, req primary.StatusUpdateRequest) (*primary.StatusUpdateResult, error) {
			return &primary.StatusUpdateResult{
				Status:     models.StatusCollected,
				Updated:    []string{"BUS1_01112025"},
				Skipped:    []primary.SkippedKey{{Key: "BUS1_02112025", Reason: "no record found"}},
				LogEntryID: "log-1",
			}, nil
		},
	}

	adapter := NewStatusAdapter(svc, &out)
	if _, err := adapter.Update(context.Background(), primary.StatusUpdateRequest{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "✓ Updated 1 to Collected") {
		t.Errorf("expected update line, got %q", output)
	}
	if !strings.Contains(output, "no record found") {
		t.Errorf("expected skip reason, got %q", output)
	}
}

func TestStatusAdapter_Query(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		err  error
		want string
	}{
		{name: "keys", keys: []string{"BUS1_01112025"}, want: "1 record(s)"},
		{name: "none", want: "No matching records."},
		{name: "error", err: errors.New("store down")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			svc := &mockStatusService{
				queryFn: func(ctx context.Context, q primary.StatusQuery) ([]string, error) {
					return tt.keys, tt.err
				},
			}
			_, err := NewStatusAdapter(svc, &out).Query(context.Background(), primary.StatusQuery{})
			if tt.err != nil {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if !strings.Contains(out.String(), tt.want) {
				t.Errorf("expected %q in %q", tt.want, out.String())
			}
		})
	}
}

func TestRecordAdapter_ListDaily(t *testing.T) {
	var out bytes.Buffer
	svc := &mockRecordService{daily: []*models.DailyRecord{{
		Key: "BUS1_01112025", Dated: "01/11/2025", CashHandover: d(500), Status: models.StatusCollected,
	}}}

	if _, err := NewRecordAdapter(svc, &out).ListDaily(context.Background(), ""); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(out.String(), "BUS1_01112025") || !strings.Contains(out.String(), "Collected") {
		t.Errorf("unexpected table %q", out.String())
	}

	out.Reset()
	svc.daily = nil
	NewRecordAdapter(svc, &out).ListDaily(context.Background(), "")
	if !strings.Contains(out.String(), "No daily records found.") {
		t.Errorf("expected empty message, got %q", out.String())
	}
}

func TestRecordAdapter_Import(t *testing.T) {
	var out bytes.Buffer
	svc := &mockRecordService{}

	res, err := NewRecordAdapter(svc, &out).Import(context.Background(), "daily", strings.NewReader(`{"BUS1_05112025":{}}`))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.Added != 1 || len(svc.imported) != 1 {
		t.Errorf("unexpected result %+v", res)
	}
	if !strings.Contains(out.String(), "rejected BAD") {
		t.Errorf("expected rejected key listed, got %q", out.String())
	}

	_, err = NewRecordAdapter(svc, &out).Import(context.Background(), "daily", strings.NewReader(`not json`))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestRosterAdapter_Show(t *testing.T) {
	var out bytes.Buffer
	r := roster.New([]models.Bus{{Code: "bus2", Name: "Night"}, {Code: "BUS1", Name: "Day", OpeningBalance: d(200)}}, nil)

	buses := NewRosterAdapter(r, &out).Show()
	if len(buses) != 2 || buses[0].Code != "BUS1" {
		t.Fatalf("expected sorted buses, got %+v", buses)
	}
	if !strings.Contains(out.String(), "₹200") {
		t.Errorf("expected opening balance, got %q", out.String())
	}
}
