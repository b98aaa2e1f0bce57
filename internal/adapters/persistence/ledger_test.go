package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// memStore is a RecordStore test double with optional failure injection.
type memStore struct {
	mu       sync.Mutex
	data     map[secondary.StoreID]map[string]json.RawMessage
	writeErr error
	failOn   map[secondary.StoreID]error
	dropKeys bool
	writes   int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[secondary.StoreID]map[string]json.RawMessage)}
}

func (m *memStore) ReadAll(ctx context.Context, store secondary.StoreID) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]json.RawMessage)
	for k, v := range m.data[store] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) WriteAll(ctx context.Context, store secondary.StoreID, records map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	if m.writeErr != nil {
		return m.writeErr
	}
	if err := m.failOn[store]; err != nil {
		return err
	}
	cp := make(map[string]json.RawMessage)
	for k, v := range records {
		cp[k] = v
		if m.dropKeys {
			break
		}
	}
	m.data[store] = cp
	return nil
}

func daily(key string, dated string, at time.Time) *models.DailyRecord {
	return &models.DailyRecord{
		Key:                 key,
		BusCode:             "UP32",
		Dated:               dated,
		TotalCashCollection: decimal.NewFromInt(2000),
		CashHandover:        decimal.NewFromInt(1350),
		Sender:              "919900000001",
		SubmittedAt:         at,
		Status:              models.StatusInitiated,
	}
}

var t0 = time.Date(2025, time.November, 5, 18, 0, 0, 0, time.UTC)

func TestLedger_UpdateWritesOnlyDirtyStores(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, nil)
	ctx := context.Background()

	err := ledger.Update(ctx, []secondary.StoreID{secondary.StoreDaily, secondary.StoreDeposits}, func(s *secondary.Snapshot) error {
		s.PutDaily(daily("UP32_05112025", "05/11/2025", t0))
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if store.writes != 1 {
		t.Errorf("writes = %d, want 1", store.writes)
	}
	if _, ok := store.data[secondary.StoreDeposits]; ok {
		t.Error("untouched deposit store was written")
	}
}

func TestLedger_KeyNormalizationRoundTrip(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, nil)
	ctx := context.Background()

	err := ledger.Update(ctx, []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		s.PutDaily(daily("UP32_1112025", "01/11/2025", t0))
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, ok := store.data[secondary.StoreDaily]["UP32_01112025"]; !ok {
		t.Fatalf("record not written under normalized key: %v", store.data[secondary.StoreDaily])
	}

	err = ledger.View(ctx, []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		if _, ok := s.Daily["UP32_01112025"]; !ok {
			t.Error("record not readable under normalized key")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestLedger_LegacySevenDigitKeyIsNormalizedOnRead(t *testing.T) {
	store := newMemStore()
	payload, _ := json.Marshal(daily("UP32_1112025", "01/11/2025", t0))
	store.data[secondary.StoreDaily] = map[string]json.RawMessage{"UP32_1112025": payload}
	ledger := NewLedger(store, nil)

	err := ledger.View(context.Background(), []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		r, ok := s.Daily["UP32_01112025"]
		if !ok {
			t.Fatal("legacy key not normalized")
		}
		if r.Key != "UP32_01112025" {
			t.Errorf("Key = %s", r.Key)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestLedger_FnErrorWritesNothing(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, nil)
	boom := errors.New("boom")

	err := ledger.Update(context.Background(), []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		s.PutDaily(daily("UP32_05112025", "05/11/2025", t0))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if store.writes != 0 {
		t.Errorf("writes = %d, want 0", store.writes)
	}
}

func TestLedger_WriteFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*memStore)
		wantErr error
	}{
		{"write error", func(m *memStore) { m.writeErr = errors.New("disk full") }, nil},
		{"dropped keys", func(m *memStore) { m.dropKeys = true }, ErrUnverifiedWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			tt.setup(store)
			ledger := NewLedger(store, nil)
			err := ledger.Update(context.Background(), []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
				s.PutDaily(daily("UP32_05112025", "05/11/2025", t0))
				s.PutDaily(daily("UP32_06112025", "06/11/2025", t0))
				return nil
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLedger_FailedStoreWriteRestoresEarlierStores(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, nil)
	ctx := context.Background()

	err := ledger.Update(ctx, []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		s.PutDaily(daily("UP32_05112025", "05/11/2025", t0))
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	before := string(store.data[secondary.StoreDaily]["UP32_05112025"])

	store.failOn = map[secondary.StoreID]error{secondary.StoreDeposits: errors.New("disk full")}
	err = ledger.Update(ctx, []secondary.StoreID{secondary.StoreDaily, secondary.StoreDeposits}, func(s *secondary.Snapshot) error {
		rec := s.Daily["UP32_05112025"]
		rec.Status = models.StatusDeposited
		s.PutDaily(rec)
		s.PutDeposit(&models.DepositRecord{
			ID:          "DEP_UP32_05112025_000",
			BusCode:     "UP32",
			Date:        "05/11/2025",
			Amount:      decimal.NewFromInt(1350),
			FromDaily:   decimal.NewFromInt(1350),
			DailyKeys:   []string{"UP32_05112025"},
			Sender:      "919900000001",
			DepositedAt: t0,
		})
		return nil
	})
	if err == nil {
		t.Fatal("expected error when the deposit store fails")
	}

	if got := string(store.data[secondary.StoreDaily]["UP32_05112025"]); got != before {
		t.Errorf("daily record not restored:\n got  %s\n want %s", got, before)
	}
	if len(store.data[secondary.StoreDeposits]) != 0 {
		t.Errorf("deposits = %v, want none", store.data[secondary.StoreDeposits])
	}
}

func TestLedger_UnlockedStoreCannotBeWritten(t *testing.T) {
	ledger := NewLedger(newMemStore(), nil)
	err := ledger.Update(context.Background(), []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		s.PutDeposit(&models.DepositRecord{ID: "DEP_UP32_05112025_000"})
		return nil
	})
	if err == nil {
		t.Fatal("expected error writing an unlocked store")
	}
}

func TestLedger_InvalidRecordsSurviveWriteBack(t *testing.T) {
	store := newMemStore()
	store.data[secondary.StoreDaily] = map[string]json.RawMessage{"BROKEN": json.RawMessage(`{"dated":"soon"}`)}
	ledger := NewLedger(store, nil)

	err := ledger.Update(context.Background(), []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		if len(s.Daily) != 0 {
			t.Errorf("invalid record decoded: %v", s.Daily)
		}
		s.PutDaily(daily("UP32_05112025", "05/11/2025", t0))
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, ok := store.data[secondary.StoreDaily]["BROKEN"]; !ok {
		t.Error("invalid record was dropped on write-back")
	}
}

func TestLedger_StatusLogAppend(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, nil)
	ctx := context.Background()

	for i, id := range []string{"a", "b"} {
		err := ledger.Update(ctx, []secondary.StoreID{secondary.StoreDailyStatusLog}, func(s *secondary.Snapshot) error {
			s.AppendDailyLog(models.StatusLogEntry{
				ID: id, Timestamp: t0.Add(time.Duration(i) * time.Minute),
				Status: models.StatusCollected, Keys: []string{"UP32_5112025"},
			})
			return nil
		})
		if err != nil {
			t.Fatalf("Update %d failed: %v", i, err)
		}
	}

	err := ledger.View(ctx, []secondary.StoreID{secondary.StoreDailyStatusLog}, func(s *secondary.Snapshot) error {
		if len(s.DailyLog) != 2 || s.DailyLog[0].ID != "a" || s.DailyLog[1].ID != "b" {
			t.Errorf("log = %+v", s.DailyLog)
		}
		if s.DailyLog[0].Keys[0] != "UP32_05112025" {
			t.Errorf("log key not normalized: %s", s.DailyLog[0].Keys[0])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
}

func TestLedger_MergeLastWriteWins(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, nil)
	ctx := context.Background()

	if err := ledger.Update(ctx, []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		s.PutDaily(daily("UP32_05112025", "05/11/2025", t0))
		s.PutDaily(daily("UP32_06112025", "06/11/2025", t0))
		return nil
	}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	newer := daily("", "05/11/2025", t0.Add(time.Hour))
	newer.Remarks = "synced"
	older := daily("", "06/11/2025", t0.Add(-time.Hour))
	older.Remarks = "stale"
	fresh := daily("", "07/11/2025", t0)

	incoming := map[string]json.RawMessage{
		"UP32_5112025":  mustJSON(t, newer),
		"UP32_06112025": mustJSON(t, older),
		"UP32_07112025": mustJSON(t, fresh),
		"UP32_08112025": json.RawMessage(`{"dated":"bad"}`),
	}
	res, err := ledger.Merge(ctx, secondary.StoreDaily, incoming)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if res.Added != 1 || res.Replaced != 1 || res.Kept != 1 || len(res.Rejected) != 1 {
		t.Errorf("result = %+v", res)
	}

	_ = ledger.View(ctx, []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
		if s.Daily["UP32_05112025"].Remarks != "synced" {
			t.Error("newer record did not replace")
		}
		if s.Daily["UP32_06112025"].Remarks == "stale" {
			t.Error("older record replaced newer one")
		}
		if _, ok := s.Daily["UP32_07112025"]; !ok {
			t.Error("new record not added")
		}
		return nil
	})
}

func TestLedger_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	store := newMemStore()
	ledger := NewLedger(store, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(day int) {
			defer wg.Done()
			dated := time.Date(2025, time.November, day, 0, 0, 0, 0, time.UTC)
			_ = ledger.Update(ctx, []secondary.StoreID{secondary.StoreDaily}, func(s *secondary.Snapshot) error {
				key := "UP32_" + dated.Format("02012006")
				s.PutDaily(daily(key, dated.Format("02/01/2006"), t0))
				return nil
			})
		}(i)
	}
	wg.Wait()

	if got := len(store.data[secondary.StoreDaily]); got != 20 {
		t.Errorf("records = %d, want 20", got)
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return data
}
