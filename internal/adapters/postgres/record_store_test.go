package postgres_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/example/fleetbot/internal/adapters/postgres"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// setupStore connects to FLEETBOT_TEST_PG or skips.
func setupStore(t *testing.T) *postgres.RecordStore {
	t.Helper()
	dsn := os.Getenv("FLEETBOT_TEST_PG")
	if dsn == "" {
		t.Skip("FLEETBOT_TEST_PG not set")
	}
	store, err := postgres.NewRecordStore(context.Background(), dsn)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		_, _ = store.Db.Exec(context.Background(), "DELETE FROM keyed_records WHERE store = ANY($1)",
			[]string{string(secondary.StoreDaily), string(secondary.StoreDeposits)})
		store.Close()
	})
	return store
}

func TestRecordStore_RoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	records := map[string]json.RawMessage{
		"UP32_05112025": json.RawMessage(`{"key":"UP32_05112025"}`),
	}
	if err := store.WriteAll(ctx, secondary.StoreDaily, records); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	got, err := store.ReadAll(ctx, secondary.StoreDaily)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(got["UP32_05112025"]) != `{"key":"UP32_05112025"}` {
		t.Errorf("payload = %s", got["UP32_05112025"])
	}

	if err := store.WriteAll(ctx, secondary.StoreDaily, map[string]json.RawMessage{}); err != nil {
		t.Fatalf("WriteAll(empty) failed: %v", err)
	}
	got, _ = store.ReadAll(ctx, secondary.StoreDaily)
	if len(got) != 0 {
		t.Errorf("expected empty store, got %d", len(got))
	}
}
