package app

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/fleetbot/internal/core/session"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
)

// Ensure mocks implement the interfaces
var (
	_ secondary.Ledger        = (*mockLedger)(nil)
	_ secondary.Roster        = (*mockRoster)(nil)
	_ secondary.SessionStore  = (*mockSessionStore)(nil)
	_ secondary.MessageSender = (*mockSender)(nil)
)

// mockLedger implements secondary.Ledger over one in-memory snapshot.
// Update works on a copy and commits it only when fn succeeds.
type mockLedger struct {
	mu        sync.Mutex
	snap      *secondary.Snapshot
	viewErr   error
	updateErr error
	mergeErr  error
	updates   int
	merged    map[string]json.RawMessage
}

func newMockLedger() *mockLedger {
	return &mockLedger{snap: secondary.NewSnapshot()}
}

func (m *mockLedger) View(ctx context.Context, stores []secondary.StoreID, fn func(*secondary.Snapshot) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.viewErr != nil {
		return m.viewErr
	}
	return fn(cloneSnapshot(m.snap))
}

func (m *mockLedger) Update(ctx context.Context, stores []secondary.StoreID, fn func(*secondary.Snapshot) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	work := cloneSnapshot(m.snap)
	if err := fn(work); err != nil {
		return err
	}
	if len(work.Dirty()) > 0 {
		m.updates++
	}
	m.snap = work
	return nil
}

func (m *mockLedger) Merge(ctx context.Context, store secondary.StoreID, incoming map[string]json.RawMessage) (secondary.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mergeErr != nil {
		return secondary.MergeResult{}, m.mergeErr
	}
	m.merged = incoming
	return secondary.MergeResult{Added: len(incoming)}, nil
}

func cloneSnapshot(src *secondary.Snapshot) *secondary.Snapshot {
	out := secondary.NewSnapshot()
	for k, r := range src.Daily {
		c := *r
		c.ExtraExpenses = append([]models.ExpenseItem(nil), r.ExtraExpenses...)
		out.Daily[k] = &c
	}
	for k, r := range src.Bookings {
		c := *r
		out.Bookings[k] = &c
	}
	for k, r := range src.Deposits {
		c := *r
		out.Deposits[k] = &c
	}
	out.DailyLog = append([]models.StatusLogEntry(nil), src.DailyLog...)
	out.BookingLog = append([]models.StatusLogEntry(nil), src.BookingLog...)
	return out
}

// mockRoster implements secondary.Roster for testing.
type mockRoster struct {
	buses map[string]models.Bus
	users map[string]bool
}

func newMockRoster(codes ...string) *mockRoster {
	r := &mockRoster{buses: make(map[string]models.Bus), users: make(map[string]bool)}
	for _, c := range codes {
		r.buses[c] = models.Bus{Code: c, Name: "Bus " + c}
	}
	return r
}

func (m *mockRoster) Bus(code string) (models.Bus, bool) {
	b, ok := m.buses[strings.ToUpper(code)]
	return b, ok
}

func (m *mockRoster) Buses() []models.Bus {
	var out []models.Bus
	for _, b := range m.buses {
		out = append(out, b)
	}
	return out
}

func (m *mockRoster) User(id string) (models.User, bool) {
	if m.users[id] {
		return models.User{ID: id}, true
	}
	return models.User{}, false
}

func (m *mockRoster) Authorized(senderID string) bool {
	return len(m.users) == 0 || m.users[senderID]
}

// mockSessionStore implements secondary.SessionStore for testing.
type mockSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*session.Session)}
}

func (m *mockSessionStore) Get(ctx context.Context, senderID string) (*session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[senderID]
	return s, ok
}

func (m *mockSessionStore) Set(ctx context.Context, s *session.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SenderID] = s
}

func (m *mockSessionStore) Delete(ctx context.Context, senderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, senderID)
}

// mockSender implements secondary.MessageSender for testing.
type mockSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	sendErr error
}

type sentMessage struct {
	To   string
	Text string
}

func (m *mockSender) Send(ctx context.Context, recipientID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{To: recipientID, Text: text})
	return nil
}

func (m *mockSender) messages() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// fixedNow is the clock used by service tests.
var fixedNow = time.Date(2025, time.November, 5, 10, 30, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func dailyRecord(bus, dated string, handover int64, status models.Status) *models.DailyRecord {
	key := bus + "_" + strings.ReplaceAll(dated, "/", "")
	return &models.DailyRecord{
		Key:          key,
		BusCode:      bus,
		Dated:        dated,
		CashHandover: dec(handover),
		Status:       status,
		SubmittedAt:  fixedNow.Add(-time.Hour),
	}
}

func replyText(r primary.Reply) string {
	return strings.Join(r.Texts, "\n")
}
