package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/fleetbot/internal/ctxutil"
	"github.com/example/fleetbot/internal/ports/primary"
)

// mockConversation implements primary.ConversationService for testing.
type mockConversation struct {
	mu      sync.Mutex
	seen    []primary.InboundMessage
	actors  []string
	active  map[string]int
	overlap bool
	delay   time.Duration
	panicOn string
	failOn  string
}

func newMockConversation() *mockConversation {
	return &mockConversation{active: make(map[string]int)}
}

func (m *mockConversation) Handle(ctx context.Context, msg primary.InboundMessage) (primary.Reply, error) {
	m.mu.Lock()
	m.active[msg.SenderID]++
	if m.active[msg.SenderID] > 1 {
		m.overlap = true
	}
	m.seen = append(m.seen, msg)
	m.actors = append(m.actors, ctxutil.ActorFromContext(ctx))
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.active[msg.SenderID]--
		m.mu.Unlock()
	}()

	time.Sleep(m.delay)
	if msg.Text == m.panicOn {
		panic("boom")
	}
	if msg.Text == m.failOn {
		return primary.Reply{Texts: []string{"retry"}}, errors.New("store down")
	}
	return primary.Reply{Texts: []string{"echo " + msg.Text}}, nil
}

func (m *mockConversation) texts(sender string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, msg := range m.seen {
		if msg.SenderID == sender {
			out = append(out, msg.Text)
		}
	}
	return out
}

func TestDispatcher_FiltersMessages(t *testing.T) {
	conv := newMockConversation()
	roster := newMockRoster("BUS1")
	roster.users["allowed"] = true
	d := NewDispatcher(conv, &mockSender{}, roster, nil, 0)

	tests := []struct {
		name string
		msg  primary.InboundMessage
	}{
		{name: "from self", msg: primary.InboundMessage{SenderID: "allowed", Text: "hi", IsFromSelf: true}},
		{name: "empty", msg: primary.InboundMessage{SenderID: "allowed", Text: "  "}},
		{name: "unauthorized", msg: primary.InboundMessage{SenderID: "stranger", Text: "hi"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Enqueue(context.Background(), tt.msg); !errors.Is(err, ErrDropped) {
				t.Errorf("expected ErrDropped, got %v", err)
			}
		})
	}
	d.Wait()
	if len(conv.seen) != 0 {
		t.Errorf("expected nothing handled, got %d", len(conv.seen))
	}
}

func TestDispatcher_SerializesPerSender(t *testing.T) {
	conv := newMockConversation()
	conv.delay = time.Millisecond
	sender := &mockSender{}
	d := NewDispatcher(conv, sender, nil, nil, 0)

	for i := 0; i < 10; i++ {
		for _, who := range []string{"a", "b"} {
			msg := primary.InboundMessage{SenderID: who, Text: fmt.Sprintf("%d", i)}
			if err := d.Enqueue(context.Background(), msg); err != nil {
				t.Fatalf("enqueue: %v", err)
			}
		}
	}
	d.Wait()

	if conv.overlap {
		t.Error("expected no concurrent handling for one sender")
	}
	for _, who := range []string{"a", "b"} {
		got := conv.texts(who)
		if len(got) != 10 {
			t.Fatalf("expected 10 messages for %s, got %d", who, len(got))
		}
		for i, text := range got {
			if text != fmt.Sprintf("%d", i) {
				t.Errorf("sender %s: expected message %d in order, got %s", who, i, text)
			}
		}
	}
	if n := len(sender.messages()); n != 20 {
		t.Errorf("expected 20 replies sent, got %d", n)
	}
	for _, actor := range conv.actors {
		if actor != "a" && actor != "b" {
			t.Errorf("expected actor in context, got %q", actor)
		}
	}
}

func TestDispatcher_PanicIsolated(t *testing.T) {
	conv := newMockConversation()
	conv.panicOn = "explode"
	sender := &mockSender{}
	d := NewDispatcher(conv, sender, nil, nil, 0)

	_ = d.Enqueue(context.Background(), primary.InboundMessage{SenderID: "a", Text: "explode"})
	_ = d.Enqueue(context.Background(), primary.InboundMessage{SenderID: "a", Text: "after"})
	_ = d.Enqueue(context.Background(), primary.InboundMessage{SenderID: "b", Text: "other"})
	d.Wait()

	got := map[string]bool{}
	for _, m := range sender.messages() {
		got[m.To+":"+m.Text] = true
	}
	if !got["a:"+panicText] {
		t.Error("expected apology after panic")
	}
	if !got["a:echo after"] || !got["b:echo other"] {
		t.Errorf("expected later messages handled, got %v", got)
	}
}

func TestDispatcher_FailureStillReplies(t *testing.T) {
	conv := newMockConversation()
	conv.failOn = "save"
	sender := &mockSender{}
	d := NewDispatcher(conv, sender, nil, nil, 0)

	_ = d.Enqueue(context.Background(), primary.InboundMessage{SenderID: "a", Text: "save"})
	d.Wait()

	msgs := sender.messages()
	if len(msgs) != 1 || msgs[0].Text != "retry" {
		t.Errorf("expected retry reply to be sent, got %+v", msgs)
	}
}

func TestDispatcher_SendFailureNotRetried(t *testing.T) {
	conv := newMockConversation()
	sender := &mockSender{sendErr: errors.New("offline")}
	d := NewDispatcher(conv, sender, nil, nil, 0)

	_ = d.Enqueue(context.Background(), primary.InboundMessage{SenderID: "a", Text: "hi"})
	d.Wait()

	if len(conv.seen) != 1 {
		t.Errorf("expected message handled once, got %d", len(conv.seen))
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	conv := newMockConversation()
	sender := &mockSender{}
	d := NewDispatcher(conv, sender, nil, nil, 0)

	reply, err := d.Dispatch(context.Background(), primary.InboundMessage{SenderID: "a", Text: "ping"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(reply.Texts) != 1 || reply.Texts[0] != "echo ping" {
		t.Errorf("unexpected reply %+v", reply)
	}
	if len(sender.messages()) != 0 {
		t.Error("expected synchronous reply not to be sent")
	}
}

func TestDispatcher_QueueBound(t *testing.T) {
	conv := newMockConversation()
	conv.delay = 50 * time.Millisecond
	d := NewDispatcher(conv, &mockSender{}, nil, nil, 1)

	var full bool
	for i := 0; i < 5; i++ {
		err := d.Enqueue(context.Background(), primary.InboundMessage{SenderID: "a", Text: fmt.Sprintf("%d", i)})
		if errors.Is(err, ErrQueueFull) {
			full = true
		}
	}
	d.Wait()
	if !full {
		t.Error("expected the queue bound to reject messages")
	}
}
