package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/fleetbot/internal/ctxutil"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
	"github.com/example/fleetbot/internal/telemetry"
)

var (
	// ErrDropped is returned for a message filtered before handling.
	ErrDropped = errors.New("message dropped")
	// ErrQueueFull is returned when a sender has too many messages waiting.
	ErrQueueFull = errors.New("sender queue is full")
)

const panicText = "Something went wrong handling that message. Please try again."

// Dispatcher feeds inbound messages to the conversation service. Messages of
// one sender are handled strictly in arrival order; different senders run
// concurrently. A failing or panicking message never affects another.
type Dispatcher struct {
	handler   primary.ConversationService
	sender    secondary.MessageSender
	roster    secondary.Roster
	logger    *slog.Logger
	queueSize int

	mu     sync.Mutex
	queues map[string]*senderQueue
	wg     sync.WaitGroup
}

type senderQueue struct {
	items   []queued
	running bool
}

type queued struct {
	ctx  context.Context
	msg  primary.InboundMessage
	done chan primary.Reply
}

// NewDispatcher creates a dispatcher. queueSize bounds the messages waiting
// per sender; zero means unbounded.
func NewDispatcher(handler primary.ConversationService, sender secondary.MessageSender, roster secondary.Roster, logger *slog.Logger, queueSize int) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handler:   handler,
		sender:    sender,
		roster:    roster,
		logger:    logger,
		queueSize: queueSize,
		queues:    make(map[string]*senderQueue),
	}
}

// accept applies the inbound filters: own messages, empty text and senders
// missing from the allow-list never reach the conversation.
func (d *Dispatcher) accept(msg primary.InboundMessage) (string, bool) {
	switch {
	case msg.IsFromSelf:
		return "from self", false
	case strings.TrimSpace(msg.Text) == "":
		return "empty", false
	case d.roster != nil && !d.roster.Authorized(msg.SenderID):
		return "unauthorized", false
	}
	return "", true
}

// Enqueue queues a message for handling and returns immediately. Replies go
// out through the message sender.
func (d *Dispatcher) Enqueue(ctx context.Context, msg primary.InboundMessage) error {
	return d.enqueue(ctx, msg, nil)
}

// Dispatch handles a message and returns its reply instead of sending it.
// It still waits its turn behind earlier messages of the same sender.
func (d *Dispatcher) Dispatch(ctx context.Context, msg primary.InboundMessage) (primary.Reply, error) {
	done := make(chan primary.Reply, 1)
	if err := d.enqueue(ctx, msg, done); err != nil {
		return primary.Reply{}, err
	}
	select {
	case reply := <-done:
		return reply, nil
	case <-ctx.Done():
		return primary.Reply{}, ctx.Err()
	}
}

func (d *Dispatcher) enqueue(ctx context.Context, msg primary.InboundMessage, done chan primary.Reply) error {
	if reason, ok := d.accept(msg); !ok {
		telemetry.MessagesTotal.WithLabelValues(telemetry.OutcomeDropped).Inc()
		d.logger.Debug("message dropped", "sender", msg.SenderID, "reason", reason)
		return fmt.Errorf("%w: %s", ErrDropped, reason)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = time.Now()
	}

	d.mu.Lock()
	q, ok := d.queues[msg.SenderID]
	if !ok {
		q = &senderQueue{}
		d.queues[msg.SenderID] = q
	}
	if d.queueSize > 0 && len(q.items) >= d.queueSize {
		d.mu.Unlock()
		telemetry.MessagesTotal.WithLabelValues(telemetry.OutcomeDropped).Inc()
		d.logger.Warn("message dropped", "sender", msg.SenderID, "reason", "queue full")
		return ErrQueueFull
	}
	// The handler outlives the request or poll that delivered the message.
	q.items = append(q.items, queued{ctx: context.WithoutCancel(ctx), msg: msg, done: done})
	start := !q.running
	q.running = true
	if start {
		d.wg.Add(1)
	}
	d.mu.Unlock()

	if start {
		go d.drain(msg.SenderID, q)
	}
	return nil
}

func (d *Dispatcher) drain(senderID string, q *senderQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			delete(d.queues, senderID)
			d.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		d.mu.Unlock()

		reply := d.process(item.ctx, item.msg)
		if item.done != nil {
			item.done <- reply
			continue
		}
		d.send(item.ctx, item.msg.SenderID, reply)
	}
}

// process runs the handler for one message, recovering any panic.
func (d *Dispatcher) process(ctx context.Context, msg primary.InboundMessage) (reply primary.Reply) {
	ctx = ctxutil.WithActorID(ctx, msg.SenderID)
	ctx = ctxutil.WithMessageID(ctx, msg.ID)
	start := time.Now()
	defer func() {
		telemetry.HandleDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			telemetry.MessagesTotal.WithLabelValues(telemetry.OutcomePanic).Inc()
			d.logger.Error("message handler panicked",
				"sender", msg.SenderID,
				"message", msg.ID,
				"panic", fmt.Sprint(r))
			reply = primary.Reply{Texts: []string{panicText}}
		}
	}()

	reply, err := d.handler.Handle(ctx, msg)
	if err != nil {
		telemetry.MessagesTotal.WithLabelValues(telemetry.OutcomeFailed).Inc()
		d.logger.Error("message handling failed",
			"sender", msg.SenderID,
			"message", msg.ID,
			"error", err)
		return reply
	}
	telemetry.MessagesTotal.WithLabelValues(telemetry.OutcomeHandled).Inc()
	return reply
}

// send delivers a reply. Failures are logged and counted, never retried.
func (d *Dispatcher) send(ctx context.Context, recipient string, reply primary.Reply) {
	if d.sender == nil {
		return
	}
	for _, text := range reply.Texts {
		if err := d.sender.Send(ctx, recipient, text); err != nil {
			telemetry.SendFailures.Inc()
			d.logger.Error("failed to send reply", "recipient", recipient, "error", err)
		}
	}
}

// Wait blocks until every queued message has been handled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
