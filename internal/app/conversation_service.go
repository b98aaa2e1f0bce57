package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/example/fleetbot/internal/core/calc"
	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/core/session"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
	"github.com/example/fleetbot/internal/telemetry"
)

const retryText = "Could not save, please retry. Your entries are kept."

// errCollision aborts a submit that would silently replace another record.
var errCollision = errors.New("record already exists")

// ConversationServiceImpl implements the ConversationService interface.
// It owns the per-sender form state machine; callers serialize messages of
// one sender.
type ConversationServiceImpl struct {
	ledger   secondary.Ledger
	sessions secondary.SessionStore
	roster   secondary.Roster
	deposits primary.DepositService
	statuses primary.StatusService
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

var _ primary.ConversationService = (*ConversationServiceImpl)(nil)

// ConversationDeps groups the collaborators of the conversation service.
type ConversationDeps struct {
	Ledger   secondary.Ledger
	Sessions secondary.SessionStore
	Roster   secondary.Roster
	Deposits primary.DepositService
	Statuses primary.StatusService
	Location *time.Location
	Logger   *slog.Logger
}

// NewConversationService creates a new ConversationService with injected dependencies.
func NewConversationService(deps ConversationDeps) *ConversationServiceImpl {
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationServiceImpl{
		ledger:   deps.Ledger,
		sessions: deps.Sessions,
		roster:   deps.Roster,
		deposits: deps.Deposits,
		statuses: deps.Statuses,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// turn carries one message through the handlers.
type turn struct {
	ctx   context.Context
	sess  *session.Session
	msg   primary.InboundMessage
	text  string
	lower string
	now   time.Time

	out  []string
	drop bool
	err  error
}

func (t *turn) say(format string, args ...any) {
	t.out = append(t.out, fmt.Sprintf(format, args...))
}

// fail reports a persistence error. The session is kept as it was.
func (t *turn) fail(err error) {
	t.err = err
	t.say(retryText)
}

// Handle processes one message of a sender.
func (s *ConversationServiceImpl) Handle(ctx context.Context, msg primary.InboundMessage) (primary.Reply, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return primary.Reply{}, nil
	}
	now := s.now().In(s.loc)

	sess, ok := s.sessions.Get(ctx, msg.SenderID)
	if !ok {
		sess = session.New(msg.SenderID, now)
		if buses := s.roster.Buses(); len(buses) == 1 {
			sess.BusCode = buses[0].Code
		}
	}

	t := &turn{
		ctx:   ctx,
		sess:  sess,
		msg:   msg,
		text:  text,
		lower: strings.ToLower(text),
		now:   now,
	}
	s.route(t)

	if t.drop {
		s.sessions.Delete(ctx, msg.SenderID)
	} else {
		s.sessions.Set(ctx, sess)
	}
	return primary.Reply{Texts: t.out}, t.err
}

func (s *ConversationServiceImpl) route(t *turn) {
	if t.lower == "clear" {
		t.drop = true
		t.say("Cleared. Start again any time.")
		return
	}

	if t.sess.StrictlyPending() {
		// Only a yes or no moves a pending question forward. Anything else
		// is ignored without a reply.
		switch {
		case isYes(t.lower):
			s.answer(t, true)
		case isNo(t.lower):
			s.answer(t, false)
		}
		return
	}

	if s.command(t) {
		return
	}

	if t.sess.State() == session.StateWaitingForSubmit {
		switch {
		case isYes(t.lower):
			s.submit(t, false)
			return
		case isNo(t.lower):
			s.fire(t, session.EventSubmitCancelled)
			t.say("Submit cancelled. Send corrections, then yes to submit.")
			return
		}
	}

	s.extractFields(t)
}

func isYes(s string) bool { return s == "yes" || s == "y" }
func isNo(s string) bool  { return s == "no" || s == "n" }

// fire applies an event. An invalid event is a wiring bug; it is logged and
// the state stays unchanged.
func (s *ConversationServiceImpl) fire(t *turn, event string) {
	if err := t.sess.Fire(t.ctx, event); err != nil {
		s.logger.Warn("invalid session transition",
			"sender", t.sess.SenderID,
			"state", t.sess.State(),
			"event", event,
			"error", err)
	}
}

// answer resolves the yes/no question of a strictly pending state.
func (s *ConversationServiceImpl) answer(t *turn, yes bool) {
	switch t.sess.State() {
	case session.StateConfirmingFetch:
		s.answerFetch(t, yes)
	case session.StateAwaitingCancelChoice:
		if yes {
			s.reset(t)
			t.say("Discarded. Nothing was changed.")
			return
		}
		s.fire(t, session.EventResumeEditing)
		t.say("Editing %s. Send the fields to change.", t.sess.PendingKey)
		s.checkCompletion(t)
	case session.StateAwaitingFieldUpdate:
		s.answerFieldUpdate(t, yes)
	case session.StateConfirmingUpdate:
		if yes {
			s.submit(t, true)
			return
		}
		key := t.sess.PendingKey
		s.reset(t)
		t.say("Kept the existing record %s unchanged.", key)
	}
}

func (s *ConversationServiceImpl) answerFetch(t *turn, yes bool) {
	if !yes {
		t.sess.PendingKey = ""
		s.fire(t, session.EventFetchDeclined)
		t.say("OK, starting a new entry.")
		s.checkCompletion(t)
		return
	}

	rec, ok, err := s.lookupDaily(t.ctx, t.sess.PendingKey)
	if err != nil {
		t.fail(err)
		return
	}
	if !ok {
		t.sess.PendingKey = ""
		s.fire(t, session.EventFetchDeclined)
		t.say("That record is no longer there. Starting a new entry.")
		s.checkCompletion(t)
		return
	}

	loadDaily(t.sess, rec)
	t.sess.PendingKey = rec.Key
	t.sess.Editing = true
	s.fire(t, session.EventFetchAccepted)
	t.say("%s", summary(t.sess))
	t.say("Cancel and discard this edit? (yes = discard, no = continue editing)")
}

func (s *ConversationServiceImpl) answerFieldUpdate(t *turn, yes bool) {
	p := t.sess.Pending
	t.sess.Pending = nil
	s.fire(t, session.EventConflictResolved)
	if p == nil {
		s.checkCompletion(t)
		return
	}
	if !yes {
		t.say("Kept %s.", s.pendingLabel(t.sess, p))
		s.checkCompletion(t)
		return
	}

	def := t.sess.Definition()
	switch p.Kind {
	case session.PendingExpense:
		t.sess.PutExpense(p.Expense)
	default:
		if p.Field == def.KeyDate {
			d, err := datekey.Parse(p.Proposed, t.now)
			if err != nil {
				t.say("Invalid date %q.", p.Proposed)
				s.checkCompletion(t)
				return
			}
			if s.changeKeyDate(t, d, p.Proposed) {
				return
			}
		}
		t.sess.Fields[p.Field] = p.Proposed
	}
	calc.Recalc(def, t.sess.Fields, t.sess.Expenses)
	t.say("Updated %s.", s.pendingLabel(t.sess, p))
	s.checkCompletion(t)
}

func (s *ConversationServiceImpl) pendingLabel(sess *session.Session, p *session.PendingUpdate) string {
	if p.Kind == session.PendingExpense {
		return "expense " + p.Expense.Name
	}
	return sess.Definition().LabelOf(p.Field)
}

// checkCompletion moves between Idle and WaitingForSubmit and tells the user
// what is still missing.
func (s *ConversationServiceImpl) checkCompletion(t *turn) {
	def := t.sess.Definition()
	missing := calc.Missing(def, t.sess.Fields)
	if len(missing) == 0 {
		s.fire(t, session.EventComplete)
		t.say("%s", summary(t.sess))
		t.say("All fields are filled. Submit? (yes/no)")
		return
	}
	s.fire(t, session.EventIncomplete)
	t.say("%s", missingText(def, missing))
}

func (s *ConversationServiceImpl) reset(t *turn) {
	if err := t.sess.Reset(t.ctx); err != nil {
		s.logger.Warn("failed to reset session", "sender", t.sess.SenderID, "error", err)
	}
}

func (s *ConversationServiceImpl) lookupDaily(ctx context.Context, key string) (*models.DailyRecord, bool, error) {
	var rec *models.DailyRecord
	err := s.ledger.View(ctx, []secondary.StoreID{secondary.StoreDaily}, func(snap *secondary.Snapshot) error {
		rec = snap.Daily[datekey.NormalizeKey(key)]
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read daily records: %w", err)
	}
	return rec, rec != nil, nil
}

// submit persists the session form. A daily record colliding with another
// stored record asks for confirmation unless overwrite is set or the record
// is the one being edited.
func (s *ConversationServiceImpl) submit(t *turn, overwrite bool) {
	feature := t.sess.Feature
	var key string
	var replaced bool
	var err error
	if feature == form.FeatureBooking {
		key, err = s.saveBooking(t)
	} else {
		key, replaced, err = s.saveDaily(t, overwrite)
	}

	if errors.Is(err, ErrBusRequired) {
		t.say("Select a bus first: daily <BUS>")
		return
	}
	if errors.Is(err, errCollision) {
		t.sess.PendingKey = key
		s.fire(t, session.EventSubmitCollision)
		t.say("A record for %s already exists. Overwrite it? (yes/no)", key)
		return
	}
	if err != nil {
		t.fail(fmt.Errorf("failed to save %s record: %w", feature, err))
		return
	}

	kind := "created"
	if replaced {
		kind = "updated"
	}
	telemetry.SubmissionsTotal.WithLabelValues(string(feature), kind).Inc()
	s.logger.Info("record saved", "sender", t.sess.SenderID, "feature", feature, "key", key, "kind", kind)

	handover := t.sess.Fields[form.CashHandover]
	balance := t.sess.Fields[form.BalanceDue]
	s.reset(t)
	switch {
	case feature == form.FeatureDaily && handover != "":
		t.say("Saved %s. Cash handover: ₹%s", key, handover)
	case feature == form.FeatureBooking && balance != "":
		t.say("Saved booking %s. Balance due: ₹%s", key, balance)
	default:
		t.say("Saved %s.", key)
	}
}

func (s *ConversationServiceImpl) saveDaily(t *turn, overwrite bool) (string, bool, error) {
	sess := t.sess
	if sess.BusCode == "" {
		return "", false, ErrBusRequired
	}
	d, err := datekey.Parse(sess.Fields[form.Dated], t.now)
	if err != nil {
		return "", false, err
	}
	key := datekey.KeyFor(sess.BusCode, d)
	editingSame := sess.Editing && sess.PendingKey == key

	var replaced bool
	err = s.ledger.Update(t.ctx, []secondary.StoreID{secondary.StoreDaily}, func(snap *secondary.Snapshot) error {
		prev, exists := snap.Daily[key]
		if exists && !overwrite && !editingSame {
			return errCollision
		}
		rec := dailyFromSession(sess, key, t.msg.SenderID, t.now)
		if exists {
			rec.Status = prev.Status
			rec.DepositID = prev.DepositID
			replaced = true
		}
		snap.PutDaily(rec)
		return nil
	})
	return key, replaced, err
}

func (s *ConversationServiceImpl) saveBooking(t *turn) (string, error) {
	var key string
	err := s.ledger.Update(t.ctx, []secondary.StoreID{secondary.StoreBookings}, func(snap *secondary.Snapshot) error {
		millis := t.now.UnixMilli()
		for {
			key = "BK" + strconv.FormatInt(millis, 10)
			if _, taken := snap.Bookings[key]; !taken {
				break
			}
			millis++
		}
		snap.PutBooking(bookingFromSession(t.sess, key, t.msg.SenderID, t.now))
		return nil
	})
	return key, err
}
