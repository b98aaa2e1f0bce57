package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/fleetbot/internal/core/datekey"
	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/core/statusbatch"
	"github.com/example/fleetbot/internal/models"
	"github.com/example/fleetbot/internal/ports/primary"
	"github.com/example/fleetbot/internal/ports/secondary"
	"github.com/example/fleetbot/internal/telemetry"
)

// StatusServiceImpl implements the StatusService interface.
type StatusServiceImpl struct {
	ledger       secondary.Ledger
	loc          *time.Location
	maxRangeDays int
	now          func() time.Time
	newID        func() string
}

var _ primary.StatusService = (*StatusServiceImpl)(nil)

// NewStatusService creates a new StatusService with injected dependencies.
func NewStatusService(ledger secondary.Ledger, loc *time.Location, maxRangeDays int) *StatusServiceImpl {
	if loc == nil {
		loc = time.Local
	}
	return &StatusServiceImpl{
		ledger:       ledger,
		loc:          loc,
		maxRangeDays: maxRangeDays,
		now:          time.Now,
		newID:        func() string { return uuid.NewString() },
	}
}

func storesFor(feature form.Feature) []secondary.StoreID {
	if feature == form.FeatureBooking {
		return []secondary.StoreID{secondary.StoreBookings, secondary.StoreBookingStatusLog}
	}
	return []secondary.StoreID{secondary.StoreDaily, secondary.StoreDailyStatusLog}
}

// UpdateStatus applies a batch status transition and appends one audit entry
// listing exactly the keys that changed. Running the same batch twice changes
// nothing the second time.
func (s *StatusServiceImpl) UpdateStatus(ctx context.Context, req primary.StatusUpdateRequest) (*primary.StatusUpdateResult, error) {
	feature, ok := form.ParseFeature(req.Feature)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, req.Feature)
	}
	status, err := statusbatch.ParseStatus(feature, req.Status)
	if err != nil {
		return nil, err
	}
	busCode := strings.ToUpper(strings.TrimSpace(req.BusCode))
	if feature == form.FeatureDaily && busCode == "" {
		return nil, ErrBusRequired
	}
	now := s.now().In(s.loc)
	dates, err := datekey.Expand(req.DateExpr, now, s.maxRangeDays)
	if err != nil {
		return nil, err
	}

	result := &primary.StatusUpdateResult{Status: status}
	err = s.ledger.Update(ctx, storesFor(feature), func(snap *secondary.Snapshot) error {
		var targets []statusbatch.Target
		var log []models.StatusLogEntry
		if feature == form.FeatureBooking {
			targets = bookingTargets(snap, busCode, dates)
			log = snap.BookingLog
		} else {
			targets = dailyTargets(snap, busCode, dates)
			log = snap.DailyLog
		}

		plan := statusbatch.PlanBatch(status, targets, log)
		for _, sk := range plan.Skipped {
			result.Skipped = append(result.Skipped, primary.SkippedKey{Key: sk.Key, Reason: sk.Reason})
		}
		if len(plan.Apply) == 0 {
			return nil
		}

		for _, key := range plan.Apply {
			if feature == form.FeatureBooking {
				r := snap.Bookings[key]
				r.Status = status
				snap.PutBooking(r)
			} else {
				r := snap.Daily[key]
				r.Status = status
				snap.PutDaily(r)
			}
		}
		entry := models.StatusLogEntry{
			ID:        s.newID(),
			Timestamp: now,
			Status:    status,
			Keys:      plan.Apply,
			Remarks:   req.Remarks,
			Actor:     req.Actor,
		}
		if feature == form.FeatureBooking {
			snap.AppendBookingLog(entry)
		} else {
			snap.AppendDailyLog(entry)
		}
		result.Updated = plan.Apply
		result.LogEntryID = entry.ID
		return nil
	})
	if err != nil {
		telemetry.StatusUpdatesTotal.WithLabelValues(string(feature), "error").Inc()
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	outcome := "updated"
	if len(result.Updated) == 0 {
		outcome = "skipped"
	}
	telemetry.StatusUpdatesTotal.WithLabelValues(string(feature), outcome).Inc()
	return result, nil
}

func dailyTargets(snap *secondary.Snapshot, busCode string, dates []time.Time) []statusbatch.Target {
	targets := make([]statusbatch.Target, 0, len(dates))
	for _, d := range dates {
		key := datekey.KeyFor(busCode, d)
		r, ok := snap.Daily[key]
		t := statusbatch.Target{Key: key, Exists: ok}
		if ok {
			t.Status = r.Status
		}
		targets = append(targets, t)
	}
	return targets
}

// bookingTargets matches bookings by travel date. A date without any booking
// becomes a missing target under its DD/MM/YYYY form.
func bookingTargets(snap *secondary.Snapshot, busCode string, dates []time.Time) []statusbatch.Target {
	byDate := make(map[string][]*models.BookingRecord)
	for _, key := range sortedBookingKeys(snap) {
		r := snap.Bookings[key]
		if busCode != "" && !strings.EqualFold(r.BusCode, busCode) {
			continue
		}
		byDate[r.TravelDate] = append(byDate[r.TravelDate], r)
	}

	var targets []statusbatch.Target
	for _, d := range dates {
		date := datekey.Format(d)
		matches := byDate[date]
		if len(matches) == 0 {
			targets = append(targets, statusbatch.Target{Key: date})
			continue
		}
		for _, r := range matches {
			targets = append(targets, statusbatch.Target{Key: r.Key, Exists: true, Status: r.Status})
		}
	}
	return targets
}

// QueryStatus lists record keys currently holding a status, sorted.
func (s *StatusServiceImpl) QueryStatus(ctx context.Context, q primary.StatusQuery) ([]string, error) {
	feature, ok := form.ParseFeature(q.Feature)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, q.Feature)
	}
	status, err := statusbatch.ParseQueryStatus(feature, q.Status)
	if err != nil {
		return nil, err
	}

	var keys []string
	err = s.ledger.View(ctx, storesFor(feature)[:1], func(snap *secondary.Snapshot) error {
		if feature == form.FeatureBooking {
			for key, r := range snap.Bookings {
				if r.Status == status && (q.BusCode == "" || strings.EqualFold(r.BusCode, q.BusCode)) {
					keys = append(keys, key)
				}
			}
			return nil
		}
		for key, r := range snap.Daily {
			if r.Status == status && (q.BusCode == "" || strings.EqualFold(r.BusCode, q.BusCode)) {
				keys = append(keys, key)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query status: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}
