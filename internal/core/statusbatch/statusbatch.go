// Package statusbatch plans batch status transitions.
// Guards are pure functions that evaluate preconditions without side effects.
package statusbatch

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/example/fleetbot/internal/core/form"
	"github.com/example/fleetbot/internal/models"
)

// ErrInvalidStatus is returned for a status word outside a feature's allow-list.
var ErrInvalidStatus = errors.New("invalid status")

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

var allowed = map[form.Feature][]models.Status{
	form.FeatureDaily:   {models.StatusCollected, models.StatusDeposited},
	form.FeatureBooking: {models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled},
}

// Queryable statuses additionally include each feature's initial status.
var queryable = map[form.Feature][]models.Status{
	form.FeatureDaily:   {models.StatusInitiated, models.StatusCollected, models.StatusDeposited},
	form.FeatureBooking: {models.StatusPending, models.StatusConfirmed, models.StatusCompleted, models.StatusCancelled},
}

var rank = map[models.Status]int{
	models.StatusInitiated: 0,
	models.StatusCollected: 1,
	models.StatusDeposited: 2,
	models.StatusPending:   0,
	models.StatusConfirmed: 1,
	models.StatusCompleted: 2,
	models.StatusCancelled: 2,
}

// ParseStatus resolves a status word against the feature's batch allow-list.
func ParseStatus(feature form.Feature, word string) (models.Status, error) {
	return match(allowed[feature], feature, word)
}

// ParseQueryStatus resolves a status word for a read-only status query.
func ParseQueryStatus(feature form.Feature, word string) (models.Status, error) {
	return match(queryable[feature], feature, word)
}

func match(list []models.Status, feature form.Feature, word string) (models.Status, error) {
	for _, s := range list {
		if strings.EqualFold(string(s), strings.TrimSpace(word)) {
			return s, nil
		}
	}
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = strings.ToLower(string(s))
	}
	return "", fmt.Errorf("%w %q for %s (use %s)", ErrInvalidStatus, word, feature, strings.Join(names, ", "))
}

// TransitionContext provides context for a single status transition guard.
type TransitionContext struct {
	Key    string
	From   models.Status
	To     models.Status
	Logged bool
}

// CanTransition evaluates whether a record may move to a new status.
// Rules:
// - The same key and status must not already be in the audit log
// - The record must not already hold the status
// - Statuses only move forward
func CanTransition(ctx TransitionContext) GuardResult {
	if ctx.Logged {
		return GuardResult{Reason: fmt.Sprintf("%s already recorded as %s", ctx.Key, strings.ToLower(string(ctx.To)))}
	}
	if ctx.From == ctx.To {
		return GuardResult{Reason: fmt.Sprintf("%s is already %s", ctx.Key, strings.ToLower(string(ctx.To)))}
	}
	if rank[ctx.To] <= rank[ctx.From] {
		return GuardResult{Reason: fmt.Sprintf("%s cannot move from %s to %s",
			ctx.Key, strings.ToLower(string(ctx.From)), strings.ToLower(string(ctx.To)))}
	}
	return GuardResult{Allowed: true}
}

// Target is a record addressed by a batch request.
type Target struct {
	Key    string
	Exists bool
	Status models.Status
}

// Skip is a key left untouched, with the reason reported to the user.
type Skip struct {
	Key    string
	Reason string
}

// Plan splits targets into keys to update and keys to skip.
type Plan struct {
	Apply   []string
	Skipped []Skip
}

// PlanBatch evaluates every target against the audit log. Duplicate keys are
// planned once.
func PlanBatch(status models.Status, targets []Target, log []models.StatusLogEntry) Plan {
	var plan Plan
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t.Key] {
			continue
		}
		seen[t.Key] = true
		if !t.Exists {
			plan.Skipped = append(plan.Skipped, Skip{Key: t.Key, Reason: "no record found"})
			continue
		}
		res := CanTransition(TransitionContext{
			Key:    t.Key,
			From:   t.Status,
			To:     status,
			Logged: logged(log, t.Key, status),
		})
		if !res.Allowed {
			plan.Skipped = append(plan.Skipped, Skip{Key: t.Key, Reason: res.Reason})
			continue
		}
		plan.Apply = append(plan.Apply, t.Key)
	}
	return plan
}

func logged(log []models.StatusLogEntry, key string, status models.Status) bool {
	for i := range log {
		if log[i].Contains(key, status) {
			return true
		}
	}
	return false
}

// UpdateCommand is a parsed "update status <dates> <status> [remarks <text>]".
type UpdateCommand struct {
	DateExpr string
	Status   string
	Remarks  string
}

var (
	updatePattern = regexp.MustCompile(`(?is)^\s*update\s+status\s+(.+?)\s+([a-z]+)(?:\s+remarks?\s+(.+?))?\s*$`)
	queryPattern  = regexp.MustCompile(`(?i)^\s*(daily|booking)\s+status\s+([a-z]+)\s*$`)
)

// ParseUpdateCommand recognizes a batch status update command.
func ParseUpdateCommand(text string) (UpdateCommand, bool) {
	m := updatePattern.FindStringSubmatch(text)
	if m == nil {
		return UpdateCommand{}, false
	}
	return UpdateCommand{DateExpr: strings.TrimSpace(m[1]), Status: m[2], Remarks: strings.TrimSpace(m[3])}, true
}

// ParseQueryCommand recognizes "<feature> status <status>".
func ParseQueryCommand(text string) (form.Feature, string, bool) {
	m := queryPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	f, _ := form.ParseFeature(m[1])
	return f, m[2], true
}
