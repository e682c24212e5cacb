package poll

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultTickInterval is how often the evaluator wakes up. Coarser
	// than the fire window on purpose; the domain tolerates minute-level
	// slack.
	DefaultTickInterval = 30 * time.Second

	// DefaultFireWindow is how long after a rule's create time the rule
	// is still considered eligible to fire.
	DefaultFireWindow = 60 * time.Second
)

// ruleKey identifies a schedule rule for once-per-day dedup.
type ruleKey struct {
	GroupID  int64
	PollType string
	Day      Weekday
	CreateAt TimeOfDay
}

// civilDate is a calendar day in the evaluator's timezone.
type civilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func civilDateOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{y, m, d}
}

// Evaluator periodically expires the active poll past its deadline and
// fires schedule rules whose creation window has arrived. Each rule fires
// at most once per matching calendar day, whether or not its Create call
// actually produced a poll.
type Evaluator struct {
	service *Service
	config  ConfigSource
	logger  *slog.Logger

	loc    *time.Location
	tick   time.Duration
	window time.Duration
	now    func() time.Time

	lastFired map[ruleKey]civilDate
}

func NewEvaluator(service *Service, config ConfigSource, logger *slog.Logger, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{
		service:   service,
		config:    config,
		logger:    logger,
		loc:       loc,
		tick:      DefaultTickInterval,
		window:    DefaultFireWindow,
		now:       time.Now,
		lastFired: make(map[ruleKey]civilDate),
	}
}

// Run ticks until the context is cancelled.
func (e *Evaluator) Run(ctx context.Context) {
	e.logger.Info("schedule evaluator started",
		"tick", e.tick.String(), "window", e.window.String(), "tz", e.loc.String())

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("schedule evaluator stopped")
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick runs one evaluation pass: expiry first, then auto-creation.
// Failures in one unit of work never abort the rest of the tick.
func (e *Evaluator) Tick() {
	e.expirePass()
	e.createPass()
}

func (e *Evaluator) expirePass() {
	active := e.service.Active()
	if active == nil || !active.Expired(e.now()) {
		return
	}

	if _, err := e.service.Deactivate("expired"); err != nil && !errors.Is(err, ErrNoActivePoll) {
		e.logger.Error("failed to expire poll",
			"group_id", active.GroupID, "poll_type", active.PollType, "error", err)
	}
}

func (e *Evaluator) createPass() {
	now := e.now().In(e.loc)
	today := civilDateOf(now)

	for _, bound := range e.config.Rules() {
		rule := bound.Rule
		if rule.Day.Weekday() != now.Weekday() {
			continue
		}

		fireAt := rule.CreateAt.At(now, e.loc)
		if now.Before(fireAt) || !now.Before(fireAt.Add(e.window)) {
			continue
		}

		key := ruleKey{
			GroupID:  bound.GroupID,
			PollType: bound.PollType.Command,
			Day:      rule.Day,
			CreateAt: rule.CreateAt,
		}
		if e.lastFired[key] == today {
			continue
		}

		// Mark before inspecting the outcome: a rejected creation (poll
		// already open) must not be retried later in the same window.
		e.lastFired[key] = today

		_, err := e.service.Create(bound.GroupID, bound.PollType.Command, TriggerScheduled, &rule)
		switch {
		case err == nil:
		case errors.Is(err, ErrPollExists):
			e.logger.Info("scheduled poll skipped, another poll is active",
				"group_id", bound.GroupID, "poll_type", bound.PollType.Command)
		default:
			e.logger.Error("scheduled poll creation failed",
				"group_id", bound.GroupID, "poll_type", bound.PollType.Command, "error", err)
		}
	}
}
