package poll

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service is the poll lifecycle manager. It owns the single ActivePoll
// slot and is the only mutator of it. Every operation runs to completion
// under one lock, including its history write and transport side effects,
// so operations never observe a half-updated poll.
type Service struct {
	mu sync.Mutex

	config    ConfigSource
	history   HistoryRepository
	transport Transport
	logger    *slog.Logger

	// loc is the civil timezone schedule rules are interpreted in.
	// Deadlines are converted to UTC exactly once, at creation.
	loc *time.Location
	now func() time.Time

	active *ActivePoll
}

func NewService(config ConfigSource, history HistoryRepository, transport Transport, logger *slog.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		config:    config,
		history:   history,
		transport: transport,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// Create opens a new poll of the given type in the given group.
// Returns ErrPollExists while another poll is open anywhere, and
// ErrUnknownPollType when the group/command pair is not configured.
// A transport failure on the initial send aborts before any state is
// committed: no ActivePoll, no history entry.
func (s *Service) Create(groupID int64, pollType string, trigger Trigger, rule *ScheduleRule) (*ActivePoll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return nil, ErrPollExists
	}

	pt := s.config.Lookup(groupID, pollType)
	if pt == nil {
		return nil, ErrUnknownPollType
	}

	now := s.now()

	var (
		expiresAt   time.Time
		pin         bool
		unpin       bool
		deleteVotes bool
	)
	if trigger == TriggerScheduled && rule != nil {
		expiresAt = rule.ExpireAt.At(now, s.loc).UTC()
		pin = rule.Pin
		unpin = rule.Unpin
		deleteVotes = rule.DeleteVoteMessages
	} else {
		expiresAt = s.manualExpiry(pt, now)
		pin = pt.Manual.Pin
		unpin = pt.Manual.Unpin
	}

	messageID, err := s.transport.SendPoll(groupID, RenderOpen(pt.Question, nil))
	if err != nil {
		return nil, fmt.Errorf("send poll message: %w", err)
	}

	pinned := false
	if pin {
		if err := s.transport.Pin(groupID, messageID); err != nil {
			s.logger.Warn("failed to pin poll message",
				"group_id", groupID, "message_id", messageID, "error", err)
		} else {
			pinned = true
		}
	}

	s.active = &ActivePoll{
		GroupID:            groupID,
		PollType:           pollType,
		MessageID:          messageID,
		CreatedAt:          now.UTC(),
		ExpiresAt:          expiresAt,
		Pinned:             pinned,
		UnpinOnClose:       unpin,
		DeleteVoteMessages: deleteVotes,
		Participants:       []Participant{},
	}

	entry := &HistoryEntry{
		GroupID:            groupID,
		MessageID:          messageID,
		PollType:           pollType,
		Participants:       []Participant{},
		CreatedAt:          s.active.CreatedAt,
		ExpiresAt:          expiresAt,
		Active:             true,
		Pinned:             pinned,
		UnpinOnClose:       unpin,
		DeleteVoteMessages: deleteVotes,
	}
	if err := s.history.Append(entry); err != nil {
		// In-memory state stays authoritative; recovery after a crash
		// would be stale, which we accept over failing the poll.
		s.logger.Error("failed to append history entry",
			"group_id", groupID, "message_id", messageID, "error", err)
	}

	s.logger.Info("poll created",
		"group_id", groupID,
		"poll_type", pollType,
		"trigger", trigger,
		"message_id", messageID,
		"expires_at", expiresAt.Format(time.RFC3339),
	)

	return s.active.Clone(), nil
}

// manualExpiry picks the nearest upcoming scheduled expiry across the poll
// type's rules, falling back to the manual TTL when no rules exist.
func (s *Service) manualExpiry(pt *PollType, now time.Time) time.Time {
	var nearest time.Time
	for _, rule := range pt.Schedule {
		candidate := rule.ExpireAt.At(now, s.loc)
		for i := 0; i < 7; i++ {
			if candidate.Weekday() == rule.Day.Weekday() && candidate.After(now) {
				break
			}
			candidate = rule.ExpireAt.At(candidate.AddDate(0, 0, 1), s.loc)
		}
		if nearest.IsZero() || candidate.Before(nearest) {
			nearest = candidate
		}
	}
	if !nearest.IsZero() {
		return nearest.UTC()
	}

	ttl := pt.Manual.TTLMinutes
	if ttl <= 0 {
		ttl = DefaultManualTTLMinutes
	}
	return now.Add(time.Duration(ttl) * time.Minute).UTC()
}

// Join adds the user to the active poll's participant list.
// Returns ErrNoActivePoll when idle, ErrPollExpired when the deadline has
// passed (the caller should deactivate instead), and ErrAlreadyJoined when
// the user is already listed.
func (s *Service) Join(userID int64, username, fullName string) (*ActivePoll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, ErrNoActivePoll
	}
	if s.active.Expired(s.now()) {
		return nil, ErrPollExpired
	}
	if s.active.HasParticipant(userID) {
		return nil, ErrAlreadyJoined
	}

	s.active.Participants = append(s.active.Participants, Participant{
		UserID:   userID,
		Username: username,
		FullName: fullName,
	})

	s.logger.Info("participant joined",
		"group_id", s.active.GroupID, "user_id", userID, "username", username,
		"count", len(s.active.Participants))

	s.persistParticipants()
	s.rerender()

	return s.active.Clone(), nil
}

// Leave removes the user, preserving the relative order of everyone else.
// Returns ErrNotJoined when the user is not listed.
func (s *Service) Leave(userID int64) (*ActivePoll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, ErrNoActivePoll
	}
	if s.active.Expired(s.now()) {
		return nil, ErrPollExpired
	}
	if !s.active.HasParticipant(userID) {
		return nil, ErrNotJoined
	}

	kept := s.active.Participants[:0]
	for _, p := range s.active.Participants {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	s.active.Participants = kept

	s.logger.Info("participant left",
		"group_id", s.active.GroupID, "user_id", userID,
		"count", len(s.active.Participants))

	s.persistParticipants()
	s.rerender()

	return s.active.Clone(), nil
}

// Deactivate closes the active poll: best-effort unpin, final render with
// the participant list frozen at call time, history entry flipped to
// inactive, slot freed. Returns ErrNoActivePoll when idle.
func (s *Service) Deactivate(reason string) (*ActivePoll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return nil, ErrNoActivePoll
	}

	p := s.active

	if p.Pinned && p.UnpinOnClose {
		if err := s.transport.Unpin(p.GroupID, p.MessageID); err != nil {
			s.logger.Warn("failed to unpin poll message",
				"group_id", p.GroupID, "message_id", p.MessageID, "error", err)
		} else {
			p.Pinned = false
		}
	}

	if pt := s.config.Lookup(p.GroupID, p.PollType); pt != nil && !p.RenderLost {
		if err := s.transport.EditPoll(p.GroupID, p.MessageID, RenderClosed(pt.Question, p.Participants)); err != nil {
			s.logger.Warn("failed to render closed poll",
				"group_id", p.GroupID, "message_id", p.MessageID, "error", err)
		}
	}

	snapshot := append([]Participant(nil), p.Participants...)
	active := false
	pinned := p.Pinned
	if err := s.history.Update(p.GroupID, p.MessageID, HistoryUpdate{
		Participants: &snapshot,
		Active:       &active,
		Pinned:       &pinned,
	}); err != nil {
		s.logger.Error("failed to close history entry",
			"group_id", p.GroupID, "message_id", p.MessageID, "error", err)
	}

	s.active = nil

	s.logger.Info("poll deactivated",
		"group_id", p.GroupID,
		"poll_type", p.PollType,
		"reason", reason,
		"participants", len(snapshot),
	)

	return p, nil
}

// Active returns a snapshot of the current poll, or nil when idle.
func (s *Service) Active() *ActivePoll {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active.Clone()
}

// History returns the retained poll records, newest first.
func (s *Service) History() ([]*HistoryEntry, error) {
	return s.history.LoadAll()
}

// Recover restores the active poll slot from the newest active history
// entry, if any. Further active entries are anomalies under the
// single-active invariant: they are logged and left untouched in storage.
// A recovered poll whose deadline already passed is closed by the next
// evaluator tick.
func (s *Service) Recover() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.history.LoadAll()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	var newest *HistoryEntry
	for _, e := range entries {
		if !e.Active {
			continue
		}
		if newest == nil {
			newest = e
			continue
		}
		s.logger.Error("recovery anomaly: extra active history entry",
			"error", fmt.Errorf("entry %d (group %d, message %d) still active", e.ID, e.GroupID, e.MessageID))
	}
	if newest == nil {
		return nil
	}

	s.active = &ActivePoll{
		GroupID:            newest.GroupID,
		PollType:           newest.PollType,
		MessageID:          newest.MessageID,
		CreatedAt:          newest.CreatedAt.UTC(),
		ExpiresAt:          newest.ExpiresAt.UTC(),
		Pinned:             newest.Pinned,
		UnpinOnClose:       newest.UnpinOnClose,
		DeleteVoteMessages: newest.DeleteVoteMessages,
		Participants:       append([]Participant{}, newest.Participants...),
	}

	s.logger.Info("active poll recovered",
		"group_id", newest.GroupID,
		"poll_type", newest.PollType,
		"message_id", newest.MessageID,
		"participants", len(newest.Participants),
		"expires_at", newest.ExpiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}

// persistParticipants mirrors the in-memory participant list into the
// poll's history entry. Called with the lock held.
func (s *Service) persistParticipants() {
	snapshot := append([]Participant(nil), s.active.Participants...)
	err := s.history.Update(s.active.GroupID, s.active.MessageID, HistoryUpdate{
		Participants: &snapshot,
	})
	if err != nil {
		s.logger.Error("failed to update history participants",
			"group_id", s.active.GroupID, "message_id", s.active.MessageID, "error", err)
	}
}

// rerender pushes the current participant list into the chat message.
// Called with the lock held. A missing message drops the render linkage
// but never fails the operation.
func (s *Service) rerender() {
	if s.active.RenderLost {
		return
	}
	pt := s.config.Lookup(s.active.GroupID, s.active.PollType)
	if pt == nil {
		return
	}

	err := s.transport.EditPoll(s.active.GroupID, s.active.MessageID, RenderOpen(pt.Question, s.active.Participants))
	switch {
	case err == nil:
	case errors.Is(err, ErrMessageNotFound):
		s.active.RenderLost = true
		s.logger.Warn("poll message gone, dropping render linkage",
			"group_id", s.active.GroupID, "message_id", s.active.MessageID)
	default:
		s.logger.Warn("failed to update poll message",
			"group_id", s.active.GroupID, "message_id", s.active.MessageID, "error", err)
	}
}
