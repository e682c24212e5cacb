package poll

import "time"

// Trigger identifies what initiated a lifecycle operation.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// ActivePoll is the single in-memory record of the currently open poll.
// At most one exists process-wide; it is owned exclusively by the Service
// and handed out only as copies.
type ActivePoll struct {
	GroupID   int64
	PollType  string
	MessageID int

	CreatedAt time.Time
	ExpiresAt time.Time

	Pinned             bool
	UnpinOnClose       bool
	DeleteVoteMessages bool

	// RenderLost is set when the transport reports the rendered message
	// gone; further edits are skipped but the poll itself stays open.
	RenderLost bool

	Participants []Participant
}

// Expired reports whether the poll's deadline has passed at the given time.
func (p *ActivePoll) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// HasParticipant reports whether the user has joined.
func (p *ActivePoll) HasParticipant(userID int64) bool {
	for _, m := range p.Participants {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand outside the service lock.
func (p *ActivePoll) Clone() *ActivePoll {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Participants = append([]Participant(nil), p.Participants...)
	return &cp
}
