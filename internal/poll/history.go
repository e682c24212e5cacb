package poll

import "time"

// HistoryEntry is a persisted record of a poll, open or closed.
// The store keeps the most recent entries only, newest first.
type HistoryEntry struct {
	ID                 int64
	GroupID            int64
	MessageID          int
	PollType           string
	Participants       []Participant
	CreatedAt          time.Time
	ExpiresAt          time.Time
	Active             bool
	Pinned             bool
	UnpinOnClose       bool
	DeleteVoteMessages bool
}

// HistoryUpdate carries the fields an update merges into an existing entry.
// Nil fields are left untouched.
type HistoryUpdate struct {
	Participants *[]Participant
	Active       *bool
	Pinned       *bool
}

// HistoryRepository is the durable bounded log of poll records.
type HistoryRepository interface {
	// Append inserts a new entry at the head and truncates the log to its
	// configured maximum length. The write completes before returning.
	Append(e *HistoryEntry) error

	// Update locates an entry by (groupID, messageID) and merges the given
	// fields. Returns ErrEntryNotFound when no such entry exists; it must
	// never create one.
	Update(groupID int64, messageID int, upd HistoryUpdate) error

	// LoadAll returns all retained entries, newest first.
	LoadAll() ([]*HistoryEntry, error)
}
