package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nuclight.org/rollcall/internal/poll"
)

// DefaultHistoryLimit bounds the rolling poll log when no limit is configured.
const DefaultHistoryLimit = 10

// HistoryRepository persists the bounded newest-first poll log.
type HistoryRepository struct {
	db    *DB
	limit int
}

func NewHistoryRepository(db *DB, limit int) *HistoryRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryRepository{db: db, limit: limit}
}

func (r *HistoryRepository) Append(e *poll.HistoryEntry) error {
	participants, err := json.Marshal(e.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	result, err := r.db.db.Exec(`
		INSERT INTO history (group_id, message_id, poll_type, participants, created_at, expires_at, active, pinned, unpin_on_close, delete_votes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.GroupID, e.MessageID, e.PollType, string(participants),
		e.CreatedAt.UTC(), e.ExpiresAt.UTC(), e.Active, e.Pinned, e.UnpinOnClose, e.DeleteVoteMessages)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	e.ID = id

	// Drop the oldest entries beyond the retention limit.
	_, err = r.db.db.Exec(`
		DELETE FROM history WHERE id NOT IN (
			SELECT id FROM history ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, r.limit)
	if err != nil {
		return fmt.Errorf("truncate history: %w", err)
	}
	return nil
}

// Update merges the given fields into the entry identified by
// (groupID, messageID). Returns poll.ErrEntryNotFound when the entry does
// not exist; it never creates one.
func (r *HistoryRepository) Update(groupID int64, messageID int, upd poll.HistoryUpdate) error {
	var (
		sets []string
		args []any
	)
	if upd.Participants != nil {
		participants, err := json.Marshal(*upd.Participants)
		if err != nil {
			return fmt.Errorf("marshal participants: %w", err)
		}
		sets = append(sets, "participants = ?")
		args = append(args, string(participants))
	}
	if upd.Active != nil {
		sets = append(sets, "active = ?")
		args = append(args, *upd.Active)
	}
	if upd.Pinned != nil {
		sets = append(sets, "pinned = ?")
		args = append(args, *upd.Pinned)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, groupID, messageID)
	result, err := r.db.db.Exec(
		"UPDATE history SET "+strings.Join(sets, ", ")+" WHERE group_id = ? AND message_id = ?",
		args...,
	)
	if err != nil {
		return fmt.Errorf("update history entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return poll.ErrEntryNotFound
	}
	return nil
}

// LoadAll returns all retained entries, newest first.
func (r *HistoryRepository) LoadAll() ([]*poll.HistoryEntry, error) {
	rows, err := r.db.db.Query(`
		SELECT id, group_id, message_id, poll_type, participants, created_at, expires_at, active, pinned, unpin_on_close, delete_votes
		FROM history
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*poll.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (*poll.HistoryEntry, error) {
	var (
		e            poll.HistoryEntry
		participants string
		createdAt    time.Time
		expiresAt    time.Time
	)
	err := rows.Scan(
		&e.ID, &e.GroupID, &e.MessageID, &e.PollType, &participants,
		&createdAt, &expiresAt, &e.Active, &e.Pinned, &e.UnpinOnClose, &e.DeleteVoteMessages,
	)
	if err != nil {
		return nil, fmt.Errorf("scan history entry: %w", err)
	}

	if err := json.Unmarshal([]byte(participants), &e.Participants); err != nil {
		return nil, fmt.Errorf("unmarshal participants: %w", err)
	}
	e.CreatedAt = createdAt.UTC()
	e.ExpiresAt = expiresAt.UTC()
	return &e, nil
}
