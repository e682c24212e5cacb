package poll

import "errors"

var (
	ErrNoActivePoll    = errors.New("no active poll")
	ErrPollExists      = errors.New("active poll already exists")
	ErrUnknownPollType = errors.New("unknown poll type")
	ErrPollExpired     = errors.New("poll has expired")
	ErrAlreadyJoined   = errors.New("user already joined")
	ErrNotJoined       = errors.New("user has not joined")

	// ErrEntryNotFound is returned by history repositories when an update
	// targets a record that does not exist. Updates must never create one.
	ErrEntryNotFound = errors.New("history entry not found")

	// ErrMessageNotFound is returned by the transport when the rendered
	// message no longer exists (deleted by an admin, chat purged, etc.).
	ErrMessageNotFound = errors.New("poll message not found")
)
