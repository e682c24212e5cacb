package poll

// Transport renders poll state into the chat. All methods are synchronous;
// Pin and Unpin are best-effort and their failures never block lifecycle
// transitions.
type Transport interface {
	// SendPoll posts a new poll message and returns its message ID.
	SendPoll(groupID int64, text string) (int, error)

	// EditPoll replaces the text of a previously sent poll message.
	// Returns ErrMessageNotFound when the message no longer exists.
	EditPoll(groupID int64, messageID int, text string) error

	Pin(groupID int64, messageID int) error
	Unpin(groupID int64, messageID int) error
}
