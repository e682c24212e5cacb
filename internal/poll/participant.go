package poll

import "strings"

// Participant is a user who joined the active poll.
// Identity is the Telegram user ID; username and full name are display-only.
type Participant struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	FullName string `json:"full_name"`
}

// NormalizeUsername normalizes a Telegram username to lowercase.
// Telegram usernames are case-insensitive, so we compare them lowercase.
func NormalizeUsername(username string) string {
	return strings.ToLower(username)
}

// DisplayName returns the best available display name.
// Priority: @username > full name.
func (p Participant) DisplayName() string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return p.FullName
}

// LongName returns "@username — full name" when both are known.
func (p Participant) LongName() string {
	if p.Username != "" && p.FullName != "" {
		return "@" + p.Username + " — " + p.FullName
	}
	return p.DisplayName()
}
