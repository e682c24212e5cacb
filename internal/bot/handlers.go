package bot

import (
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"

	"nuclight.org/rollcall/internal/poll"
)

func (b *Bot) RegisterHandlers() {
	b.bot.Handle(tele.OnText, b.handleJoinLeave)
}

// handleJoinLeave processes "+" (join) and "-" (leave) messages against
// the active poll. Messages from chats other than the poll's are ignored,
// as is everything that isn't exactly "+" or "-".
func (b *Bot) handleJoinLeave(c tele.Context) error {
	text := strings.TrimSpace(c.Text())
	if text != "+" && text != "-" {
		return nil
	}

	active := b.polls.Active()
	if active == nil || active.GroupID != c.Chat().ID {
		return nil
	}

	sender := c.Sender()
	if sender == nil {
		return nil
	}

	var err error
	if text == "+" {
		_, err = b.polls.Join(sender.ID, sender.Username, fullName(sender))
	} else {
		_, err = b.polls.Leave(sender.ID)
	}

	switch {
	case err == nil:
		b.deleteVoteMessage(c, active)
	case errors.Is(err, poll.ErrPollExpired):
		// The deadline passed between ticks; close the poll now.
		if _, err := b.polls.Deactivate("expired"); err != nil && !errors.Is(err, poll.ErrNoActivePoll) {
			b.logger.Error("failed to close expired poll", "error", err)
		}
	case errors.Is(err, poll.ErrNoActivePoll),
		errors.Is(err, poll.ErrAlreadyJoined),
		errors.Is(err, poll.ErrNotJoined):
		// No-ops by design: repeated joins and leaves change nothing.
	default:
		b.logger.Error("failed to process join/leave",
			"user_id", sender.ID, "chat_id", c.Chat().ID, "error", err)
	}

	return nil
}

// deleteVoteMessage removes the triggering "+"/"-" message when the
// poll's policy asks for a clean chat.
func (b *Bot) deleteVoteMessage(c tele.Context, active *poll.ActivePoll) {
	if !active.DeleteVoteMessages {
		return
	}
	if err := c.Delete(); err != nil {
		b.logger.Debug("failed to delete vote message", "error", err)
	}
}

func fullName(u *tele.User) string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}
