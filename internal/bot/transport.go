package bot

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	"nuclight.org/rollcall/internal/poll"
)

// messageRef builds an Editable for a message we only know by IDs.
func messageRef(chatID int64, messageID int) *tele.Message {
	return &tele.Message{ID: messageID, Chat: &tele.Chat{ID: chatID}}
}

// isMessageGone reports whether the Telegram error means the target
// message no longer exists.
func isMessageGone(err error) bool {
	s := err.Error()
	return strings.Contains(s, "message to edit not found") ||
		strings.Contains(s, "message not found") ||
		strings.Contains(s, "MESSAGE_ID_INVALID")
}

// SendPoll implements poll.Transport.
func (b *Bot) SendPoll(groupID int64, text string) (int, error) {
	msg, err := b.bot.Send(&tele.Chat{ID: groupID}, text)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// EditPoll implements poll.Transport. A vanished message maps to
// poll.ErrMessageNotFound; an unchanged text is not an error.
func (b *Bot) EditPoll(groupID int64, messageID int, text string) error {
	_, err := b.bot.Edit(messageRef(groupID, messageID), text)
	if err == nil {
		return nil
	}
	if isMessageGone(err) {
		return poll.ErrMessageNotFound
	}
	if strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

// Pin implements poll.Transport.
func (b *Bot) Pin(groupID int64, messageID int) error {
	return b.bot.Pin(messageRef(groupID, messageID))
}

// Unpin implements poll.Transport.
func (b *Bot) Unpin(groupID int64, messageID int) error {
	return b.bot.Unpin(&tele.Chat{ID: groupID}, messageID)
}

// SendHTML implements weather.Messenger.
func (b *Bot) SendHTML(chatID int64, text string) (int, error) {
	msg, err := b.bot.Send(&tele.Chat{ID: chatID}, text, tele.ModeHTML)
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// EditHTML implements weather.Messenger.
func (b *Bot) EditHTML(chatID int64, messageID int, text string) error {
	_, err := b.bot.Edit(messageRef(chatID, messageID), text, tele.ModeHTML)
	return err
}
