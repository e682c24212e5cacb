package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// handleHistory shows the retained poll log, newest first.
func (b *Bot) handleHistory(c tele.Context) error {
	b.logger.Info("command /history",
		"user_id", c.Sender().ID,
		"chat_id", c.Chat().ID,
	)

	entries, err := b.polls.History()
	if err != nil {
		return WrapUserError(MsgFailedGetHistory, err)
	}
	if len(entries) == 0 {
		return c.Send(MsgHistoryEmpty)
	}

	var lines []string
	lines = append(lines, "Последние опросы:")
	for _, e := range entries {
		status := "закрыт"
		if e.Active {
			status = "активен"
		}
		lines = append(lines, fmt.Sprintf(
			"• %s — %s, участников: %d (%s)",
			e.CreatedAt.Format("02.01.2006"),
			e.PollType,
			len(e.Participants),
			status,
		))
	}

	return c.Send(strings.Join(lines, "\n"))
}
