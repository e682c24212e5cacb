package bot

import (
	tele "gopkg.in/telebot.v4"
)

func (b *Bot) isAdmin(chatID int64, userID int64) (bool, error) {
	chat := &tele.Chat{ID: chatID}
	member, err := b.bot.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		return false, err
	}

	return member.Role == tele.Administrator || member.Role == tele.Creator, nil
}

func (b *Bot) AdminOnly() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			isAdmin, err := b.isAdmin(c.Chat().ID, c.Sender().ID)
			if err != nil {
				return err
			}

			if !isAdmin {
				return nil // Silently ignore non-admin commands
			}

			return next(c)
		}
	}
}

func (b *Bot) DeleteCommand() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			// Delete the command message; the bot might lack the
			// permission, which is fine.
			if err := c.Delete(); err != nil {
				b.logger.Debug("failed to delete command message", "error", err)
			}

			return next(c)
		}
	}
}

// HandleErrors reports handler failures: UserErrors are sent back to the
// chat, internal causes are logged.
func (b *Bot) HandleErrors() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			if ShouldLog(err) {
				b.logger.Error("command handler failed", "error", err)
			}
			if sendErr := c.Send(GetUserMessage(err)); sendErr != nil {
				b.logger.Warn("failed to report error to chat", "error", sendErr)
			}
			return nil
		}
	}
}
