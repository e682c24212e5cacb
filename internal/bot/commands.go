package bot

import (
	"errors"

	tele "gopkg.in/telebot.v4"

	"nuclight.org/rollcall/internal/poll"
)

// RegisterCommands sets up all bot commands with admin-only middleware.
// One create-command is registered per configured poll type, so e.g. a
// "saber" poll type becomes /saber.
func (b *Bot) RegisterCommands() {
	adminGroup := b.bot.Group()
	adminGroup.Use(b.AdminOnly())
	adminGroup.Use(b.DeleteCommand())
	adminGroup.Use(b.HandleErrors())

	for _, name := range b.settings.Commands() {
		adminGroup.Handle("/"+name, b.handleCreate(name))
	}

	adminGroup.Handle("/deactivate", b.handleDeactivate)
	adminGroup.Handle("/history", b.handleHistory)
	adminGroup.Handle("/export", b.handleExport)
	adminGroup.Handle("/weather", b.handleWeather)
	adminGroup.Handle("/help", b.handleHelp)
}

// handleCreate returns the handler that opens a poll of the given type.
func (b *Bot) handleCreate(pollType string) tele.HandlerFunc {
	return func(c tele.Context) error {
		b.logger.Info("command create poll",
			"poll_type", pollType,
			"user_id", c.Sender().ID,
			"username", c.Sender().Username,
			"chat_id", c.Chat().ID,
		)

		_, err := b.polls.Create(c.Chat().ID, pollType, poll.TriggerManual, nil)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, poll.ErrPollExists):
			return UserErrorf(MsgPollAlreadyExists)
		case errors.Is(err, poll.ErrUnknownPollType):
			return UserErrorf(MsgUnknownPollType)
		default:
			return WrapUserError(MsgFailedCreatePoll, err)
		}
	}
}

// handleDeactivate closes the active poll.
func (b *Bot) handleDeactivate(c tele.Context) error {
	b.logger.Info("command /deactivate",
		"user_id", c.Sender().ID,
		"username", c.Sender().Username,
		"chat_id", c.Chat().ID,
	)

	_, err := b.polls.Deactivate("manual")
	switch {
	case err == nil:
		return c.Send(MsgPollDeactivated)
	case errors.Is(err, poll.ErrNoActivePoll):
		return c.Send(MsgNoActivePoll)
	default:
		return WrapUserError(MsgFailedClosePoll, err)
	}
}

func (b *Bot) handleWeather(c tele.Context) error {
	if b.weather == nil {
		return UserErrorf(MsgWeatherDisabled)
	}

	b.logger.Info("command /weather",
		"user_id", c.Sender().ID,
		"chat_id", c.Chat().ID,
	)

	if err := b.weather.Send(c.Chat().ID); err != nil {
		return WrapUserError(MsgFailedSendWeather, err)
	}
	return nil
}

func (b *Bot) handleHelp(c tele.Context) error {
	text := "Команды:\n"
	for _, name := range b.settings.Commands() {
		text += "/" + name + " — создать опрос\n"
	}
	text += "/deactivate — закрыть активный опрос\n" +
		"/history — последние опросы\n" +
		"/export — выгрузка истории в CSV\n" +
		"/weather — погода на сегодня\n\n" +
		"Запись в опрос: отправьте «+», выход — «-»."

	return c.Send(text)
}
