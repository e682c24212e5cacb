package bot

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"nuclight.org/rollcall/internal/config"
	"nuclight.org/rollcall/internal/poll"
	"nuclight.org/rollcall/internal/weather"
)

type Bot struct {
	bot      *tele.Bot
	polls    *poll.Service
	settings *config.Settings
	weather  *weather.Updater // nil when weather is disabled
	logger   *slog.Logger
}

// New creates the Telegram bot. The poll service is attached separately
// because it needs the bot as its transport.
func New(token string, logger *slog.Logger) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	return &Bot{
		bot:    b,
		logger: logger,
	}, nil
}

// Attach wires the poll service, settings, and the optional weather
// updater, then registers all commands and handlers.
func (b *Bot) Attach(polls *poll.Service, settings *config.Settings, weatherUpdater *weather.Updater) {
	b.polls = polls
	b.settings = settings
	b.weather = weatherUpdater

	b.RegisterCommands()
	b.RegisterHandlers()
}

func (b *Bot) Start() {
	b.logger.Info("bot started")
	b.bot.Start()
}

func (b *Bot) Stop() {
	b.bot.Stop()
}

func (b *Bot) Bot() *tele.Bot {
	return b.bot
}
