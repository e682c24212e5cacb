package weather

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// UpdateInterval is how often sent weather messages are refreshed.
	UpdateInterval = 10 * time.Minute

	// stopUpdateHour ends refreshes for the day (local time).
	stopUpdateHour = 23

	// forecastFromHour..forecastToHour is the evening window shown in
	// weather messages (training hours).
	forecastFromHour = 19
	forecastToHour   = 23
)

// Messenger is the transport slice the updater needs.
type Messenger interface {
	SendHTML(chatID int64, text string) (int, error)
	EditHTML(chatID int64, messageID int, text string) error
}

type trackedMessage struct {
	messageID int
	sentOn    civilDay
	lastText  string
}

type civilDay struct {
	Year  int
	Month time.Month
	Day   int
}

func civilDayOf(t time.Time) civilDay {
	y, m, d := t.Date()
	return civilDay{y, m, d}
}

// Updater sends weather messages on request and keeps today's sent
// messages fresh, editing them in place while the forecast changes.
// Messages from previous days are dropped at midnight.
type Updater struct {
	client    *Client
	messenger Messenger
	logger    *slog.Logger
	loc       *time.Location
	now       func() time.Time

	mu       sync.Mutex
	messages map[int64]*trackedMessage
}

func NewUpdater(client *Client, messenger Messenger, logger *slog.Logger, loc *time.Location) *Updater {
	if loc == nil {
		loc = time.UTC
	}
	return &Updater{
		client:    client,
		messenger: messenger,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
		messages:  make(map[int64]*trackedMessage),
	}
}

// ComposeMessage builds the full weather text. API errors degrade to
// placeholder blocks rather than failing the whole message.
func (u *Updater) ComposeMessage() string {
	now := u.now().In(u.loc)

	currentText := "🌤 <b>Текущая погода</b>\n⚠️ Временная ошибка получения данных"
	if cur, err := u.client.GetCurrent(); err != nil {
		u.logger.Warn("failed to load current weather", "error", err)
	} else {
		currentText = FormatCurrent(cur, now)
	}

	forecastText := "📅 <b>Прогноз</b>\n⚠️ Временная ошибка получения прогноза"
	if f, err := u.client.GetForecast(); err != nil {
		u.logger.Warn("failed to load forecast", "error", err)
	} else {
		forecastText = FormatForecast(f, forecastFromHour, forecastToHour)
	}

	return currentText + "\n\n" + forecastText
}

// Send posts a fresh weather message to the chat and tracks it for
// in-place refreshes until the end of the day.
func (u *Updater) Send(chatID int64) error {
	text := u.ComposeMessage()

	messageID, err := u.messenger.SendHTML(chatID, text)
	if err != nil {
		return err
	}

	u.mu.Lock()
	u.messages[chatID] = &trackedMessage{
		messageID: messageID,
		sentOn:    civilDayOf(u.now().In(u.loc)),
		lastText:  text,
	}
	u.mu.Unlock()
	return nil
}

// Run refreshes tracked messages until the context is cancelled.
func (u *Updater) Run(ctx context.Context) {
	u.logger.Info("weather updater started")

	ticker := time.NewTicker(UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			u.logger.Info("weather updater stopped")
			return
		case <-ticker.C:
			u.refresh()
		}
	}
}

func (u *Updater) refresh() {
	now := u.now().In(u.loc)
	today := civilDayOf(now)

	u.mu.Lock()
	defer u.mu.Unlock()

	// Midnight cleanup: drop stale messages, then observe quiet hours.
	for chatID, msg := range u.messages {
		if msg.sentOn != today {
			delete(u.messages, chatID)
		}
	}
	if now.Hour() >= stopUpdateHour {
		return
	}
	if len(u.messages) == 0 {
		return
	}

	text := u.ComposeMessage()
	for chatID, msg := range u.messages {
		if text == msg.lastText {
			continue
		}
		if err := u.messenger.EditHTML(chatID, msg.messageID, text); err != nil {
			u.logger.Warn("failed to refresh weather message, dropping it",
				"chat_id", chatID, "message_id", msg.messageID, "error", err)
			delete(u.messages, chatID)
			continue
		}
		msg.lastText = text
	}
}
