package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"nuclight.org/rollcall/internal/poll"
)

// handleExport sends the retained poll history as a CSV document.
func (b *Bot) handleExport(c tele.Context) error {
	b.logger.Info("command /export",
		"user_id", c.Sender().ID,
		"chat_id", c.Chat().ID,
	)

	entries, err := b.polls.History()
	if err != nil {
		return WrapUserError(MsgFailedExportHistory, err)
	}
	if len(entries) == 0 {
		return c.Send(MsgHistoryEmpty)
	}

	data, err := historyCSV(entries)
	if err != nil {
		return WrapUserError(MsgFailedExportHistory, err)
	}

	doc := &tele.Document{
		File:     tele.FromReader(bytes.NewReader(data)),
		FileName: "polls_" + time.Now().Format("2006-01-02") + ".csv",
		MIME:     "text/csv",
	}
	if err := c.Send(doc); err != nil {
		return WrapUserError(MsgFailedExportHistory, err)
	}
	return nil
}

func historyCSV(entries []*poll.HistoryEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"created_at", "expires_at", "poll_type", "group_id", "active", "participant_count", "participants"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, e := range entries {
		names := make([]string, len(e.Participants))
		for i, p := range e.Participants {
			names[i] = p.DisplayName()
		}

		record := []string{
			e.CreatedAt.Format(time.RFC3339),
			e.ExpiresAt.Format(time.RFC3339),
			e.PollType,
			fmt.Sprintf("%d", e.GroupID),
			fmt.Sprintf("%t", e.Active),
			fmt.Sprintf("%d", len(e.Participants)),
			strings.Join(names, "; "),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
