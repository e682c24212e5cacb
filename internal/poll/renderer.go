package poll

import (
	"fmt"
	"strings"
)

// RenderOpen renders the text of an open poll message:
// a participant-count header, the question, and the join list.
func RenderOpen(question string, participants []Participant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d]\n%s\n\n", len(participants), question)

	if len(participants) == 0 {
		b.WriteString("Пока нет участников.")
		return b.String()
	}
	for i, p := range participants {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(p.DisplayName())
	}
	return b.String()
}

// RenderClosed renders the final text of a closed poll message with the
// numbered participant list frozen at close time.
func RenderClosed(question string, participants []Participant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (ЗАКРЫТ)\n\n", question)

	if len(participants) == 0 {
		b.WriteString("Никто не записался.")
		return b.String()
	}
	for i, p := range participants {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, p.LongName())
	}
	return b.String()
}
