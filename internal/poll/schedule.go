package poll

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a clock time within a day, timezone-agnostic.
// It is serialized as "HH:MM:SS".
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "HH:MM:SS" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}

	var t TimeOfDay
	if _, err := fmt.Sscanf(parts[0]+" "+parts[1], "%d %d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if len(parts) == 3 {
		if _, err := fmt.Sscanf(parts[2], "%d", &t.Second); err != nil {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
		}
	}

	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 || t.Second < 0 || t.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// At combines the clock time with the date of ref in the given location.
func (t TimeOfDay) At(ref time.Time, loc *time.Location) time.Time {
	local := ref.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), t.Hour, t.Minute, t.Second, 0, loc)
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// Weekday wraps time.Weekday with day-name JSON parsing ("mon", "monday").
type Weekday time.Weekday

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"sun":       time.Sunday,
	"monday":    time.Monday,
	"mon":       time.Monday,
	"tuesday":   time.Tuesday,
	"tue":       time.Tuesday,
	"wednesday": time.Wednesday,
	"wed":       time.Wednesday,
	"thursday":  time.Thursday,
	"thu":       time.Thursday,
	"friday":    time.Friday,
	"fri":       time.Friday,
	"saturday":  time.Saturday,
	"sat":       time.Saturday,
}

// ParseWeekday parses an English day name or its three-letter abbreviation.
func ParseWeekday(s string) (Weekday, error) {
	if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return Weekday(d), nil
	}
	return 0, fmt.Errorf("invalid weekday %q", s)
}

func (w Weekday) Weekday() time.Weekday { return time.Weekday(w) }

func (w Weekday) String() string { return time.Weekday(w).String() }

func (w *Weekday) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseWeekday(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func (w Weekday) MarshalJSON() ([]byte, error) {
	return json.Marshal(strings.ToLower(w.String()))
}

// ScheduleRule is a recurrence definition for automatic poll creation:
// on the given weekday, create the poll at CreateAt and close it at ExpireAt.
// Both times are interpreted in the deployment's civil timezone.
type ScheduleRule struct {
	Day                Weekday   `json:"day"`
	CreateAt           TimeOfDay `json:"create_at"`
	ExpireAt           TimeOfDay `json:"expire_at"`
	Pin                bool      `json:"pin"`
	Unpin              bool      `json:"unpin"`
	DeleteVoteMessages bool      `json:"delete_vote_messages"`
}

// ManualSettings apply when a poll is created by command rather than by rule.
type ManualSettings struct {
	Pin        bool `json:"pin"`
	Unpin      bool `json:"unpin"`
	TTLMinutes int  `json:"ttl_minutes"`
}

// DefaultManualTTLMinutes is used when a poll type has no schedule rules
// and no explicit manual TTL (8 hours, matching the historical default).
const DefaultManualTTLMinutes = 480

// PollType is a configured kind of poll: the command that creates it,
// the question text, and its manual/scheduled creation settings.
// Immutable at runtime.
type PollType struct {
	Command  string         `json:"-"`
	Question string         `json:"question"`
	Manual   ManualSettings `json:"manual"`
	Schedule []ScheduleRule `json:"schedule"`
}

// BoundRule is a schedule rule bound to the group and poll type it belongs to.
type BoundRule struct {
	GroupID  int64
	PollType *PollType
	Rule     ScheduleRule
}

// ConfigSource provides read-only access to schedule definitions.
type ConfigSource interface {
	// Lookup returns the poll type configured for the group and command,
	// or nil if the combination is not configured.
	Lookup(groupID int64, command string) *PollType

	// Rules returns every schedule rule across all groups and poll types.
	Rules() []BoundRule
}
