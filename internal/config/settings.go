package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"

	"nuclight.org/rollcall/internal/poll"
)

// Settings holds the per-group poll type definitions loaded from the
// settings file. Read-only after load.
type Settings struct {
	groups map[int64]map[string]*poll.PollType
	rules  []poll.BoundRule
}

type settingsFile struct {
	Chats map[string]*chatSection `json:"chats"`
}

type chatSection struct {
	Commands map[string]*poll.PollType `json:"commands"`
}

// LoadSettings reads and validates the settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var file settingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}

	s := &Settings{groups: make(map[int64]map[string]*poll.PollType)}
	for chatKey, chat := range file.Chats {
		groupID, err := strconv.ParseInt(chatKey, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", chatKey, err)
		}
		if chat == nil || len(chat.Commands) == 0 {
			continue
		}

		commands := make(map[string]*poll.PollType, len(chat.Commands))
		for name, pt := range chat.Commands {
			if pt == nil {
				return nil, fmt.Errorf("chat %s: command %q has no body", chatKey, name)
			}
			if pt.Question == "" {
				return nil, fmt.Errorf("chat %s: command %q has no question", chatKey, name)
			}
			pt.Command = name
			commands[name] = pt

			for _, rule := range pt.Schedule {
				s.rules = append(s.rules, poll.BoundRule{
					GroupID:  groupID,
					PollType: pt,
					Rule:     rule,
				})
			}
		}
		s.groups[groupID] = commands
	}

	return s, nil
}

// Lookup returns the poll type configured for the group and command,
// or nil when the combination is not configured.
func (s *Settings) Lookup(groupID int64, command string) *poll.PollType {
	commands, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	return commands[command]
}

// Rules returns every schedule rule across all groups and poll types.
func (s *Settings) Rules() []poll.BoundRule {
	return s.rules
}

// Commands returns the distinct command names across all groups, sorted.
// Used by the bot to register one create-handler per poll type.
func (s *Settings) Commands() []string {
	seen := make(map[string]struct{})
	for _, commands := range s.groups {
		for name := range commands {
			seen[name] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
