package moderation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Action string

const (
	ActionMute  Action = "MUTE"
	ActionBan   Action = "BAN"
	ActionWarn  Action = "WARN"
	ActionOK    Action = "OK"
	ActionError Action = "ERROR"
)

// MaxMuteMinutes bounds a MUTE to a year; longer restrictions are treated by Telegram as permanent.
const MaxMuteMinutes = 366 * 24 * 60

// Verdict is the classifier decision. Duration is in minutes and only meaningful for MUTE.
type Verdict struct {
	Action   Action
	Duration int
	Reason   string
}

func ErrorVerdict(format string, args ...any) Verdict {
	return Verdict{Action: ActionError, Reason: fmt.Sprintf(format, args...)}
}

type rawVerdict struct {
	Action   string          `json:"action"`
	Duration json.RawMessage `json:"duration"`
	Reason   string          `json:"reason"`
}

// ParseVerdict decodes classifier output. Anything that is not a well-formed verdict becomes ERROR.
func ParseVerdict(content string) Verdict {
	payload := stripFences(content)
	if payload == "" {
		return ErrorVerdict("empty classifier answer")
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return ErrorVerdict("malformed classifier answer: %v", err)
	}

	v := Verdict{Action: Action(strings.ToUpper(strings.TrimSpace(raw.Action))), Reason: strings.TrimSpace(raw.Reason)}
	switch v.Action {
	case ActionMute:
		minutes, err := parseMinutes(raw.Duration)
		if err != nil {
			return ErrorVerdict("invalid mute duration: %v", err)
		}
		if minutes <= 0 {
			return ErrorVerdict("mute verdict without a positive duration")
		}
		v.Duration = minutes
	case ActionBan, ActionWarn, ActionOK:
	case "":
		return ErrorVerdict("classifier answer has no action")
	default:
		return ErrorVerdict("unknown action %q", raw.Action)
	}
	return v
}

func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimPrefix(s, "JSON")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func parseMinutes(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f > MaxMuteMinutes {
		return 0, fmt.Errorf("duration %s out of range", s)
	}
	return int(math.Round(f)), nil
}
