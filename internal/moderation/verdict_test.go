package moderation

import (
	"strings"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    Verdict
	}{
		{name: "ok", content: `{"action":"OK","duration":null,"reason":"fine"}`, want: Verdict{Action: ActionOK, Reason: "fine"}},
		{name: "mute", content: `{"action":"MUTE","duration":60,"reason":"insult"}`, want: Verdict{Action: ActionMute, Duration: 60, Reason: "insult"}},
		{name: "mute string duration", content: `{"action":"mute","duration":"35","reason":"flood"}`, want: Verdict{Action: ActionMute, Duration: 35, Reason: "flood"}},
		{name: "ban in fence", content: "```json\n{\"action\":\"BAN\",\"reason\":\"leaked address\"}\n```", want: Verdict{Action: ActionBan, Reason: "leaked address"}},
		{name: "warn in bare fence", content: "```\n{\"action\":\"WARN\",\"reason\":\"ad\"}\n```", want: Verdict{Action: ActionWarn, Reason: "ad"}},
		{name: "ban ignores duration", content: `{"action":"BAN","duration":10}`, want: Verdict{Action: ActionBan}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseVerdict(tt.content); got != tt.want {
				t.Fatalf("unexpected verdict: got %+v want %+v", got, tt.want)
			}
		})
	}
}

func TestParseVerdictErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		content    string
		wantReason string
	}{
		{name: "empty", content: "  ", wantReason: "empty"},
		{name: "prose", content: "I think this is fine", wantReason: "malformed"},
		{name: "truncated", content: `{"action":"MUTE","dur`, wantReason: "malformed"},
		{name: "unknown label", content: `{"action":"KICK"}`, wantReason: "unknown action"},
		{name: "missing action", content: `{"reason":"x"}`, wantReason: "no action"},
		{name: "mute without duration", content: `{"action":"MUTE","duration":null}`, wantReason: "positive duration"},
		{name: "mute negative", content: `{"action":"MUTE","duration":-5}`, wantReason: "positive duration"},
		{name: "mute garbage duration", content: `{"action":"MUTE","duration":"soon"}`, wantReason: "invalid mute duration"},
		{name: "mute longer than a year", content: `{"action":"MUTE","duration":200000000}`, wantReason: "out of range"},
		{name: "mute huge string duration", content: `{"action":"MUTE","duration":"527041"}`, wantReason: "out of range"},
		{name: "explicit error label", content: `{"action":"ERROR"}`, wantReason: "unknown action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseVerdict(tt.content)
			if got.Action != ActionError {
				t.Fatalf("expected ERROR, got %+v", got)
			}
			if !strings.Contains(got.Reason, tt.wantReason) {
				t.Fatalf("unexpected reason: got %q want substring %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestLoadPolicyEmbedded(t *testing.T) {
	t.Parallel()

	p, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	if p.Version == "" {
		t.Fatalf("policy has no version")
	}
	if p.Generation.Temperature != 0.3 || p.Generation.MaxTokens != 500 {
		t.Fatalf("unexpected generation settings: %+v", p.Generation)
	}
	prompt := p.SystemPrompt()
	for _, want := range []string{"1.2 Insults -> MUTE 60 min", "1.11 Doxxing -> BAN", "1.5 Advertising -> WARN (", `"action": "MUTE|BAN|WARN|OK"`} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt misses %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "{{") {
		t.Fatalf("prompt was not rendered:\n%s", prompt)
	}
}

func TestParsePolicyRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "no version", content: "rules:\n  - {code: '1', action: BAN}\nprompt: x"},
		{name: "no rules", content: "version: v1\nprompt: x"},
		{name: "mute without duration", content: "version: v1\nrules:\n  - {code: '1', action: MUTE}\nprompt: x"},
		{name: "unknown action", content: "version: v1\nrules:\n  - {code: '1', action: KICK}\nprompt: x"},
		{name: "empty prompt", content: "version: v1\nrules:\n  - {code: '1', action: BAN}\nprompt: ''"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParsePolicy([]byte(tt.content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
