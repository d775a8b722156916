package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iamwavecut/reportbot/internal/adapters/llm"
)

func TestClassifierSendsPolicyAndTranscript(t *testing.T) {
	t.Parallel()

	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	model := &moderationTestLLM{content: `{"action":"WARN","reason":"ad"}`}
	c := NewClassifier(model, policy, time.Second, nil)

	v := c.Classify(context.Background(), "buy now", "Message from bob: buy now")
	if v != (Verdict{Action: ActionWarn, Reason: "ad"}) {
		t.Fatalf("unexpected verdict: %+v", v)
	}
	if model.callCount() != 1 {
		t.Fatalf("unexpected calls: got %d want 1", model.callCount())
	}
	if len(model.messages) != 2 {
		t.Fatalf("unexpected messages: %+v", model.messages)
	}
	if model.messages[0].Role != llm.RoleSystem || model.messages[0].Content != policy.SystemPrompt() {
		t.Fatalf("system message is not the policy prompt")
	}
	want := "Context:\nMessage from bob: buy now\n\nText to check: buy now"
	if model.messages[1].Role != llm.RoleUser || model.messages[1].Content != want {
		t.Fatalf("unexpected user message: %q", model.messages[1].Content)
	}
}

func TestClassifierFailuresBecomeErrorVerdicts(t *testing.T) {
	t.Parallel()

	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}

	tests := []struct {
		name       string
		model      *moderationTestLLM
		wantReason string
	}{
		{name: "timeout", model: &moderationTestLLM{block: true}, wantReason: "timed out"},
		{name: "transport", model: &moderationTestLLM{err: errors.New("connection reset")}, wantReason: "connection reset"},
		{name: "status", model: &moderationTestLLM{err: &llm.StatusError{StatusCode: 503, Err: errors.New("busy")}}, wantReason: "status 503"},
		{name: "garbage", model: &moderationTestLLM{content: "sure!"}, wantReason: "malformed"},
		{name: "unknown action", model: &moderationTestLLM{content: `{"action":"SHADOWBAN"}`}, wantReason: "unknown action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewClassifier(tt.model, policy, 20*time.Millisecond, nil)
			v := c.Classify(context.Background(), "x", "Message from a: x")
			if v.Action != ActionError {
				t.Fatalf("expected ERROR, got %+v", v)
			}
			if !strings.Contains(v.Reason, tt.wantReason) {
				t.Fatalf("unexpected reason: got %q want substring %q", v.Reason, tt.wantReason)
			}
			if tt.model.callCount() != 1 {
				t.Fatalf("classifier must not retry: %d calls", tt.model.callCount())
			}
		})
	}
}

func TestClassifierNoChoices(t *testing.T) {
	t.Parallel()

	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("load policy: %v", err)
	}
	c := NewClassifier(emptyLLM{}, policy, time.Second, nil)
	if v := c.Classify(context.Background(), "x", "y"); v.Action != ActionError {
		t.Fatalf("expected ERROR, got %+v", v)
	}
}

type emptyLLM struct{}

func (emptyLLM) ChatCompletion(context.Context, []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	return llm.ChatCompletionResponse{}, nil
}
