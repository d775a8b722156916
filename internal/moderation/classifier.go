package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamwavecut/reportbot/internal/adapters"
	"github.com/iamwavecut/reportbot/internal/adapters/llm"
)

const DefaultClassifierTimeout = 30 * time.Second

// Classifier asks the external model for a verdict. It never returns an error: every failure is an ERROR verdict.
type Classifier struct {
	llm       adapters.LLM
	policy    *Policy
	timeout   time.Duration
	telemetry Telemetry
	tracer    trace.Tracer
}

func NewClassifier(model adapters.LLM, policy *Policy, timeout time.Duration, telemetry Telemetry) *Classifier {
	if timeout <= 0 {
		timeout = DefaultClassifierTimeout
	}
	if telemetry == nil {
		telemetry = nopTelemetry{}
	}
	return &Classifier{
		llm:       model,
		policy:    policy,
		timeout:   timeout,
		telemetry: telemetry,
		tracer:    otel.Tracer("reportbot/moderation"),
	}
}

func (c *Classifier) Classify(ctx context.Context, text, transcript string) Verdict {
	ctx, span := c.tracer.Start(ctx, "classifier.classify", trace.WithAttributes(
		attribute.String("policy.version", c.policy.Version),
		attribute.Int("transcript.length", len(transcript)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := c.llm.ChatCompletion(ctx, []llm.ChatCompletionMessage{
		{Role: llm.RoleSystem, Content: c.policy.SystemPrompt()},
		{Role: llm.RoleUser, Content: fmt.Sprintf("Context:\n%s\n\nText to check: %s", transcript, text)},
	})
	c.telemetry.Classification(time.Since(started))

	v := c.interpret(ctx, resp, err)
	span.SetAttributes(attribute.String("verdict.action", string(v.Action)))
	c.telemetry.Verdict(string(v.Action))
	return v
}

func (c *Classifier) interpret(ctx context.Context, resp llm.ChatCompletionResponse, err error) Verdict {
	entry := c.getLogEntry()
	if err != nil {
		var statusErr *llm.StatusError
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			entry.WithError(err).Warn("classifier timed out")
			return ErrorVerdict("classifier timed out after %s", c.timeout)
		case errors.As(err, &statusErr):
			entry.WithError(err).WithField("status", statusErr.StatusCode).Warn("classifier rejected the request")
			return ErrorVerdict("classifier answered with status %d", statusErr.StatusCode)
		default:
			entry.WithError(err).Warn("classifier request failed")
			return ErrorVerdict("classifier request failed: %v", err)
		}
	}

	content, err := resp.Content()
	if err != nil {
		entry.WithError(err).Warn("classifier returned no choices")
		return ErrorVerdict("classifier returned no answer")
	}
	v := ParseVerdict(content)
	if v.Action == ActionError {
		entry.WithField("content", content).Warn("unusable classifier answer")
	}
	return v
}

func (c *Classifier) getLogEntry() *log.Entry {
	return log.WithField("object", "Classifier")
}
