package moderation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/iamwavecut/reportbot/internal/i18n"
)

const (
	CommandReport    = "rep"
	CommandAnalyze   = "repno"
	CommandUnmuteAll = "unmuteall"
)

// Gate is the first check a report failed, or GatePassed.
type Gate string

const (
	GatePassed    Gate = "passed"
	GateWrongChat Gate = "wrong_chat"
	GateNotReply  Gate = "not_reply"
	GateCooldown  Gate = "cooldown"
)

type Options struct {
	MonitoredChatID int64
	ReviewChatID    int64
	ContextSize     int
	Language        string
}

type Dependencies struct {
	State      *State
	Platform   Platform
	Classifier *Classifier
	Policy     *Policy
	Auditor    Auditor
	History    AuditHistory
	Telemetry  Telemetry
}

// ReportRequest is a /rep or /repno command as received.
type ReportRequest struct {
	Command          string
	ChatID           int64
	CommandMessageID int
	Reporter         Actor
	Target           *TargetMessage
}

type ReportResult struct {
	Gate      Gate
	Remaining time.Duration
	Verdict   Verdict
	Outcome   Outcome
}

// Service orchestrates reports, approvals and reversals.
type Service struct {
	opts          Options
	state         *State
	platform      Platform
	assembler     *Assembler
	classifier    *Classifier
	dispatcher    *Dispatcher
	confirmations *Confirmations
	reversals     *Reversals
	audit         Auditor
	telemetry     Telemetry
	policy        string
	tracer        trace.Tracer
}

func NewService(deps Dependencies, opts Options) *Service {
	if deps.Auditor == nil {
		deps.Auditor = nopAuditor{}
	}
	if deps.History == nil {
		deps.History = nopAuditor{}
	}
	if deps.Telemetry == nil {
		deps.Telemetry = nopTelemetry{}
	}
	if opts.ContextSize < 0 {
		opts.ContextSize = DefaultContextSize
	}

	confirmations := &Confirmations{
		state:        deps.State,
		platform:     deps.Platform,
		audit:        deps.Auditor,
		history:      deps.History,
		telemetry:    deps.Telemetry,
		reviewChatID: opts.ReviewChatID,
		lang:         opts.Language,
		policy:       deps.Policy.Version,
	}
	return &Service{
		opts:       opts,
		state:      deps.State,
		platform:   deps.Platform,
		assembler:  NewAssembler(deps.State.History, opts.ContextSize),
		classifier: deps.Classifier,
		dispatcher: &Dispatcher{
			state:         deps.State,
			platform:      deps.Platform,
			audit:         deps.Auditor,
			telemetry:     deps.Telemetry,
			confirmations: confirmations,
			reviewChatID:  opts.ReviewChatID,
			lang:          opts.Language,
			policy:        deps.Policy.Version,
		},
		confirmations: confirmations,
		reversals: &Reversals{
			state:     deps.State,
			platform:  deps.Platform,
			audit:     deps.Auditor,
			telemetry: deps.Telemetry,
			lang:      opts.Language,
			policy:    deps.Policy.Version,
		},
		audit:     deps.Auditor,
		telemetry: deps.Telemetry,
		policy:    deps.Policy.Version,
		tracer:    otel.Tracer("reportbot/moderation"),
	}
}

func (s *Service) MonitoredChatID() int64 {
	return s.opts.MonitoredChatID
}

// Observe caches a message of the monitored chat for later context.
func (s *Service) Observe(chatID int64, msg CachedMessage) bool {
	if chatID != s.opts.MonitoredChatID {
		return false
	}
	s.state.History.Record(msg)
	return true
}

func (s *Service) Report(ctx context.Context, req ReportRequest) ReportResult {
	ctx, span := s.tracer.Start(ctx, "report", trace.WithAttributes(
		attribute.String("command", req.Command),
		attribute.Int64("reporter", req.Reporter.ID),
	))
	defer span.End()

	entry := s.getLogEntry().WithFields(log.Fields{"command": req.Command, "reporter": req.Reporter.ID, "chat": req.ChatID})

	res := s.gate(ctx, req)
	span.SetAttributes(attribute.String("gate", string(res.Gate)))
	if res.Gate != GatePassed {
		s.telemetry.Report(req.Command, string(res.Gate))
		entry.WithField("gate", res.Gate).Debug("report rejected")
		return res
	}

	target := *req.Target
	entry = entry.WithField("target", target.AuthorID)
	entry.Info("report accepted")

	transcript, included := s.assembler.Build(target)
	res.Verdict = s.classifier.Classify(ctx, target.Text, transcript)
	entry.WithFields(log.Fields{"context": included, "action": res.Verdict.Action}).Info("message classified")

	if req.Command == CommandAnalyze {
		res.Outcome = s.analyze(ctx, req, res.Verdict)
	} else {
		res.Outcome = s.dispatcher.Apply(ctx, res.Verdict, Report{
			Command:          req.Command,
			Reporter:         req.Reporter,
			CommandMessageID: req.CommandMessageID,
			Target:           target,
		})
	}
	s.telemetry.Report(req.Command, res.Outcome.Result)
	return res
}

func (s *Service) gate(ctx context.Context, req ReportRequest) ReportResult {
	switch {
	case req.ChatID != s.opts.MonitoredChatID:
		s.answer(ctx, req, i18n.Get("This command works only in the moderated chat", s.opts.Language))
		return ReportResult{Gate: GateWrongChat}
	case req.Target == nil:
		s.answer(ctx, req, tool.ExecTemplate(i18n.Get("Use /{{ .command }} as a reply to a message", s.opts.Language), map[string]any{"command": req.Command}))
		return ReportResult{Gate: GateNotReply}
	}

	grant := s.state.Cooldowns.TryAcquire(req.Reporter.ID)
	if !grant.Granted {
		s.answer(ctx, req, tool.ExecTemplate(i18n.Get("Wait {{ .seconds }} s before the next report", s.opts.Language), map[string]any{
			"seconds": fmt.Sprintf("%.1f", math.Max(grant.Remaining.Seconds(), 0.1)),
		}))
		return ReportResult{Gate: GateCooldown, Remaining: grant.Remaining}
	}
	return ReportResult{Gate: GatePassed}
}

// analyze forwards the verdict to the review chat without enforcing it.
func (s *Service) analyze(ctx context.Context, req ReportRequest, v Verdict) Outcome {
	target := *req.Target
	text := tool.ExecTemplate(i18n.Get("Analysis only, nothing enforced\n\nUser: {{ .target }} ({{ .target_id }})\nVerdict: {{ .action }}{{ if .minutes }} {{ .minutes }} min{{ end }}\nReason: {{ .reason }}\nRequested by: {{ .reporter }}\nMessage: {{ .text }}", s.opts.Language), map[string]any{
		"target":    target.AuthorName,
		"target_id": target.AuthorID,
		"action":    v.Action,
		"minutes":   v.Duration,
		"reason":    v.Reason,
		"reporter":  req.Reporter.Name,
		"text":      target.Text,
	})

	out := Outcome{Action: v.Action, Result: OutcomeAnalyzed}
	if _, err := s.platform.Send(ctx, Outgoing{ChatID: s.opts.ReviewChatID, Text: text}); err != nil {
		out.Result = OutcomeFailed
		out.Err = err
		s.answer(ctx, req, tool.ExecTemplate(i18n.Get("The analysis is ready but could not be delivered to the administrators: {{ .error }}", s.opts.Language), map[string]any{"error": err.Error()}))
	} else {
		out.NoticeMessageID = s.answer(ctx, req, i18n.Get("The analysis was sent to the administrators, nothing was enforced", s.opts.Language))
	}

	rec := AuditRecord{
		Command:         req.Command,
		ChatID:          target.ChatID,
		Actor:           req.Reporter,
		TargetID:        target.AuthorID,
		TargetName:      target.AuthorName,
		Action:          string(v.Action),
		DurationMinutes: v.Duration,
		Reason:          v.Reason,
		SourceText:      target.Text,
		Outcome:         out.Result,
		PolicyVersion:   s.policy,
	}
	if out.Err != nil {
		rec.Detail = out.Err.Error()
	}
	s.audit.Record(ctx, rec)
	return out
}

// ResolveBan applies an administrator decision on a pending ban.
func (s *Service) ResolveBan(ctx context.Context, res Resolution) error {
	return s.confirmations.Resolve(ctx, res)
}

func (s *Service) Reverse(ctx context.Context, rv Reversal) error {
	return s.reversals.Reverse(ctx, rv)
}

// UnmuteAll lifts every recorded mute in the monitored chat.
func (s *Service) UnmuteAll(ctx context.Context, actor Actor) (Summary, error) {
	return s.reversals.ReverseAll(ctx, SanctionMute, actor, s.opts.MonitoredChatID)
}

func (s *Service) ActiveSanctions(kind SanctionKind) int {
	return s.state.Sanctions.Count(kind)
}

func (s *Service) answer(ctx context.Context, req ReportRequest, text string) int {
	id, err := s.platform.Send(ctx, Outgoing{ChatID: req.ChatID, ReplyTo: req.CommandMessageID, Text: text})
	if err != nil {
		s.getLogEntry().WithError(err).Warn("cant answer report command")
	}
	return id
}

func (s *Service) getLogEntry() *log.Entry {
	return log.WithField("object", "Service")
}
