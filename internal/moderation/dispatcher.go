package moderation

import (
	"context"
	"errors"
	"time"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	rberrors "github.com/iamwavecut/reportbot/internal/errors"
	"github.com/iamwavecut/reportbot/internal/i18n"
)

// Report is a member's complaint about a message.
type Report struct {
	Command          string
	Reporter         Actor
	CommandMessageID int
	Target           TargetMessage
}

// Outcome tells what the dispatcher did with a verdict.
type Outcome struct {
	Action          Action
	Result          string
	NoticeMessageID int
	SourceDeleted   bool
	Err             error
}

// Dispatcher turns verdicts into platform actions and bookkeeping.
type Dispatcher struct {
	state         *State
	platform      Platform
	audit         Auditor
	telemetry     Telemetry
	confirmations *Confirmations
	reviewChatID  int64
	lang          string
	policy        string
}

func (d *Dispatcher) Apply(ctx context.Context, v Verdict, r Report) Outcome {
	entry := d.getLogEntry().WithFields(log.Fields{
		"action":   v.Action,
		"target":   r.Target.AuthorID,
		"reporter": r.Reporter.ID,
	})

	var out Outcome
	switch v.Action {
	case ActionMute:
		out = d.mute(ctx, v, r)
	case ActionBan:
		out = d.ban(ctx, v, r)
	case ActionWarn:
		out = d.warn(ctx, v, r)
	case ActionOK:
		out = d.notice(ctx, r, tool.ExecTemplate(i18n.Get("OK\n{{ .reason }}", d.lang), map[string]any{"reason": v.Reason}))
	default:
		v.Action = ActionError
		out = d.notice(ctx, r, tool.ExecTemplate(i18n.Get("The message could not be checked\n{{ .reason }}", d.lang), map[string]any{"reason": v.Reason}))
	}
	out.Action = v.Action

	rec := AuditRecord{
		Command:       r.Command,
		ChatID:        r.Target.ChatID,
		Actor:         r.Reporter,
		TargetID:      r.Target.AuthorID,
		TargetName:    r.Target.AuthorName,
		Action:        string(v.Action),
		Reason:        v.Reason,
		SourceText:    r.Target.Text,
		Outcome:       out.Result,
		PolicyVersion: d.policy,
	}
	if v.Action == ActionMute {
		rec.DurationMinutes = v.Duration
	}
	if out.Err != nil {
		rec.Detail = out.Err.Error()
		entry = entry.WithError(out.Err)
	}
	d.audit.Record(ctx, rec)
	entry.WithField("outcome", out.Result).Info("verdict dispatched")
	return out
}

func (d *Dispatcher) mute(ctx context.Context, v Verdict, r Report) Outcome {
	unlock := d.state.lock(SanctionMute, r.Target.AuthorID)
	defer unlock()

	data := map[string]any{
		"target":  r.Target.AuthorName,
		"minutes": v.Duration,
		"reason":  v.Reason,
	}
	until := muteUntil(d.state.now(), v.Duration)
	restrictErr := d.platform.Restrict(ctx, r.Target.ChatID, r.Target.AuthorID, until)

	out := Outcome{Result: OutcomeApplied}
	msg := Outgoing{ChatID: r.Target.ChatID, ReplyTo: r.Target.MessageID}
	if restrictErr != nil {
		d.telemetry.EnforcementFailed("restrict")
		out.Result = OutcomeFailed
		out.Err = restrictErr
		data["error"] = restrictErr.Error()
		msg.Text = tool.ExecTemplate(i18n.Get("MUTE {{ .minutes }} min\n{{ .reason }}\nRestriction failed: {{ .error }}", d.lang), data)
	} else {
		msg.Text = tool.ExecTemplate(i18n.Get("MUTE {{ .minutes }} min\n{{ .reason }}", d.lang), data)
		msg.Buttons = []Button{{
			Text: i18n.Get("Unmute", d.lang),
			Data: Control{Op: OpUnmute, TargetID: r.Target.AuthorID}.Encode(),
		}}
	}

	noticeID, err := d.platform.Send(ctx, msg)
	if err != nil {
		d.getLogEntry().WithError(err).Warn("cant send mute notice")
	}
	out.NoticeMessageID = noticeID

	if restrictErr == nil {
		d.state.Sanctions.Put(SanctionRecord{
			Kind:            SanctionMute,
			TargetID:        r.Target.AuthorID,
			TargetName:      r.Target.AuthorName,
			ChatID:          r.Target.ChatID,
			NoticeChatID:    r.Target.ChatID,
			NoticeMessageID: noticeID,
		})
		d.state.publish(d.telemetry)
	}

	out.SourceDeleted = d.deleteSource(ctx, r)
	return out
}

func (d *Dispatcher) ban(ctx context.Context, v Verdict, r Report) Outcome {
	data := map[string]any{"target": r.Target.AuthorName, "reason": v.Reason}

	_, err := d.confirmations.Request(ctx, BanRequest{Target: r.Target, Reporter: r.Reporter, Reason: v.Reason})
	switch {
	case errors.Is(err, rberrors.ErrAlreadyPending):
		noticeID := d.reply(ctx, r, tool.ExecTemplate(i18n.Get("A ban review for {{ .target }} is already pending", d.lang), data))
		return Outcome{Result: OutcomeAlreadyPending, NoticeMessageID: noticeID}
	case err != nil:
		data["error"] = err.Error()
		noticeID := d.reply(ctx, r, tool.ExecTemplate(i18n.Get("BAN could not be sent for review\n{{ .error }}", d.lang), data))
		return Outcome{Result: OutcomeFailed, NoticeMessageID: noticeID, Err: err}
	}

	noticeID := d.reply(ctx, r, tool.ExecTemplate(i18n.Get("BAN {{ .target }} is waiting for administrator review\n{{ .reason }}", d.lang), data))
	return Outcome{Result: OutcomePending, NoticeMessageID: noticeID, SourceDeleted: d.deleteSource(ctx, r)}
}

func (d *Dispatcher) warn(ctx context.Context, v Verdict, r Report) Outcome {
	data := map[string]any{
		"target":    r.Target.AuthorName,
		"target_id": r.Target.AuthorID,
		"reason":    v.Reason,
		"reporter":  r.Reporter.Name,
	}
	noticeID := d.reply(ctx, r, tool.ExecTemplate(i18n.Get("WARN {{ .target }}\n{{ .reason }}", d.lang), data))

	_, err := d.platform.Send(ctx, Outgoing{
		ChatID: d.reviewChatID,
		Text:   tool.ExecTemplate(i18n.Get("Warning issued\n\nUser: {{ .target }} ({{ .target_id }})\nReason: {{ .reason }}\nReported by: {{ .reporter }}", d.lang), data),
	})
	if err != nil {
		d.getLogEntry().WithError(err).Warn("cant mirror warning to review chat")
	}
	return Outcome{Result: OutcomeApplied, NoticeMessageID: noticeID, SourceDeleted: d.deleteSource(ctx, r)}
}

func (d *Dispatcher) notice(ctx context.Context, r Report, text string) Outcome {
	return Outcome{Result: OutcomeNoticeOnly, NoticeMessageID: d.reply(ctx, r, text)}
}

func (d *Dispatcher) reply(ctx context.Context, r Report, text string) int {
	id, err := d.platform.Send(ctx, Outgoing{ChatID: r.Target.ChatID, ReplyTo: r.Target.MessageID, Text: text})
	if err != nil {
		d.getLogEntry().WithError(err).Warn("cant send notice")
	}
	return id
}

func (d *Dispatcher) deleteSource(ctx context.Context, r Report) bool {
	if err := d.platform.Delete(ctx, r.Target.ChatID, r.Target.MessageID); err != nil {
		d.telemetry.EnforcementFailed("delete")
		d.getLogEntry().WithError(err).Warn("cant delete reported message")
		return false
	}
	return true
}

func (d *Dispatcher) getLogEntry() *log.Entry {
	return log.WithField("object", "Dispatcher")
}

// muteUntil keeps the end of a mute within MaxMuteMinutes of now.
func muteUntil(now time.Time, minutes int) time.Time {
	minutes = min(max(minutes, 1), MaxMuteMinutes)
	return now.Add(time.Duration(minutes) * time.Minute)
}
