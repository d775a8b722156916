package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	rberrors "github.com/iamwavecut/reportbot/internal/errors"
	"github.com/iamwavecut/reportbot/internal/i18n"
)

const reviewHistoryLimit = 5

// BanRequest carries what the review chat needs to judge a ban.
type BanRequest struct {
	Target   TargetMessage
	Reporter Actor
	Reason   string
}

// Resolution is an administrator's answer to a pending ban.
type Resolution struct {
	Confirm          bool
	TargetID         int64
	Actor            Actor
	ControlChatID    int64
	ControlMessageID int
}

// Confirmations runs the NONE -> PENDING -> CONFIRMED | REJECTED workflow for bans.
type Confirmations struct {
	state        *State
	platform     Platform
	audit        Auditor
	history      AuditHistory
	telemetry    Telemetry
	reviewChatID int64
	lang         string
	policy       string
}

func (c *Confirmations) Request(ctx context.Context, req BanRequest) (PendingApproval, error) {
	unlock := c.state.lock(SanctionBan, req.Target.AuthorID)
	defer unlock()

	pending := PendingApproval{
		TargetID:     req.Target.AuthorID,
		TargetName:   req.Target.AuthorName,
		ChatID:       req.Target.ChatID,
		Reason:       req.Reason,
		ReporterName: req.Reporter.Name,
		SourceText:   req.Target.Text,
		ReviewChatID: c.reviewChatID,
		CreatedAt:    c.state.now(),
	}
	if !c.state.Approvals.Reserve(pending) {
		existing, _ := c.state.Approvals.Get(pending.TargetID)
		return existing, rberrors.ErrAlreadyPending
	}

	text := tool.ExecTemplate(i18n.Get("Ban review requested\n\nUser: {{ .target }} ({{ .target_id }})\nReason: {{ .reason }}\nReported by: {{ .reporter }}\nMessage: {{ .text }}{{ if .history }}\n\nEarlier decisions:\n{{ .history }}{{ end }}", c.lang), map[string]any{
		"target":    pending.TargetName,
		"target_id": pending.TargetID,
		"reason":    pending.Reason,
		"reporter":  pending.ReporterName,
		"text":      pending.SourceText,
		"history":   c.earlierDecisions(ctx, pending.TargetID),
	})
	msgID, err := c.platform.Send(ctx, Outgoing{
		ChatID: c.reviewChatID,
		Text:   text,
		Buttons: []Button{
			{Text: i18n.Get("Confirm ban", c.lang), Data: Control{Op: OpConfirmBan, TargetID: pending.TargetID}.Encode()},
			{Text: i18n.Get("Reject", c.lang), Data: Control{Op: OpRejectBan, TargetID: pending.TargetID}.Encode()},
		},
	})
	if err != nil {
		c.state.Approvals.Delete(pending.TargetID)
		c.telemetry.EnforcementFailed("review_request")
		return PendingApproval{}, fmt.Errorf("post ban review: %w", err)
	}

	pending.ReviewMessageID = msgID
	c.state.Approvals.Update(pending)
	c.state.publish(c.telemetry)
	c.getLogEntry().WithFields(log.Fields{"target": pending.TargetID, "review_message": msgID}).Info("ban review requested")
	return pending, nil
}

// Resolve applies an administrator decision. Unknown or stale reviews are ErrNotFound and change nothing.
func (c *Confirmations) Resolve(ctx context.Context, res Resolution) error {
	unlock := c.state.lock(SanctionBan, res.TargetID)
	defer unlock()

	entry := c.getLogEntry().WithFields(log.Fields{"target": res.TargetID, "actor": res.Actor.ID, "confirm": res.Confirm})

	elevated, err := c.platform.IsElevated(ctx, res.ControlChatID, res.Actor.ID)
	if err != nil {
		return fmt.Errorf("check approver: %w", err)
	}
	if !elevated {
		entry.Warn("ban decision by non-administrator ignored")
		return rberrors.ErrUnauthorized
	}

	pending, ok := c.state.Approvals.Get(res.TargetID)
	if !ok || pending.ReviewMessageID == 0 || pending.ReviewMessageID != res.ControlMessageID || pending.ReviewChatID != res.ControlChatID {
		return rberrors.ErrNotFound
	}

	rec := AuditRecord{
		Command:       "ban_review",
		ChatID:        pending.ChatID,
		Actor:         res.Actor,
		TargetID:      pending.TargetID,
		TargetName:    pending.TargetName,
		Action:        string(ActionBan),
		Reason:        pending.Reason,
		SourceText:    pending.SourceText,
		PolicyVersion: c.policy,
	}

	if !res.Confirm {
		text := tool.ExecTemplate(i18n.Get("Ban of {{ .target }} was rejected by {{ .actor }}", c.lang), map[string]any{
			"target": pending.TargetName,
			"actor":  res.Actor.Name,
		})
		if err := c.platform.Edit(ctx, pending.ReviewChatID, pending.ReviewMessageID, text, nil); err != nil {
			entry.WithError(err).Warn("cant rewrite review message")
		}
		c.state.Approvals.Delete(pending.TargetID)
		c.state.publish(c.telemetry)
		rec.Outcome = OutcomeRejected
		c.audit.Record(ctx, rec)
		entry.Info("ban rejected")
		return nil
	}

	if err := c.platform.Ban(ctx, pending.ChatID, pending.TargetID); err != nil {
		c.telemetry.EnforcementFailed("ban")
		rec.Outcome = OutcomeFailed
		rec.Detail = err.Error()
		c.audit.Record(ctx, rec)
		return fmt.Errorf("ban %d: %w", pending.TargetID, err)
	}

	c.state.Sanctions.Put(SanctionRecord{
		Kind:            SanctionBan,
		TargetID:        pending.TargetID,
		TargetName:      pending.TargetName,
		ChatID:          pending.ChatID,
		NoticeChatID:    pending.ReviewChatID,
		NoticeMessageID: pending.ReviewMessageID,
	})
	c.state.Approvals.Delete(pending.TargetID)
	c.state.publish(c.telemetry)

	text := tool.ExecTemplate(i18n.Get("{{ .target }} ({{ .target_id }}) is banned, confirmed by {{ .actor }}\nReason: {{ .reason }}", c.lang), map[string]any{
		"target":    pending.TargetName,
		"target_id": pending.TargetID,
		"actor":     res.Actor.Name,
		"reason":    pending.Reason,
	})
	unban := []Button{{
		Text: i18n.Get("Unban", c.lang),
		Data: Control{Op: OpUnban, TargetID: pending.TargetID, ChatID: pending.ChatID}.Encode(),
	}}
	if err := c.platform.Edit(ctx, pending.ReviewChatID, pending.ReviewMessageID, text, unban); err != nil {
		entry.WithError(err).Warn("cant rewrite review message")
	}

	rec.Outcome = OutcomeConfirmed
	c.audit.Record(ctx, rec)
	entry.Info("ban confirmed")
	return nil
}

// earlierDecisions renders the latest audited decisions about the target, one per line.
func (c *Confirmations) earlierDecisions(ctx context.Context, targetID int64) string {
	records, err := c.history.RecentForTarget(ctx, targetID, reviewHistoryLimit)
	if err != nil {
		c.getLogEntry().WithError(err).WithField("target", targetID).Warn("cant load audit history")
		return ""
	}
	lines := make([]string, 0, len(records))
	for _, rec := range records {
		line := "- " + rec.Action
		if rec.DurationMinutes > 0 {
			line += fmt.Sprintf(" %d min", rec.DurationMinutes)
		}
		line += " (" + rec.Outcome + ")"
		if rec.Reason != "" {
			line += ": " + rec.Reason
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (c *Confirmations) getLogEntry() *log.Entry {
	return log.WithField("object", "Confirmations")
}
