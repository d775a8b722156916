package moderation

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	rberrors "github.com/iamwavecut/reportbot/internal/errors"
	"github.com/iamwavecut/reportbot/internal/i18n"
)

const reverseAllParallelism = 4

// Reversal asks to lift one sanction through its inline control.
type Reversal struct {
	Kind             SanctionKind
	TargetID         int64
	ChatID           int64
	Actor            Actor
	ControlChatID    int64
	ControlMessageID int
}

type Summary struct {
	Succeeded int
	Failed    int
}

// Reversals lifts recorded sanctions.
type Reversals struct {
	state     *State
	platform  Platform
	audit     Auditor
	telemetry Telemetry
	lang      string
	policy    string
}

func (r *Reversals) Reverse(ctx context.Context, rv Reversal) error {
	unlock := r.state.lock(rv.Kind, rv.TargetID)
	defer unlock()

	switch rv.Kind {
	case SanctionMute:
		return r.reverseMute(ctx, rv)
	case SanctionBan:
		return r.reverseBan(ctx, rv)
	default:
		return fmt.Errorf("unknown sanction kind %q", rv.Kind)
	}
}

func (r *Reversals) reverseMute(ctx context.Context, rv Reversal) error {
	rec, ok := r.state.Sanctions.Get(SanctionKey{Kind: SanctionMute, TargetID: rv.TargetID})
	if !ok {
		return rberrors.ErrNotFound
	}
	if err := r.authorize(ctx, rec.ChatID, rv.Actor); err != nil {
		return err
	}
	return r.lift(ctx, rec, rv.Actor)
}

func (r *Reversals) reverseBan(ctx context.Context, rv Reversal) error {
	if err := r.authorize(ctx, rv.ControlChatID, rv.Actor); err != nil {
		return err
	}
	rec, ok := r.state.Sanctions.Get(SanctionKey{Kind: SanctionBan, TargetID: rv.TargetID})
	if !ok {
		if rv.ChatID == 0 {
			return rberrors.ErrNotFound
		}
		rec = SanctionRecord{
			Kind:            SanctionBan,
			TargetID:        rv.TargetID,
			ChatID:          rv.ChatID,
			NoticeChatID:    rv.ControlChatID,
			NoticeMessageID: rv.ControlMessageID,
		}
	}
	return r.lift(ctx, rec, rv.Actor)
}

// ReverseAll lifts every recorded sanction of kind. Failures keep their records.
func (r *Reversals) ReverseAll(ctx context.Context, kind SanctionKind, actor Actor, chatID int64) (Summary, error) {
	if err := r.authorize(ctx, chatID, actor); err != nil {
		return Summary{}, err
	}

	var succeeded, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reverseAllParallelism)
	for _, rec := range r.state.Sanctions.List(kind) {
		g.Go(func() error {
			unlock := r.state.lock(rec.Kind, rec.TargetID)
			defer unlock()

			current, ok := r.state.Sanctions.Get(rec.Key())
			if !ok {
				return nil
			}
			if err := r.lift(gctx, current, actor); err != nil {
				failed.Add(1)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Succeeded: int(succeeded.Load()), Failed: int(failed.Load())}
	r.getLogEntry().WithFields(log.Fields{
		"kind":      kind,
		"actor":     actor.ID,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Info("bulk reversal finished")
	return summary, nil
}

func (r *Reversals) authorize(ctx context.Context, chatID int64, actor Actor) error {
	elevated, err := r.platform.IsElevated(ctx, chatID, actor.ID)
	if err != nil {
		return fmt.Errorf("check actor: %w", err)
	}
	if !elevated {
		return rberrors.ErrUnauthorized
	}
	return nil
}

// lift must run under the record's key lock.
func (r *Reversals) lift(ctx context.Context, rec SanctionRecord, actor Actor) error {
	entry := r.getLogEntry().WithFields(log.Fields{"kind": rec.Kind, "target": rec.TargetID, "actor": actor.ID})
	audit := AuditRecord{
		Command:       "reverse",
		ChatID:        rec.ChatID,
		Actor:         actor,
		TargetID:      rec.TargetID,
		TargetName:    rec.TargetName,
		PolicyVersion: r.policy,
	}

	var (
		err  error
		text string
	)
	data := map[string]any{"target": rec.TargetName, "actor": actor.Name}
	switch rec.Kind {
	case SanctionMute:
		audit.Action = "UNMUTE"
		err = r.platform.LiftRestrictions(ctx, rec.ChatID, rec.TargetID)
		text = tool.ExecTemplate(i18n.Get("{{ if .target }}{{ .target }} {{ end }}unmuted by {{ .actor }}", r.lang), data)
	case SanctionBan:
		audit.Action = "UNBAN"
		err = r.platform.Unban(ctx, rec.ChatID, rec.TargetID)
		text = tool.ExecTemplate(i18n.Get("{{ if .target }}{{ .target }} {{ end }}unbanned by {{ .actor }}", r.lang), data)
	}
	if err != nil {
		r.telemetry.EnforcementFailed("reverse_" + string(rec.Kind))
		audit.Outcome = OutcomeFailed
		audit.Detail = err.Error()
		r.audit.Record(ctx, audit)
		entry.WithError(err).Warn("cant reverse sanction")
		return fmt.Errorf("reverse %s of %d: %w", rec.Kind, rec.TargetID, err)
	}

	r.state.Sanctions.Delete(rec.Key())
	r.state.publish(r.telemetry)
	if rec.NoticeMessageID != 0 {
		if err := r.platform.Edit(ctx, rec.NoticeChatID, rec.NoticeMessageID, text, nil); err != nil {
			entry.WithError(err).Warn("cant rewrite sanction notice")
		}
	}
	audit.Outcome = OutcomeReversed
	r.audit.Record(ctx, audit)
	entry.Info("sanction reversed")
	return nil
}

func (r *Reversals) getLogEntry() *log.Entry {
	return log.WithField("object", "Reversals")
}
