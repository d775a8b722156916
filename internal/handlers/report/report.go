package report

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/reportbot/internal/bot"
	rberrors "github.com/iamwavecut/reportbot/internal/errors"
	"github.com/iamwavecut/reportbot/internal/i18n"
	"github.com/iamwavecut/reportbot/internal/moderation"
)

type moderator interface {
	MonitoredChatID() int64
	Observe(chatID int64, msg moderation.CachedMessage) bool
	Report(ctx context.Context, req moderation.ReportRequest) moderation.ReportResult
	ResolveBan(ctx context.Context, res moderation.Resolution) error
	Reverse(ctx context.Context, rv moderation.Reversal) error
	UnmuteAll(ctx context.Context, actor moderation.Actor) (moderation.Summary, error)
}

type messenger interface {
	Send(ctx context.Context, out moderation.Outgoing) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool)
}

// Report turns chat commands and inline controls into moderation calls.
type Report struct {
	svc      moderator
	out      messenger
	language string
}

var _ bot.Handler = (*Report)(nil)

func NewReport(svc moderator, out messenger, language string) *Report {
	return &Report{svc: svc, out: out, language: language}
}

func (r *Report) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.CallbackQuery != nil {
		return r.handleCallback(ctx, u.CallbackQuery)
	}
	if u.Message == nil || chat == nil || user == nil {
		return true, nil
	}
	msg := u.Message

	if msg.IsCommand() {
		switch msg.Command() {
		case "rep", "report":
			return false, r.handleReport(ctx, moderation.CommandReport, msg, chat, user)
		case "repno", "reportno":
			return false, r.handleReport(ctx, moderation.CommandAnalyze, msg, chat, user)
		case moderation.CommandUnmuteAll:
			return false, r.handleUnmuteAll(ctx, msg, chat, user)
		}
	}

	if chat.IsPrivate() {
		r.getLogEntry().WithFields(log.Fields{
			"user": user.ID,
			"name": bot.GetUN(user),
			"text": bot.ExtractContent(msg),
		}).Info("private message")
		return false, nil
	}
	if msg.IsCommand() {
		return true, nil
	}

	r.svc.Observe(chat.ID, moderation.CachedMessage{
		SequenceID: msg.MessageID,
		Author:     bot.DisplayName(user),
		Text:       bot.ExtractContent(msg),
		ObservedAt: time.Unix(int64(msg.Date), 0),
	})
	return true, nil
}

func (r *Report) handleReport(ctx context.Context, command string, msg *api.Message, chat *api.Chat, user *api.User) error {
	req := moderation.ReportRequest{
		Command:          command,
		ChatID:           chat.ID,
		CommandMessageID: msg.MessageID,
		Reporter:         actorOf(user),
	}
	if reply := msg.ReplyToMessage; reply != nil && reply.From != nil {
		req.Target = &moderation.TargetMessage{
			ChatID:     chat.ID,
			MessageID:  reply.MessageID,
			AuthorID:   reply.From.ID,
			AuthorName: bot.DisplayName(reply.From),
			Text:       bot.ExtractContent(reply),
		}
	}

	res := r.svc.Report(ctx, req)
	entry := r.getLogEntry().WithFields(log.Fields{
		"method":  "handleReport",
		"command": command,
		"gate":    res.Gate,
	})
	if res.Gate != moderation.GatePassed {
		entry.Debug("report stopped at gate")
		return nil
	}
	entry = entry.WithFields(log.Fields{"action": res.Verdict.Action, "result": res.Outcome.Result})
	if res.Outcome.Err != nil {
		entry.WithError(res.Outcome.Err).Warn("report handled with errors")
		return nil
	}
	entry.Info("report handled")
	return nil
}

func (r *Report) handleUnmuteAll(ctx context.Context, msg *api.Message, chat *api.Chat, user *api.User) error {
	if chat.ID != r.svc.MonitoredChatID() {
		return r.reply(ctx, msg, i18n.Get("This command works only in the moderated chat", r.language))
	}

	summary, err := r.svc.UnmuteAll(ctx, actorOf(user))
	switch {
	case errors.Is(err, rberrors.ErrUnauthorized):
		return r.reply(ctx, msg, i18n.Get("Only administrators can do this", r.language))
	case err != nil:
		_ = r.reply(ctx, msg, tool.ExecTemplate(i18n.Get("Action failed: {{ .error }}", r.language), map[string]any{"error": err.Error()}))
		return errors.WithMessage(err, "unmute all")
	case summary.Succeeded == 0 && summary.Failed == 0:
		return r.reply(ctx, msg, i18n.Get("Nobody is muted", r.language))
	}
	return r.reply(ctx, msg, tool.ExecTemplate(i18n.Get("Unmuted: {{ .succeeded }}, failed: {{ .failed }}", r.language), map[string]any{
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}))
}

func (r *Report) handleCallback(ctx context.Context, cq *api.CallbackQuery) (bool, error) {
	if !moderation.IsControlPayload(cq.Data) {
		return true, nil
	}
	entry := r.getLogEntry().WithFields(log.Fields{"method": "handleCallback", "data": cq.Data})

	control, err := moderation.DecodeControl(cq.Data)
	if err != nil || cq.Message == nil || cq.From == nil {
		entry.WithError(err).Debug("unusable control")
		r.out.AnswerCallback(ctx, cq.ID, i18n.Get("This action is no longer available", r.language), true)
		return false, nil
	}

	actor := actorOf(cq.From)
	controlChatID, controlMessageID := cq.Message.Chat.ID, cq.Message.MessageID
	switch control.Op {
	case moderation.OpConfirmBan, moderation.OpRejectBan:
		err = r.svc.ResolveBan(ctx, moderation.Resolution{
			Confirm:          control.Op == moderation.OpConfirmBan,
			TargetID:         control.TargetID,
			Actor:            actor,
			ControlChatID:    controlChatID,
			ControlMessageID: controlMessageID,
		})
	case moderation.OpUnmute:
		err = r.svc.Reverse(ctx, moderation.Reversal{
			Kind:             moderation.SanctionMute,
			TargetID:         control.TargetID,
			ChatID:           control.ChatID,
			Actor:            actor,
			ControlChatID:    controlChatID,
			ControlMessageID: controlMessageID,
		})
	case moderation.OpUnban:
		err = r.svc.Reverse(ctx, moderation.Reversal{
			Kind:             moderation.SanctionBan,
			TargetID:         control.TargetID,
			ChatID:           control.ChatID,
			Actor:            actor,
			ControlChatID:    controlChatID,
			ControlMessageID: controlMessageID,
		})
	}

	switch {
	case err == nil:
		r.out.AnswerCallback(ctx, cq.ID, i18n.Get("Done", r.language), false)
	case errors.Is(err, rberrors.ErrUnauthorized):
		r.out.AnswerCallback(ctx, cq.ID, i18n.Get("Only administrators can do this", r.language), true)
	case errors.Is(err, rberrors.ErrNotFound):
		r.out.AnswerCallback(ctx, cq.ID, i18n.Get("This action is no longer available", r.language), true)
	default:
		r.out.AnswerCallback(ctx, cq.ID, tool.ExecTemplate(i18n.Get("Action failed: {{ .error }}", r.language), map[string]any{"error": err.Error()}), true)
		return false, errors.Wrapf(err, "control %s for %d", control.Op, control.TargetID)
	}
	entry.WithField("actor", actor.ID).Debug("control handled")
	return false, nil
}

func (r *Report) reply(ctx context.Context, msg *api.Message, text string) error {
	_, err := r.out.Send(ctx, moderation.Outgoing{ChatID: msg.Chat.ID, ReplyTo: msg.MessageID, Text: text})
	return errors.WithMessage(err, "cant reply")
}

func actorOf(user *api.User) moderation.Actor {
	return moderation.Actor{ID: user.ID, Name: bot.DisplayName(user)}
}

func (r *Report) getLogEntry() *log.Entry {
	return log.WithField("object", "Report")
}
