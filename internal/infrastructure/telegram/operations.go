package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	rberrors "github.com/iamwavecut/reportbot/internal/errors"
	"github.com/iamwavecut/reportbot/internal/moderation"
	"github.com/iamwavecut/reportbot/internal/policy/permissions"
)

// Client is the part of *api.BotAPI the operations use.
type Client interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetChatMember(config api.GetChatMemberConfig) (api.ChatMember, error)
}

// Operations implements moderation.Platform on top of the Bot API.
type Operations struct {
	bot Client
}

var _ moderation.Platform = (*Operations)(nil)

func NewOperations(bot Client) *Operations {
	return &Operations{bot: bot}
}

// Restrict mutes the member until the given moment.
func (o *Operations) Restrict(_ context.Context, chatID, userID int64, until time.Time) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		UntilDate:        until.Unix(),
		Permissions:      &api.ChatPermissions{},
	}
	if _, err := o.bot.Request(config); err != nil {
		return wrapRights(fmt.Errorf("restrict user %d: %w", userID, err))
	}
	return nil
}

func (o *Operations) LiftRestrictions(_ context.Context, chatID, userID int64) error {
	config := api.RestrictChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		Permissions: &api.ChatPermissions{
			CanSendMessages:       true,
			CanSendAudios:         true,
			CanSendDocuments:      true,
			CanSendPhotos:         true,
			CanSendVideos:         true,
			CanSendVideoNotes:     true,
			CanSendVoiceNotes:     true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
			CanChangeInfo:         true,
			CanInviteUsers:        true,
			CanPinMessages:        true,
			CanManageTopics:       true,
		},
	}
	if _, err := o.bot.Request(config); err != nil {
		return wrapRights(fmt.Errorf("lift restrictions of user %d: %w", userID, err))
	}
	return nil
}

func (o *Operations) Ban(_ context.Context, chatID, userID int64) error {
	config := api.BanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
	}
	if _, err := o.bot.Request(config); err != nil {
		return wrapRights(fmt.Errorf("ban user %d: %w", userID, err))
	}
	return nil
}

func (o *Operations) Unban(_ context.Context, chatID, userID int64) error {
	config := api.UnbanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		OnlyIfBanned:     true,
	}
	if _, err := o.bot.Request(config); err != nil {
		return wrapRights(fmt.Errorf("unban user %d: %w", userID, err))
	}
	return nil
}

func (o *Operations) Send(_ context.Context, out moderation.Outgoing) (int, error) {
	msg := api.NewMessage(out.ChatID, out.Text)
	msg.LinkPreviewOptions.IsDisabled = true
	if out.ReplyTo != 0 {
		msg.ReplyParameters = api.ReplyParameters{
			ChatID:                   out.ChatID,
			MessageID:                out.ReplyTo,
			AllowSendingWithoutReply: true,
		}
	}
	if markup := keyboard(out.Buttons); markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := o.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message to %d: %w", out.ChatID, err)
	}
	return sent.MessageID, nil
}

func (o *Operations) Edit(_ context.Context, chatID int64, messageID int, text string, buttons []moderation.Button) error {
	edit := api.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = keyboard(buttons)
	if _, err := o.bot.Send(edit); err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

func (o *Operations) Delete(_ context.Context, chatID int64, messageID int) error {
	if _, err := o.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message %d: %w", messageID, err)
	}
	return nil
}

func (o *Operations) IsElevated(ctx context.Context, chatID, userID int64) (bool, error) {
	member, err := o.member(ctx, chatID, userID)
	if err != nil {
		return false, err
	}
	return permissions.IsElevated(member), nil
}

// CheckEnforcement verifies the bot itself may restrict, ban and delete in the chat.
func (o *Operations) CheckEnforcement(ctx context.Context, chatID, botID int64) error {
	member, err := o.member(ctx, chatID, botID)
	if err != nil {
		return err
	}
	if !permissions.CanEnforce(member) {
		return fmt.Errorf("chat %d: %w", chatID, rberrors.ErrNoPrivileges)
	}
	return nil
}

// AnswerCallback acknowledges an inline control press; alert shows a modal instead of a toast.
func (o *Operations) AnswerCallback(_ context.Context, callbackID, text string, alert bool) {
	config := api.NewCallback(callbackID, text)
	if alert {
		config = api.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := o.bot.Request(config); err != nil {
		log.WithField("object", "Operations").WithError(err).Debug("cant answer callback")
	}
}

func (o *Operations) member(_ context.Context, chatID, userID int64) (*api.ChatMember, error) {
	member, err := o.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{
				ChatID: chatID,
			},
			UserID: userID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get chat member %d in %d: %w", userID, chatID, err)
	}
	return &member, nil
}

func memberConfig(chatID, userID int64) api.ChatMemberConfig {
	return api.ChatMemberConfig{
		ChatConfig: api.ChatConfig{
			ChatID: chatID,
		},
		UserID: userID,
	}
}

func keyboard(buttons []moderation.Button) *api.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	row := make([]api.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, api.NewInlineKeyboardButtonData(b.Text, b.Data))
	}
	markup := api.NewInlineKeyboardMarkup(api.NewInlineKeyboardRow(row...))
	return &markup
}

func wrapRights(err error) error {
	if strings.Contains(err.Error(), "not enough rights") {
		return fmt.Errorf("%w: %w", rberrors.ErrNoPrivileges, err)
	}
	return err
}
