package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
)

// Handler reacts to one update; returning proceed=false stops the chain.
type Handler interface {
	Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
}
