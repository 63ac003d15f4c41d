package telegramrepo

import (
	"context"
	"errors"
)

// ErrForbidden means the recipient blocked the bot; the chat link should be
// dropped and never retried.
var ErrForbidden = errors.New("telegram: bot blocked by recipient")

type Chat struct {
	ID int64 `json:"id"`
}

type Message struct {
	Chat Chat   `json:"chat"`
	Text string `json:"text"`
}

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Repo interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	// GetUpdates long-polls for up to timeoutSec seconds, returning updates
	// with update_id >= offset.
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error)
}
