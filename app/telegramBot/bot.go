// Package telegramBot runs the long-polling bot that links staff Telegram
// chats to their accounts. Each chat walks a small login state machine:
// start -> email -> password -> authenticated. Failed logins drop the
// session and the user has to /start over.
package telegramBot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/OleksiukStepan/library-service-api/model"
	telegramrepo "github.com/OleksiukStepan/library-service-api/repository/telegram"
	authsvc "github.com/OleksiukStepan/library-service-api/service/auth"
)

const pollTimeoutSec = 30

type state int

const (
	stateStart state = iota
	stateAwaitEmail
	stateAwaitPassword
	stateAuthenticated
)

type session struct {
	state state
	email string
}

// Accounts is the slice of the auth service the bot needs.
type Accounts interface {
	LinkTelegramChat(ctx context.Context, email, password string, chatID int64) (*model.User, error)
}

type Bot struct {
	tg       telegramrepo.Repo
	accounts Accounts
	log      *slog.Logger

	// sessions is only touched from the Run goroutine.
	sessions map[int64]*session
}

func New(tg telegramrepo.Repo, accounts Accounts, log *slog.Logger) *Bot {
	return &Bot{
		tg:       tg,
		accounts: accounts,
		log:      log,
		sessions: make(map[int64]*session),
	}
}

// Run polls for updates until ctx is done.
func (b *Bot) Run(ctx context.Context) {
	b.log.Info("telegram bot listening for new messages")

	var offset int64
	for {
		if ctx.Err() != nil {
			b.log.Info("telegram bot stopped")
			return
		}

		updates, err := b.tg.GetUpdates(ctx, offset, pollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			b.log.Warn("getUpdates failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.Text == "" {
				continue
			}

			chatID := u.Message.Chat.ID
			reply := b.handleMessage(ctx, chatID, strings.TrimSpace(u.Message.Text))
			if reply == "" {
				continue
			}
			if err := b.tg.SendMessage(ctx, chatID, reply); err != nil {
				b.log.Warn("reply failed", "chat_id", chatID, "err", err)
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, chatID int64, text string) string {
	sess, ok := b.sessions[chatID]
	if !ok {
		sess = &session{state: stateStart}
		b.sessions[chatID] = sess
	}

	if text == "/start" {
		sess.state = stateAwaitEmail
		sess.email = ""
		return "Welcome to the DNA Library service.\nPlease send the email of your staff account."
	}

	switch sess.state {
	case stateAwaitEmail:
		sess.email = text
		sess.state = stateAwaitPassword
		return "Now send your password."

	case stateAwaitPassword:
		user, err := b.accounts.LinkTelegramChat(ctx, sess.email, text, chatID)
		if err != nil {
			// Drop the session on any failed login; the user starts over.
			delete(b.sessions, chatID)
			if errors.Is(err, authsvc.ErrNotStaff) {
				return "This bot is for staff accounts only."
			}
			if errors.Is(err, authsvc.ErrInvalidCreds) {
				return "Authentication failed. Send /start to try again."
			}
			b.log.Error("chat link failed", "chat_id", chatID, "err", err)
			return "Something went wrong. Send /start to try again."
		}
		sess.state = stateAuthenticated
		sess.email = ""
		b.log.Info("chat linked", "chat_id", chatID, "user_id", user.ID)
		return "This chat is now linked. Library notifications will arrive here."

	case stateAuthenticated:
		return "You are already receiving notifications in this chat."

	default:
		return "Sorry, can't handle it. Send /start to begin."
	}
}
