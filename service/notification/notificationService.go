package notificationsvc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	telegramrepo "github.com/OleksiukStepan/library-service-api/repository/telegram"
)

// ChatStore is the slice of the user repository notifications need.
type ChatStore interface {
	StaffChatIDs(ctx context.Context) ([]int64, error)
	DetachChatID(ctx context.Context, chatID int64) error
}

type Service interface {
	// Send delivers text to every staff-linked chat. Per-recipient failures
	// are swallowed; a blocked chat is deregistered and skipped forever.
	Send(ctx context.Context, text string) error

	// Dispatch fires Send in the background. Lifecycle operations use this
	// so a slow or dead messaging provider can never block or fail them.
	Dispatch(text string)
}

type service struct {
	chats ChatStore
	tg    telegramrepo.Repo
	log   *slog.Logger
}

func New(chats ChatStore, tg telegramrepo.Repo, log *slog.Logger) Service {
	return &service{chats: chats, tg: tg, log: log}
}

func (s *service) Send(ctx context.Context, text string) error {
	chatIDs, err := s.chats.StaffChatIDs(ctx)
	if err != nil {
		return err
	}
	if len(chatIDs) == 0 {
		s.log.Warn("no admin chats to send messages to")
		return nil
	}

	for _, chatID := range chatIDs {
		err := s.tg.SendMessage(ctx, chatID, text)
		switch {
		case err == nil:
			s.log.Info("message sent", "chat_id", chatID)
		case errors.Is(err, telegramrepo.ErrForbidden):
			s.log.Warn("bot blocked, removing chat link", "chat_id", chatID)
			if derr := s.chats.DetachChatID(ctx, chatID); derr != nil {
				s.log.Error("detach chat failed", "chat_id", chatID, "err", derr)
			}
		default:
			s.log.Error("send message failed", "chat_id", chatID, "err", err)
		}
	}
	return nil
}

func (s *service) Dispatch(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.Send(ctx, text); err != nil {
			s.log.Error("notification dispatch failed", "err", err)
		}
	}()
}
