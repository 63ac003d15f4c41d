package sweepsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/OleksiukStepan/library-service-api/model"
	borrowingrepo "github.com/OleksiukStepan/library-service-api/repository/borrowing"
	"github.com/OleksiukStepan/library-service-api/util/dates"
)

type Borrowings interface {
	ListOverdue(ctx context.Context, cutoff time.Time) ([]borrowingrepo.ListRow, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// SessionSweeper is satisfied by the payment service.
type SessionSweeper interface {
	SweepExpiredSessions(ctx context.Context) error
}

type Service interface {
	// ScanOverdue notifies staff about every active borrowing due within
	// a day, or reports that nothing is overdue.
	ScanOverdue(ctx context.Context) error

	// Start launches both recurring sweeps and blocks until ctx is done.
	Start(ctx context.Context)
}

type service struct {
	borrowings      Borrowings
	sessions        SessionSweeper
	notifier        Notifier
	sessionInterval time.Duration
	overdueInterval time.Duration
	log             *slog.Logger
}

func New(
	borrowings Borrowings,
	sessions SessionSweeper,
	n Notifier,
	sessionInterval, overdueInterval time.Duration,
	log *slog.Logger,
) Service {
	return &service{
		borrowings:      borrowings,
		sessions:        sessions,
		notifier:        n,
		sessionInterval: sessionInterval,
		overdueInterval: overdueInterval,
		log:             log,
	}
}

func (s *service) ScanOverdue(ctx context.Context) error {
	// Anything due tomorrow or earlier counts as overdue for the report.
	cutoff := dates.Today().AddDate(0, 0, 1)
	overdue, err := s.borrowings.ListOverdue(ctx, cutoff)
	if err != nil {
		return err
	}

	if len(overdue) == 0 {
		return s.notifier.Send(ctx, "No borrowings overdue today!")
	}

	for _, b := range overdue {
		msg := fmt.Sprintf(
			"Overdue Borrowing (ID: %d):\nUser: %s\nBook: %s\nBorrow Date: %s\nExpected Return Date: %s",
			b.ID, b.UserEmail, b.BookTitle,
			b.BorrowDate.Format(model.DateLayout),
			b.ExpectedReturnDate.Format(model.DateLayout),
		)
		if err := s.notifier.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) Start(ctx context.Context) {
	s.log.Info("sweep scheduler started",
		"session_interval", s.sessionInterval, "overdue_interval", s.overdueInterval)

	sessionTicker := time.NewTicker(s.sessionInterval)
	defer sessionTicker.Stop()
	overdueTicker := time.NewTicker(s.overdueInterval)
	defer overdueTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweep scheduler stopped")
			return
		case <-sessionTicker.C:
			if err := s.sessions.SweepExpiredSessions(ctx); err != nil {
				s.log.Error("expired session sweep failed", "err", err)
			}
		case <-overdueTicker.C:
			if err := s.ScanOverdue(ctx); err != nil {
				s.log.Error("overdue scan failed", "err", err)
			}
		}
	}
}
