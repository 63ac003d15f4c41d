package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/OleksiukStepan/library-service-api/model"
	paymentrepo "github.com/OleksiukStepan/library-service-api/repository/payment"
	striperepo "github.com/OleksiukStepan/library-service-api/repository/stripe"
	"github.com/OleksiukStepan/library-service-api/util/dates"
)

// FineMultiplier scales the daily fee for every day past the expected
// return date.
const FineMultiplier = 2

const currency = "usd"

// errors used by controllers

type ErrCode string

const (
	ErrNotFound     ErrCode = "NOT_FOUND"
	ErrNotExpired   ErrCode = "NOT_EXPIRED"
	ErrNotCompleted ErrCode = "NOT_COMPLETED"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

type Notifier interface {
	Dispatch(text string)
}

type Repo interface {
	Insert(ctx context.Context, p *model.Payment) error
	Find(ctx context.Context, id int64) (*paymentrepo.DetailRow, error)
	FindBySessionID(ctx context.Context, sessionID string) (*paymentrepo.DetailRow, error)
	List(ctx context.Context, userID *int64) ([]model.Payment, error)
	ListPending(ctx context.Context) ([]model.Payment, error)
	MarkPaid(ctx context.Context, id int64) error
	MarkExpired(ctx context.Context, id int64) error
	RenewSession(ctx context.Context, id int64, sessionID, sessionURL string) error
}

type Service interface {
	// OpenSession opens a checkout session for a borrowing. On the borrow
	// action it charges the whole rental period up front; on the return
	// action it charges a fine only when the return was late, and does
	// nothing for an on-time return.
	OpenSession(ctx context.Context, b *model.Borrowing, book *model.Book) (*model.Payment, error)

	// Renew replaces the provider session of an EXPIRED payment with a fresh
	// one for the amount already on record, and resets it to PENDING.
	Renew(ctx context.Context, principal model.Principal, paymentID int64) (*model.Payment, error)

	// Confirm reconciles the payment behind a session id with the provider
	// after the success redirect.
	Confirm(ctx context.Context, sessionID string) (*model.Payment, error)

	List(ctx context.Context, principal model.Principal) ([]model.Payment, error)
	Get(ctx context.Context, principal model.Principal, id int64) (*model.Payment, error)

	// SweepExpiredSessions marks PENDING payments whose provider session is
	// no longer open (or no longer known) as EXPIRED.
	SweepExpiredSessions(ctx context.Context) error
}

type service struct {
	r          Repo
	stripe     striperepo.Repo
	notifier   Notifier
	successURL string
	cancelURL  string
	log        *slog.Logger
}

func New(r Repo, stripe striperepo.Repo, n Notifier, successURL, cancelURL string, log *slog.Logger) Service {
	return &service{r: r, stripe: stripe, notifier: n, successURL: successURL, cancelURL: cancelURL, log: log}
}

func (s *service) OpenSession(ctx context.Context, b *model.Borrowing, book *model.Book) (*model.Payment, error) {
	var (
		days        int64
		multiplier  int64
		paymentType model.PaymentType
	)
	if b.ActualReturnDate != nil {
		if !b.ActualReturnDate.After(b.ExpectedReturnDate) {
			// Returned on time, nothing owed.
			return nil, nil
		}
		days = dates.DaysBetween(b.ExpectedReturnDate, *b.ActualReturnDate)
		multiplier = FineMultiplier
		paymentType = model.TypeFine
	} else {
		days = dates.DaysBetween(b.BorrowDate, b.ExpectedReturnDate)
		multiplier = 1
		paymentType = model.TypePayment
	}

	total := book.DailyFee.
		Mul(decimal.NewFromInt(days)).
		Mul(decimal.NewFromInt(multiplier))
	if !total.IsPositive() {
		// A same-day borrowing owes 0.00; the provider rejects zero-amount
		// sessions, so no payment is recorded at all.
		return nil, nil
	}

	sess, err := s.stripe.CreateSession(ctx, striperepo.CreateSessionReq{
		ProductName: book.Title,
		AmountMinor: minorUnits(total),
		Currency:    currency,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	p := &model.Payment{
		Status:      model.PaymentPending,
		Type:        paymentType,
		BorrowingID: b.ID,
		SessionID:   sess.ID,
		SessionURL:  sess.URL,
		MoneyToPay:  total,
	}
	if err := s.r.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) Renew(ctx context.Context, principal model.Principal, paymentID int64) (*model.Payment, error) {
	d, err := s.r.Find(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !principal.IsStaff && d.OwnerID != principal.ID {
		return nil, makeErr(ErrNotFound)
	}
	if d.Payment.Status != model.PaymentExpired {
		return nil, makeErr(ErrNotExpired)
	}

	sess, err := s.stripe.CreateSession(ctx, striperepo.CreateSessionReq{
		ProductName: d.BookTitle,
		AmountMinor: minorUnits(d.Payment.MoneyToPay),
		Currency:    currency,
		SuccessURL:  s.successURL,
		CancelURL:   s.cancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	if err := s.r.RenewSession(ctx, paymentID, sess.ID, sess.URL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost a race with the success callback.
			return nil, makeErr(ErrNotExpired)
		}
		return nil, err
	}

	p := d.Payment
	p.Status = model.PaymentPending
	p.SessionID = sess.ID
	p.SessionURL = sess.URL
	return &p, nil
}

func (s *service) Confirm(ctx context.Context, sessionID string) (*model.Payment, error) {
	d, err := s.r.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if d.Payment.Status == model.PaymentPaid {
		return &d.Payment, nil
	}

	sess, err := s.stripe.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	if !sess.IsPaid() {
		return nil, makeErr(ErrNotCompleted)
	}

	if err := s.r.MarkPaid(ctx, d.Payment.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Another confirm got there first; the row is already PAID.
			p := d.Payment
			p.Status = model.PaymentPaid
			return &p, nil
		}
		return nil, err
	}

	s.notifier.Dispatch(fmt.Sprintf(
		"%s for borrowing (ID: %d):\nAmount: $ %s\nUser: %s",
		typeDisplay(d.Payment.Type),
		d.Payment.BorrowingID,
		d.Payment.MoneyToPay.StringFixed(2),
		d.UserEmail,
	))

	p := d.Payment
	p.Status = model.PaymentPaid
	return &p, nil
}

func (s *service) List(ctx context.Context, principal model.Principal) ([]model.Payment, error) {
	if principal.IsStaff {
		return s.r.List(ctx, nil)
	}
	return s.r.List(ctx, &principal.ID)
}

func (s *service) Get(ctx context.Context, principal model.Principal, id int64) (*model.Payment, error) {
	d, err := s.r.Find(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !principal.IsStaff && d.OwnerID != principal.ID {
		return nil, makeErr(ErrNotFound)
	}
	return &d.Payment, nil
}

func (s *service) SweepExpiredSessions(ctx context.Context) error {
	pending, err := s.r.ListPending(ctx)
	if err != nil {
		return err
	}

	for _, p := range pending {
		sess, err := s.stripe.RetrieveSession(ctx, p.SessionID)
		if err != nil {
			// The provider no longer knows the session; treat it as gone.
			s.log.Warn("session lookup failed, expiring payment",
				"payment_id", p.ID, "session_id", p.SessionID, "err", err)
			if err := s.r.MarkExpired(ctx, p.ID); err != nil {
				return err
			}
			continue
		}
		if sess.IsOpen() {
			continue
		}
		if err := s.r.MarkExpired(ctx, p.ID); err != nil {
			return err
		}
		s.log.Info("payment session expired", "payment_id", p.ID, "session_id", p.SessionID)
	}
	return nil
}

// minorUnits converts a decimal amount to the provider's integer minor-unit
// representation, truncating anything below one cent.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

func typeDisplay(t model.PaymentType) string {
	if t == model.TypeFine {
		return "Fine"
	}
	return "Payment"
}
