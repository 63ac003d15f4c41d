package borrowingsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/OleksiukStepan/library-service-api/model"
	bookrepo "github.com/OleksiukStepan/library-service-api/repository/book"
	borrowingrepo "github.com/OleksiukStepan/library-service-api/repository/borrowing"
	"github.com/OleksiukStepan/library-service-api/util/dates"
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound       ErrCode = "BOOK_NOT_FOUND"
	ErrOutOfStock         ErrCode = "OUT_OF_STOCK"
	ErrPendingPayments    ErrCode = "PENDING_PAYMENTS"
	ErrPastBorrowDate     ErrCode = "PAST_BORROW_DATE"
	ErrReturnBeforeBorrow ErrCode = "RETURN_BEFORE_BORROW"
	ErrAlreadyReturned    ErrCode = "ALREADY_RETURNED"
	ErrNotFound           ErrCode = "NOT_FOUND"
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

// dto

type CreateReq struct {
	BookID             int64
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
}

type ListRow = borrowingrepo.ListRow
type Detail = borrowingrepo.Detail
type Filter = borrowingrepo.Filter

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returnedOn time.Time) error
	Get(ctx context.Context, id int64) (*model.Borrowing, error)
	GetDetail(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context, f Filter) ([]ListRow, error)
	UserHasPendingPayment(ctx context.Context, tx *sql.Tx, userID int64) (bool, error)
}

type Books interface {
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error)
	DecrementInventory(ctx context.Context, tx *sql.Tx, id int64) error
	IncrementInventory(ctx context.Context, tx *sql.Tx, id int64) error
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type Users interface {
	ByID(ctx context.Context, id int64) (*model.User, error)
}

// Sessions is the payment-session side of the lifecycle; satisfied by the
// payment service.
type Sessions interface {
	OpenSession(ctx context.Context, b *model.Borrowing, book *model.Book) (*model.Payment, error)
}

type Notifier interface {
	Dispatch(text string)
}

type Service interface {
	// Create validates the borrow request, atomically takes one copy out of
	// inventory, and opens the up-front payment session.
	Create(ctx context.Context, principal model.Principal, req CreateReq) (*model.Borrowing, *model.Payment, error)

	// Return closes an active borrowing: sets the return date, puts the
	// copy back, and opens a fine session when the return is late.
	Return(ctx context.Context, principal model.Principal, borrowingID int64) (*model.Borrowing, *model.Payment, error)

	List(ctx context.Context, principal model.Principal, f Filter) ([]ListRow, error)
	Get(ctx context.Context, principal model.Principal, borrowingID int64) (*Detail, error)
}

// ----- Service implementation -----

type service struct {
	db       *sql.DB
	r        Repo
	books    Books
	users    Users
	sessions Sessions
	notifier Notifier
	log      *slog.Logger
}

func New(db *sql.DB, r Repo, books Books, users Users, sessions Sessions, n Notifier, log *slog.Logger) Service {
	return &service{db: db, r: r, books: books, users: users, sessions: sessions, notifier: n, log: log}
}

func (s *service) Create(ctx context.Context, principal model.Principal, req CreateReq) (*model.Borrowing, *model.Payment, error) {
	borrowDate := dates.Truncate(req.BorrowDate)
	expectedReturn := dates.Truncate(req.ExpectedReturnDate)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	book, err := s.books.GetForUpdate(ctx, tx, req.BookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, makeErr(ErrBookNotFound)
		}
		return nil, nil, err
	}
	if book.Inventory <= 0 {
		err = makeErr(ErrOutOfStock)
		return nil, nil, err
	}

	pending, err := s.r.UserHasPendingPayment(ctx, tx, principal.ID)
	if err != nil {
		return nil, nil, err
	}
	if pending {
		err = makeErr(ErrPendingPayments)
		return nil, nil, err
	}

	if borrowDate.Before(dates.Today()) {
		err = makeErr(ErrPastBorrowDate)
		return nil, nil, err
	}
	if expectedReturn.Before(borrowDate) {
		err = makeErr(ErrReturnBeforeBorrow)
		return nil, nil, err
	}

	if err = s.books.DecrementInventory(ctx, tx, book.ID); err != nil {
		if errors.Is(err, bookrepo.ErrNoInventory) {
			err = makeErr(ErrOutOfStock)
		}
		return nil, nil, err
	}

	borrowing := &model.Borrowing{
		BorrowDate:         borrowDate,
		ExpectedReturnDate: expectedReturn,
		BookID:             book.ID,
		UserID:             principal.ID,
	}
	if err = s.r.Insert(ctx, tx, borrowing); err != nil {
		return nil, nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}

	// The borrowing is committed; a provider failure past this point leaves
	// it standing with no payment attached.
	payment, err := s.sessions.OpenSession(ctx, borrowing, book)
	if err != nil {
		s.log.Error("payment session open failed after borrow commit",
			"borrowing_id", borrowing.ID, "err", err)
		return nil, nil, err
	}

	user, uerr := s.users.ByID(ctx, principal.ID)
	email := ""
	if uerr == nil {
		email = user.Email
	}
	s.notifier.Dispatch(fmt.Sprintf(
		"New borrowing created (ID: %d):\nUser: %s\nBook: %s\nDue Date: %s",
		borrowing.ID, email, book.Title,
		borrowing.ExpectedReturnDate.Format(model.DateLayout),
	))

	return borrowing, payment, nil
}

func (s *service) Return(ctx context.Context, principal model.Principal, borrowingID int64) (*model.Borrowing, *model.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	borrowing, err := s.r.GetForUpdate(ctx, tx, borrowingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, makeErr(ErrNotFound)
		}
		return nil, nil, err
	}
	if !principal.IsStaff && borrowing.UserID != principal.ID {
		err = makeErr(ErrNotFound)
		return nil, nil, err
	}
	if borrowing.ActualReturnDate != nil {
		err = makeErr(ErrAlreadyReturned)
		return nil, nil, err
	}

	today := dates.Today()
	if err = s.r.MarkReturned(ctx, tx, borrowing.ID, today); err != nil {
		return nil, nil, err
	}
	if err = s.books.IncrementInventory(ctx, tx, borrowing.BookID); err != nil {
		return nil, nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, err
	}

	borrowing.ActualReturnDate = &today

	book, err := s.books.Detail(ctx, borrowing.BookID)
	if err != nil {
		return nil, nil, err
	}

	// Only actually opens a session when the return was late.
	payment, err := s.sessions.OpenSession(ctx, borrowing, book)
	if err != nil {
		s.log.Error("fine session open failed after return",
			"borrowing_id", borrowing.ID, "err", err)
		return nil, nil, err
	}

	return borrowing, payment, nil
}

func (s *service) List(ctx context.Context, principal model.Principal, f Filter) ([]ListRow, error) {
	if !principal.IsStaff {
		// Non-staff only ever see their own borrowings.
		f.UserID = &principal.ID
	}
	return s.r.List(ctx, f)
}

func (s *service) Get(ctx context.Context, principal model.Principal, borrowingID int64) (*Detail, error) {
	d, err := s.r.GetDetail(ctx, borrowingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !principal.IsStaff && d.Borrowing.UserID != principal.ID {
		return nil, makeErr(ErrNotFound)
	}
	return d, nil
}
