package borrowingrepo

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/OleksiukStepan/library-service-api/model"
)

// ListRow is the list-view shape: linked book and user are collapsed to
// title and email.
type ListRow struct {
	ID                 int64
	BorrowDate         time.Time
	ExpectedReturnDate time.Time
	ActualReturnDate   *time.Time
	BookTitle          string
	UserEmail          string
}

// Detail is the detail-view shape: linked records embedded in full.
type Detail struct {
	Borrowing model.Borrowing
	Book      model.Book
	User      model.User
	Payments  []model.Payment
}

// Filter narrows List. UserID only has effect for staff callers; the
// service pins it to the principal for everyone else.
type Filter struct {
	UserID   *int64
	IsActive *bool
}

type Repo interface {
	Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returnedOn time.Time) error

	Get(ctx context.Context, id int64) (*model.Borrowing, error)
	GetDetail(ctx context.Context, id int64) (*Detail, error)
	List(ctx context.Context, f Filter) ([]ListRow, error)

	UserHasPendingPayment(ctx context.Context, tx *sql.Tx, userID int64) (bool, error)
	ListOverdue(ctx context.Context, cutoff time.Time) ([]ListRow, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error {
	const q = `
INSERT INTO borrowings (borrow_date, expected_return_date, book_id, user_id)
VALUES ($1,$2,$3,$4)
RETURNING id, created_at`
	return tx.QueryRowContext(ctx, q,
		b.BorrowDate, b.ExpectedReturnDate, b.BookID, b.UserID,
	).Scan(&b.ID, &b.CreatedAt)
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
	const q = `
SELECT id, borrow_date, expected_return_date, actual_return_date, book_id, user_id, created_at
FROM borrowings
WHERE id = $1
FOR UPDATE`
	return scanBorrowing(tx.QueryRowContext(ctx, q, id))
}

func (r *repo) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returnedOn time.Time) error {
	// Guarded so a return can only ever happen once.
	const q = `
UPDATE borrowings
SET actual_return_date = $2
WHERE id = $1
AND actual_return_date IS NULL`
	res, err := tx.ExecContext(ctx, q, id, returnedOn)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) Get(ctx context.Context, id int64) (*model.Borrowing, error) {
	const q = `
SELECT id, borrow_date, expected_return_date, actual_return_date, book_id, user_id, created_at
FROM borrowings
WHERE id = $1`
	return scanBorrowing(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	const q = `
SELECT br.id, br.borrow_date, br.expected_return_date, br.actual_return_date,
       br.book_id, br.user_id, br.created_at,
       b.id, b.title, b.author, b.cover, b.inventory, b.daily_fee, b.image_url,
       u.id, u.email, u.first_name, u.last_name, u.is_staff, u.created_at
FROM borrowings br
JOIN books b ON b.id = br.book_id
JOIN users u ON u.id = br.user_id
WHERE br.id = $1`
	var d Detail
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.Borrowing.ID, &d.Borrowing.BorrowDate, &d.Borrowing.ExpectedReturnDate,
		&d.Borrowing.ActualReturnDate, &d.Borrowing.BookID, &d.Borrowing.UserID,
		&d.Borrowing.CreatedAt,
		&d.Book.ID, &d.Book.Title, &d.Book.Author, &d.Book.Cover,
		&d.Book.Inventory, &d.Book.DailyFee, &d.Book.ImageURL,
		&d.User.ID, &d.User.Email, &d.User.FirstName, &d.User.LastName,
		&d.User.IsStaff, &d.User.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	const qp = `
SELECT id, status, type, borrowing_id, session_id, session_url, money_to_pay, created_at
FROM payments
WHERE borrowing_id = $1
ORDER BY id`
	rows, err := r.db.QueryContext(ctx, qp, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.Status, &p.Type, &p.BorrowingID,
			&p.SessionID, &p.SessionURL, &p.MoneyToPay, &p.CreatedAt); err != nil {
			return nil, err
		}
		d.Payments = append(d.Payments, p)
	}
	return &d, rows.Err()
}

func (r *repo) List(ctx context.Context, f Filter) ([]ListRow, error) {
	q := `
SELECT br.id, br.borrow_date, br.expected_return_date, br.actual_return_date,
       b.title, u.email
FROM borrowings br
JOIN books b ON b.id = br.book_id
JOIN users u ON u.id = br.user_id`
	var args []any
	where := ""
	if f.UserID != nil {
		args = append(args, *f.UserID)
		where = "\nWHERE br.user_id = $" + strconv.Itoa(len(args))
	}
	if f.IsActive != nil {
		cond := "br.actual_return_date IS NULL"
		if !*f.IsActive {
			cond = "br.actual_return_date IS NOT NULL"
		}
		if where == "" {
			where = "\nWHERE " + cond
		} else {
			where += " AND " + cond
		}
	}
	q += where + "\nORDER BY br.id"

	return r.listRows(ctx, q, args...)
}

func (r *repo) UserHasPendingPayment(ctx context.Context, tx *sql.Tx, userID int64) (bool, error) {
	const q = `
SELECT EXISTS (
    SELECT 1
    FROM payments p
    JOIN borrowings br ON br.id = p.borrowing_id
    WHERE br.user_id = $1
    AND p.status = 'PENDING'
)`
	var exists bool
	err := tx.QueryRowContext(ctx, q, userID).Scan(&exists)
	return exists, err
}

func (r *repo) ListOverdue(ctx context.Context, cutoff time.Time) ([]ListRow, error) {
	const q = `
SELECT br.id, br.borrow_date, br.expected_return_date, br.actual_return_date,
       b.title, u.email
FROM borrowings br
JOIN books b ON b.id = br.book_id
JOIN users u ON u.id = br.user_id
WHERE br.expected_return_date <= $1
AND br.actual_return_date IS NULL
ORDER BY br.expected_return_date, br.id`
	return r.listRows(ctx, q, cutoff)
}

func (r *repo) listRows(ctx context.Context, q string, args ...any) ([]ListRow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListRow
	for rows.Next() {
		var lr ListRow
		if err := rows.Scan(&lr.ID, &lr.BorrowDate, &lr.ExpectedReturnDate,
			&lr.ActualReturnDate, &lr.BookTitle, &lr.UserEmail); err != nil {
			return nil, err
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}

func scanBorrowing(row *sql.Row) (*model.Borrowing, error) {
	var b model.Borrowing
	err := row.Scan(&b.ID, &b.BorrowDate, &b.ExpectedReturnDate,
		&b.ActualReturnDate, &b.BookID, &b.UserID, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
