package paymentrepo

import (
	"context"
	"database/sql"

	"github.com/OleksiukStepan/library-service-api/model"
)

// DetailRow joins a payment with the bits of its borrowing the payment
// lifecycle needs: who owns it and which book it charges for.
type DetailRow struct {
	Payment   model.Payment
	OwnerID   int64
	UserEmail string
	BookTitle string
}

type Repo interface {
	Insert(ctx context.Context, p *model.Payment) error
	Find(ctx context.Context, id int64) (*DetailRow, error)
	FindBySessionID(ctx context.Context, sessionID string) (*DetailRow, error)
	List(ctx context.Context, userID *int64) ([]model.Payment, error)
	ListPending(ctx context.Context) ([]model.Payment, error)

	MarkPaid(ctx context.Context, id int64) error
	MarkExpired(ctx context.Context, id int64) error
	RenewSession(ctx context.Context, id int64, sessionID, sessionURL string) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Insert(ctx context.Context, p *model.Payment) error {
	const q = `
INSERT INTO payments (status, type, borrowing_id, session_id, session_url, money_to_pay)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, q,
		p.Status, p.Type, p.BorrowingID, p.SessionID, p.SessionURL, p.MoneyToPay,
	).Scan(&p.ID, &p.CreatedAt)
}

const detailQuery = `
SELECT p.id, p.status, p.type, p.borrowing_id, p.session_id, p.session_url,
       p.money_to_pay, p.created_at,
       br.user_id, u.email, b.title
FROM payments p
JOIN borrowings br ON br.id = p.borrowing_id
JOIN users u ON u.id = br.user_id
JOIN books b ON b.id = br.book_id
`

func (r *repo) Find(ctx context.Context, id int64) (*DetailRow, error) {
	return r.scanDetail(r.db.QueryRowContext(ctx, detailQuery+`WHERE p.id = $1`, id))
}

func (r *repo) FindBySessionID(ctx context.Context, sessionID string) (*DetailRow, error) {
	return r.scanDetail(r.db.QueryRowContext(ctx, detailQuery+`WHERE p.session_id = $1`, sessionID))
}

func (r *repo) scanDetail(row *sql.Row) (*DetailRow, error) {
	var d DetailRow
	err := row.Scan(
		&d.Payment.ID, &d.Payment.Status, &d.Payment.Type, &d.Payment.BorrowingID,
		&d.Payment.SessionID, &d.Payment.SessionURL, &d.Payment.MoneyToPay,
		&d.Payment.CreatedAt,
		&d.OwnerID, &d.UserEmail, &d.BookTitle,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// List returns all payments, or only those belonging to userID when set.
func (r *repo) List(ctx context.Context, userID *int64) ([]model.Payment, error) {
	q := `
SELECT p.id, p.status, p.type, p.borrowing_id, p.session_id, p.session_url,
       p.money_to_pay, p.created_at
FROM payments p`
	var args []any
	if userID != nil {
		q += `
JOIN borrowings br ON br.id = p.borrowing_id
WHERE br.user_id = $1`
		args = append(args, *userID)
	}
	q += "\nORDER BY p.id"
	return r.listPayments(ctx, q, args...)
}

func (r *repo) ListPending(ctx context.Context) ([]model.Payment, error) {
	const q = `
SELECT id, status, type, borrowing_id, session_id, session_url, money_to_pay, created_at
FROM payments
WHERE status = 'PENDING'
ORDER BY id`
	return r.listPayments(ctx, q)
}

func (r *repo) listPayments(ctx context.Context, q string, args ...any) ([]model.Payment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.Status, &p.Type, &p.BorrowingID,
			&p.SessionID, &p.SessionURL, &p.MoneyToPay, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkPaid moves a payment to PAID from any not-yet-paid status. The sweep
// may have flipped a paid-but-slow session to EXPIRED before the success
// redirect landed; the provider's word that money moved wins, otherwise the
// row would stay renewable after being paid. Zero rows affected means the
// row was already PAID and is reported as sql.ErrNoRows.
func (r *repo) MarkPaid(ctx context.Context, id int64) error {
	const q = `
UPDATE payments
SET status = 'PAID'
WHERE id = $1
AND status <> 'PAID'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkExpired flips PENDING to EXPIRED. Re-running the sweep against rows
// that already moved on (PAID or EXPIRED) is a no-op.
func (r *repo) MarkExpired(ctx context.Context, id int64) error {
	const q = `
UPDATE payments
SET status = 'EXPIRED'
WHERE id = $1
AND status = 'PENDING'`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// RenewSession swaps in a fresh checkout session for an EXPIRED payment and
// resets it to PENDING. money_to_pay is deliberately untouched.
func (r *repo) RenewSession(ctx context.Context, id int64, sessionID, sessionURL string) error {
	const q = `
UPDATE payments
SET status = 'PENDING', session_id = $2, session_url = $3
WHERE id = $1
AND status = 'EXPIRED'`
	res, err := r.db.ExecContext(ctx, q, id, sessionID, sessionURL)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
