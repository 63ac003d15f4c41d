package bookrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/OleksiukStepan/library-service-api/model"
)

// Filter narrows List to case-insensitive substring matches.
type Filter struct {
	Title  string
	Author string
	// OrderBy holds whitelisted "column [DESC]" clauses produced by the
	// service; never raw user input.
	OrderBy []string
}

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)

	GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error)
	DecrementInventory(ctx context.Context, tx *sql.Tx, id int64) error
	IncrementInventory(ctx context.Context, tx *sql.Tx, id int64) error
}

var ErrNoInventory = errors.New("no inventory left")

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db} }

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
INSERT INTO books (title, author, cover, inventory, daily_fee, image_url)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id`
	return r.db.QueryRowContext(ctx, q,
		b.Title, b.Author, b.Cover, b.Inventory, b.DailyFee, b.ImageURL,
	).Scan(&b.ID)
}

func (r *repo) Update(ctx context.Context, b *model.Book) error {
	const q = `
UPDATE books
SET title=$2, author=$3, cover=$4, inventory=$5, daily_fee=$6, image_url=$7
WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q,
		b.ID, b.Title, b.Author, b.Cover, b.Inventory, b.DailyFee, b.ImageURL)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repo) List(ctx context.Context, f Filter) ([]model.Book, error) {
	q := `
SELECT id, title, author, cover, inventory, daily_fee, image_url
FROM books`
	var conds []string
	var args []any
	if f.Title != "" {
		args = append(args, f.Title)
		conds = append(conds, fmt.Sprintf("title ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if f.Author != "" {
		args = append(args, f.Author)
		conds = append(conds, fmt.Sprintf("author ILIKE '%%' || $%d || '%%'", len(args)))
	}
	if len(conds) > 0 {
		q += "\nWHERE " + strings.Join(conds, " AND ")
	}
	if len(f.OrderBy) > 0 {
		q += "\nORDER BY " + strings.Join(f.OrderBy, ", ")
	} else {
		q += "\nORDER BY id"
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Cover, &b.Inventory, &b.DailyFee, &b.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Book, error) {
	const q = `
SELECT id, title, author, cover, inventory, daily_fee, image_url
FROM books
WHERE id=$1`
	var b model.Book
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.Cover, &b.Inventory, &b.DailyFee, &b.ImageURL)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
	const q = `
SELECT id, title, author, cover, inventory, daily_fee, image_url
FROM books
WHERE id=$1
FOR UPDATE`
	var b model.Book
	err := tx.QueryRowContext(ctx, q, id).
		Scan(&b.ID, &b.Title, &b.Author, &b.Cover, &b.Inventory, &b.DailyFee, &b.ImageURL)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) DecrementInventory(ctx context.Context, tx *sql.Tx, id int64) error {
	// Guard: only decrement while stock remains, so two borrows racing for
	// the last copy cannot both succeed.
	const q = `
UPDATE books
SET inventory = inventory - 1
WHERE id = $1
AND inventory > 0`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoInventory
	}
	return nil
}

func (r *repo) IncrementInventory(ctx context.Context, tx *sql.Tx, id int64) error {
	const q = `
UPDATE books
SET inventory = inventory + 1
WHERE id = $1`
	_, err := tx.ExecContext(ctx, q, id)
	return err
}
