package userrepo

import (
	"context"
	"database/sql"

	"github.com/OleksiukStepan/library-service-api/model"
)

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
	ByID(ctx context.Context, id int64) (*model.User, error)
	Update(ctx context.Context, u *model.User) error

	StaffChatIDs(ctx context.Context) ([]int64, error)
	AttachChatID(ctx context.Context, userID, chatID int64) error
	DetachChatID(ctx context.Context, chatID int64) error
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Create(ctx context.Context, u *model.User) error {
	return r.db.QueryRowContext(ctx, `
		INSERT INTO users(email, first_name, last_name, password_hash, is_staff)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		u.Email, u.FirstName, u.LastName, u.PasswordHash, u.IsStaff,
	).Scan(&u.ID, &u.CreatedAt)
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
        SELECT id, email, first_name, last_name, password_hash, is_staff, telegram_chat_id, created_at
        FROM users
        WHERE lower(email) = lower($1)`,
		email,
	))
}

func (r *repo) ByID(ctx context.Context, id int64) (*model.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `
        SELECT id, email, first_name, last_name, password_hash, is_staff, telegram_chat_id, created_at
        FROM users
        WHERE id = $1`,
		id,
	))
}

func (r *repo) scan(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsStaff, &u.TelegramChatID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *repo) Update(ctx context.Context, u *model.User) error {
	const q = `
		UPDATE users
		SET first_name = $2, last_name = $3, password_hash = $4
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, u.ID, u.FirstName, u.LastName, u.PasswordHash)
	return err
}

func (r *repo) StaffChatIDs(ctx context.Context) ([]int64, error) {
	const q = `
		SELECT telegram_chat_id
		FROM users
		WHERE is_staff = TRUE
		AND telegram_chat_id IS NOT NULL`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *repo) AttachChatID(ctx context.Context, userID, chatID int64) error {
	const q = `UPDATE users SET telegram_chat_id = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, userID, chatID)
	return err
}

func (r *repo) DetachChatID(ctx context.Context, chatID int64) error {
	const q = `UPDATE users SET telegram_chat_id = NULL WHERE telegram_chat_id = $1`
	_, err := r.db.ExecContext(ctx, q, chatID)
	return err
}
