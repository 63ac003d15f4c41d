package booksvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/OleksiukStepan/library-service-api/model"
	repo "github.com/OleksiukStepan/library-service-api/repository/book"
)

var (
	ErrBadPayload  = errors.New("invalid payload")
	ErrBadOrdering = errors.New("unknown ordering field")
	ErrNotFound    = errors.New("book not found")
)

// orderable whitelists the fields list results may be sorted by.
var orderable = map[string]string{
	"title":  "title",
	"author": "author",
}

// ListQuery carries the catalog filter/sort inputs: substring matches on
// title/author plus an ordering expression like "title,-author".
type ListQuery struct {
	Title    string
	Author   string
	Ordering string
}

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f repo.Filter) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type Service interface {
	Create(ctx context.Context, b *model.Book) error
	Update(ctx context.Context, b *model.Book) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, q ListQuery) ([]model.Book, error)
	Detail(ctx context.Context, id int64) (*model.Book, error)
}

type service struct{ r Repo }

func New(r Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, b *model.Book) error {
	if err := validate(b); err != nil {
		return err
	}
	return s.r.Create(ctx, b)
}

func (s *service) Update(ctx context.Context, b *model.Book) error {
	if err := validate(b); err != nil {
		return err
	}
	if err := s.r.Update(ctx, b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.r.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *service) List(ctx context.Context, q ListQuery) ([]model.Book, error) {
	orderBy, err := ParseOrdering(q.Ordering)
	if err != nil {
		return nil, err
	}
	return s.r.List(ctx, repo.Filter{
		Title:   q.Title,
		Author:  q.Author,
		OrderBy: orderBy,
	})
}

func (s *service) Detail(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func validate(b *model.Book) error {
	if b.Title == "" || b.Author == "" || !b.Cover.Valid() ||
		b.Inventory < 0 || !b.DailyFee.IsPositive() {
		return ErrBadPayload
	}
	return nil
}

// ParseOrdering turns "title,-author" into SQL ORDER BY clauses, accepting
// only whitelisted fields. A leading '-' means descending.
func ParseOrdering(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		col, ok := orderable[name]
		if !ok {
			return nil, ErrBadOrdering
		}
		if desc {
			col += " DESC"
		}
		out = append(out, col)
	}
	return out, nil
}
