package booksvc_test

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/OleksiukStepan/library-service-api/model"
	bookrepo "github.com/OleksiukStepan/library-service-api/repository/book"
	booksvc "github.com/OleksiukStepan/library-service-api/service/book"
)

type repoMock struct {
	createFn func(ctx context.Context, b *model.Book) error
	updateFn func(ctx context.Context, b *model.Book) error
	deleteFn func(ctx context.Context, id int64) error
	listFn   func(ctx context.Context, f bookrepo.Filter) ([]model.Book, error)
	detailFn func(ctx context.Context, id int64) (*model.Book, error)
}

func (m *repoMock) Create(ctx context.Context, b *model.Book) error { return m.createFn(ctx, b) }
func (m *repoMock) Update(ctx context.Context, b *model.Book) error { return m.updateFn(ctx, b) }
func (m *repoMock) Delete(ctx context.Context, id int64) error      { return m.deleteFn(ctx, id) }
func (m *repoMock) List(ctx context.Context, f bookrepo.Filter) ([]model.Book, error) {
	return m.listFn(ctx, f)
}
func (m *repoMock) Detail(ctx context.Context, id int64) (*model.Book, error) {
	return m.detailFn(ctx, id)
}

func validBook() *model.Book {
	return &model.Book{
		Title:     "Kobzar",
		Author:    "Taras Shevchenko",
		Cover:     model.CoverHard,
		Inventory: 3,
		DailyFee:  decimal.NewFromInt(2),
	}
}

func TestCreate_Validation(t *testing.T) {
	s := booksvc.New(&repoMock{})
	ctx := context.Background()

	b := validBook()
	b.Title = ""
	if err := s.Create(ctx, b); !errors.Is(err, booksvc.ErrBadPayload) {
		t.Fatalf("empty title: got %v", err)
	}

	b = validBook()
	b.Author = ""
	if err := s.Create(ctx, b); !errors.Is(err, booksvc.ErrBadPayload) {
		t.Fatalf("empty author: got %v", err)
	}

	b = validBook()
	b.Cover = "SPIRAL"
	if err := s.Create(ctx, b); !errors.Is(err, booksvc.ErrBadPayload) {
		t.Fatalf("bad cover: got %v", err)
	}

	b = validBook()
	b.Inventory = -1
	if err := s.Create(ctx, b); !errors.Is(err, booksvc.ErrBadPayload) {
		t.Fatalf("negative inventory: got %v", err)
	}

	b = validBook()
	b.DailyFee = decimal.Zero
	if err := s.Create(ctx, b); !errors.Is(err, booksvc.ErrBadPayload) {
		t.Fatalf("zero fee: got %v", err)
	}
}

func TestCreate_ZeroInventoryAllowed(t *testing.T) {
	m := &repoMock{createFn: func(ctx context.Context, b *model.Book) error { return nil }}
	s := booksvc.New(m)

	b := validBook()
	b.Inventory = 0
	if err := s.Create(context.Background(), b); err != nil {
		t.Fatalf("zero inventory should be valid: %v", err)
	}
}

func TestParseOrdering(t *testing.T) {
	got, err := booksvc.ParseOrdering("title,-author")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"title", "author DESC"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v; want %v", got, want)
	}

	if got, err := booksvc.ParseOrdering(""); err != nil || got != nil {
		t.Fatalf("empty ordering: got %v %v", got, err)
	}

	if _, err := booksvc.ParseOrdering("inventory"); !errors.Is(err, booksvc.ErrBadOrdering) {
		t.Fatalf("non-whitelisted field: got %v", err)
	}
}

func TestList_PassesFilterThrough(t *testing.T) {
	var got bookrepo.Filter
	m := &repoMock{
		listFn: func(ctx context.Context, f bookrepo.Filter) ([]model.Book, error) {
			got = f
			return nil, nil
		},
	}
	s := booksvc.New(m)

	_, err := s.List(context.Background(), booksvc.ListQuery{
		Title: "kobzar", Author: "shev", Ordering: "-title",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Title != "kobzar" || got.Author != "shev" {
		t.Fatalf("filter not passed through: %+v", got)
	}
	if !reflect.DeepEqual(got.OrderBy, []string{"title DESC"}) {
		t.Fatalf("ordering not parsed: %v", got.OrderBy)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	m := &repoMock{
		updateFn: func(ctx context.Context, b *model.Book) error { return sql.ErrNoRows },
	}
	s := booksvc.New(m)

	if err := s.Update(context.Background(), validBook()); !errors.Is(err, booksvc.ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	m := &repoMock{
		deleteFn: func(ctx context.Context, id int64) error { return sql.ErrNoRows },
	}
	s := booksvc.New(m)

	if err := s.Delete(context.Background(), 99); !errors.Is(err, booksvc.ErrNotFound) {
		t.Fatalf("got %v; want ErrNotFound", err)
	}
}
