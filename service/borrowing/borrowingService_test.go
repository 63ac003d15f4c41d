package borrowingsvc

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/OleksiukStepan/library-service-api/model"
	bookrepo "github.com/OleksiukStepan/library-service-api/repository/book"
	"github.com/OleksiukStepan/library-service-api/util/dates"
)

// --- stub sql driver so BeginTx/Commit work without a database ---

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return stubConn{}, nil }

type stubConn struct{}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return stubTx{}, nil }

type stubTx struct{}

func (stubTx) Commit() error   { return nil }
func (stubTx) Rollback() error { return nil }

func init() { sql.Register("stub", stubDriver{}) }

func newStubDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("stub", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// --- mocks ---

type mockRepo struct {
	insertFn       func(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error
	getForUpdateFn func(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error)
	markReturnedFn func(ctx context.Context, tx *sql.Tx, id int64, returnedOn time.Time) error
	getFn          func(ctx context.Context, id int64) (*model.Borrowing, error)
	getDetailFn    func(ctx context.Context, id int64) (*Detail, error)
	listFn         func(ctx context.Context, f Filter) ([]ListRow, error)
	hasPendingFn   func(ctx context.Context, tx *sql.Tx, userID int64) (bool, error)
}

var _ Repo = (*mockRepo)(nil)

func (m *mockRepo) Insert(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error {
	if m.insertFn == nil {
		b.ID = 1
		return nil
	}
	return m.insertFn(ctx, tx, b)
}

func (m *mockRepo) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
	return m.getForUpdateFn(ctx, tx, id)
}

func (m *mockRepo) MarkReturned(ctx context.Context, tx *sql.Tx, id int64, returnedOn time.Time) error {
	if m.markReturnedFn == nil {
		return nil
	}
	return m.markReturnedFn(ctx, tx, id, returnedOn)
}

func (m *mockRepo) Get(ctx context.Context, id int64) (*model.Borrowing, error) {
	return m.getFn(ctx, id)
}

func (m *mockRepo) GetDetail(ctx context.Context, id int64) (*Detail, error) {
	return m.getDetailFn(ctx, id)
}

func (m *mockRepo) List(ctx context.Context, f Filter) ([]ListRow, error) {
	return m.listFn(ctx, f)
}

func (m *mockRepo) UserHasPendingPayment(ctx context.Context, tx *sql.Tx, userID int64) (bool, error) {
	if m.hasPendingFn == nil {
		return false, nil
	}
	return m.hasPendingFn(ctx, tx, userID)
}

type mockBooks struct {
	book        *model.Book
	decremented int
	incremented int
	decrementFn func(ctx context.Context, tx *sql.Tx, id int64) error
}

var _ Books = (*mockBooks)(nil)

func (m *mockBooks) GetForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*model.Book, error) {
	if m.book == nil {
		return nil, sql.ErrNoRows
	}
	return m.book, nil
}

func (m *mockBooks) DecrementInventory(ctx context.Context, tx *sql.Tx, id int64) error {
	if m.decrementFn != nil {
		return m.decrementFn(ctx, tx, id)
	}
	m.decremented++
	return nil
}

func (m *mockBooks) IncrementInventory(ctx context.Context, tx *sql.Tx, id int64) error {
	m.incremented++
	return nil
}

func (m *mockBooks) Detail(ctx context.Context, id int64) (*model.Book, error) {
	if m.book == nil {
		return nil, sql.ErrNoRows
	}
	return m.book, nil
}

type mockUsers struct{ user *model.User }

func (m *mockUsers) ByID(ctx context.Context, id int64) (*model.User, error) {
	if m.user == nil {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

type mockSessions struct {
	payment *model.Payment
	err     error
	calls   int
	lastB   *model.Borrowing
}

func (m *mockSessions) OpenSession(ctx context.Context, b *model.Borrowing, book *model.Book) (*model.Payment, error) {
	m.calls++
	m.lastB = b
	return m.payment, m.err
}

type mockNotifier struct{ messages []string }

func (m *mockNotifier) Dispatch(text string) { m.messages = append(m.messages, text) }

// --- helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBook(inventory int64, fee string) *model.Book {
	d, _ := decimal.NewFromString(fee)
	return &model.Book{ID: 3, Title: "Kobzar", Author: "Taras Shevchenko", Cover: model.CoverHard, Inventory: inventory, DailyFee: d}
}

// --- tests ---

func TestCreate_Success(t *testing.T) {
	ctx := context.Background()
	books := &mockBooks{book: testBook(1, "2.00")}
	sessions := &mockSessions{payment: &model.Payment{ID: 11, Status: model.PaymentPending}}
	notifier := &mockNotifier{}
	repo := &mockRepo{
		insertFn: func(ctx context.Context, tx *sql.Tx, b *model.Borrowing) error {
			b.ID = 7
			return nil
		},
	}

	svc := New(newStubDB(t), repo, books, &mockUsers{user: &model.User{ID: 5, Email: "reader@example.com"}}, sessions, notifier, testLogger())

	today := dates.Today()
	b, p, err := svc.Create(ctx, model.Principal{ID: 5}, CreateReq{
		BookID:             3,
		BorrowDate:         today,
		ExpectedReturnDate: today.AddDate(0, 0, 5),
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), b.ID)
	require.Equal(t, int64(5), b.UserID)
	require.Equal(t, int64(3), b.BookID)
	require.Equal(t, 1, books.decremented)
	require.NotNil(t, p)
	require.Equal(t, int64(11), p.ID)
	require.Equal(t, 1, sessions.calls)
	require.Len(t, notifier.messages, 1)
	require.Contains(t, notifier.messages[0], "New borrowing created (ID: 7)")
	require.Contains(t, notifier.messages[0], "reader@example.com")
	require.Contains(t, notifier.messages[0], "Kobzar")
}

func TestCreate_BookNotFound(t *testing.T) {
	svc := New(newStubDB(t), &mockRepo{}, &mockBooks{}, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	today := dates.Today()
	_, _, err := svc.Create(context.Background(), model.Principal{ID: 5}, CreateReq{
		BookID: 99, BorrowDate: today, ExpectedReturnDate: today,
	})
	require.Error(t, err)
	require.Equal(t, ErrBookNotFound, Code(err))
}

func TestCreate_OutOfStock(t *testing.T) {
	books := &mockBooks{book: testBook(0, "2.00")}
	sessions := &mockSessions{}
	svc := New(newStubDB(t), &mockRepo{}, books, &mockUsers{}, sessions, &mockNotifier{}, testLogger())

	today := dates.Today()
	_, _, err := svc.Create(context.Background(), model.Principal{ID: 5}, CreateReq{
		BookID: 3, BorrowDate: today, ExpectedReturnDate: today,
	})
	require.Error(t, err)
	require.Equal(t, ErrOutOfStock, Code(err))
	require.Zero(t, books.decremented)
	require.Zero(t, sessions.calls)
}

func TestCreate_OutOfStock_LostRace(t *testing.T) {
	// The snapshot says one copy, but the guarded decrement finds none left.
	books := &mockBooks{
		book: testBook(1, "2.00"),
		decrementFn: func(ctx context.Context, tx *sql.Tx, id int64) error {
			return bookrepo.ErrNoInventory
		},
	}
	svc := New(newStubDB(t), &mockRepo{}, books, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	today := dates.Today()
	_, _, err := svc.Create(context.Background(), model.Principal{ID: 5}, CreateReq{
		BookID: 3, BorrowDate: today, ExpectedReturnDate: today,
	})
	require.Error(t, err)
	require.Equal(t, ErrOutOfStock, Code(err))
}

func TestCreate_PendingPaymentsBlock(t *testing.T) {
	repo := &mockRepo{
		hasPendingFn: func(ctx context.Context, tx *sql.Tx, userID int64) (bool, error) {
			return true, nil
		},
	}
	books := &mockBooks{book: testBook(4, "2.00")}
	svc := New(newStubDB(t), repo, books, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	today := dates.Today()
	_, _, err := svc.Create(context.Background(), model.Principal{ID: 5}, CreateReq{
		BookID: 3, BorrowDate: today, ExpectedReturnDate: today.AddDate(0, 0, 3),
	})
	require.Error(t, err)
	require.Equal(t, ErrPendingPayments, Code(err))
	require.Zero(t, books.decremented)
}

func TestCreate_PastBorrowDate(t *testing.T) {
	books := &mockBooks{book: testBook(4, "2.00")}
	svc := New(newStubDB(t), &mockRepo{}, books, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	yesterday := dates.Today().AddDate(0, 0, -1)
	_, _, err := svc.Create(context.Background(), model.Principal{ID: 5}, CreateReq{
		BookID: 3, BorrowDate: yesterday, ExpectedReturnDate: yesterday.AddDate(0, 0, 5),
	})
	require.Error(t, err)
	require.Equal(t, ErrPastBorrowDate, Code(err))
	require.Zero(t, books.decremented)
}

func TestCreate_ReturnBeforeBorrow(t *testing.T) {
	books := &mockBooks{book: testBook(4, "2.00")}
	svc := New(newStubDB(t), &mockRepo{}, books, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	today := dates.Today()
	_, _, err := svc.Create(context.Background(), model.Principal{ID: 5}, CreateReq{
		BookID: 3, BorrowDate: today, ExpectedReturnDate: today.AddDate(0, 0, -2),
	})
	require.Error(t, err)
	require.Equal(t, ErrReturnBeforeBorrow, Code(err))
	require.Zero(t, books.decremented)
}

func TestCreate_SameDayReturnAllowed(t *testing.T) {
	books := &mockBooks{book: testBook(4, "2.00")}
	// A zero-day borrowing owes nothing, so the payment side hands back nil.
	svc := New(newStubDB(t), &mockRepo{}, books, &mockUsers{user: &model.User{ID: 5}}, &mockSessions{}, &mockNotifier{}, testLogger())

	today := dates.Today()
	_, p, err := svc.Create(context.Background(), model.Principal{ID: 5}, CreateReq{
		BookID: 3, BorrowDate: today, ExpectedReturnDate: today,
	})
	require.NoError(t, err)
	require.Nil(t, p)
	require.Equal(t, 1, books.decremented)
}

func TestReturn_Success(t *testing.T) {
	today := dates.Today()
	borrowing := &model.Borrowing{
		ID: 7, UserID: 5, BookID: 3,
		BorrowDate:         today.AddDate(0, 0, -5),
		ExpectedReturnDate: today.AddDate(0, 0, 2),
	}
	books := &mockBooks{book: testBook(0, "2.00")}
	sessions := &mockSessions{} // on-time: payment service returns nil, nil
	repo := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
			return borrowing, nil
		},
	}
	svc := New(newStubDB(t), repo, books, &mockUsers{}, sessions, &mockNotifier{}, testLogger())

	b, p, err := svc.Return(context.Background(), model.Principal{ID: 5}, 7)
	require.NoError(t, err)
	require.NotNil(t, b.ActualReturnDate)
	require.Equal(t, today, *b.ActualReturnDate)
	require.Equal(t, 1, books.incremented)
	require.Nil(t, p)
	require.Equal(t, 1, sessions.calls)
	require.NotNil(t, sessions.lastB.ActualReturnDate)
}

func TestReturn_LateOpensFineSession(t *testing.T) {
	today := dates.Today()
	borrowing := &model.Borrowing{
		ID: 7, UserID: 5, BookID: 3,
		BorrowDate:         today.AddDate(0, 0, -10),
		ExpectedReturnDate: today.AddDate(0, 0, -2),
	}
	fine := &model.Payment{ID: 21, Type: model.TypeFine, Status: model.PaymentPending}
	repo := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
			return borrowing, nil
		},
	}
	svc := New(newStubDB(t), repo, &mockBooks{book: testBook(0, "2.00")}, &mockUsers{}, &mockSessions{payment: fine}, &mockNotifier{}, testLogger())

	_, p, err := svc.Return(context.Background(), model.Principal{ID: 5}, 7)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, model.TypeFine, p.Type)
}

func TestReturn_AlreadyReturned(t *testing.T) {
	today := dates.Today()
	returned := today.AddDate(0, 0, -1)
	marked := 0
	repo := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
			return &model.Borrowing{ID: 7, UserID: 5, BookID: 3, ActualReturnDate: &returned}, nil
		},
		markReturnedFn: func(ctx context.Context, tx *sql.Tx, id int64, returnedOn time.Time) error {
			marked++
			return nil
		},
	}
	books := &mockBooks{book: testBook(1, "2.00")}
	svc := New(newStubDB(t), repo, books, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	_, _, err := svc.Return(context.Background(), model.Principal{ID: 5}, 7)
	require.Error(t, err)
	require.Equal(t, ErrAlreadyReturned, Code(err))
	require.Zero(t, marked)
	require.Zero(t, books.incremented)
}

func TestReturn_NotOwnerHidden(t *testing.T) {
	repo := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
			return &model.Borrowing{ID: 7, UserID: 5, BookID: 3}, nil
		},
	}
	svc := New(newStubDB(t), repo, &mockBooks{book: testBook(1, "2.00")}, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	_, _, err := svc.Return(context.Background(), model.Principal{ID: 99}, 7)
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))
}

func TestReturn_StaffCanReturnForOthers(t *testing.T) {
	today := dates.Today()
	repo := &mockRepo{
		getForUpdateFn: func(ctx context.Context, tx *sql.Tx, id int64) (*model.Borrowing, error) {
			return &model.Borrowing{
				ID: 7, UserID: 5, BookID: 3,
				BorrowDate:         today.AddDate(0, 0, -1),
				ExpectedReturnDate: today.AddDate(0, 0, 1),
			}, nil
		},
	}
	svc := New(newStubDB(t), repo, &mockBooks{book: testBook(1, "2.00")}, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	_, _, err := svc.Return(context.Background(), model.Principal{ID: 99, IsStaff: true}, 7)
	require.NoError(t, err)
}

func TestList_NonStaffScopedToSelf(t *testing.T) {
	var got Filter
	repo := &mockRepo{
		listFn: func(ctx context.Context, f Filter) ([]ListRow, error) {
			got = f
			return nil, nil
		},
	}
	svc := New(newStubDB(t), repo, &mockBooks{}, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	other := int64(42)
	_, err := svc.List(context.Background(), model.Principal{ID: 5}, Filter{UserID: &other})
	require.NoError(t, err)
	require.NotNil(t, got.UserID)
	require.Equal(t, int64(5), *got.UserID)
}

func TestList_StaffFilterPassesThrough(t *testing.T) {
	var got Filter
	repo := &mockRepo{
		listFn: func(ctx context.Context, f Filter) ([]ListRow, error) {
			got = f
			return nil, nil
		},
	}
	svc := New(newStubDB(t), repo, &mockBooks{}, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	other := int64(42)
	active := true
	_, err := svc.List(context.Background(), model.Principal{ID: 5, IsStaff: true}, Filter{UserID: &other, IsActive: &active})
	require.NoError(t, err)
	require.Equal(t, int64(42), *got.UserID)
	require.True(t, *got.IsActive)
}

func TestGet_NotOwnerHidden(t *testing.T) {
	repo := &mockRepo{
		getDetailFn: func(ctx context.Context, id int64) (*Detail, error) {
			return &Detail{Borrowing: model.Borrowing{ID: 7, UserID: 5}}, nil
		},
	}
	svc := New(newStubDB(t), repo, &mockBooks{}, &mockUsers{}, &mockSessions{}, &mockNotifier{}, testLogger())

	_, err := svc.Get(context.Background(), model.Principal{ID: 99}, 7)
	require.Error(t, err)
	require.Equal(t, ErrNotFound, Code(err))

	d, err := svc.Get(context.Background(), model.Principal{ID: 99, IsStaff: true}, 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), d.Borrowing.ID)
}
