package borrowing

import (
	"github.com/OleksiukStepan/library-service-api/model"
	borrowingsvc "github.com/OleksiukStepan/library-service-api/service/borrowing"
)

type CreateBorrowingReq struct {
	BookID             int64  `json:"book_id" validate:"required,gt=0"`
	BorrowDate         string `json:"borrow_date" validate:"required,datetime=2006-01-02"`
	ExpectedReturnDate string `json:"expected_return_date" validate:"required,datetime=2006-01-02"`
}

// ListView collapses the linked book and user to title and email.
type ListView struct {
	ID                 int64   `json:"id"`
	BorrowDate         string  `json:"borrow_date"`
	ExpectedReturnDate string  `json:"expected_return_date"`
	ActualReturnDate   *string `json:"actual_return_date"`
	Book               string  `json:"book"`
	User               string  `json:"user"`
}

// DetailView embeds the linked records in full, payments included.
type DetailView struct {
	ID                 int64           `json:"id"`
	BorrowDate         string          `json:"borrow_date"`
	ExpectedReturnDate string          `json:"expected_return_date"`
	ActualReturnDate   *string         `json:"actual_return_date"`
	Book               model.Book      `json:"book"`
	User               model.User      `json:"user"`
	Payments           []model.Payment `json:"payments"`
}

func toListView(r borrowingsvc.ListRow) ListView {
	v := ListView{
		ID:                 r.ID,
		BorrowDate:         r.BorrowDate.Format(model.DateLayout),
		ExpectedReturnDate: r.ExpectedReturnDate.Format(model.DateLayout),
		Book:               r.BookTitle,
		User:               r.UserEmail,
	}
	if r.ActualReturnDate != nil {
		s := r.ActualReturnDate.Format(model.DateLayout)
		v.ActualReturnDate = &s
	}
	return v
}

func toDetailView(d *borrowingsvc.Detail) DetailView {
	v := DetailView{
		ID:                 d.Borrowing.ID,
		BorrowDate:         d.Borrowing.BorrowDate.Format(model.DateLayout),
		ExpectedReturnDate: d.Borrowing.ExpectedReturnDate.Format(model.DateLayout),
		Book:               d.Book,
		User:               d.User,
		Payments:           d.Payments,
	}
	if d.Borrowing.ActualReturnDate != nil {
		s := d.Borrowing.ActualReturnDate.Format(model.DateLayout)
		v.ActualReturnDate = &s
	}
	return v
}
