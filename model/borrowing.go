// model/borrowing.go
package model

import "time"

// DateLayout is the wire format for calendar dates. Borrow and return dates
// are whole days; time-of-day never participates in fee math.
const DateLayout = "2006-01-02"

type Borrowing struct {
	ID                 int64      `json:"id"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	BookID             int64      `json:"book_id"`
	UserID             int64      `json:"user_id"`
	CreatedAt          time.Time  `json:"created_at"`
}

// IsActive reports whether the book is still out.
func (b *Borrowing) IsActive() bool { return b.ActualReturnDate == nil }
