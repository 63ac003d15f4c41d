package striperepo

import "context"

type CreateSessionReq struct {
	ProductName string
	// AmountMinor is the charge in the currency's minor unit (cents).
	AmountMinor int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

type Session struct {
	ID  string
	URL string
	// Status is the checkout session state: open, complete or expired.
	Status string
	// PaymentStatus is paid, unpaid or no_payment_required.
	PaymentStatus string
}

func (s *Session) IsPaid() bool { return s.PaymentStatus == "paid" }
func (s *Session) IsOpen() bool { return s.Status == "open" }

type Repo interface {
	CreateSession(ctx context.Context, req CreateSessionReq) (*Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
}
