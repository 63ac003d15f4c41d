// model/payment.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentExpired PaymentStatus = "EXPIRED"
)

type PaymentType string

const (
	TypePayment PaymentType = "PAYMENT"
	TypeFine    PaymentType = "FINE"
)

type Payment struct {
	ID          int64           `json:"id"`
	Status      PaymentStatus   `json:"status"`
	Type        PaymentType     `json:"type"`
	BorrowingID int64           `json:"borrowing_id"`
	SessionID   string          `json:"session_id"`
	SessionURL  string          `json:"session_url"`
	MoneyToPay  decimal.Decimal `json:"money_to_pay"`
	CreatedAt   time.Time       `json:"created_at"`
}
