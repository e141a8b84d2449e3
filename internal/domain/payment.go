package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one money-received event in a loan's payment ledger. The ledger
// is append-only from the client's perspective; entries are sanitized and
// deduplicated server-side before any allocation runs.
type Payment struct {
	PaymentID string          `json:"payment_id" db:"payment_id"`
	LoanID    string          `json:"loan_id" db:"loan_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	PaidAt    time.Time       `json:"paid_at" db:"paid_at"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
