package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	InstallmentStatusPending   = "pending"
	InstallmentStatusApproved  = "approved"
	InstallmentStatusSubmitted = "submitted"
	InstallmentStatusPartial   = "partial"
	InstallmentStatusPaid      = "paid"
	InstallmentStatusHoliday   = "holiday"
)

// Installment is one expected due-date entry in a loan's repayment schedule.
// Due dates are normalized to UTC midnight and fall on business days only,
// except entries force-set to holiday after a holiday is registered.
type Installment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LoanID        string          `json:"loan_id" db:"loan_id"`
	Seq           int             `json:"seq" db:"seq"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	Status        string          `json:"status" db:"status"`
	AmountPaid    decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	HolidayReason string          `json:"holiday_reason,omitempty" db:"holiday_reason"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}
