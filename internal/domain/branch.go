package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Branch groups agents. Branch-level targets are distributed proportionally
// across the branch's active agents.
type Branch struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	Name               string          `json:"name" db:"name"`
	LoanTarget         int             `json:"loan_target" db:"loan_target"`
	DisbursementTarget decimal.Decimal `json:"disbursement_target" db:"disbursement_target"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

type SetBranchTargetsRequest struct {
	LoanTarget         int             `json:"loan_target" validate:"gte=0"`
	DisbursementTarget decimal.Decimal `json:"disbursement_target"`
}
