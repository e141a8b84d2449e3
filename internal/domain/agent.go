package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Monthly record kinds for the agent delinquency time series.
const (
	RecordKindOverdue  = "overdue"
	RecordKindRecovery = "recovery"
)

// Remittance reconciliation statuses.
const (
	RemittanceStatusPending    = "pending"
	RemittanceStatusReconciled = "reconciled"
	RemittanceStatusShort      = "short"
)

// Agent is a field collector (CSO). Performance targets and the delinquency
// time series are stored alongside the identity; the remittance ledger and
// monthly records live in their own tables keyed by agent id, so the
// aggregation job's write scope stays minimal.
type Agent struct {
	ID                 uuid.UUID       `json:"id" db:"id"`
	Name               string          `json:"name" db:"name"`
	BranchID           uuid.UUID       `json:"branch_id" db:"branch_id"`
	BranchName         string          `json:"branch_name" db:"branch_name"`
	Phone              string          `json:"phone" db:"phone"`
	Active             bool            `json:"active" db:"active"`
	LoanTarget         int             `json:"loan_target" db:"loan_target"`
	DisbursementTarget decimal.Decimal `json:"disbursement_target" db:"disbursement_target"`
	DefaultingTarget   decimal.Decimal `json:"defaulting_target" db:"defaulting_target"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at" db:"updated_at"`
}

// MonthlyRecord is one {year, month, value} entry in an agent's overdue or
// recovery time series. The aggregation job replaces the current month's
// entry wholesale on every run.
type MonthlyRecord struct {
	ID      uuid.UUID       `json:"id" db:"id"`
	AgentID uuid.UUID       `json:"agent_id" db:"agent_id"`
	Year    int             `json:"year" db:"year"`
	Month   int             `json:"month" db:"month"`
	Kind    string          `json:"kind" db:"kind"`
	Value   decimal.Decimal `json:"value" db:"value"`
}

// Remittance is one end-of-day reconciliation entry: cash an agent collected
// versus cash handed in. One conceptual entry per agent per business day.
type Remittance struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	AgentID        uuid.UUID       `json:"agent_id" db:"agent_id"`
	Date           time.Time       `json:"date" db:"date"`
	AmountExpected decimal.Decimal `json:"amount_expected" db:"amount_expected"`
	AmountRemitted decimal.Decimal `json:"amount_remitted" db:"amount_remitted"`
	Status         string          `json:"status" db:"status"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs

type CreateAgentRequest struct {
	Name     string    `json:"name" validate:"required"`
	BranchID uuid.UUID `json:"branch_id" validate:"required"`
	Phone    string    `json:"phone"`
}

type SetTargetsRequest struct {
	LoanTarget         int             `json:"loan_target" validate:"gte=0"`
	DisbursementTarget decimal.Decimal `json:"disbursement_target"`
	DefaultingTarget   decimal.Decimal `json:"defaulting_target"`
}

type FileRemittanceRequest struct {
	Date           string          `json:"date" validate:"required"`
	AmountRemitted decimal.Decimal `json:"amount_remitted" validate:"required"`
}

type ReconcileRemittanceRequest struct {
	Date   string `json:"date" validate:"required"`
	Status string `json:"status" validate:"required,oneof=reconciled short"`
}
