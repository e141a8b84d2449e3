package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusWaitingForApproval = "waiting_for_approval"
	LoanStatusApproved           = "approved"
	LoanStatusActive             = "active"
	LoanStatusFullyPaid          = "fully_paid"
	LoanStatusRejected           = "rejected"
	LoanStatusEdited             = "edited"
)

const (
	LoanTypeDaily  = "daily"
	LoanTypeWeekly = "weekly"
)

// Loan represents a loan entity together with its denormalized agent fields.
// The repayment schedule and payment ledger live in their own tables and are
// loaded alongside the loan whenever the lifecycle controller needs them.
type Loan struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	LoanID            string          `json:"loan_id" db:"loan_id"`
	AgentID           uuid.UUID       `json:"agent_id" db:"agent_id"`
	AgentName         string          `json:"agent_name" db:"agent_name"`
	BranchName        string          `json:"branch_name" db:"branch_name"`
	ClientName        string          `json:"client_name" db:"client_name"`
	LoanType          string          `json:"loan_type" db:"loan_type"`
	Status            string          `json:"status" db:"status"`
	RequestedAmount   decimal.Decimal `json:"requested_amount" db:"requested_amount"`
	ApprovedAmount    decimal.Decimal `json:"approved_amount" db:"approved_amount"`
	Interest          decimal.Decimal `json:"interest" db:"interest"`
	AmountToBePaid    decimal.Decimal `json:"amount_to_be_paid" db:"amount_to_be_paid"`
	InstallmentAmount decimal.Decimal `json:"installment_amount" db:"installment_amount"`
	AmountPaid        decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	AmountDisbursed   decimal.Decimal `json:"amount_disbursed" db:"amount_disbursed"`
	ApplicationFee    decimal.Decimal `json:"application_fee" db:"application_fee"`
	InstallmentCount  int             `json:"installment_count" db:"installment_count"`
	DisbursedAt       *time.Time      `json:"disbursed_at,omitempty" db:"disbursed_at"`
	DocumentPath      string          `json:"document_path,omitempty" db:"document_path"`

	// Verification call flags; all four must be true before approval.
	ClientVerified    bool `json:"client_verified" db:"client_verified"`
	GuarantorVerified bool `json:"guarantor_verified" db:"guarantor_verified"`
	WorkplaceVerified bool `json:"workplace_verified" db:"workplace_verified"`
	ResidenceVerified bool `json:"residence_verified" db:"residence_verified"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Verified reports whether every verification call has been completed.
func (l *Loan) Verified() bool {
	return l.ClientVerified && l.GuarantorVerified && l.WorkplaceVerified && l.ResidenceVerified
}

// DTOs for requests and responses

type SubmitLoanRequest struct {
	ClientName      string          `json:"client_name" validate:"required"`
	LoanType        string          `json:"loan_type" validate:"required,oneof=daily weekly"`
	RequestedAmount decimal.Decimal `json:"requested_amount" validate:"required"`
}

type ApproveLoanRequest struct {
	ApprovedAmount decimal.Decimal `json:"approved_amount" validate:"required"`
}

type VerificationRequest struct {
	ClientVerified    bool `json:"client_verified"`
	GuarantorVerified bool `json:"guarantor_verified"`
	WorkplaceVerified bool `json:"workplace_verified"`
	ResidenceVerified bool `json:"residence_verified"`
}

type RecordPaymentRequest struct {
	PaymentID string          `json:"payment_id,omitempty"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	Date      string          `json:"date" validate:"required"`
}

type TransferLoansRequest struct {
	FromAgentID uuid.UUID `json:"from_agent_id" validate:"required"`
	ToAgentID   uuid.UUID `json:"to_agent_id" validate:"required"`
}

type LoanResponse struct {
	Loan     *Loan          `json:"loan"`
	Schedule []*Installment `json:"schedule,omitempty"`
	Ledger   []Payment      `json:"ledger,omitempty"`
}

type OutstandingResponse struct {
	AgentID           uuid.UUID       `json:"agent_id"`
	AsOf              time.Time       `json:"as_of"`
	ExpectedRepayment decimal.Decimal `json:"expected_repayment"`
	OutstandingDue    decimal.Decimal `json:"outstanding_due"`
	Loans             int             `json:"loans"`
}
