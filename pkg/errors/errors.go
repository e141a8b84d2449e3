package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	ErrLoanNotFound            = errors.New("loan not found")
	ErrAgentNotFound           = errors.New("agent not found")
	ErrLoanAlreadyExists       = errors.New("loan already exists")
	ErrStateConflict           = errors.New("loan is not in a valid state for this operation")
	ErrInvalidScheduleState    = errors.New("schedule has no positive per-installment amount")
	ErrPaymentExceedsBalance   = errors.New("payment exceeds remaining loan balance")
	ErrDefaultingLimitExceeded = errors.New("agent outstanding exceeds defaulting target")
	ErrNonBusinessDay          = errors.New("payments are not accepted on non-business days")
	ErrRemittanceAlreadyFiled  = errors.New("remittance already filed for this date")
	ErrValidation              = errors.New("validation failed")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound            = "LOAN_NOT_FOUND"
	ErrCodeAgentNotFound           = "AGENT_NOT_FOUND"
	ErrCodeLoanAlreadyExists       = "LOAN_ALREADY_EXISTS"
	ErrCodeStateConflict           = "STATE_CONFLICT"
	ErrCodeInvalidScheduleState    = "INVALID_SCHEDULE_STATE"
	ErrCodePaymentExceedsBalance   = "PAYMENT_EXCEEDS_BALANCE"
	ErrCodeDefaultingLimitExceeded = "DEFAULTING_LIMIT_EXCEEDED"
	ErrCodeNonBusinessDay          = "NON_BUSINESS_DAY"
	ErrCodeRemittanceAlreadyFiled  = "REMITTANCE_ALREADY_FILED"
	ErrCodeValidation              = "VALIDATION_ERROR"
	ErrCodeDatabaseError           = "DATABASE_ERROR"
	ErrCodeCacheError              = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapAgentNotFound(agentID string) *BusinessError {
	return NewBusinessError(
		ErrCodeAgentNotFound,
		fmt.Sprintf("Agent with ID %s not found", agentID),
		ErrAgentNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanAlreadyExists,
	)
}

func WrapStateConflict(loanID, have, want string) *BusinessError {
	return NewBusinessError(
		ErrCodeStateConflict,
		fmt.Sprintf("Loan %s is %s, expected %s", loanID, have, want),
		ErrStateConflict,
	)
}

func WrapInvalidScheduleState(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidScheduleState,
		fmt.Sprintf("Loan %s has a non-positive per-installment amount", loanID),
		ErrInvalidScheduleState,
	)
}

// WrapPaymentExceedsBalance carries the remaining allowed amount so the
// caller can self-correct.
func WrapPaymentExceedsBalance(loanID string, remaining decimal.Decimal) *BusinessError {
	return NewBusinessError(
		ErrCodePaymentExceedsBalance,
		fmt.Sprintf("Payment on loan %s exceeds balance; at most %s may still be collected", loanID, remaining.StringFixed(2)),
		ErrPaymentExceedsBalance,
	)
}

// WrapDefaultingLimitExceeded carries the configured ceiling and the agent's
// current exposure.
func WrapDefaultingLimitExceeded(agentID string, limit, exposure decimal.Decimal) *BusinessError {
	return NewBusinessError(
		ErrCodeDefaultingLimitExceeded,
		fmt.Sprintf("Agent %s outstanding %s exceeds defaulting target %s", agentID, exposure.StringFixed(2), limit.StringFixed(2)),
		ErrDefaultingLimitExceeded,
	)
}

func WrapNonBusinessDay(date string) *BusinessError {
	return NewBusinessError(
		ErrCodeNonBusinessDay,
		fmt.Sprintf("%s is not a business day", date),
		ErrNonBusinessDay,
	)
}

func WrapRemittanceAlreadyFiled(agentID, date string) *BusinessError {
	return NewBusinessError(
		ErrCodeRemittanceAlreadyFiled,
		fmt.Sprintf("Agent %s already filed a remittance for %s", agentID, date),
		ErrRemittanceAlreadyFiled,
	)
}

func WrapValidation(reason string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, reason, ErrValidation)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
