package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/collectiva/loan-engine/internal/auth"
	"github.com/collectiva/loan-engine/internal/domain"
	"github.com/collectiva/loan-engine/internal/service"
	"github.com/collectiva/loan-engine/internal/storage"
	"github.com/collectiva/loan-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	files     storage.FileStore
	validator *validator.Validate
}

func NewLoanHandler(service *service.LoanService, files storage.FileStore) *LoanHandler {
	return &LoanHandler{
		service:   service,
		files:     files,
		validator: validator.New(),
	}
}

// SubmitLoan handles POST /loans. The owning agent comes from the bearer
// identity.
func (h *LoanHandler) SubmitLoan(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "missing identity")
		return
	}

	var req domain.SubmitLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.SubmitLoan(r.Context(), identity.ID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, domain.LoanResponse{Loan: loan})
}

func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.GetLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: agg.Loan, Schedule: agg.Schedule, Ledger: agg.Ledger})
}

func (h *LoanHandler) SetVerification(w http.ResponseWriter, r *http.Request) {
	var req domain.VerificationRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.SetVerification(r.Context(), mux.Vars(r)["loanId"],
		req.ClientVerified, req.GuarantorVerified, req.WorkplaceVerified, req.ResidenceVerified)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: loan})
}

func (h *LoanHandler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.ApproveLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.ApproveLoan(r.Context(), mux.Vars(r)["loanId"], &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: loan})
}

func (h *LoanHandler) DisburseLoan(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.DisburseLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: agg.Loan, Schedule: agg.Schedule})
}

func (h *LoanHandler) RejectLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.RejectLoan(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: loan})
}

func (h *LoanHandler) RequestEdit(w http.ResponseWriter, r *http.Request) {
	loan, err := h.service.RequestEdit(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: loan})
}

func (h *LoanHandler) ResubmitLoan(w http.ResponseWriter, r *http.Request) {
	var req domain.SubmitLoanRequest
	if !h.decode(w, r, &req) {
		return
	}

	loan, err := h.service.ResubmitLoan(r.Context(), mux.Vars(r)["loanId"], &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: loan})
}

func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	agg, err := h.service.RecordPayment(r.Context(), mux.Vars(r)["loanId"], &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: agg.Loan, Schedule: agg.Schedule, Ledger: agg.Ledger})
}

func (h *LoanHandler) SyncSchedule(w http.ResponseWriter, r *http.Request) {
	agg, err := h.service.SyncRepaymentSchedule(r.Context(), mux.Vars(r)["loanId"])
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: agg.Loan, Schedule: agg.Schedule, Ledger: agg.Ledger})
}

// UploadDocument handles multipart loan document uploads. The file content
// goes to the storage collaborator; only the reference lands on the loan.
func (h *LoanHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		response.BadRequest(w, "invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		response.BadRequest(w, "document file is required", err)
		return
	}
	defer file.Close()

	ref, err := h.files.Save(header.Filename, file)
	if err != nil {
		response.InternalServerError(w, "storing document failed", err)
		return
	}

	loan, err := h.service.AttachDocument(r.Context(), mux.Vars(r)["loanId"], ref)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, domain.LoanResponse{Loan: loan})
}

func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	agentID, err := uuid.Parse(mux.Vars(r)["agentId"])
	if err != nil {
		response.BadRequest(w, "invalid agent id", err)
		return
	}

	asOf := time.Now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, err = time.Parse("2006-01-02", v)
		if err != nil {
			response.BadRequest(w, "as_of must be YYYY-MM-DD", err)
			return
		}
	}

	resp, err := h.service.GetOutstanding(r.Context(), agentID, asOf)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, resp)
}

// decode parses and validates the JSON body, writing the error response
// itself on failure.
func (h *LoanHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		response.BadRequest(w, "validation failed", err)
		return false
	}
	return true
}
