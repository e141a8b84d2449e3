package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/collectiva/loan-engine/internal/calendar"
	"github.com/collectiva/loan-engine/internal/domain"
	"github.com/collectiva/loan-engine/internal/repository"
	"github.com/collectiva/loan-engine/pkg/response"
)

// AdminHandler covers the thin holiday and branch plumbing around the core.
type AdminHandler struct {
	holidays  repository.HolidayRepository
	branches  repository.BranchRepository
	validator *validator.Validate
}

func NewAdminHandler(holidays repository.HolidayRepository, branches repository.BranchRepository) *AdminHandler {
	return &AdminHandler{
		holidays:  holidays,
		branches:  branches,
		validator: validator.New(),
	}
}

func (h *AdminHandler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.BadRequest(w, "date must be YYYY-MM-DD", err)
		return
	}

	holiday := &domain.Holiday{
		ID:        uuid.New(),
		Date:      calendar.Normalize(date),
		Recurring: req.Recurring,
		Reason:    req.Reason,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.holidays.Create(r.Context(), holiday); err != nil {
		response.InternalServerError(w, "creating holiday failed", err)
		return
	}
	response.Created(w, holiday)
}

func (h *AdminHandler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.holidays.List(r.Context())
	if err != nil {
		response.InternalServerError(w, "listing holidays failed", err)
		return
	}
	response.Success(w, holidays)
}

func (h *AdminHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		response.BadRequest(w, "validation failed", err)
		return
	}

	now := time.Now().UTC()
	branch := &domain.Branch{
		ID:        uuid.New(),
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.branches.Create(r.Context(), branch); err != nil {
		response.InternalServerError(w, "creating branch failed", err)
		return
	}
	response.Created(w, branch)
}
