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
	"github.com/collectiva/loan-engine/pkg/response"
)

type AgentHandler struct {
	agents      *service.AgentService
	aggregation *service.AggregationService
	validator   *validator.Validate
}

func NewAgentHandler(agents *service.AgentService, aggregation *service.AggregationService) *AgentHandler {
	return &AgentHandler{
		agents:      agents,
		aggregation: aggregation,
		validator:   validator.New(),
	}
}

func (h *AgentHandler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAgentRequest
	if !h.decode(w, r, &req) {
		return
	}

	agent, err := h.agents.CreateAgent(r.Context(), &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, agent)
}

func (h *AgentHandler) SetTargets(w http.ResponseWriter, r *http.Request) {
	agentID, ok := h.agentID(w, r)
	if !ok {
		return
	}

	var req domain.SetTargetsRequest
	if !h.decode(w, r, &req) {
		return
	}

	agent, err := h.agents.SetTargets(r.Context(), agentID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, agent)
}

func (h *AgentHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	agentID, ok := h.agentID(w, r)
	if !ok {
		return
	}

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	agent, err := h.agents.SetActive(r.Context(), agentID, req.Active)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, agent)
}

func (h *AgentHandler) TransferLoans(w http.ResponseWriter, r *http.Request) {
	var req domain.TransferLoansRequest
	if !h.decode(w, r, &req) {
		return
	}

	moved, err := h.agents.TransferLoans(r.Context(), req.FromAgentID, req.ToAgentID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, map[string]int64{"loans_transferred": moved})
}

func (h *AgentHandler) DistributeBranchTargets(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(mux.Vars(r)["branchId"])
	if err != nil {
		response.BadRequest(w, "invalid branch id", err)
		return
	}

	var req domain.SetBranchTargetsRequest
	if !h.decode(w, r, &req) {
		return
	}

	branch, err := h.agents.DistributeBranchTargets(r.Context(), branchID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, branch)
}

// FileRemittance is called by the agent themselves; the identity decides
// whose books close.
func (h *AgentHandler) FileRemittance(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "missing identity")
		return
	}

	var req domain.FileRemittanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	rem, err := h.agents.FileRemittance(r.Context(), identity.ID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Created(w, rem)
}

func (h *AgentHandler) ReconcileRemittance(w http.ResponseWriter, r *http.Request) {
	agentID, ok := h.agentID(w, r)
	if !ok {
		return
	}

	var req domain.ReconcileRemittanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	rem, err := h.agents.ReconcileRemittance(r.Context(), agentID, &req)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, rem)
}

func (h *AgentHandler) GetDelinquencyHistory(w http.ResponseWriter, r *http.Request) {
	agentID, ok := h.agentID(w, r)
	if !ok {
		return
	}

	records, err := h.agents.GetDelinquencyHistory(r.Context(), agentID)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, records)
}

// RunAggregation triggers the delinquency aggregation on demand; the cron
// scheduler calls the same service on its own clock.
func (h *AgentHandler) RunAggregation(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			response.BadRequest(w, "as_of must be YYYY-MM-DD", err)
			return
		}
		asOf = parsed
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	summary, err := h.aggregation.Run(r.Context(), asOf, includeInactive)
	if err != nil {
		response.BusinessError(w, err)
		return
	}
	response.Success(w, summary)
}

func (h *AgentHandler) agentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	agentID, err := uuid.Parse(mux.Vars(r)["agentId"])
	if err != nil {
		response.BadRequest(w, "invalid agent id", err)
		return uuid.Nil, false
	}
	return agentID, true
}

func (h *AgentHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
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
