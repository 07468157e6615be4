package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"lifedash/internal/core"
	"lifedash/internal/log"
	"lifedash/internal/services"
)

type createRecurringRequest struct {
	Kind        string      `json:"kind"`
	Name        string      `json:"name"`
	Amount      json.Number `json:"amount"`
	Frequency   string      `json:"frequency"`
	Category    string      `json:"category"`
	IsEssential bool        `json:"is_essential"`
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Budget.GetBudgetSummary(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		ServiceError(r, err, log.OpRead).Write(w)
		return
	}
	NewJSONResponse().Body(toBudgetSummaryDTO(summary)).Write(w)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	kind := core.RecurringKind(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind"))))
	items, err := s.svc.Budget.ListRecurring(r.Context(), userIDFrom(r.Context()), kind)
	if err != nil {
		ServiceError(r, err, log.OpList).Write(w)
		return
	}
	out := make([]recurringDTO, 0, len(items))
	for _, item := range items {
		dto, err := toRecurringDTO(item)
		if err != nil {
			ServiceError(r, err, log.OpList).Write(w)
			return
		}
		out = append(out, dto)
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req createRecurringRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ServiceError(r, err, log.OpParse).Write(w)
		return
	}
	amount, err := core.ParseAmount(req.Amount.String())
	if err != nil {
		ServiceError(r, err, log.OpParse).Write(w)
		return
	}

	created, err := s.svc.Budget.CreateRecurring(r.Context(), userIDFrom(r.Context()), services.RecurringInput{
		Kind:        core.RecurringKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Name:        sanitizeInput(req.Name),
		Amount:      amount,
		Frequency:   core.Frequency(strings.ToLower(strings.TrimSpace(req.Frequency))),
		Category:    sanitizeInput(req.Category),
		IsEssential: req.IsEssential,
	})
	if err != nil {
		ServiceError(r, err, log.OpCreate).Write(w)
		return
	}
	dto, err := toRecurringDTO(*created)
	if err != nil {
		ServiceError(r, err, log.OpCreate).Write(w)
		return
	}
	log.FromContext(r.Context()).WithComponent(log.ComponentBudget).InfoContext(r.Context(), "Recurring amount created",
		"id", created.ID, "kind", created.Kind)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/recurring/"+created.ID).
		Body(dto).
		Write(w)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Budget.DeactivateRecurring(r.Context(), userIDFrom(r.Context()), r.PathValue("id")); err != nil {
		ServiceError(r, err, log.OpUpdate).Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
