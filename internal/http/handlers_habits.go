package http

import (
	"net/http"

	"lifedash/internal/daybucket"
	"lifedash/internal/log"
)

type createHabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type logEntryRequest struct {
	Completed *bool  `json:"completed"`
	Notes     string `json:"notes"`
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	habits, err := s.svc.Habits.ListHabits(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		ServiceError(r, err, log.OpList).Write(w)
		return
	}
	out := make([]habitDTO, 0, len(habits))
	for _, h := range habits {
		out = append(out, toHabitDTO(h))
	}
	NewJSONResponse().Body(out).Write(w)
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req createHabitRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ServiceError(r, err, log.OpParse).Write(w)
		return
	}
	h, err := s.svc.Habits.CreateHabit(r.Context(), userIDFrom(r.Context()),
		sanitizeInput(req.Name), sanitizeInput(req.Description))
	if err != nil {
		ServiceError(r, err, log.OpCreate).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Habit created", log.FieldHabitID, h.ID)
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/habits/"+h.ID).
		Body(toHabitDTO(*h)).
		Write(w)
}

func (s *Server) handleArchiveHabit(w http.ResponseWriter, r *http.Request) {
	habitID := r.PathValue("id")
	if err := s.svc.Habits.ArchiveHabit(r.Context(), userIDFrom(r.Context()), habitID); err != nil {
		ServiceError(r, err, log.OpArchive).Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Habit archived", log.FieldHabitID, habitID)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleDailyView serves the daily view. date defaults to today in tz.
func (s *Server) handleDailyView(w http.ResponseWriter, r *http.Request) {
	tz, err := ParseTimezone(r)
	if err != nil {
		ServiceError(r, err, log.OpValidate).Write(w)
		return
	}
	today, err := s.svc.Habits.Today(tz)
	if err != nil {
		ServiceError(r, err, log.OpValidate).Write(w)
		return
	}
	day, err := ParseDayParam(r.URL.Query().Get("date"), today)
	if err != nil {
		ServiceError(r, err, log.OpParse).Write(w)
		return
	}

	view, err := s.svc.Habits.GetDailyView(r.Context(), userIDFrom(r.Context()), day, tz)
	if err != nil {
		ServiceError(r, err, log.OpRead).Write(w)
		return
	}
	NewJSONResponse().Body(toDailyViewDTO(view)).Write(w)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	tz, err := ParseTimezone(r)
	if err != nil {
		ServiceError(r, err, log.OpValidate).Write(w)
		return
	}
	today, err := s.svc.Habits.Today(tz)
	if err != nil {
		ServiceError(r, err, log.OpValidate).Write(w)
		return
	}
	params, err := ParseMonthParams(r.URL.Query(), today)
	if err != nil {
		ServiceError(r, err, log.OpParse).Write(w)
		return
	}

	days, err := s.svc.Calendar.GetMonthlyData(r.Context(), userIDFrom(r.Context()), params.Year, params.Month, tz)
	if err != nil {
		ServiceError(r, err, log.OpRead).Write(w)
		return
	}
	NewJSONResponse().Body(toMonthlyDTO(days)).Write(w)
}

// handleLogEntry upserts the entry for one habit and calendar day. The day
// comes from the path as YYYY-MM-DD, so no timezone is involved.
func (s *Server) handleLogEntry(w http.ResponseWriter, r *http.Request) {
	day, err := daybucket.ParseDayKey(r.PathValue("date"))
	if err != nil {
		ServiceError(r, err, log.OpParse).Write(w)
		return
	}
	var req logEntryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ServiceError(r, err, log.OpParse).Write(w)
		return
	}
	if req.Completed == nil {
		BadRequestError("completed is required").Write(w)
		return
	}

	userID := userIDFrom(r.Context())
	entry, err := s.svc.Habits.LogEntry(r.Context(), r.PathValue("id"), userID, day, *req.Completed, sanitizeInput(req.Notes))
	if err != nil {
		ServiceError(r, err, log.OpLog).Write(w)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogEntryLogged(r.Context(), userID, entry.HabitID, entry.Day.String(), entry.Completed)
	NewJSONResponse().Body(toEntryDTO(entry)).Write(w)
}
