package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/persist"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/schedule"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/selection"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/session"
)

type appointmentItem struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	StaffID    string `json:"staff_id"`
	StaffName  string `json:"staff_name"`
	StaffColor string `json:"staff_color"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Title      string `json:"title"`
	Notes      string `json:"notes,omitempty"`
	Type       string `json:"type"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

func appointmentView(a model.Appointment) appointmentItem {
	item := appointmentItem{
		ID:         a.ID,
		Date:       a.Date.String(),
		StaffID:    a.StaffID,
		StaffName:  a.StaffName,
		StaffColor: a.StaffColor,
		StartTime:  a.Start.String(),
		EndTime:    a.End.String(),
		Title:      a.Title,
		Notes:      a.Notes,
		Type:       string(a.Type),
	}
	if !a.CreatedAt.IsZero() {
		item.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !a.UpdatedAt.IsZero() {
		item.UpdatedAt = a.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return item
}

type commitSelectionRequest struct {
	SessionID string `json:"session_id"`
	Selection struct {
		DateIndex      int `json:"date_index"`
		StaffIndex     int `json:"staff_index"`
		StartTimeIndex int `json:"start_time_index"`
		EndTimeIndex   int `json:"end_time_index"`
	} `json:"selection"`
	Title string `json:"title"`
	Notes string `json:"notes"`
	Type  string `json:"type"`
}

// Appointments serves the session's window: GET lists it, POST commits a
// resolved selection as a new appointment.
func (h *SessionHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listAppointments(w, r)
	case http.MethodPost:
		h.commitSelection(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) listAppointments(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Get(strings.TrimSpace(r.URL.Query().Get("session_id")))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	items := make([]appointmentItem, 0)
	for _, a := range s.Appointments() {
		items = append(items, appointmentView(a))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"appointments": items})
}

func (h *SessionHandler) commitSelection(w http.ResponseWriter, r *http.Request) {
	var req commitSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	s, ok := h.sessions.Get(strings.TrimSpace(req.SessionID))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	appt, err := s.CommitSelection(r.Context(), session.CommitInput{
		Selection: selection.Selection{
			DateIndex:      req.Selection.DateIndex,
			StaffIndex:     req.Selection.StaffIndex,
			StartTimeIndex: req.Selection.StartTimeIndex,
			EndTimeIndex:   req.Selection.EndTimeIndex,
		},
		Title: strings.TrimSpace(req.Title),
		Notes: strings.TrimSpace(req.Notes),
		Type:  model.AppointmentType(strings.TrimSpace(req.Type)),
	})
	if err != nil {
		h.writeScheduleError(w, err, s)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(appointmentView(appt))
}

type updateAppointmentRequest struct {
	SessionID     string  `json:"session_id"`
	AppointmentID string  `json:"appointment_id"`
	Date          *string `json:"date"`
	StaffID       *string `json:"staff_id"`
	StartTime     *string `json:"start_time"`
	EndTime       *string `json:"end_time"`
	Title         *string `json:"title"`
	Notes         *string `json:"notes"`
	Type          *string `json:"type"`
}

func (h *SessionHandler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req updateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.AppointmentID) == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	s, ok := h.sessions.Get(strings.TrimSpace(req.SessionID))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var patch model.AppointmentPatch
	if req.Date != nil {
		d, err := model.ParseDate(*req.Date)
		if err != nil {
			http.Error(w, "invalid date", http.StatusBadRequest)
			return
		}
		patch.Date = &d
	}
	if req.StartTime != nil {
		t, ok := parseTimeField(w, *req.StartTime, "start_time")
		if !ok {
			return
		}
		patch.Start = &t
	}
	if req.EndTime != nil {
		t, ok := parseTimeField(w, *req.EndTime, "end_time")
		if !ok {
			return
		}
		patch.End = &t
	}
	if req.StaffID != nil {
		// Moving columns re-denormalizes name and color from the roster
		// snapshot.
		var member model.StaffMember
		found := false
		for _, st := range s.Staff() {
			if st.ID == *req.StaffID {
				member = st
				found = true
				break
			}
		}
		if !found {
			http.Error(w, "unknown staff_id", http.StatusUnprocessableEntity)
			return
		}
		patch.StaffID = &member.ID
		patch.StaffName = &member.Name
		patch.StaffColor = &member.Color
	}
	if req.Title != nil {
		patch.Title = req.Title
	}
	if req.Notes != nil {
		patch.Notes = req.Notes
	}
	if req.Type != nil {
		t := model.AppointmentType(*req.Type)
		if !t.Valid() {
			http.Error(w, "invalid type", http.StatusBadRequest)
			return
		}
		patch.Type = &t
	}

	appt, err := s.UpdateAppointment(r.Context(), strings.TrimSpace(req.AppointmentID), patch)
	if err != nil {
		h.writeScheduleError(w, err, s)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(appointmentView(appt))
}

type deleteAppointmentRequest struct {
	SessionID     string `json:"session_id"`
	AppointmentID string `json:"appointment_id"`
}

func (h *SessionHandler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req deleteAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.AppointmentID) == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	s, ok := h.sessions.Get(strings.TrimSpace(req.SessionID))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if err := s.DeleteAppointment(r.Context(), strings.TrimSpace(req.AppointmentID)); err != nil {
		h.writeScheduleError(w, err, s)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) writeScheduleError(w http.ResponseWriter, err error, s *session.Session) {
	switch {
	case errors.Is(err, schedule.ErrPlacementConflict):
		http.Error(w, "time slot conflicts with an existing appointment", http.StatusConflict)
	case errors.Is(err, schedule.ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, schedule.ErrInvalidInput), errors.Is(err, session.ErrInvalidSelection):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.logger.Error("schedule write failed", "err", err, "session_id", s.ID())
		http.Error(w, "persistence failure", http.StatusBadGateway)
	}
}

// RangeHandler serves window reads that need no session, straight through the
// sync layer.
type RangeHandler struct {
	syncer *persist.Syncer
	logger *slog.Logger
}

func NewRangeHandler(syncer *persist.Syncer, logger *slog.Logger) *RangeHandler {
	return &RangeHandler{syncer: syncer, logger: logger}
}

func (h *RangeHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	from, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("from")))
	if err != nil {
		http.Error(w, "invalid from date", http.StatusBadRequest)
		return
	}
	to, err := model.ParseDate(strings.TrimSpace(r.URL.Query().Get("to")))
	if err != nil {
		http.Error(w, "invalid to date", http.StatusBadRequest)
		return
	}
	if to < from {
		http.Error(w, "to must not precede from", http.StatusBadRequest)
		return
	}

	appts, err := h.syncer.FetchRange(r.Context(), from, to)
	if err != nil {
		h.logger.Error("range fetch failed", "err", err)
		http.Error(w, "persistence failure", http.StatusBadGateway)
		return
	}

	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, appointmentView(a))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"appointments": items})
}
