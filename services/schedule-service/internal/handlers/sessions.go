package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/schedule"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/selection"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/session"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
)

type SessionHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewSessionHandler(sessions *session.Manager, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

type openSessionRequest struct {
	StartDate string `json:"start_date"`
	Days      int    `json:"days"`
	Category  string `json:"category"`
}

type staffItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Category  string `json:"category,omitempty"`
	SortOrder int    `json:"sort_order"`
}

type slotItem struct {
	Index     int    `json:"index"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Extended  bool   `json:"extended,omitempty"`
}

type dayItem struct {
	Date          string `json:"date"`
	Closed        bool   `json:"closed,omitempty"`
	Open          string `json:"open,omitempty"`
	Close         string `json:"close,omitempty"`
	BreakStart    string `json:"break_start,omitempty"`
	BreakEnd      string `json:"break_end,omitempty"`
	LastReception string `json:"last_reception,omitempty"`
}

type sessionResponse struct {
	SessionID   string     `json:"session_id"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	SlotMinutes int        `json:"slot_minutes"`
	Staff       []staffItem `json:"staff"`
	Slots       []slotItem  `json:"slots"`
	Days        []dayItem   `json:"days"`
}

func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.StartDate = strings.TrimSpace(req.StartDate)
	if req.StartDate == "" {
		http.Error(w, "start_date required", http.StatusBadRequest)
		return
	}
	startDate, err := model.ParseDate(req.StartDate)
	if err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}

	s, err := h.sessions.Open(r.Context(), session.OpenInput{
		StartDate: startDate,
		Days:      req.Days,
		Category:  strings.TrimSpace(req.Category),
	})
	if err != nil {
		h.logger.Error("session open failed", "err", err)
		http.Error(w, "failed to open session", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(h.sessionView(s))
}

func (h *SessionHandler) sessionView(s *session.Session) sessionResponse {
	dates := s.Dates()
	resp := sessionResponse{
		SessionID:   s.ID(),
		From:        dates[0].String(),
		To:          dates[len(dates)-1].String(),
		SlotMinutes: s.Grid().SlotMinutes(),
	}
	for _, st := range s.Staff() {
		resp.Staff = append(resp.Staff, staffItem{
			ID: st.ID, Name: st.Name, Color: st.Color,
			Category: st.Category, SortOrder: st.SortOrder,
		})
	}
	grid := s.Grid()
	for i := 0; i < grid.SlotCount(); i++ {
		resp.Slots = append(resp.Slots, slotItem{
			Index:     i,
			StartTime: grid.TimeAt(i).String(),
			EndTime:   grid.EndOfSlot(i).String(),
			Extended:  grid.IsExtended(i),
		})
	}
	week := s.Week()
	for _, d := range dates {
		hours := week.For(d.Weekday())
		item := dayItem{Date: d.String(), Closed: hours.Closed}
		if !hours.Closed {
			item.Open = hours.Open.String()
			item.Close = hours.Close.String()
			if hours.Break != nil {
				item.BreakStart = hours.Break.Start.String()
				item.BreakEnd = hours.Break.End.String()
			}
			if hours.LastReception > 0 {
				item.LastReception = hours.LastReception.String()
			}
		}
		resp.Days = append(resp.Days, item)
	}
	return resp
}

type closeSessionRequest struct {
	SessionID string `json:"session_id"`
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req closeSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if !h.sessions.Close(strings.TrimSpace(req.SessionID)) {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type pointerRequest struct {
	SessionID  string `json:"session_id"`
	Action     string `json:"action"`
	DateIndex  int    `json:"date_index"`
	StaffIndex int    `json:"staff_index"`
	TimeIndex  int    `json:"time_index"`
	At         string `json:"at,omitempty"`
}

type selectionPayload struct {
	DateIndex      int    `json:"date_index"`
	StaffIndex     int    `json:"staff_index"`
	StartTimeIndex int    `json:"start_time_index"`
	EndTimeIndex   int    `json:"end_time_index"`
	Date           string `json:"date"`
	StaffID        string `json:"staff_id"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
}

type pointerResponse struct {
	State     string            `json:"state"`
	Selection *selectionPayload `json:"selection,omitempty"`
}

func (h *SessionHandler) Pointer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req pointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	s, ok := h.sessions.Get(strings.TrimSpace(req.SessionID))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var at time.Time
	if req.At != "" {
		parsed, err := time.Parse(time.RFC3339Nano, req.At)
		if err != nil {
			http.Error(w, "invalid at timestamp", http.StatusBadRequest)
			return
		}
		at = parsed
	}

	res, err := s.Pointer(session.PointerEvent{
		Action: session.PointerAction(req.Action),
		Cell: selection.Cell{
			DateIndex:  req.DateIndex,
			StaffIndex: req.StaffIndex,
			TimeIndex:  req.TimeIndex,
		},
		At: at,
	})
	if err != nil {
		if errors.Is(err, session.ErrInvalidSelection) {
			http.Error(w, "selection out of range", http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, "invalid pointer action", http.StatusBadRequest)
		return
	}

	resp := pointerResponse{State: res.State.String()}
	if res.Resolved != nil {
		resp.Selection = &selectionPayload{
			DateIndex:      res.Resolved.Selection.DateIndex,
			StaffIndex:     res.Resolved.Selection.StaffIndex,
			StartTimeIndex: res.Resolved.Selection.StartTimeIndex,
			EndTimeIndex:   res.Resolved.Selection.EndTimeIndex,
			Date:           res.Resolved.Date.String(),
			StaffID:        res.Resolved.StaffID,
			StartTime:      res.Resolved.Start.String(),
			EndTime:        res.Resolved.End.String(),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

type undoRequest struct {
	SessionID string `json:"session_id"`
}

type undoResponse struct {
	UndoDepth int `json:"undo_depth"`
}

func (h *SessionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req undoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	s, ok := h.sessions.Get(strings.TrimSpace(req.SessionID))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	if err := s.Undo(r.Context()); err != nil {
		if errors.Is(err, schedule.ErrNothingToUndo) {
			http.Error(w, "nothing to undo", http.StatusConflict)
			return
		}
		h.logger.Error("undo failed", "err", err, "session_id", s.ID())
		http.Error(w, "undo failed", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(undoResponse{UndoDepth: s.UndoDepth()})
}

func parseTimeField(w http.ResponseWriter, raw, field string) (timegrid.TimeOfDay, bool) {
	t, err := timegrid.ParseTimeOfDay(raw)
	if err != nil {
		http.Error(w, "invalid "+field, http.StatusBadRequest)
		return 0, false
	}
	return t, true
}
