package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/docstore"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/persist"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/roster"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/session"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/timegrid"
)

func newTestHandler(t *testing.T) *SessionHandler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	syncer := persist.NewSyncer(docstore.NewMemory(), logger)
	manager := session.NewManager(syncer, roster.NewStaticProvider([]model.StaffMember{
		{ID: "s1", Name: "Dr. Aoki", Color: "#80c0ff", Active: true},
		{ID: "s2", Name: "Dr. Ito", Color: "#ffc080", Active: true},
	}), logger, session.Config{Week: timegrid.DefaultWeek()})
	return NewSessionHandler(manager, logger)
}

func postJSON(t *testing.T, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "http://example.com", bytes.NewReader(raw))
	rw := httptest.NewRecorder()
	h(rw, req)
	return rw
}

func decodeJSON(t *testing.T, rw *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rw.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// 2026-03-10 is a Tuesday.
func openSession(t *testing.T, h *SessionHandler) sessionResponse {
	t.Helper()
	rw := postJSON(t, h.Open, map[string]any{"start_date": "2026-03-10", "days": 1})
	if rw.Code != http.StatusCreated {
		t.Fatalf("open returned %d: %s", rw.Code, rw.Body.String())
	}
	var resp sessionResponse
	decodeJSON(t, rw, &resp)
	return resp
}

func TestOpenSession(t *testing.T) {
	h := newTestHandler(t)
	resp := openSession(t, h)

	if resp.SessionID == "" {
		t.Fatal("missing session_id")
	}
	if resp.SlotMinutes != 30 || len(resp.Slots) != 20 {
		t.Fatalf("grid geometry %d min / %d slots", resp.SlotMinutes, len(resp.Slots))
	}
	if len(resp.Staff) != 2 || resp.Staff[0].ID != "s1" {
		t.Fatalf("staff payload %+v", resp.Staff)
	}
	if resp.Days[0].BreakStart != "13:00" || resp.Days[0].LastReception != "18:30" {
		t.Fatalf("day payload %+v", resp.Days[0])
	}
}

func TestOpenSessionRejectsBadBody(t *testing.T) {
	h := newTestHandler(t)

	rw := postJSON(t, h.Open, map[string]any{"days": 1})
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("missing start_date returned %d", rw.Code)
	}

	rw = postJSON(t, h.Open, map[string]any{"start_date": "10/03/2026"})
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("malformed start_date returned %d", rw.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
	rec := httptest.NewRecorder()
	h.Open(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET open returned %d", rec.Code)
	}
}

func TestPointerFlowAndCommit(t *testing.T) {
	h := newTestHandler(t)
	sess := openSession(t, h)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	// Press slot 2 (10:00), drag to slot 3, release.
	rw := postJSON(t, h.Pointer, map[string]any{
		"session_id": sess.SessionID, "action": "down",
		"time_index": 2, "at": at.Format(time.RFC3339Nano),
	})
	if rw.Code != http.StatusOK {
		t.Fatalf("down returned %d: %s", rw.Code, rw.Body.String())
	}
	postJSON(t, h.Pointer, map[string]any{
		"session_id": sess.SessionID, "action": "move",
		"time_index": 3, "at": at.Add(250 * time.Millisecond).Format(time.RFC3339Nano),
	})
	rw = postJSON(t, h.Pointer, map[string]any{
		"session_id": sess.SessionID, "action": "up",
		"at": at.Add(400 * time.Millisecond).Format(time.RFC3339Nano),
	})
	var ptr pointerResponse
	decodeJSON(t, rw, &ptr)
	if ptr.State != "idle" || ptr.Selection == nil {
		t.Fatalf("pointer response %+v", ptr)
	}
	if ptr.Selection.StartTime != "10:00" || ptr.Selection.EndTime != "11:00" {
		t.Fatalf("selection times %s-%s", ptr.Selection.StartTime, ptr.Selection.EndTime)
	}

	rw = postJSON(t, h.Appointments, map[string]any{
		"session_id": sess.SessionID,
		"selection": map[string]int{
			"date_index":       ptr.Selection.DateIndex,
			"staff_index":      ptr.Selection.StaffIndex,
			"start_time_index": ptr.Selection.StartTimeIndex,
			"end_time_index":   ptr.Selection.EndTimeIndex,
		},
		"title": "Checkup", "type": "reservation",
	})
	if rw.Code != http.StatusCreated {
		t.Fatalf("commit returned %d: %s", rw.Code, rw.Body.String())
	}
	var created appointmentItem
	decodeJSON(t, rw, &created)
	if created.StaffName != "Dr. Aoki" || created.StartTime != "10:00" || created.EndTime != "11:00" {
		t.Fatalf("created %+v", created)
	}

	req := httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("http://example.com?session_id=%s", sess.SessionID), nil)
	rec := httptest.NewRecorder()
	h.Appointments(rec, req)
	var list struct {
		Appointments []appointmentItem `json:"appointments"`
	}
	decodeJSON(t, rec, &list)
	if len(list.Appointments) != 1 || list.Appointments[0].ID != created.ID {
		t.Fatalf("list %+v", list.Appointments)
	}
}

func commitAt(t *testing.T, h *SessionHandler, sessionID string, startIdx, endIdx int) (appointmentItem, *httptest.ResponseRecorder) {
	t.Helper()
	rw := postJSON(t, h.Appointments, map[string]any{
		"session_id": sessionID,
		"selection": map[string]int{
			"start_time_index": startIdx,
			"end_time_index":   endIdx,
		},
		"title": "Visit", "type": "general",
	})
	var item appointmentItem
	if rw.Code == http.StatusCreated {
		decodeJSON(t, rw, &item)
	}
	return item, rw
}

func TestCommitConflict(t *testing.T) {
	h := newTestHandler(t)
	sess := openSession(t, h)

	if _, rw := commitAt(t, h, sess.SessionID, 2, 3); rw.Code != http.StatusCreated {
		t.Fatalf("first commit returned %d", rw.Code)
	}
	if _, rw := commitAt(t, h, sess.SessionID, 3, 4); rw.Code != http.StatusConflict {
		t.Fatalf("overlapping commit returned %d, want 409", rw.Code)
	}
}

func TestCommitOutOfRangeSelection(t *testing.T) {
	h := newTestHandler(t)
	sess := openSession(t, h)

	rw := postJSON(t, h.Appointments, map[string]any{
		"session_id": sess.SessionID,
		"selection":  map[string]int{"date_index": 9, "start_time_index": 0, "end_time_index": 0},
		"title":      "bad",
	})
	if rw.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out-of-range selection returned %d, want 422", rw.Code)
	}
}

func TestUpdateDeleteUndoFlow(t *testing.T) {
	h := newTestHandler(t)
	sess := openSession(t, h)
	created, _ := commitAt(t, h, sess.SessionID, 2, 2)

	title := "Follow-up"
	rw := postJSON(t, h.UpdateAppointment, map[string]any{
		"session_id":     sess.SessionID,
		"appointment_id": created.ID,
		"title":          title,
		"staff_id":       "s2",
	})
	if rw.Code != http.StatusOK {
		t.Fatalf("update returned %d: %s", rw.Code, rw.Body.String())
	}
	var updated appointmentItem
	decodeJSON(t, rw, &updated)
	if updated.Title != title || updated.StaffName != "Dr. Ito" {
		t.Fatalf("update result %+v", updated)
	}

	rw = postJSON(t, h.Undo, map[string]any{"session_id": sess.SessionID})
	if rw.Code != http.StatusOK {
		t.Fatalf("undo returned %d", rw.Code)
	}

	rw = postJSON(t, h.DeleteAppointment, map[string]any{
		"session_id":     sess.SessionID,
		"appointment_id": created.ID,
	})
	if rw.Code != http.StatusNoContent {
		t.Fatalf("delete returned %d", rw.Code)
	}

	rw = postJSON(t, h.DeleteAppointment, map[string]any{
		"session_id":     sess.SessionID,
		"appointment_id": created.ID,
	})
	if rw.Code != http.StatusNoContent {
		t.Fatalf("repeat delete returned %d, want idempotent 204", rw.Code)
	}
}

func TestUndoEmptyStack(t *testing.T) {
	h := newTestHandler(t)
	sess := openSession(t, h)

	rw := postJSON(t, h.Undo, map[string]any{"session_id": sess.SessionID})
	if rw.Code != http.StatusConflict {
		t.Fatalf("undo on empty stack returned %d, want 409", rw.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	h := newTestHandler(t)

	rw := postJSON(t, h.Pointer, map[string]any{"session_id": "nope", "action": "down"})
	if rw.Code != http.StatusNotFound {
		t.Fatalf("pointer on unknown session returned %d", rw.Code)
	}
	rw = postJSON(t, h.Close, map[string]any{"session_id": "nope"})
	if rw.Code != http.StatusNotFound {
		t.Fatalf("close on unknown session returned %d", rw.Code)
	}
}

func TestCloseSession(t *testing.T) {
	h := newTestHandler(t)
	sess := openSession(t, h)

	rw := postJSON(t, h.Close, map[string]any{"session_id": sess.SessionID})
	if rw.Code != http.StatusNoContent {
		t.Fatalf("close returned %d", rw.Code)
	}
	rw = postJSON(t, h.Undo, map[string]any{"session_id": sess.SessionID})
	if rw.Code != http.StatusNotFound {
		t.Fatalf("closed session still served, got %d", rw.Code)
	}
}
