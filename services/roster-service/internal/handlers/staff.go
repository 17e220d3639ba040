package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mkondo/clinicdesk/services/roster-service/internal/outbox"
	"github.com/mkondo/clinicdesk/services/roster-service/internal/storage"
)

type StaffHandler struct {
	repo       *storage.Repository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewStaffHandler(repo *storage.Repository, outboxRepo *outbox.Repository, logger *slog.Logger) *StaffHandler {
	return &StaffHandler{repo: repo, outboxRepo: outboxRepo, logger: logger}
}

type staffItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Category  string `json:"category,omitempty"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func staffView(s storage.StaffMember) staffItem {
	return staffItem{
		ID:        s.ID,
		Name:      s.Name,
		Color:     s.Color,
		Category:  s.Category,
		SortOrder: s.SortOrder,
		Active:    s.Active,
		CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	staff, err := h.repo.List(r.Context(), category, includeInactive)
	if err != nil {
		h.logger.Error("staff list failed", "err", err)
		http.Error(w, "failed to list staff", http.StatusInternalServerError)
		return
	}

	items := make([]staffItem, 0, len(staff))
	for _, s := range staff {
		items = append(items, staffView(s))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"staff": items})
}

type createStaffRequest struct {
	Name      string `json:"name"`
	Color     string `json:"color"`
	Category  string `json:"category"`
	SortOrder int    `json:"sort_order"`
}

func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Color = strings.TrimSpace(req.Color)
	if req.Name == "" {
		http.Error(w, "name required", http.StatusBadRequest)
		return
	}
	if req.Color == "" {
		req.Color = "#cccccc"
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.repo.Create(ctx, tx, storage.StaffMember{
		Name:      req.Name,
		Color:     req.Color,
		Category:  strings.TrimSpace(req.Category),
		SortOrder: req.SortOrder,
		Active:    true,
	})
	if err != nil {
		http.Error(w, "failed to create staff", http.StatusInternalServerError)
		return
	}

	if !h.emitStaffUpdated(w, r, tx, id, "created") {
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
}

type updateStaffRequest struct {
	StaffID   string  `json:"staff_id"`
	Name      *string `json:"name"`
	Color     *string `json:"color"`
	Category  *string `json:"category"`
	SortOrder *int    `json:"sort_order"`
	Active    *bool   `json:"active"`
}

func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	if req.StaffID == "" {
		http.Error(w, "staff_id required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	staff, err := h.repo.Update(ctx, tx, req.StaffID, storage.StaffPatch{
		Name:      req.Name,
		Color:     req.Color,
		Category:  req.Category,
		SortOrder: req.SortOrder,
		Active:    req.Active,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "staff member not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update staff", http.StatusInternalServerError)
		return
	}

	if !h.emitStaffUpdated(w, r, tx, staff.ID, "updated") {
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(staffView(staff))
}

// emitStaffUpdated writes the roster-changed event into the same transaction
// as the staff row. Reports false after responding with an error.
func (h *StaffHandler) emitStaffUpdated(w http.ResponseWriter, r *http.Request, tx pgx.Tx, staffID, action string) bool {
	payload, err := json.Marshal(map[string]string{
		"staff_id": staffID,
		"action":   action,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return false
	}
	if err := h.outboxRepo.Insert(r.Context(), tx, outbox.Event{
		AggregateType: "staff",
		AggregateID:   staffID,
		EventType:     outbox.EventStaffUpdated,
		Payload:       payload,
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return false
	}
	return true
}
