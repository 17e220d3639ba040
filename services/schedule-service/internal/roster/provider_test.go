package roster

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
)

func TestStaticProviderFilters(t *testing.T) {
	p := NewStaticProvider([]model.StaffMember{
		{ID: "s1", Name: "Aoki", Category: "doctor", Active: true},
		{ID: "s2", Name: "Ito", Category: "nurse", Active: true},
		{ID: "s3", Name: "Sato", Category: "doctor", Active: false},
	})

	all, err := p.ListStaff(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d staff, want 2 (inactive excluded)", len(all))
	}

	doctors, err := p.ListStaff(context.Background(), "doctor")
	if err != nil {
		t.Fatalf("list doctors: %v", err)
	}
	if len(doctors) != 1 || doctors[0].ID != "s1" {
		t.Fatalf("doctor filter returned %+v", doctors)
	}
}

func TestHTTPProviderListStaff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/staff" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("category"); got != "doctor" {
			t.Errorf("category = %q, want doctor", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"staff":[{"id":"s1","name":"Aoki","color":"#80c0ff","category":"doctor","sort_order":1,"active":true}]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL)
	staff, err := p.ListStaff(context.Background(), "doctor")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(staff) != 1 {
		t.Fatalf("got %d staff, want 1", len(staff))
	}
	if staff[0].ID != "s1" || staff[0].Color != "#80c0ff" || staff[0].SortOrder != 1 {
		t.Fatalf("unexpected staff %+v", staff[0])
	}
}

func TestHTTPProviderNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewHTTPProvider(srv.URL).ListStaff(context.Background(), ""); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
