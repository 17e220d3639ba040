// Package roster resolves the staff members shown as grid columns. The
// roster is read once per session open and held immutable for the session's
// lifetime; providers only need to be fresh at that point.
package roster

import (
	"context"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
)

type Provider interface {
	// ListStaff returns the active staff in the given category, ordered by
	// sort order. An empty category returns all active staff.
	ListStaff(ctx context.Context, category string) ([]model.StaffMember, error)
}

type staticProvider struct {
	staff []model.StaffMember
}

// NewStaticProvider serves a fixed roster. Used as the fallback when no
// roster service is configured, and by tests.
func NewStaticProvider(staff []model.StaffMember) Provider {
	return &staticProvider{staff: staff}
}

func (p *staticProvider) ListStaff(_ context.Context, category string) ([]model.StaffMember, error) {
	var out []model.StaffMember
	for _, s := range p.staff {
		if !s.Active {
			continue
		}
		if category != "" && s.Category != category {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
