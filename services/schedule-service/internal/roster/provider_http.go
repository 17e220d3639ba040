package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
)

// HTTPProvider reads the roster from the roster service's REST surface.
type HTTPProvider struct {
	baseURL string
	http    *http.Client
}

func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type staffPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Category  string `json:"category"`
	SortOrder int    `json:"sort_order"`
	Active    bool   `json:"active"`
}

func (p *HTTPProvider) ListStaff(ctx context.Context, category string) ([]model.StaffMember, error) {
	endpoint := p.baseURL + "/api/v1/staff"
	if category != "" {
		endpoint += "?category=" + url.QueryEscape(category)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("roster: list staff: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("roster: list staff: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Staff []staffPayload `json:"staff"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("roster: decode staff list: %w", err)
	}

	out := make([]model.StaffMember, 0, len(body.Staff))
	for _, s := range body.Staff {
		out = append(out, model.StaffMember{
			ID:        s.ID,
			Name:      s.Name,
			Color:     s.Color,
			Category:  s.Category,
			SortOrder: s.SortOrder,
			Active:    s.Active,
		})
	}
	return out, nil
}
