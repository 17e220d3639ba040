//go:build protogen

package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkondo/clinicdesk/libs/grpcx"
	rosterv1 "github.com/mkondo/clinicdesk/protos/gen/roster/v1"
	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
)

type grpcProvider struct {
	client rosterv1.RosterServiceClient
}

// NewProvider wires the roster source, preferring the gRPC surface when an
// address is configured. A failed dial falls back to HTTP or the static
// roster rather than refusing to start.
func NewProvider(logger *slog.Logger, httpBaseURL, grpcAddr string, fallback []model.StaffMember) (Provider, error) {
	if grpcAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		conn, err := grpcx.Dial(ctx, grpcAddr, grpcx.DialOptions{Timeout: 5 * time.Second})
		if err == nil {
			logger.Info("roster provider: grpc", "addr", grpcAddr)
			return &grpcProvider{client: rosterv1.NewRosterServiceClient(conn)}, nil
		}
		logger.Warn("roster grpc unavailable, falling back", "addr", grpcAddr, "err", err)
	}
	if httpBaseURL != "" {
		logger.Info("roster provider: http", "base_url", httpBaseURL)
		return NewHTTPProvider(httpBaseURL), nil
	}
	logger.Info("roster provider: static fallback", "staff", len(fallback))
	return NewStaticProvider(fallback), nil
}

func (p *grpcProvider) ListStaff(ctx context.Context, category string) ([]model.StaffMember, error) {
	resp, err := p.client.ListStaff(ctx, &rosterv1.ListStaffRequest{Category: category})
	if err != nil {
		return nil, err
	}
	out := make([]model.StaffMember, 0, len(resp.GetStaff()))
	for _, s := range resp.GetStaff() {
		out = append(out, model.StaffMember{
			ID:        s.GetId(),
			Name:      s.GetName(),
			Color:     s.GetColor(),
			Category:  s.GetCategory(),
			SortOrder: int(s.GetSortOrder()),
			Active:    s.GetActive(),
		})
	}
	return out, nil
}
