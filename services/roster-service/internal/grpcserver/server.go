//go:build protogen

package grpcserver

import (
	"context"

	rosterv1 "github.com/mkondo/clinicdesk/protos/gen/roster/v1"
	"github.com/mkondo/clinicdesk/services/roster-service/internal/storage"
	"google.golang.org/grpc"
)

type server struct {
	rosterv1.UnimplementedRosterServiceServer
	repo *storage.Repository
}

func Register(grpcServer *grpc.Server, repo *storage.Repository) {
	rosterv1.RegisterRosterServiceServer(grpcServer, &server{repo: repo})
}

func (s *server) ListStaff(ctx context.Context, req *rosterv1.ListStaffRequest) (*rosterv1.ListStaffResponse, error) {
	members, err := s.repo.List(ctx, req.GetCategory(), false)
	if err != nil {
		return nil, err
	}
	resp := &rosterv1.ListStaffResponse{}
	for _, m := range members {
		resp.Staff = append(resp.Staff, &rosterv1.StaffMember{
			Id:        m.ID,
			Name:      m.Name,
			Color:     m.Color,
			Category:  m.Category,
			SortOrder: int32(m.SortOrder),
			Active:    m.Active,
		})
	}
	return resp, nil
}
