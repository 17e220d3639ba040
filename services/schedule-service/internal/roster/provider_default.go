//go:build !protogen

package roster

import (
	"log/slog"

	"github.com/mkondo/clinicdesk/services/schedule-service/internal/model"
)

// NewProvider wires the roster source: the HTTP surface when a base URL is
// configured, otherwise the static fallback. The gRPC read path needs
// generated protos and is only available under the protogen build tag.
func NewProvider(logger *slog.Logger, httpBaseURL, grpcAddr string, fallback []model.StaffMember) (Provider, error) {
	if grpcAddr != "" {
		logger.Warn("roster grpc addr configured but binary built without protogen; ignoring", "addr", grpcAddr)
	}
	if httpBaseURL != "" {
		logger.Info("roster provider: http", "base_url", httpBaseURL)
		return NewHTTPProvider(httpBaseURL), nil
	}
	logger.Info("roster provider: static fallback", "staff", len(fallback))
	return NewStaticProvider(fallback), nil
}
