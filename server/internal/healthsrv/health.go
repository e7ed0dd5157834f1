package healthsrv

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/obsidianstack/clusterstats/pkg/types"
)

// ServiceName is the health service name clients may query explicitly.
const ServiceName = "clusterstats.v1.ClusterStats"

// CoordinatorLister reports the live coordinators.
type CoordinatorLister interface {
	Coordinators(ctx context.Context) ([]types.NodeDescriptor, error)
}

// Server tracks cluster liveness in a grpc health server.
type Server struct {
	hs    *health.Server
	nodes CoordinatorLister
	last  healthpb.HealthCheckResponse_ServingStatus
}

// New creates a Server that starts out NOT_SERVING until the first Update.
func New(nodes CoordinatorLister) *Server {
	s := &Server{hs: health.NewServer(), nodes: nodes}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Register attaches the health service to g.
func (s *Server) Register(g *grpc.Server) {
	healthpb.RegisterHealthServer(g, s.hs)
}

// Update re-reads the coordinator list and publishes the resulting status.
func (s *Server) Update(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	coords, err := s.nodes.Coordinators(ctx)
	switch {
	case err != nil:
		slog.Warn("healthsrv: list coordinators", "err", err)
	case len(coords) > 0:
		st = healthpb.HealthCheckResponse_SERVING
	}
	if st != s.last {
		slog.Info("healthsrv: status changed", "from", s.last, "to", st)
	}
	s.set(st)
	return st
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.last = st
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(ServiceName, st)
}

// Run calls Update every interval until ctx is cancelled, then marks every
// service NOT_SERVING.
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	s.Update(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.hs.Shutdown()
			return
		case <-t.C:
			s.Update(ctx)
		}
	}
}
