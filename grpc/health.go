// Package grpc exposes the standard gRPC health service so orchestrators can
// probe the bot the same way they probe the rest of the fleet.
package grpc

import (
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported to health checks besides the empty
// whole-server name.
const ServiceName = "shopbot"

type Server struct {
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewServer starts out NOT_SERVING; call SetServing once the bot is ready.
func NewServer(logger *zap.Logger) *Server {
	s := &Server{
		server: grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler())),
		health: health.NewServer(),
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.server, s.health)
	s.SetServing(false)
	return s
}

func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	s.logger.Info("gRPC health status changed", zap.String("status", status.String()))
}

func (s *Server) Serve(lis net.Listener) error {
	return s.server.Serve(lis)
}

// GracefulStop reports NOT_SERVING to watchers and drains open RPCs.
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
