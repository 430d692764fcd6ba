package infrastructure

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// HealthServer serves the gRPC health protocol. Each registered check is
// exposed as its own service name; the empty name is SERVING only while
// every check passes.
type HealthServer struct {
	addr     string
	interval time.Duration
	grpc     *grpc.Server
	health   *health.Server

	mu     sync.Mutex
	checks map[string]HealthCheck
}

// NewHealthServer creates a health server listening on addr
func NewHealthServer(addr string, interval time.Duration) *HealthServer {
	h := &HealthServer{
		addr:     addr,
		interval: interval,
		grpc:     grpc.NewServer(),
		health:   health.NewServer(),
		checks:   make(map[string]HealthCheck),
	}
	healthpb.RegisterHealthServer(h.grpc, h.health)
	h.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// AddCheck registers a named check
func (h *HealthServer) AddCheck(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
	h.health.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
}

// Run listens on the configured address and serves until ctx is done
func (h *HealthServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	return h.Serve(ctx, lis)
}

// Serve serves on lis until ctx is done
func (h *HealthServer) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.grpc.Serve(lis)
	}()
	log.WithField("addr", lis.Addr().String()).Info("Health server started")

	h.evaluate(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			h.grpc.GracefulStop()
			log.Info("Health server stopped")
			return nil
		case err := <-errCh:
			return fmt.Errorf("health server failed: %w", err)
		case <-ticker.C:
			h.evaluate(ctx)
		}
	}
}

// evaluate runs every check and updates the serving statuses
func (h *HealthServer) evaluate(ctx context.Context) {
	h.mu.Lock()
	checks := make(map[string]HealthCheck, len(h.checks))
	for name, check := range h.checks {
		checks[name] = check
	}
	h.mu.Unlock()

	overall := healthpb.HealthCheckResponse_SERVING
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, h.interval)
		err := check(checkCtx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = status
			log.WithError(err).WithField("check", name).Warn("Health check failed")
		}
		h.health.SetServingStatus(name, status)
	}
	h.health.SetServingStatus("", overall)
}
