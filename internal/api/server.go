package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dessmon/dessmon-core/internal/fleet"
	"github.com/dessmon/dessmon-core/internal/infrastructure/config"
	"github.com/dessmon/dessmon-core/internal/infrastructure/influxdb"
	"github.com/dessmon/dessmon-core/internal/infrastructure/logging"
	"github.com/dessmon/dessmon-core/internal/poller"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by every infrastructure component the status
// server reports on.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HistoryQuerier serves stored readings for the history endpoint. Satisfied
// by influxdb.Client.
type HistoryQuerier interface {
	QueryDeviceHistory(ctx context.Context, sn, key string, start, end time.Time, step time.Duration) ([]influxdb.HistoryPoint, error)
}

// Deps holds the dependencies required by the status server.
type Deps struct {
	Config    config.APIConfig
	Logger    *logging.Logger
	Fleet     *fleet.Registry
	Snapshots *poller.SnapshotStore

	// Components maps component names to their health checks.
	Components map[string]HealthChecker

	// Gatherer serves /metrics. Usually prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// History is optional; nil disables the history endpoint.
	History HistoryQuerier

	Version string
}

// Server is the HTTP status server.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	fleet      *fleet.Registry
	snapshots  *poller.SnapshotStore
	components map[string]HealthChecker
	gatherer   prometheus.Gatherer
	history    HistoryQuerier
	version    string

	server *http.Server
}

// New creates a status server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Fleet == nil {
		return nil, fmt.Errorf("fleet registry is required")
	}
	if deps.Snapshots == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		fleet:      deps.Fleet,
		snapshots:  deps.Snapshots,
		components: deps.Components,
		gatherer:   deps.Gatherer,
		history:    deps.History,
		version:    deps.Version,
	}, nil
}

// Start launches the HTTP listener in a background goroutine. The server is
// stopped with Close().
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("status API listening", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the server, waiting for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("status API shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down status API: %w", err)
	}
	return nil
}

// HealthCheck verifies the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
