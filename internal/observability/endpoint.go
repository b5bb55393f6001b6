package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/pifon/rmsmeter/internal/logger"
	"github.com/pifon/rmsmeter/internal/observability/metrics"
)

// readHeaderTimeout guards the endpoint against slow clients
const readHeaderTimeout = 5 * time.Second

// Endpoint serves /metrics over HTTP.
type Endpoint struct {
	listenAddress string
	metrics       *Metrics
}

// NewEndpoint creates an endpoint for listenAddress (host:port).
func NewEndpoint(listenAddress string, m *Metrics) *Endpoint {
	return &Endpoint{
		listenAddress: listenAddress,
		metrics:       m,
	}
}

// Run listens on the endpoint address and serves until ctx is done, then
// shuts the server down gracefully. It returns nil after a clean shutdown.
func (e *Endpoint) Run(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", e.listenAddress)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done. ln is closed on return.
func (e *Endpoint) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	e.metrics.RegisterHandlers(mux)

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log := GetLogger()
	serveErr := make(chan error, 1)
	go func() {
		log.Info("telemetry endpoint starting", logger.String("address", ln.Addr().String()))
		serveErr <- server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("stopping telemetry endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metrics.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("telemetry endpoint shutdown error", logger.Error(err))
		return err
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
