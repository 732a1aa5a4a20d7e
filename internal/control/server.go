// Package control exposes a thin, read-only HTTP surface over the player's
// status and the metrics collector's Prometheus exposition — ambient ops
// tooling, not the (out-of-scope) client wire protocol. Grounded on the
// teacher's internal/httpcontroller.Server (Echo instance, New/Start split,
// middleware-then-routes initialization order), stripped to the read-only
// subset this spec calls for.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tunewave/tunewaved/internal/logging"
	"github.com/tunewave/tunewaved/internal/player"
)

// StatusProvider is the read-only slice of PlayerControl the status
// endpoint needs.
type StatusProvider interface {
	GetStatus() player.Status
}

// MetricsProvider exposes the Prometheus handler the /metrics route
// delegates to. A nil MetricsProvider (metrics disabled) simply omits the
// route.
type MetricsProvider interface {
	Handler() http.Handler
}

// Server is the daemon's status/health HTTP surface.
type Server struct {
	echo   *echo.Echo
	player StatusProvider
	logger *slog.Logger
}

// New builds a Server. metrics may be nil.
func New(p StatusProvider, metrics MetricsProvider) *Server {
	logger := logging.ForService("control")
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, player: p, logger: logger.With("component", "control_server")}

	e.GET("/healthz", s.handleHealth)
	e.GET("/status", s.handleStatus)
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	return s
}

// Start begins listening on addr in the background, logging (not
// returning) any error that isn't a clean shutdown.
func (s *Server) Start(addr string) {
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control server exited", "error", err)
		}
	}()
}

// Shutdown gracefully stops the server, bounded by the given timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, newStatusView(s.player.GetStatus()))
}

// statusView reshapes player.Status into JSON-friendly fields (time.Duration
// renders as nanoseconds otherwise, and error values don't marshal at all).
type statusView struct {
	State       string   `json:"state"`
	Song        string   `json:"song,omitempty"`
	ElapsedMS   int64    `json:"elapsed_ms"`
	DurationMS  int64    `json:"duration_ms"`
	BitRate     int      `json:"bit_rate"`
	SampleRate  uint32   `json:"sample_rate"`
	Channels    uint8    `json:"channels"`
	Error       string   `json:"error,omitempty"`
	OutputError []string `json:"output_errors,omitempty"`
}

func newStatusView(st player.Status) statusView {
	v := statusView{
		State:      st.State.String(),
		ElapsedMS:  st.Elapsed.Milliseconds(),
		DurationMS: st.Duration.Milliseconds(),
		BitRate:    st.BitRate,
		SampleRate: st.AudioFormat.SampleRate,
		Channels:   st.AudioFormat.Channels,
	}
	if st.Song != nil {
		v.Song = st.Song.URI
	}
	if st.Error != nil {
		v.Error = st.Error.Error()
	}
	for name, err := range st.OutputErrors {
		v.OutputError = append(v.OutputError, name+": "+err.Error())
	}
	return v
}
