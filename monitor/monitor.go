// Package monitor serves the controller status over HTTP as JSON and Prometheus metrics
package monitor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/calvinmclean/dualstep/commands"
	"github.com/calvinmclean/dualstep/motion"
)

// Source is what the monitor reads from. *commands.Session implements it
type Source interface {
	Status() motion.Status
	Stats() commands.Stats
	Handle(line string) []string
}

// Server exposes a Source over HTTP
type Server struct {
	src        Source
	log        logrus.FieldLogger
	registry   *prometheus.Registry
	advisories prometheus.Counter
}

// New creates a Server with its own metrics registry
func New(src Source, log logrus.FieldLogger) (*Server, error) {
	s := &Server{
		src:      src,
		log:      log,
		registry: prometheus.NewRegistry(),
		advisories: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drift_advisories_total",
			Help:      "Number of times the position drift exceeded the sync threshold.",
		}),
	}

	for _, c := range []prometheus.Collector{s.advisories, newCollector(src)} {
		err := s.registry.Register(c)
		if err != nil {
			return nil, errors.New("error registering metrics: " + err.Error())
		}
	}

	return s, nil
}

// ObserveDrift counts an advisory. Pass it to motion.WithDriftHandler
func (s *Server) ObserveDrift(a motion.DriftAdvisory) {
	s.advisories.Inc()
	s.log.WithFields(logrus.Fields{
		"drift":     a.Drift,
		"position1": a.Position1,
		"position2": a.Position2,
	}).Debug("drift advisory")
}

// Router returns the HTTP routes
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/status", s.getStatus)
	r.Get("/stats", s.getStats)
	r.Post("/command", s.postCommand)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return r
}

// ListenAndServe serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.WithField("addr", addr).Info("monitor listening")
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.src.Status())
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.src.Stats())
}

// CommandRequest carries one protocol line, e.g. {"line": "M1:SPEED:1000"}
type CommandRequest struct {
	Line string `json:"line"`
}

func (c *CommandRequest) Bind(*http.Request) error {
	if c.Line == "" {
		return errors.New("missing required field: line")
	}
	return nil
}

// CommandResponse has the lines the controller answered with
type CommandResponse struct {
	Response []string `json:"response"`
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	req := &CommandRequest{}
	if err := render.Bind(r, req); err != nil {
		_ = render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	s.log.WithField("line", req.Line).Info("command received over HTTP")
	render.JSON(w, r, CommandResponse{Response: s.src.Handle(req.Line)})
}

// ErrResponse is the JSON body for HTTP errors
type ErrResponse struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}
