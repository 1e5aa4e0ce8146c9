package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks session liveness for the health endpoint.
type HealthChecker struct {
	mu          sync.RWMutex
	lastRun     time.Time
	runsStarted int
	runsDone    int
	errors      []string
}

// HealthStatus is the JSON body of the health endpoint.
type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	LastRun     time.Time `json:"last_run"`
	RunsStarted int       `json:"runs_started"`
	RunsDone    int       `json:"runs_done"`
	Uptime      string    `json:"uptime"`
	Errors      []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{errors: make([]string, 0)}
}

// RunStarted marks a run in flight.
func (h *HealthChecker) RunStarted() {
	h.mu.Lock()
	h.runsStarted++
	h.lastRun = time.Now()
	h.mu.Unlock()
}

// RunFinished marks a run complete; a non-nil err degrades the status.
func (h *HealthChecker) RunFinished(err error) {
	h.mu.Lock()
	h.runsDone++
	if err != nil {
		h.errors = append(h.errors, err.Error())
		if len(h.errors) > 10 {
			h.errors = h.errors[len(h.errors)-10:]
		}
	}
	h.mu.Unlock()
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if len(h.errors) > 0 {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	health := HealthStatus{
		Status:      status,
		Timestamp:   time.Now(),
		LastRun:     h.lastRun,
		RunsStarted: h.runsStarted,
		RunsDone:    h.runsDone,
		Uptime:      time.Since(startTime).String(),
		Errors:      h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// Server hosts the /metrics and /health endpoints for batch sessions that
// run long enough to be worth scraping.
type Server struct {
	httpServer *http.Server
	Health     *HealthChecker
}

func NewServer(port int) *Server {
	health := NewHealthChecker()
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	mux.Handle("/health", health)
	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		Health: health,
	}
}

// Start serves until Shutdown. It blocks, so run it on its own goroutine.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
