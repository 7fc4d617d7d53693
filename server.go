package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// coordinate accepts a JSON number or a numeric string.
// The game client sends positions as strings.
type coordinate float64

func (c *coordinate) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("coordinate %s is not a number", string(data))
	}
	*c = coordinate(v)
	return nil
}

type positionJSON struct {
	X *coordinate `json:"x"`
	Y *coordinate `json:"y"`
	Z *coordinate `json:"z"`
}

func (p *positionJSON) metric(field string) (MetricPoint, error) {
	if p == nil {
		return MetricPoint{}, fmt.Errorf("%w: %s is required", ErrInvalidRequest, field)
	}
	if p.X == nil || p.Z == nil {
		return MetricPoint{}, fmt.Errorf("%w: %s needs x and z", ErrInvalidRequest, field)
	}
	return MetricPoint{X: float64(*p.X), Z: float64(*p.Z)}, nil
}

type navigateRequest struct {
	CurrentFloor   *int           `json:"current_floor"`
	CurrentRoom    string         `json:"current_room"`
	PlayerPosition *positionJSON  `json:"player_position"`
	FirePositions  []positionJSON `json:"fire_positions,omitempty"`
}

func (r navigateRequest) toNavigationRequest() (NavigationRequest, error) {
	if r.CurrentFloor == nil {
		return NavigationRequest{}, fmt.Errorf("%w: current_floor is required", ErrInvalidRequest)
	}
	start, err := r.PlayerPosition.metric("player_position")
	if err != nil {
		return NavigationRequest{}, err
	}
	req := NavigationRequest{
		Floor:   *r.CurrentFloor,
		Room:    r.CurrentRoom,
		Start:   start,
		Hazards: make([]MetricPoint, 0, len(r.FirePositions)),
	}
	for i := range r.FirePositions {
		h, err := r.FirePositions[i].metric(fmt.Sprintf("fire_positions[%d]", i))
		if err != nil {
			return NavigationRequest{}, err
		}
		req.Hazards = append(req.Hazards, h)
	}
	return req, nil
}

type navigateResponse struct {
	Path         []Cell   `json:"path"`
	Instructions []string `json:"instructions"`
	ExitPosition Cell     `json:"exit_position"`
	CurrentRoom  string   `json:"current_room,omitempty"`
	RequestID    string   `json:"request_id"`
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Server exposes a Planner over HTTP.
type Server struct {
	planner        *Planner
	logger         *zap.Logger
	requestTimeout time.Duration
}

// NewServer wires the HTTP layer around a planner.
func NewServer(planner *Planner, logger *zap.Logger, requestTimeout time.Duration) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{planner: planner, logger: logger, requestTimeout: requestTimeout}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/navigate", corsMiddleware(s.navigateHandler))
	mux.HandleFunc("/health", corsMiddleware(s.healthHandler))
	mux.HandleFunc("/graph/lines", corsMiddleware(s.graphLinesHandler))
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// classify maps a planner error onto an HTTP status and metrics outcome.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, outcomeInvalid
	case errors.Is(err, ErrPathNotFound):
		return http.StatusNotFound, outcomeNotFound
	case errors.Is(err, ErrNoReachableNode), errors.Is(err, ErrNoExit):
		return http.StatusUnprocessableEntity, outcomeUnreachable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, outcomeTimeout
	default:
		return http.StatusInternalServerError, outcomeError
	}
}

// POST /navigate - compute a safe route to the nearest exit
func (s *Server) navigateHandler(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	logger := s.logger.With(zap.String("request_id", requestID))
	began := time.Now()
	logger.Info("Received navigation request")

	if r.Method != http.MethodPost {
		logger.Warn("Method not allowed", zap.String("method", r.Method))
		navigateRequests.WithLabelValues(outcomeInvalid).Inc()
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed", RequestID: requestID})
		return
	}

	var body navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn("Invalid request body", zap.Error(err))
		navigateRequests.WithLabelValues(outcomeInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", RequestID: requestID})
		return
	}
	req, err := body.toNavigationRequest()
	if err != nil {
		logger.Warn("Invalid request", zap.Error(err))
		navigateRequests.WithLabelValues(outcomeInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), RequestID: requestID})
		return
	}

	logger.Info("Navigation input",
		zap.Int("current_floor", req.Floor),
		zap.String("current_room", req.Room),
		zap.Float64("x", req.Start.X),
		zap.Float64("z", req.Start.Z),
		zap.Int("fires", len(req.Hazards)))

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	plan, err := s.planner.Plan(ctx, req)
	if err != nil {
		status, outcome := classify(err)
		navigateRequests.WithLabelValues(outcome).Inc()
		message := err.Error()
		if errors.Is(err, ErrPathNotFound) {
			message = "No safe path found"
		}
		if status == http.StatusInternalServerError {
			logger.Error("Navigation failed", zap.Error(err))
		} else {
			logger.Warn("Navigation failed", zap.Error(err), zap.Int("status", status))
		}
		writeJSON(w, status, errorResponse{Error: message, RequestID: requestID})
		return
	}

	navigateRequests.WithLabelValues(outcomeOK).Inc()
	logger.Info("Request processed", zap.Duration("elapsed", time.Since(began)))

	writeJSON(w, http.StatusOK, navigateResponse{
		Path:         plan.Path,
		Instructions: plan.Instructions.Strings(),
		ExitPosition: plan.Exit,
		CurrentRoom:  plan.Room,
		RequestID:    requestID,
	})
}

// GET /health - Health check endpoint
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	graph := s.planner.Graph()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"floors":   len(s.planner.Building().Floors),
		"numNodes": graph.Len(),
		"numEdges": graph.EdgeCount(),
	})
}

// GET /graph/lines - graph edges as GeoJSON line strings for visualization
func (s *Server) graphLinesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	fc := s.planner.Graph().LineStrings(s.planner.Options().CellsPerMeter)
	data, err := fc.MarshalJSON()
	if err != nil {
		s.logger.Error("Failed to encode graph lines", zap.Error(err))
		http.Error(w, "failed to encode graph", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("Returning graph lines", zap.Int("features", len(fc.Features)))
	w.Header().Set("Content-Type", "application/geo+json")
	_, _ = w.Write(data)
}
