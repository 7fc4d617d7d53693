package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MetricPoint is a horizontal position in metres.
type MetricPoint struct {
	X float64
	Z float64
}

// NavigationRequest asks for an evacuation route from a metric position.
// Hazards are on the same floor as the start.
type NavigationRequest struct {
	Floor   int
	Room    string
	Start   MetricPoint
	Hazards []MetricPoint
}

// Plan is a computed evacuation route.
type Plan struct {
	Path         []Cell
	Instructions Instructions
	Exit         Cell // as answered by the exit locator
	Goal         Cell // snapped exit cell, last element of Path
	Start        Cell // snapped start cell, first element of Path
	Room         string
	Expanded     int
}

// PlannerOptions carries the navigation settings of a Planner.
type PlannerOptions struct {
	GridScale     float64
	CellsPerMeter float64
	HazardRadius  int
	FloorPenalty  int
	BatchWorkers  int
}

// PlannerOptionsFromConfig extracts planner settings from the config.
func PlannerOptionsFromConfig(cfg NavigationConfig) PlannerOptions {
	return PlannerOptions{
		GridScale:     cfg.GridScale,
		CellsPerMeter: cfg.CellsPerMeter,
		HazardRadius:  cfg.HazardRadius,
		FloorPenalty:  cfg.FloorPenalty,
		BatchWorkers:  cfg.BatchWorkers,
	}
}

// Planner owns one building and its navigation graph. Both are read-only,
// so a single Planner serves concurrent requests; every search keeps its
// state on its own stack.
type Planner struct {
	building *Building
	graph    *NavGraph
	rooms    *RoomIndex
	exits    ExitLocator
	opts     PlannerOptions
	logger   *zap.Logger
}

// NewPlanner builds the navigation graph and room index for a building.
func NewPlanner(b *Building, exits ExitLocator, opts PlannerOptions, logger *zap.Logger) *Planner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = 1
	}

	start := time.Now()
	graph := BuildNavGraph(b)
	logger.Info("Navigation graph built",
		zap.Int("floors", len(b.Floors)),
		zap.Int("nodes", graph.Len()),
		zap.Int("edges", graph.EdgeCount()),
		zap.Bool("bounds_empty", b.Bounds.IsEmpty()),
		zap.Duration("elapsed", time.Since(start)))

	return &Planner{
		building: b,
		graph:    graph,
		rooms:    NewRoomIndex(b),
		exits:    exits,
		opts:     opts,
		logger:   logger,
	}
}

// Graph exposes the planner's navigation graph.
func (p *Planner) Graph() *NavGraph { return p.graph }

// Building exposes the planner's building.
func (p *Planner) Building() *Building { return p.building }

// Options returns the planner settings.
func (p *Planner) Options() PlannerOptions { return p.opts }

// maxCellIndex bounds converted coordinates so distance sums stay in range.
const maxCellIndex = math.MaxInt32

func validateRequest(req NavigationRequest, cellsPerMeter float64) error {
	if !inRange(req.Start.X, cellsPerMeter) || !inRange(req.Start.Z, cellsPerMeter) {
		return fmt.Errorf("%w: player position out of range", ErrInvalidRequest)
	}
	for i, h := range req.Hazards {
		if !inRange(h.X, cellsPerMeter) || !inRange(h.Z, cellsPerMeter) {
			return fmt.Errorf("%w: fire position %d out of range", ErrInvalidRequest, i)
		}
	}
	return nil
}

// inRange reports whether v is finite and converts to a cell index within
// maxCellIndex.
func inRange(v, cellsPerMeter float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return math.Abs(v*cellsPerMeter) <= maxCellIndex
}

// Plan computes the evacuation route for one request.
//
// The search itself cannot be interrupted; when ctx ends first, Plan returns
// ctx's error and the in-flight search is left to finish and be discarded.
func (p *Planner) Plan(ctx context.Context, req NavigationRequest) (*Plan, error) {
	if err := validateRequest(req, p.opts.CellsPerMeter); err != nil {
		return nil, err
	}

	logger := p.logger.With(zap.Int("floor", req.Floor))

	start := CellAt(req.Floor, req.Start.X, req.Start.Z, p.opts.CellsPerMeter)
	hazards := make([]Cell, 0, len(req.Hazards))
	for _, h := range req.Hazards {
		hazards = append(hazards, CellAt(req.Floor, h.X, h.Z, p.opts.CellsPerMeter))
	}

	room := req.Room
	if found, ok := p.rooms.RoomAt(req.Floor, req.Start.X, req.Start.Z); ok {
		if room == "" {
			room = found.Name
		} else if room != found.Name {
			logger.Debug("Reported room differs from room at position",
				zap.String("reported", room), zap.String("located", found.Name))
		}
	}

	exit, err := p.exits(req.Floor)
	if err != nil {
		return nil, fmt.Errorf("locate exit: %w", err)
	}
	logger.Info("Nearest exit found", zap.Stringer("exit", exit))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	type outcome struct {
		result SearchResult
		err    error
	}
	done := make(chan outcome, 1)
	began := time.Now()
	go func() {
		result, err := FindSafePath(p.graph, p.building.Bounds, start, exit, hazards,
			WithHazardRadius(p.opts.HazardRadius),
			WithFloorPenalty(p.opts.FloorPenalty))
		done <- outcome{result, err}
	}()

	var out outcome
	select {
	case <-ctx.Done():
		logger.Warn("Search abandoned", zap.Error(ctx.Err()))
		return nil, fmt.Errorf("search: %w", ctx.Err())
	case out = <-done:
	}
	elapsed := time.Since(began)
	searchDuration.Observe(elapsed.Seconds())

	if out.err != nil {
		return nil, out.err
	}
	result := out.result
	searchExpanded.Observe(float64(result.Expanded))

	if result.StartSnapped {
		snappedCoordinates.WithLabelValues("start").Inc()
		logger.Warn("Start position not in graph, using closest valid point",
			zap.Stringer("requested", start), zap.Stringer("snapped", result.Start))
	}
	if result.GoalSnapped {
		snappedCoordinates.WithLabelValues("goal").Inc()
		logger.Warn("End position not in graph, using closest valid point",
			zap.Stringer("requested", exit), zap.Stringer("snapped", result.Goal))
	}

	if !result.Found {
		logger.Warn("No safe path found",
			zap.Int("hazards", len(hazards)),
			zap.Int("expanded", result.Expanded))
		return nil, ErrPathNotFound
	}

	instructions := CompileInstructions(result.Path, p.opts.GridScale)
	logger.Info("Path found",
		zap.Int("waypoints", len(result.Path)),
		cellsField("preview", result.Path),
		zap.Strings("instructions", instructions.Strings()),
		zap.Duration("elapsed", elapsed))

	return &Plan{
		Path:         result.Path,
		Instructions: instructions,
		Exit:         exit,
		Goal:         result.Goal,
		Start:        result.Start,
		Room:         room,
		Expanded:     result.Expanded,
	}, nil
}

// BatchResult pairs a request of PlanBatch with its outcome.
type BatchResult struct {
	Plan *Plan
	Err  error
}

// PlanBatch plans several requests concurrently. Per-request failures are
// reported in the matching BatchResult; only cancellation of ctx fails the
// whole batch.
func (p *Planner) PlanBatch(ctx context.Context, reqs []NavigationRequest) ([]BatchResult, error) {
	results := make([]BatchResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.BatchWorkers)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			plan, err := p.Plan(gctx, req)
			results[i] = BatchResult{Plan: plan, Err: err}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
