package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	buildingPath string

	// Logger
	logger *zap.Logger
	cfg    Config
)

var rootCmd = &cobra.Command{
	Use:   "evacuation-planner",
	Short: "Hazard-aware evacuation routing for multi-floor buildings",
	Long: `evacuation-planner computes safe evacuation routes through a building
described as per-floor character grids, steering clear of reported fires,
and turns the route into step-by-step directions.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return err
		}
		if buildingPath != "" {
			cfg.Building.Path = buildingPath
		}
		logger, err = NewLogger(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the navigation API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		planner, err := buildPlanner(cfg, logger)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg.Server, NewServer(planner, logger, cfg.Server.RequestTimeout))
	},
}

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Print evacuation instructions from one or more positions",
	Example: `  evacuation-planner route --floor 1 --at 2.5,3.0 --fire 4.0,4.0
  evacuation-planner route --floor 1 --at 2.5,3.0 --at 7.0,1.5 --geojson route.geojson`,
	RunE: runRoute,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the navigation graph as GeoJSON line strings",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		planner, err := buildPlanner(cfg, logger)
		if err != nil {
			return err
		}
		data, err := planner.Graph().LineStrings(cfg.Navigation.CellsPerMeter).MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal graph: %w", err)
		}
		if err := os.WriteFile(out, data, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		logger.Info("Graph exported", zap.String("path", out), zap.Int("bytes", len(data)))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&buildingPath, "building", "b", "", "building description JSON (overrides building.path)")

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")

	routeCmd.Flags().Int("floor", 0, "current floor number")
	routeCmd.Flags().String("room", "", "current room name")
	routeCmd.Flags().StringArray("at", nil, "start position as x,z in metres (repeatable)")
	routeCmd.Flags().StringArray("fire", nil, "fire position as x,z in metres (repeatable)")
	routeCmd.Flags().String("geojson", "", "also write the first route as GeoJSON to this file")
	_ = routeCmd.MarkFlagRequired("at")

	exportCmd.Flags().String("out", "graph_lines.geojson", "output file")

	rootCmd.AddCommand(serveCmd, routeCmd, exportCmd)
}

// buildPlanner loads the building and assembles a planner. Any failure here
// is a startup failure.
func buildPlanner(cfg Config, logger *zap.Logger) (*Planner, error) {
	logger.Info("Loading building", zap.String("path", cfg.Building.Path))
	building, err := LoadBuilding(cfg.Building.Path)
	if err != nil {
		return nil, err
	}

	var exits ExitLocator
	switch cfg.Exits.Strategy {
	case ExitStrategyMarker:
		exits = MarkerExit(building)
	default:
		exits = FixedExit(cfg.Exits.Row, cfg.Exits.Col)
	}

	return NewPlanner(building, exits, PlannerOptionsFromConfig(cfg.Navigation), logger), nil
}

// serve runs the HTTP server until ctx ends or a signal arrives.
func serve(ctx context.Context, sc ServerConfig, server *Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              sc.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", zap.String("addr", sc.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runRoute(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	floor, _ := flags.GetInt("floor")
	room, _ := flags.GetString("room")
	starts, _ := flags.GetStringArray("at")
	fires, _ := flags.GetStringArray("fire")
	geojsonPath, _ := flags.GetString("geojson")

	hazards := make([]MetricPoint, 0, len(fires))
	for _, f := range fires {
		p, err := parseMetricPoint(f)
		if err != nil {
			return fmt.Errorf("--fire: %w", err)
		}
		hazards = append(hazards, p)
	}
	reqs := make([]NavigationRequest, 0, len(starts))
	for _, s := range starts {
		p, err := parseMetricPoint(s)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		reqs = append(reqs, NavigationRequest{Floor: floor, Room: room, Start: p, Hazards: hazards})
	}

	planner, err := buildPlanner(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.RequestTimeout)
	defer cancel()
	results, err := planner.PlanBatch(ctx, reqs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for i, res := range results {
		fmt.Fprintf(out, "From %s:\n", starts[i])
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "  error: %v\n", res.Err)
			continue
		}
		fmt.Fprintf(out, "  exit %s, %d cells\n", res.Plan.Exit, len(res.Plan.Path))
		for _, line := range res.Plan.Instructions.Strings() {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}

	if geojsonPath != "" && len(results) > 0 && results[0].Err == nil {
		data, err := PathLineString(results[0].Plan.Path, cfg.Navigation.CellsPerMeter).MarshalJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal route: %w", err)
		}
		if err := os.WriteFile(geojsonPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d routes failed", failed, len(results))
	}
	return nil
}

// parseMetricPoint reads "x,z".
func parseMetricPoint(s string) (MetricPoint, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return MetricPoint{}, fmt.Errorf("%q is not x,z", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return MetricPoint{}, fmt.Errorf("%q: bad x: %w", s, err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return MetricPoint{}, fmt.Errorf("%q: bad z: %w", s, err)
	}
	return MetricPoint{X: x, Z: z}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
