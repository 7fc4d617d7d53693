package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds all planner configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Building   BuildingConfig   `yaml:"building"`
	Navigation NavigationConfig `yaml:"navigation"`
	Exits      ExitsConfig      `yaml:"exits"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BuildingConfig points at the building description.
type BuildingConfig struct {
	Path string `yaml:"path"`
}

// NavigationConfig tunes conversion and search.
type NavigationConfig struct {
	GridScale     float64 `yaml:"grid_scale"`      // metres per cell in instructions
	CellsPerMeter float64 `yaml:"cells_per_meter"` // metric -> cell conversion of request positions
	HazardRadius  int     `yaml:"hazard_radius"`
	FloorPenalty  int     `yaml:"floor_penalty"`
	BatchWorkers  int     `yaml:"batch_workers"`
}

// ExitsConfig selects the exit locator.
type ExitsConfig struct {
	Strategy string `yaml:"strategy"` // fixed, marker
	Row      int    `yaml:"row"`
	Col      int    `yaml:"col"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Exit strategies
const (
	ExitStrategyFixed  = "fixed"
	ExitStrategyMarker = "marker"
)

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":5000",
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Building: BuildingConfig{
			Path: "building_map.json",
		},
		Navigation: NavigationConfig{
			GridScale:     DefaultGridScale,
			CellsPerMeter: 10,
			HazardRadius:  DefaultHazardRadius,
			FloorPenalty:  DefaultFloorPenalty,
			BatchWorkers:  4,
		},
		Exits: ExitsConfig{
			Strategy: ExitStrategyFixed,
			Row:      90,
			Col:      90,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig. An empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the planner cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Building.Path == "" {
		errs = append(errs, errors.New("building.path is empty"))
	}
	if c.Navigation.GridScale <= 0 {
		errs = append(errs, errors.New("navigation.grid_scale must be positive"))
	}
	if c.Navigation.CellsPerMeter <= 0 {
		errs = append(errs, errors.New("navigation.cells_per_meter must be positive"))
	}
	if c.Navigation.HazardRadius < 0 {
		errs = append(errs, errors.New("navigation.hazard_radius must not be negative"))
	}
	if c.Navigation.FloorPenalty < 0 {
		errs = append(errs, errors.New("navigation.floor_penalty must not be negative"))
	}
	if c.Navigation.BatchWorkers <= 0 {
		errs = append(errs, errors.New("navigation.batch_workers must be positive"))
	}
	switch c.Exits.Strategy {
	case ExitStrategyFixed, ExitStrategyMarker:
	default:
		errs = append(errs, fmt.Errorf("exits.strategy %q is not one of fixed, marker", c.Exits.Strategy))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
