package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/crimson-sun/thermofin/internal/model"
)

// ErrInvalidConfig is wrapped by all configuration validation failures.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Distribution selects how a sampled parameter is drawn.
type Distribution string

const (
	DistUniform    Distribution = "uniform"
	DistLogUniform Distribution = "loguniform"
)

// ParamBounds configures one sampled parameter.
type ParamBounds struct {
	Min, Max float64
	Dist     Distribution
}

// Config holds all thermofin configuration.
type Config struct {
	Fin      FinConfig
	Mesh     MeshConfig
	Solver   SolverConfig
	Grid     GridConfig
	Run      RunConfig
	Output   OutputConfig
	LogLevel string
}

// FinConfig describes the fin parameterization and sampling bounds.
type FinConfig struct {
	SubFins          int         // number of sub-fin pairs on the post
	Conductivity     ParamBounds // per sub-fin conductivity
	Biot             ParamBounds // convective coefficient
	PostConductivity ParamBounds
	BaseFlux         float64 // fixed heat flux at the fin root
}

// MeshConfig controls triangulation density and the retry policy.
type MeshConfig struct {
	Density          float64 // grid lines per unit length
	MaxRetries       int     // refinement retries before a sample is skipped
	AspectRatioLimit float64 // maximum admissible element aspect ratio
}

// SolverConfig selects and tunes the linear solver.
type SolverConfig struct {
	Method        string  // "cg" or "cholesky"
	Tolerance     float64 // relative residual threshold
	MaxIterations int     // 0 means a size-derived default
}

// GridConfig fixes the output grid resolution and domain bounds.
type GridConfig struct {
	Width, Height int
	Domain        model.BBox
}

// RunConfig controls the generation run.
type RunConfig struct {
	TargetSamples        int
	Seed                 uint64
	Workers              int // 0 means available parallelism
	FailureRateThreshold float64
}

// OutputConfig holds the dataset destination.
type OutputConfig struct {
	Path string
}

// Default returns the configuration matching the reference fin problem:
// four sub-fin pairs on x ∈ [-3, 3], y ∈ [0, 4], conductivities uniform
// on [0.1, 8], Biot uniform on [0.1, 2], unit base flux.
func Default() Config {
	return Config{
		Fin: FinConfig{
			SubFins:          4,
			Conductivity:     ParamBounds{Min: 0.1, Max: 8.0, Dist: DistUniform},
			Biot:             ParamBounds{Min: 0.1, Max: 2.0, Dist: DistUniform},
			PostConductivity: ParamBounds{Min: 0.1, Max: 2.0, Dist: DistUniform},
			BaseFlux:         1.0,
		},
		Mesh: MeshConfig{
			Density:          8,
			MaxRetries:       3,
			AspectRatioLimit: 8,
		},
		Solver: SolverConfig{
			Method:    "cg",
			Tolerance: 1e-8,
		},
		Grid: GridConfig{
			Width:  64,
			Height: 64,
			Domain: model.BBox{XMin: -3, XMax: 3, YMin: 0, YMax: 4},
		},
		Run: RunConfig{
			TargetSamples:        1024,
			Seed:                 1,
			FailureRateThreshold: 0.05,
		},
		Output:   OutputConfig{Path: "thermofin.ndjson"},
		LogLevel: "info",
	}
}

// Load reads configuration from THERMOFIN_* environment variables on top
// of the defaults. Call Validate before use.
func Load() Config {
	cfg := Default()

	cfg.Fin.SubFins = getenvInt("THERMOFIN_SUBFINS", cfg.Fin.SubFins)
	loadBounds("THERMOFIN_COND", &cfg.Fin.Conductivity)
	loadBounds("THERMOFIN_BIOT", &cfg.Fin.Biot)
	loadBounds("THERMOFIN_POST_COND", &cfg.Fin.PostConductivity)
	cfg.Fin.BaseFlux = getenvFloat("THERMOFIN_BASE_FLUX", cfg.Fin.BaseFlux)

	cfg.Mesh.Density = getenvFloat("THERMOFIN_MESH_DENSITY", cfg.Mesh.Density)
	cfg.Mesh.MaxRetries = getenvInt("THERMOFIN_MAX_MESH_RETRIES", cfg.Mesh.MaxRetries)
	cfg.Mesh.AspectRatioLimit = getenvFloat("THERMOFIN_ASPECT_RATIO_LIMIT", cfg.Mesh.AspectRatioLimit)

	cfg.Solver.Method = getenv("THERMOFIN_SOLVER", cfg.Solver.Method)
	cfg.Solver.Tolerance = getenvFloat("THERMOFIN_SOLVER_TOLERANCE", cfg.Solver.Tolerance)
	cfg.Solver.MaxIterations = getenvInt("THERMOFIN_SOLVER_MAX_ITER", cfg.Solver.MaxIterations)

	cfg.Grid.Width = getenvInt("THERMOFIN_GRID_W", cfg.Grid.Width)
	cfg.Grid.Height = getenvInt("THERMOFIN_GRID_H", cfg.Grid.Height)
	cfg.Grid.Domain.XMin = getenvFloat("THERMOFIN_DOMAIN_X_MIN", cfg.Grid.Domain.XMin)
	cfg.Grid.Domain.XMax = getenvFloat("THERMOFIN_DOMAIN_X_MAX", cfg.Grid.Domain.XMax)
	cfg.Grid.Domain.YMin = getenvFloat("THERMOFIN_DOMAIN_Y_MIN", cfg.Grid.Domain.YMin)
	cfg.Grid.Domain.YMax = getenvFloat("THERMOFIN_DOMAIN_Y_MAX", cfg.Grid.Domain.YMax)

	cfg.Run.TargetSamples = getenvInt("THERMOFIN_SAMPLES", cfg.Run.TargetSamples)
	cfg.Run.Seed = getenvUint("THERMOFIN_SEED", cfg.Run.Seed)
	cfg.Run.Workers = getenvInt("THERMOFIN_WORKERS", cfg.Run.Workers)
	cfg.Run.FailureRateThreshold = getenvFloat("THERMOFIN_FAILURE_THRESHOLD", cfg.Run.FailureRateThreshold)

	cfg.Output.Path = getenv("THERMOFIN_OUTPUT", cfg.Output.Path)
	cfg.LogLevel = getenv("THERMOFIN_LOG_LEVEL", cfg.LogLevel)

	return cfg
}

// Validate checks every field and reports the first violation, wrapped
// in ErrInvalidConfig. It is meant to run once at startup.
func (c Config) Validate() error {
	if c.Fin.SubFins < 0 {
		return invalidf("subfins must be >= 0, got %d", c.Fin.SubFins)
	}
	if err := c.Fin.Conductivity.validate("conductivity"); err != nil {
		return err
	}
	if err := c.Fin.Biot.validate("biot"); err != nil {
		return err
	}
	if err := c.Fin.PostConductivity.validate("post conductivity"); err != nil {
		return err
	}
	if c.Fin.Biot.Min < 0 {
		return invalidf("biot lower bound must be >= 0, got %g", c.Fin.Biot.Min)
	}
	if c.Fin.Conductivity.Min <= 0 || c.Fin.PostConductivity.Min <= 0 {
		return invalidf("conductivity bounds must be positive")
	}
	if c.Fin.BaseFlux <= 0 {
		return invalidf("base flux must be positive, got %g", c.Fin.BaseFlux)
	}
	if c.Mesh.Density <= 0 {
		return invalidf("mesh density must be positive, got %g", c.Mesh.Density)
	}
	if c.Mesh.MaxRetries < 0 {
		return invalidf("max mesh retries must be >= 0, got %d", c.Mesh.MaxRetries)
	}
	if c.Mesh.AspectRatioLimit <= 1 {
		return invalidf("aspect ratio limit must be > 1, got %g", c.Mesh.AspectRatioLimit)
	}
	if c.Solver.Method != "cg" && c.Solver.Method != "cholesky" {
		return invalidf("unknown solver method %q", c.Solver.Method)
	}
	if c.Solver.Tolerance <= 0 {
		return invalidf("solver tolerance must be positive, got %g", c.Solver.Tolerance)
	}
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return invalidf("grid resolution must be positive, got %dx%d", c.Grid.Width, c.Grid.Height)
	}
	if c.Grid.Domain.Width() <= 0 || c.Grid.Domain.Height() <= 0 {
		return invalidf("domain bounds must have positive extent")
	}
	if c.Run.TargetSamples <= 0 {
		return invalidf("target sample count must be positive, got %d", c.Run.TargetSamples)
	}
	if c.Run.Workers < 0 {
		return invalidf("worker count must be >= 0, got %d", c.Run.Workers)
	}
	if c.Run.FailureRateThreshold < 0 || c.Run.FailureRateThreshold > 1 {
		return invalidf("failure rate threshold must be in [0, 1], got %g", c.Run.FailureRateThreshold)
	}
	if c.Output.Path == "" {
		return invalidf("output path must not be empty")
	}
	return nil
}

func (b ParamBounds) validate(name string) error {
	if b.Min > b.Max {
		return invalidf("%s bounds inverted: min %g > max %g", name, b.Min, b.Max)
	}
	switch b.Dist {
	case DistUniform:
	case DistLogUniform:
		if b.Min <= 0 {
			return invalidf("%s: log-uniform lower bound must be positive, got %g", name, b.Min)
		}
	default:
		return invalidf("%s: unknown distribution %q", name, b.Dist)
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func loadBounds(prefix string, b *ParamBounds) {
	b.Min = getenvFloat(prefix+"_MIN", b.Min)
	b.Max = getenvFloat(prefix+"_MAX", b.Max)
	b.Dist = Distribution(getenv(prefix+"_DIST", string(b.Dist)))
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvUint(key string, fallback uint64) uint64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
