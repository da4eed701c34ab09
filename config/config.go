// Package config loads and hot-reloads the analysis engine's runtime
// configuration: engine binary location, search budget, classification
// thresholds, pool sizing, and the pipeline step preset.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"blundertutor/models"
)

// StepPreset names one of the canned step lists from spec.md's
// PipelineConfig presets.
type StepPreset string

const (
	PresetFull            StepPreset = "full"
	PresetFast            StepPreset = "fast"
	PresetBackfillECO     StepPreset = "backfill_eco"
	PresetBackfillPhase   StepPreset = "backfill_phase"
	PresetBackfillTactics StepPreset = "backfill_tactics"
)

// StepsFor expands a preset name into its ordered step_id list. An
// explicit Steps list in Config bypasses this entirely.
func StepsFor(preset StepPreset) []string {
	switch preset {
	case PresetFull:
		return []string{"eco", "stockfish", "move_quality", "phase", "write"}
	case PresetFast:
		return []string{"eco", "phase"}
	case PresetBackfillECO:
		return []string{"eco"}
	case PresetBackfillPhase:
		return []string{"phase"}
	case PresetBackfillTactics:
		return []string{"tactics"}
	default:
		return nil
	}
}

// Config is the full set of knobs the CLI, pipeline and pool read from.
type Config struct {
	EnginePath       string            `yaml:"engine_path"`
	Depth            int               `yaml:"depth"`
	TimeLimit        *float64          `yaml:"time_limit,omitempty"`
	ThreadsPerEngine int               `yaml:"threads_per_engine"`
	Thresholds       models.Thresholds `yaml:"thresholds"`

	Concurrency  int           `yaml:"concurrency"`
	TaskTimeout  time.Duration `yaml:"task_timeout"`
	Steps        []string      `yaml:"steps,omitempty"`
	StepPreset   StepPreset    `yaml:"step_preset,omitempty"`
	ForceRerun   bool          `yaml:"force_rerun"`
	DatabasePath string        `yaml:"database_path"`

	LogLevel string `yaml:"log_level"`
}

// Default returns a Config with the same defaults spec.md §7 names.
func Default() *Config {
	cpu := runtime.NumCPU()
	concurrency := min(4, cpu)
	if concurrency < 1 {
		concurrency = 1
	}
	threads := max(1, cpu/concurrency)

	return &Config{
		EnginePath:       "stockfish",
		Depth:            14,
		ThreadsPerEngine: threads,
		Thresholds:       models.DefaultThresholds(),
		Concurrency:      concurrency,
		TaskTimeout:      5 * time.Minute,
		StepPreset:       PresetFull,
		ForceRerun:       false,
		DatabasePath:     "blundertutor.db",
		LogLevel:         "info",
	}
}

// Load reads YAML from path over a Default() base. A missing file is not
// an error: Default() is returned unchanged, matching the teacher
// repo's tolerant config loaders.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveSteps returns the effective step id list: an explicit Steps
// list wins over StepPreset.
func (c *Config) ResolveSteps() []string {
	if len(c.Steps) > 0 {
		return c.Steps
	}
	return StepsFor(c.StepPreset)
}

// Validate performs the configuration-error checks spec.md §7 calls out:
// non-monotonic thresholds and an empty engine path both fail fast, as do
// a non-positive depth without a time limit, a non-positive concurrency
// and an empty step list. It does not check that the engine binary
// exists; a missing binary surfaces when an engine is spawned.
func (c *Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.EnginePath) == "" {
		return fmt.Errorf("config: engine_path must not be empty")
	}
	if c.Depth <= 0 && c.TimeLimit == nil {
		return fmt.Errorf("config: depth must be positive when time_limit is unset")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("config: concurrency must be positive")
	}
	if len(c.ResolveSteps()) == 0 {
		return fmt.Errorf("config: no steps resolved from preset %q", c.StepPreset)
	}
	return nil
}
