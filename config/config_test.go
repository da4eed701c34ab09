package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().EnginePath, cfg.EnginePath)
	require.Equal(t, PresetFull, cfg.StepPreset)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
engine_path: /usr/bin/stockfish
depth: 20
concurrency: 2
thresholds:
  inaccuracy: 40
  mistake: 90
  blunder: 180
step_preset: fast
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/usr/bin/stockfish", cfg.EnginePath)
	require.Equal(t, 20, cfg.Depth)
	require.Equal(t, 2, cfg.Concurrency)
	require.Equal(t, 40, cfg.Thresholds.Inaccuracy)
	require.Equal(t, []string{"eco", "phase"}, cfg.ResolveSteps())
}

func TestValidateRejectsNonMonotonicThresholds(t *testing.T) {
	cfg := Default()
	cfg.Thresholds.Mistake = cfg.Thresholds.Inaccuracy
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyEnginePath(t *testing.T) {
	cfg := Default()
	cfg.EnginePath = "  "
	require.Error(t, cfg.Validate())
}

func TestResolveStepsExplicitListWins(t *testing.T) {
	cfg := Default()
	cfg.Steps = []string{"eco"}
	cfg.StepPreset = PresetFull
	require.Equal(t, []string{"eco"}, cfg.ResolveSteps())
}

func TestStepsForFullPresetMatchesSpecExactly(t *testing.T) {
	require.Equal(t, []string{"eco", "stockfish", "move_quality", "phase", "write"}, StepsFor(PresetFull))
}

func TestDefaultConfigResolvesFullPresetWithoutTactics(t *testing.T) {
	cfg := Default()
	require.NotContains(t, cfg.ResolveSteps(), "tactics")
}
