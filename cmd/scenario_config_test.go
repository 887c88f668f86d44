package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/mri-sim/mri-sim/sim"
)

func writeScenarios(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestGetScenarioConfig_LayersPresetOverDefaults(t *testing.T) {
	path := writeScenarios(t, `
scenarios:
  single_magnet:
    magnet_count: 1
    mode: serial
    staff:
      admin: 2
      porter: 1
      backup_tech: 1
      scan_tech: 1
      cleaner: 1
`)

	cfg, err := GetScenarioConfig(path, "single_magnet")
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.MagnetCount)
	assert.Equal(t, sim.WorkflowSerial, cfg.Mode)
	assert.Equal(t, 2, cfg.Staff.Admin)
	// Untouched keys keep their defaults.
	assert.Equal(t, sim.DefaultConfig().ShiftMinutes, cfg.ShiftMinutes)
	assert.Equal(t, sim.DefaultConfig().Protocols, cfg.Protocols)
	require.NoError(t, cfg.Validate())
}

func TestGetScenarioConfig_UnknownScenario(t *testing.T) {
	path := writeScenarios(t, `
scenarios:
  baseline: {}
`)
	_, err := GetScenarioConfig(path, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "missing" not found`)
	assert.Contains(t, err.Error(), "baseline")
}

func TestGetScenarioConfig_RejectsUnknownTopLevelKeys(t *testing.T) {
	path := writeScenarios(t, `
scenarios:
  baseline: {}
typo_section: {}
`)
	_, err := GetScenarioConfig(path, "baseline")
	assert.Error(t, err)
}

func TestGetScenarioConfig_MissingFile(t *testing.T) {
	_, err := GetScenarioConfig(filepath.Join(t.TempDir(), "nope.yaml"), "baseline")
	assert.Error(t, err)
}
