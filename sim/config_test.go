package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero shift", func(c *Config) { c.ShiftMinutes = 0 }, "shift_minutes"},
		{"negative warm-up", func(c *Config) { c.WarmUpMinutes = -1 }, "warm_up_minutes"},
		{"warm-up swallows shift", func(c *Config) { c.WarmUpMinutes = 700; c.CoolDownMinutes = 30 }, "warm_up_minutes"},
		{"zero overtime limit", func(c *Config) { c.OvertimeLimitMinutes = 0 }, "overtime_limit_minutes"},
		{"no magnets", func(c *Config) { c.MagnetCount = 0 }, "magnet_count"},
		{"unknown mode", func(c *Config) { c.Mode = "pipelined" }, "mode"},
		{"no porters", func(c *Config) { c.Staff.Porter = 0 }, "staff.porter"},
		{"no prep rooms", func(c *Config) { c.Rooms.Prep = 0 }, "rooms.prep"},
		{"probability above one", func(c *Config) { c.Probabilities.NoShow = 1.5 }, "probabilities.no_show"},
		{"bad duration", func(c *Config) { c.Durations.Change = TriangularParams{Min: 5, Mode: 1, Max: 9} }, "durations.change"},
		{"no protocols", func(c *Config) { c.Protocols = nil }, "protocols"},
		{"unnamed protocol", func(c *Config) { c.Protocols[0].Name = "" }, "protocols[0].name"},
		{"zero protocol weight", func(c *Config) { c.Protocols[0].Weight = 0 }, "protocols[0].weight"},
		{"gap fill without threshold", func(c *Config) { c.GapFill = true; c.GapFillIdleMinutes = 0 }, "gap_fill_idle_minutes"},
		{"zero avg cycle", func(c *Config) { c.AvgCycleMinutes = 0 }, "avg_cycle_minutes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfig_MaxScanMinutes(t *testing.T) {
	cfg := fixedConfig()
	// Longest protocol scan (20) plus degenerate handover, setup and exit.
	assert.Equal(t, 20.0, cfg.MaxScanMinutes())

	cfg.Durations.Handover = deg(2)
	cfg.Durations.ScanSetup = deg(3)
	cfg.Durations.ScanExit = deg(1)
	assert.Equal(t, 26.0, cfg.MaxScanMinutes())

	cfg.Protocols = append(cfg.Protocols, ProtocolConfig{
		Name: "Long", Weight: 1, ScanDuration: TriangularParams{Min: 30, Mode: 40, Max: 55},
	})
	assert.Equal(t, 61.0, cfg.MaxScanMinutes())
}

func TestNewSimulator_RejectsInvalidConfig(t *testing.T) {
	cfg := fixedConfig()
	cfg.MagnetCount = 0
	_, err := NewSimulator(cfg)
	require.Error(t, err)
}
