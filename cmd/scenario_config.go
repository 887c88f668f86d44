package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	sim "github.com/mri-sim/mri-sim/sim"
)

// ScenarioConfig represents the full scenarios.yaml structure: named presets,
// each a (possibly partial) department configuration layered over the
// defaults. Unknown top-level sections are rejected so a misplaced block
// fails loudly instead of being silently dropped.
type ScenarioConfig struct {
	Scenarios map[string]yaml.Node `yaml:"scenarios"`
}

// GetScenarioConfig loads the named preset from a scenarios YAML file.
func GetScenarioConfig(path string, name string) (sim.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sim.Config{}, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var file ScenarioConfig
	if err := dec.Decode(&file); err != nil {
		return sim.Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	node, ok := file.Scenarios[name]
	if !ok {
		return sim.Config{}, fmt.Errorf("scenario %q not found in %s (have: %v)", name, path, scenarioNames(file))
	}

	cfg := sim.DefaultConfig()
	if err := node.Decode(&cfg); err != nil {
		return sim.Config{}, fmt.Errorf("scenario %q: %w", name, err)
	}
	logrus.Infof("Using preset scenario %v from %v", name, path)
	return cfg, nil
}

func scenarioNames(file ScenarioConfig) []string {
	names := make([]string, 0, len(file.Scenarios))
	for n := range file.Scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
