package config

import (
	"fmt"
	"os"

	"github.com/Bezalel011/Smartcare/alerts"
	"gopkg.in/yaml.v3"
)

// LoadBands reads per-facility status and reorder bands. An empty path
// yields the default registry.
//
//	default:
//	  mode: fixed
//	  volume_bands:
//	    - {level: RED, threshold: 80}
//	    - {level: YELLOW, threshold: 50, inclusive: true}
//	    - {level: GREEN, threshold: 0, inclusive: true}
//	facilities:
//	  C002:
//	    mode: percentile
func LoadBands(path string) (alerts.Registry, error) {
	if path == "" {
		return alerts.DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return alerts.Registry{}, fmt.Errorf("read bands file: %w", err)
	}
	return ParseBands(data)
}

func ParseBands(data []byte) (alerts.Registry, error) {
	var reg alerts.Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return alerts.Registry{}, fmt.Errorf("parse bands: %w", err)
	}
	if err := validateConfig("default", reg.Default); err != nil {
		return alerts.Registry{}, err
	}
	for id, c := range reg.Facilities {
		if err := validateConfig(id, c); err != nil {
			return alerts.Registry{}, err
		}
	}
	return reg, nil
}

func validateConfig(name string, c alerts.Config) error {
	switch c.Mode {
	case "", alerts.ModeFixed, alerts.ModePercentile:
	default:
		return fmt.Errorf("bands %s: unknown mode %q", name, c.Mode)
	}
	for _, b := range append(append(alerts.Bands{}, c.VolumeBands...), c.DeltaBands...) {
		if b.Level.Rank() == 0 {
			return fmt.Errorf("bands %s: unknown level %q", name, b.Level)
		}
	}
	for _, b := range c.ReorderBands {
		if b.Severity.Rank() == 0 {
			return fmt.Errorf("bands %s: unknown severity %q", name, b.Severity)
		}
		if b.Ratio < 0 {
			return fmt.Errorf("bands %s: negative reorder ratio %v", name, b.Ratio)
		}
	}
	return nil
}
