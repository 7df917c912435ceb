package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateMazeConfig checks a maze configuration for correctness
func ValidateMazeConfig(config *MazeConfig) error {
	if config == nil {
		return fmt.Errorf("config validation: config is nil")
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("config validation: name is required")
	}
	if config.Description == "" {
		return fmt.Errorf("config validation: description is required")
	}

	// Validate layout
	grid, err := ParseGrid(config.Layout)
	if err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	// Validate legend, when given
	if len(config.Legend) > 0 {
		requiredLegend := map[string]string{
			string(OpenCell):     "open",
			string(ObstacleCell): "obstacle",
		}
		for key, expectedValue := range requiredLegend {
			if value, ok := config.Legend[key]; !ok || value != expectedValue {
				return fmt.Errorf("config validation: legend['%s'] must be '%s', got '%s'", key, expectedValue, value)
			}
		}
	}

	// Validate preset robots
	seen := make(map[string]bool)
	for i, spec := range config.Robots {
		key := strings.ToLower(spec.Name)
		if seen[key] {
			return fmt.Errorf("config validation: robot %d: %w: %s", i+1, ErrRobotExists, spec.Name)
		}
		seen[key] = true

		if _, err := NewUnit(grid, spec); err != nil {
			return fmt.Errorf("config validation: robot %d: %w", i+1, err)
		}
	}

	return nil
}

// IsGridError reports whether err was caused by a malformed layout
func IsGridError(err error) bool {
	var gridErr *InvalidGridError
	return errors.As(err, &gridErr)
}

// DefaultMazeConfig returns the classic 10x10 maze with no preset robots
func DefaultMazeConfig() *MazeConfig {
	return &MazeConfig{
		Name:        "classic",
		Description: "The classic 10x10 maze",
		Layout:      ReferenceLayout(),
		Legend: map[string]string{
			string(OpenCell):     "open",
			string(ObstacleCell): "obstacle",
		},
	}
}
