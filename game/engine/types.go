package engine

import (
	"fmt"
	"strings"
)

const (
	// MaxBattery is a full charge: a robot can take up to 20 steps on it.
	MaxBattery = 20

	// Validation constants
	MinGridSize    = 1
	MaxGridSize    = 100
	MaxMoveSteps   = 200
	MaxScriptSteps = 1000

	// Layout characters
	OpenCell     = '.'
	ObstacleCell = '#'
)

// Position is a row/column grid coordinate
type Position struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Column)
}

// Direction is one of the four horizontal step directions
type Direction string

const (
	Forward Direction = "forward"
	Back    Direction = "back"
	Right   Direction = "right"
	Left    Direction = "left"
)

// Directions lists every direction in a stable order
var Directions = []Direction{Forward, Back, Right, Left}

// ParseDirection maps user input onto a Direction. "down" and "up" are accepted
// as aliases for forward and back, matching how the maze is drawn.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "down":
		return Forward, nil
	case "back", "backward", "up":
		return Back, nil
	case "right":
		return Right, nil
	case "left":
		return Left, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// offset returns the row/column delta of a single step
func (d Direction) offset() (int, int) {
	switch d {
	case Forward:
		return 1, 0
	case Back:
		return -1, 0
	case Right:
		return 0, 1
	case Left:
		return 0, -1
	}
	return 0, 0
}

// RobotKind tells surface robots and diving robots apart in snapshots and configs
type RobotKind string

const (
	Surface RobotKind = "surface"
	Diving  RobotKind = "diving"
)

// RobotSpec describes a robot to be created, as found in configs and API requests
type RobotSpec struct {
	Name    string    `json:"name"`
	Color   string    `json:"color"`
	Kind    RobotKind `json:"kind,omitempty"`
	Row     int       `json:"row"`
	Column  int       `json:"column"`
	Battery int       `json:"battery"`
	Depth   int       `json:"depth,omitempty"`
}

// RobotState is a read-only snapshot of a robot
type RobotState struct {
	ID      string    `json:"id,omitempty"`
	Name    string    `json:"name"`
	Color   string    `json:"color"`
	Kind    RobotKind `json:"kind"`
	Row     int       `json:"row"`
	Column  int       `json:"column"`
	Battery int       `json:"battery"`
	Depth   int       `json:"depth"`
	Summary string    `json:"summary"`
}

// Position returns the snapshot's coordinates
func (s RobotState) Position() Position {
	return Position{Row: s.Row, Column: s.Column}
}

// Spec converts a snapshot back into a creation spec
func (s RobotState) Spec() RobotSpec {
	return RobotSpec{
		Name:    s.Name,
		Color:   s.Color,
		Kind:    s.Kind,
		Row:     s.Row,
		Column:  s.Column,
		Battery: s.Battery,
		Depth:   s.Depth,
	}
}

// MazeConfig represents a maze configuration loaded from JSON
type MazeConfig struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Layout      []string          `json:"layout"`
	Legend      map[string]string `json:"legend,omitempty"`
	Robots      []RobotSpec       `json:"robots,omitempty"`
}

// MoveRecord is one entry of an arena's move history
type MoveRecord struct {
	Robot         string   `json:"robot"`
	Action        string   `json:"action"`
	From          Position `json:"from"`
	To            Position `json:"to"`
	BatteryBefore int      `json:"battery_before"`
	BatteryAfter  int      `json:"battery_after"`
	Depth         int      `json:"depth,omitempty"`
	Success       bool     `json:"success"`
	MoveNumber    int      `json:"move_number"`
	Timestamp     int64    `json:"timestamp"`
}
