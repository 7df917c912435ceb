package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNilMaze          = errors.New("robot needs a maze")
	ErrEmptyName        = errors.New("robot name is required")
	ErrInvalidPlacement = errors.New("invalid starting cell")
	ErrBatteryRange     = fmt.Errorf("battery must be between 0 and %d", MaxBattery)
	ErrNegativeDepth    = errors.New("depth cannot be negative")
	ErrUnknownDirection = errors.New("unknown direction")
)

// PlacementError reports a starting cell outside the maze or on an obstacle
type PlacementError struct {
	Row, Column int
	Reason      string
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("invalid starting cell (%d,%d): %s", e.Row, e.Column, e.Reason)
}

func (e *PlacementError) Unwrap() error { return ErrInvalidPlacement }

// Option configures a robot at construction
type Option func(*settings)

type settings struct {
	row, column int
	battery     int
}

// At places the robot at (row, column) instead of (0, 0)
func At(row, column int) Option {
	return func(s *settings) {
		s.row = row
		s.column = column
	}
}

// WithBattery sets the initial charge. Robots start empty otherwise.
func WithBattery(battery int) Option {
	return func(s *settings) {
		s.battery = battery
	}
}

// Robot is a rechargeable robot lost in a maze. It is not safe for concurrent use.
type Robot struct {
	name    string
	color   string
	row     int
	column  int
	battery int
	maze    Maze
}

// NewRobot creates a robot bound to maze. The starting cell must be open and the
// initial battery within [0, MaxBattery].
func NewRobot(maze Maze, name, color string, opts ...Option) (*Robot, error) {
	if maze == nil {
		return nil, ErrNilMaze
	}
	if name == "" {
		return nil, ErrEmptyName
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	if !maze.InBounds(s.row, s.column) {
		return nil, &PlacementError{Row: s.row, Column: s.column, Reason: "outside the maze"}
	}
	if !maze.IsOpen(s.row, s.column) {
		return nil, &PlacementError{Row: s.row, Column: s.column, Reason: "cell is an obstacle"}
	}
	if s.battery < 0 || s.battery > MaxBattery {
		return nil, fmt.Errorf("%w, got %d", ErrBatteryRange, s.battery)
	}

	return &Robot{
		name:    name,
		color:   color,
		row:     s.row,
		column:  s.column,
		battery: s.battery,
		maze:    maze,
	}, nil
}

func (r *Robot) Name() string  { return r.name }
func (r *Robot) Color() string { return r.color }
func (r *Robot) Row() int      { return r.row }
func (r *Robot) Column() int   { return r.column }
func (r *Robot) Battery() int  { return r.battery }

// Position returns the robot's current cell
func (r *Robot) Position() Position {
	return Position{Row: r.row, Column: r.column}
}

func (r *Robot) String() string {
	return r.name + " is a " + r.color + " robot lost in the maze."
}

// Recharge fills the battery and returns the new level
func (r *Robot) Recharge() int {
	r.battery = MaxBattery
	return r.battery
}

// step moves one cell by (dr, dc) if the target is in bounds, open, and the
// battery is not empty. Otherwise nothing changes.
func (r *Robot) step(dr, dc int) {
	row, col := r.row+dr, r.column+dc
	if !r.maze.InBounds(row, col) {
		return
	}
	if r.maze.IsOpen(row, col) && r.battery > 0 {
		r.row = row
		r.column = col
		r.battery--
	}
}

func (r *Robot) StepForward() { r.step(1, 0) }
func (r *Robot) StepBack()    { r.step(-1, 0) }
func (r *Robot) StepRight()   { r.step(0, 1) }
func (r *Robot) StepLeft()    { r.step(0, -1) }

// Step takes a single step in dir. Unknown directions are ignored.
func (r *Robot) Step(dir Direction) {
	dr, dc := dir.offset()
	if dr == 0 && dc == 0 {
		return
	}
	r.step(dr, dc)
}

// Move attempts exactly steps single steps in dir, continuing past blocked ones
func (r *Robot) Move(dir Direction, steps int) {
	for i := 0; i < steps; i++ {
		r.Step(dir)
	}
}

func (r *Robot) Forward(steps int)  { r.Move(Forward, steps) }
func (r *Robot) Backward(steps int) { r.Move(Back, steps) }
func (r *Robot) Right(steps int)    { r.Move(Right, steps) }
func (r *Robot) Left(steps int)     { r.Move(Left, steps) }

// Snapshot captures the robot's current state
func (r *Robot) Snapshot() RobotState {
	return RobotState{
		Name:    r.name,
		Color:   r.color,
		Kind:    Surface,
		Row:     r.row,
		Column:  r.column,
		Battery: r.battery,
		Summary: r.String(),
	}
}
