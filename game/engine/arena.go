package engine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRobotNotFound = errors.New("robot not found")
	ErrRobotExists   = errors.New("robot already exists")
	ErrNotDiver      = errors.New("robot cannot dive")
)

// Unit is the capability set shared by Robot and DivingRobot
type Unit interface {
	Charged
	Name() string
	Position() Position
	Step(dir Direction)
	Move(dir Direction, steps int)
	Recharge() int
	Snapshot() RobotState
	String() string
}

// Diver is a Unit with a depth axis
type Diver interface {
	Unit
	Depth() int
	Dive(distance int)
}

var (
	_ Unit  = (*Robot)(nil)
	_ Diver = (*DivingRobot)(nil)
)

// NewUnit creates a surface or diving robot from spec
func NewUnit(maze Maze, spec RobotSpec) (Unit, error) {
	opts := []Option{At(spec.Row, spec.Column), WithBattery(spec.Battery)}

	switch spec.Kind {
	case "", Surface:
		if spec.Depth != 0 {
			return nil, fmt.Errorf("robot %q: depth requires a diving robot", spec.Name)
		}
		return NewRobot(maze, spec.Name, spec.Color, opts...)
	case Diving:
		return NewDivingRobot(maze, spec.Name, spec.Color, spec.Depth, opts...)
	}
	return nil, fmt.Errorf("robot %q: unknown kind %q", spec.Name, spec.Kind)
}

type member struct {
	id      string
	unit    Unit
	initial RobotSpec
}

// Arena holds one shared grid, the robots placed on it and their move history.
// It is not safe for concurrent use; callers serialise access.
type Arena struct {
	grid       *Grid
	members    []*member
	history    []MoveRecord
	totalMoves int
}

// NewArena creates an empty arena over grid
func NewArena(grid *Grid) *Arena {
	return &Arena{
		grid:    grid,
		history: []MoveRecord{},
	}
}

// NewArenaFromConfig validates config and places its preset robots
func NewArenaFromConfig(config *MazeConfig) (*Arena, error) {
	if err := ValidateMazeConfig(config); err != nil {
		return nil, err
	}
	grid, err := ParseGrid(config.Layout)
	if err != nil {
		return nil, err
	}

	arena := NewArena(grid)
	for _, spec := range config.Robots {
		if _, err := arena.AddRobot(spec); err != nil {
			return nil, err
		}
	}
	return arena, nil
}

// Grid returns the shared grid
func (a *Arena) Grid() *Grid {
	return a.grid
}

// RobotRecord pairs a robot's current state with the spec it was created from
type RobotRecord struct {
	State   RobotState `json:"state"`
	Initial RobotSpec  `json:"initial"`
}

// AddRobot creates a robot from spec. Names are unique, case-insensitively.
func (a *Arena) AddRobot(spec RobotSpec) (Unit, error) {
	return a.add("", spec, spec)
}

func (a *Arena) add(id string, spec, initial RobotSpec) (Unit, error) {
	if a.find(spec.Name) != nil {
		return nil, fmt.Errorf("%w: %s", ErrRobotExists, spec.Name)
	}
	unit, err := NewUnit(a.grid, spec)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = uuid.NewString()
	}
	a.members = append(a.members, &member{id: id, unit: unit, initial: initial})
	return unit, nil
}

// Robot looks a robot up by name
func (a *Arena) Robot(name string) (Unit, error) {
	m := a.find(name)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrRobotNotFound, name)
	}
	return m.unit, nil
}

// State returns the snapshot of a single robot
func (a *Arena) State(name string) (RobotState, error) {
	m := a.find(name)
	if m == nil {
		return RobotState{}, fmt.Errorf("%w: %s", ErrRobotNotFound, name)
	}
	return m.snapshot(), nil
}

// Robots returns the robots in the order they were added
func (a *Arena) Robots() []Unit {
	units := make([]Unit, len(a.members))
	for i, m := range a.members {
		units[i] = m.unit
	}
	return units
}

// Snapshots returns the state of every robot
func (a *Arena) Snapshots() []RobotState {
	states := make([]RobotState, len(a.members))
	for i, m := range a.members {
		states[i] = m.snapshot()
	}
	return states
}

// Step attempts a single step and records whether it moved the robot
func (a *Arena) Step(name string, dir Direction) (MoveRecord, error) {
	m := a.find(name)
	if m == nil {
		return MoveRecord{}, fmt.Errorf("%w: %s", ErrRobotNotFound, name)
	}
	dir, err := ParseDirection(string(dir))
	if err != nil {
		return MoveRecord{}, err
	}
	return a.step(m, dir), nil
}

// Move attempts exactly steps single steps, one record per attempt
func (a *Arena) Move(name string, dir Direction, steps int) ([]MoveRecord, error) {
	m := a.find(name)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrRobotNotFound, name)
	}
	dir, err := ParseDirection(string(dir))
	if err != nil {
		return nil, err
	}

	records := make([]MoveRecord, 0, max(steps, 0))
	for i := 0; i < steps; i++ {
		records = append(records, a.step(m, dir))
	}
	return records, nil
}

func (a *Arena) step(m *member, dir Direction) MoveRecord {
	from, before := m.unit.Position(), m.unit.Battery()
	m.unit.Step(dir)
	to, after := m.unit.Position(), m.unit.Battery()

	return a.record(m, string(dir), from, to, before, after, from != to)
}

// Recharge fills a robot's battery
func (a *Arena) Recharge(name string) (MoveRecord, error) {
	m := a.find(name)
	if m == nil {
		return MoveRecord{}, fmt.Errorf("%w: %s", ErrRobotNotFound, name)
	}
	pos, before := m.unit.Position(), m.unit.Battery()
	after := m.unit.Recharge()
	return a.record(m, "recharge", pos, pos, before, after, true), nil
}

// Dive changes a diving robot's depth
func (a *Arena) Dive(name string, distance int) (MoveRecord, error) {
	m := a.find(name)
	if m == nil {
		return MoveRecord{}, fmt.Errorf("%w: %s", ErrRobotNotFound, name)
	}
	diver, ok := m.unit.(Diver)
	if !ok {
		return MoveRecord{}, fmt.Errorf("%w: %s is a surface robot", ErrNotDiver, name)
	}

	pos, battery := diver.Position(), diver.Battery()
	before := diver.Depth()
	diver.Dive(distance)
	applied := distance == 0 || diver.Depth() != before
	return a.record(m, fmt.Sprintf("dive %d", distance), pos, pos, battery, battery, applied), nil
}

// Strongest returns the robot with the most battery; the earliest added wins ties
func (a *Arena) Strongest() (Unit, bool) {
	if len(a.members) == 0 {
		return nil, false
	}
	best := a.members[0].unit
	for _, m := range a.members[1:] {
		best = Healthier(m.unit, best)
	}
	return best, true
}

// Reset puts every robot back into its initial state. History is kept.
func (a *Arena) Reset() error {
	for _, m := range a.members {
		unit, err := NewUnit(a.grid, m.initial)
		if err != nil {
			return fmt.Errorf("reset %s: %w", m.initial.Name, err)
		}
		m.unit = unit
	}
	return nil
}

// History returns the cumulative move history
func (a *Arena) History() []MoveRecord {
	return a.history
}

// TotalMoves returns how many actions have been recorded
func (a *Arena) TotalMoves() int {
	return a.totalMoves
}

// Records returns every robot's current state and creation spec
func (a *Arena) Records() []RobotRecord {
	records := make([]RobotRecord, len(a.members))
	for i, m := range a.members {
		records[i] = RobotRecord{State: m.snapshot(), Initial: m.initial}
	}
	return records
}

// Restore replaces robots and history with persisted data
func (a *Arena) Restore(records []RobotRecord, history []MoveRecord) error {
	a.members = nil
	for _, rec := range records {
		initial := rec.Initial
		if initial.Name == "" {
			initial = rec.State.Spec()
		}
		if _, err := a.add(rec.State.ID, rec.State.Spec(), initial); err != nil {
			return err
		}
	}
	a.history = append([]MoveRecord{}, history...)
	a.totalMoves = len(a.history)
	return nil
}

func (a *Arena) record(m *member, action string, from, to Position, before, after int, success bool) MoveRecord {
	entry := MoveRecord{
		Robot:         m.unit.Name(),
		Action:        action,
		From:          from,
		To:            to,
		BatteryBefore: before,
		BatteryAfter:  after,
		Success:       success,
		MoveNumber:    a.totalMoves + 1,
		Timestamp:     time.Now().Unix(),
	}
	if diver, ok := m.unit.(Diver); ok {
		entry.Depth = diver.Depth()
	}
	a.history = append(a.history, entry)
	a.totalMoves++
	return entry
}

func (a *Arena) find(name string) *member {
	for _, m := range a.members {
		if strings.EqualFold(m.unit.Name(), name) {
			return m
		}
	}
	return nil
}

func (m *member) snapshot() RobotState {
	state := m.unit.Snapshot()
	state.ID = m.id
	return state
}
