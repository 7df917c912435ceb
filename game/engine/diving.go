package engine

import "math"

// DivingRobot is a Robot that can also dive. Depth is independent of the maze
// and of the battery.
type DivingRobot struct {
	*Robot
	depth int
}

// NewDivingRobot creates a diving robot at the given initial depth
func NewDivingRobot(maze Maze, name, color string, depth int, opts ...Option) (*DivingRobot, error) {
	if depth < 0 {
		return nil, ErrNegativeDepth
	}
	robot, err := NewRobot(maze, name, color, opts...)
	if err != nil {
		return nil, err
	}
	return &DivingRobot{Robot: robot, depth: depth}, nil
}

// Depth returns how deep underwater the robot is
func (d *DivingRobot) Depth() int { return d.depth }

// Dive changes depth by distance (positive goes deeper). A dive that would take
// the robot above the surface, or deeper than an int can hold, is ignored.
func (d *DivingRobot) Dive(distance int) {
	if distance < -d.depth || (distance > 0 && d.depth > math.MaxInt-distance) {
		return
	}
	d.depth += distance
}

func (d *DivingRobot) String() string {
	return d.name + " is a " + d.color + " robot diving under water."
}

// Snapshot captures the robot's current state including depth
func (d *DivingRobot) Snapshot() RobotState {
	state := d.Robot.Snapshot()
	state.Kind = Diving
	state.Depth = d.depth
	state.Summary = d.String()
	return state
}
