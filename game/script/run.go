package script

import (
	"fmt"

	"github.com/wricardo/mcp-training/mazerobots/game/engine"
)

// Trace summarises a script run
type Trace struct {
	Attempts  int                 `json:"attempts"`
	Successes int                 `json:"successes"`
	Records   []engine.MoveRecord `json:"records"`
}

// Run executes the script against the named robot in arena. Movement never
// fails; an error means the robot is unknown or a dive targets a surface robot.
// Commands executed before an error stay applied.
func (s *Script) Run(arena *engine.Arena, robot string) (*Trace, error) {
	if _, err := arena.Robot(robot); err != nil {
		return nil, err
	}
	trace := &Trace{Records: []engine.MoveRecord{}}
	if err := run(s.Commands, arena, robot, trace); err != nil {
		return trace, err
	}
	return trace, nil
}

func run(commands []*Command, arena *engine.Arena, robot string, trace *Trace) error {
	for _, c := range commands {
		switch {
		case c.Repeat != nil:
			for i := 0; i < c.Repeat.Count; i++ {
				if err := run(c.Repeat.Body, arena, robot, trace); err != nil {
					return err
				}
			}

		case c.Recharge:
			rec, err := arena.Recharge(robot)
			if err != nil {
				return err
			}
			trace.add(rec)

		case c.Dive != nil:
			rec, err := arena.Dive(robot, c.Dive.Distance)
			if err != nil {
				return fmt.Errorf("line %d: %w", c.Pos.Line, err)
			}
			trace.add(rec)

		case c.Move != nil:
			dir, err := engine.ParseDirection(c.Move.Dir)
			if err != nil {
				return fmt.Errorf("line %d: %w", c.Pos.Line, err)
			}
			records, err := arena.Move(robot, dir, c.Move.steps())
			if err != nil {
				return err
			}
			for _, rec := range records {
				trace.add(rec)
			}
		}
	}
	return nil
}

func (t *Trace) add(rec engine.MoveRecord) {
	t.Attempts++
	if rec.Success {
		t.Successes++
	}
	t.Records = append(t.Records, rec)
}
