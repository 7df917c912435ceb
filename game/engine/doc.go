// Package engine provides the core maze and robot logic.
//
// The engine package implements:
//   - An immutable rectangular Grid of open and blocked cells
//   - Robot: single-step and multi-step movement gated by the grid and a battery
//   - DivingRobot: a Robot with an independent depth axis
//   - Arena: a grid with a roster of robots and a move history
//   - Maze configuration validation
//
// Movement Rules:
//
// A step succeeds only when the target cell is inside the grid, is open, and
// the robot's battery is above zero. A successful step costs one unit of
// battery. Anything else is a silent no-op: position and battery are left
// untouched and nothing is returned. Multi-step calls always make every
// requested attempt. Recharge fills the battery to MaxBattery.
//
// Usage:
//
//	grid := engine.ReferenceGrid()
//	robot, err := engine.NewRobot(grid, "Wall-E", "yellow", engine.At(0, 1))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	robot.Recharge()
//	robot.Forward(3)
//	fmt.Println(robot, robot.Position(), robot.Battery())
//
// Diving:
//
// A DivingRobot embeds *Robot, so every Robot operation works unchanged.
// Dive adds a signed distance to the depth unless the result would be
// negative. Diving costs no battery and ignores the grid.
package engine
