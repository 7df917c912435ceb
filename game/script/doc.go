// Package script implements a small command language for driving a robot.
//
//	# charge up and explore
//	recharge
//	forward 3; right
//	repeat 2 { back 1 left 2 }
//	dive -4
//
// Movement commands take an optional step count (default 1) and behave like
// the robot's multi-step calls: every attempt is made, blocked ones are
// no-ops. Semicolons and commas are optional separators. Scripts that would
// make more than engine.MaxScriptSteps attempts are rejected by Parse.
package script
