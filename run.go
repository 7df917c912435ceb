package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/mazerobots/game/config"
	"github.com/wricardo/mcp-training/mazerobots/game/engine"
	"github.com/wricardo/mcp-training/mazerobots/game/service"
	"github.com/wricardo/mcp-training/mazerobots/game/session"
	"github.com/wricardo/mcp-training/mazerobots/transport/mcp"
)

// runCommand is the offline harness: one maze, one robot, one script, no server
func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a command script against one robot and print where it ends up",
		ArgsUsage: "<script-file|->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultConfigName, Usage: "Maze configuration to load"},
			&cli.StringFlag{Name: "robot", Value: "Robo", Usage: "Robot to drive; placed from the flags below unless the maze already has it"},
			&cli.StringFlag{Name: "color", Value: "grey", Usage: "Color of a placed robot"},
			&cli.StringFlag{Name: "kind", Value: string(engine.Surface), Usage: "surface or diving"},
			&cli.IntFlag{Name: "row", Usage: "Start row of a placed robot"},
			&cli.IntFlag{Name: "column", Usage: "Start column of a placed robot"},
			&cli.IntFlag{Name: "battery", Usage: "Initial battery of a placed robot"},
			&cli.IntFlag{Name: "depth", Usage: "Initial depth of a placed diving robot"},
		},
		Action: runAction,
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return fmt.Errorf("expected exactly one script file, got %d arguments", cmd.NArg())
	}
	source, err := readScript(cmd.Args().First())
	if err != nil {
		return err
	}

	configs, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return err
	}
	robots := service.NewRobotService(session.NewManager(), configs)

	info, err := robots.CreateSession(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	name := cmd.String("robot")
	if _, err := robots.GetRobot(ctx, info.ID, name); errors.Is(err, engine.ErrRobotNotFound) {
		spec := engine.RobotSpec{
			Name:    name,
			Color:   cmd.String("color"),
			Kind:    engine.RobotKind(cmd.String("kind")),
			Row:     cmd.Int("row"),
			Column:  cmd.Int("column"),
			Battery: cmd.Int("battery"),
			Depth:   cmd.Int("depth"),
		}
		if _, err := robots.AddRobot(ctx, info.ID, spec); err != nil {
			return fmt.Errorf("place %s: %w", name, err)
		}
	} else if err != nil {
		return err
	}

	result, err := robots.RunScript(ctx, info.ID, name, source)
	if err != nil {
		return err
	}

	final, err := robots.GetSession(ctx, info.ID)
	if err != nil {
		return err
	}
	return printRunSummary(cmd.Root().Writer, result, final)
}

func readScript(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(data), nil
}

func printRunSummary(w io.Writer, result *service.ScriptResult, final *service.SessionInfo) error {
	robot := result.Robot
	_, err := fmt.Fprintf(w, "%s\n\nMaze: %s (%dx%d)\nRobot: %s\nPosition: %s\nBattery: %d/%d\nCommands: %d attempted, %d changed the robot\n",
		result.Message, final.ConfigName, final.Rows, final.Cols,
		robot.Summary, robot.Position(), robot.Battery, engine.MaxBattery,
		result.Attempts, result.Successes)
	if err != nil {
		return err
	}
	if robot.Kind == engine.Diving {
		if _, err := fmt.Fprintf(w, "Depth: %d\n", robot.Depth); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "\n%s", mcp.RenderBoard(final.Layout, []engine.RobotState{robot}))
	return err
}
