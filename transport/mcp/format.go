package mcp

import (
	"fmt"
	"strings"

	"github.com/wricardo/mcp-training/mazerobots/game/engine"
	"github.com/wricardo/mcp-training/mazerobots/game/service"
)

// Board characters
const (
	robotChar    = 'R'
	obstacleChar = '#'
	openChar     = '.'
)

func formatSessionInfo(session *service.SessionInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session: %s\nConfig: %s\nCreated: %s\nMaze: %dx%d | Moves: %d\n\n",
		session.ID, session.ConfigName,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		session.Rows, session.Cols, session.TotalMoves)

	b.WriteString(RenderBoard(session.Layout, session.Robots))

	if len(session.Robots) == 0 {
		b.WriteString("\nNo robots yet. Use add_robot to place one.\n")
		return b.String()
	}
	b.WriteString("\nRobots:\n")
	for i := range session.Robots {
		b.WriteString("- " + formatRobot(&session.Robots[i]) + "\n")
	}
	return b.String()
}

// RenderBoard draws a maze as text with a column ruler and row numbers.
// Robots show as R, obstacles as # and open cells as a dot.
func RenderBoard(layout []string, robots []engine.RobotState) string {
	if len(layout) == 0 {
		return "No maze available\n"
	}

	cells := make([][]rune, len(layout))
	for r, line := range layout {
		cells[r] = []rune(line)
		for c, ch := range cells[r] {
			if ch != obstacleChar {
				cells[r][c] = openChar
			}
		}
	}
	for _, robot := range robots {
		if robot.Row >= 0 && robot.Row < len(cells) && robot.Column >= 0 && robot.Column < len(cells[robot.Row]) {
			cells[robot.Row][robot.Column] = robotChar
		}
	}

	var b strings.Builder
	b.WriteString("   ")
	for c := range cells[0] {
		b.WriteByte(byte('0' + c%10))
	}
	b.WriteString("\n")
	for r, row := range cells {
		fmt.Fprintf(&b, "%2d %s\n", r, string(row))
	}
	return b.String()
}

func formatRobot(robot *engine.RobotState) string {
	s := fmt.Sprintf("%s (%s, %s) at %s battery %d/%d",
		robot.Name, robot.Kind, robot.Color, robot.Position(), robot.Battery, engine.MaxBattery)
	if robot.Kind == engine.Diving {
		s += fmt.Sprintf(" depth %d", robot.Depth)
	}
	return s
}

func formatMoveResult(result *service.MoveResult) string {
	var b strings.Builder
	if result.Success {
		b.WriteString("✓ ")
	} else {
		b.WriteString("✗ ")
	}
	b.WriteString(result.Message + "\n")

	if result.Attempts > 1 {
		fmt.Fprintf(&b, "Steps: %d/%d succeeded\n", result.Successes, result.Attempts)
	}
	if result.BlockedReason != "" {
		fmt.Fprintf(&b, "Blocked: %s\n", blockedText(result.BlockedReason))
	}
	if len(result.Records) > 1 {
		b.WriteString("\nSteps (this call):\n")
		for i, rec := range result.Records {
			b.WriteString(formatRecordLine(i+1, rec))
		}
	}

	b.WriteString("\n" + formatRobot(&result.Robot) + "\n")
	if len(result.PossibleMoves) > 0 {
		fmt.Fprintf(&b, "Possible moves: %s\n", strings.Join(result.PossibleMoves, ","))
	} else {
		b.WriteString("Possible moves: none\n")
	}
	return b.String()
}

func blockedText(reason string) string {
	switch reason {
	case engine.BlockedBoundary:
		return "edge of the maze"
	case engine.BlockedObstacle:
		return "obstacle in the way"
	case engine.OutOfBattery:
		return "battery is empty, recharge first"
	}
	return reason
}

// formatRecordLine renders a single compact history line
func formatRecordLine(idx int, rec engine.MoveRecord) string {
	status := "✓"
	if !rec.Success {
		status = "✗"
	}
	line := fmt.Sprintf("%d. %s %s %s→%s batt=%d→%d", idx, rec.Robot, rec.Action, rec.From, rec.To, rec.BatteryBefore, rec.BatteryAfter)
	if strings.HasPrefix(rec.Action, "dive") {
		line += fmt.Sprintf(" depth=%d", rec.Depth)
	}
	return line + " " + status + "\n"
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Move History (Page %d/%d) - Total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalMoves)

	if len(history.Moves) == 0 {
		b.WriteString("(no moves)\n")
	}
	for i, move := range history.Moves {
		num := move.MoveNumber
		if num == 0 {
			num = (history.Page-1)*history.PageSize + i + 1
		}
		b.WriteString(formatRecordLine(num, move))
	}
	return b.String()
}

// describeCell reports what sits at (row, column) of a session's maze
func describeCell(session *service.SessionInfo, row, column int) string {
	if row < 0 || row >= session.Rows || column < 0 || column >= session.Cols {
		return fmt.Sprintf("Cell (%d,%d) is outside the maze. The maze is %dx%d (rows 0-%d, columns 0-%d).",
			row, column, session.Rows, session.Cols, session.Rows-1, session.Cols-1)
	}

	open := true
	if row < len(session.Layout) && column < len(session.Layout[row]) {
		open = session.Layout[row][column] != obstacleChar
	}

	var occupants []string
	for _, robot := range session.Robots {
		if robot.Row == row && robot.Column == column {
			occupants = append(occupants, robot.Name)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Cell at (%d,%d):\n", row, column)
	if open {
		b.WriteString("Type: open (.)\nPassable: true\n")
	} else {
		b.WriteString("Type: obstacle (#)\nPassable: false\n")
	}
	if len(occupants) > 0 {
		fmt.Fprintf(&b, "Robots here: %s\n", strings.Join(occupants, ", "))
	} else {
		b.WriteString("Robots here: none\n")
	}

	var neighbors []string
	for _, dir := range engine.Directions {
		r, c := row, column
		switch dir {
		case engine.Forward:
			r++
		case engine.Back:
			r--
		case engine.Right:
			c++
		case engine.Left:
			c--
		}
		state := "edge"
		if r >= 0 && r < len(session.Layout) && c >= 0 && c < len(session.Layout[r]) {
			state = "open"
			if session.Layout[r][c] == obstacleChar {
				state = "obstacle"
			}
		}
		neighbors = append(neighbors, fmt.Sprintf("%s=%s", dir, state))
	}
	b.WriteString("Neighbors: " + strings.Join(neighbors, " ") + "\n")
	return b.String()
}
