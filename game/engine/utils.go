package engine

// ObstacleDensity returns the fraction of blocked cells in the grid
func ObstacleDensity(g *Grid) float64 {
	total := g.Rows() * g.Cols()
	return float64(total-g.OpenCount()) / float64(total)
}

// OpenNeighbors returns the directions a robot at pos could step towards,
// ignoring battery
func OpenNeighbors(m Maze, pos Position) []Direction {
	var open []Direction
	for _, dir := range Directions {
		dr, dc := dir.offset()
		if m.InBounds(pos.Row+dr, pos.Column+dc) && m.IsOpen(pos.Row+dr, pos.Column+dc) {
			open = append(open, dir)
		}
	}
	return open
}

// CanStep reports whether unit's next step in dir would succeed
func CanStep(m Maze, unit Unit, dir Direction) bool {
	dr, dc := dir.offset()
	if dr == 0 && dc == 0 {
		return false
	}
	pos := unit.Position()
	return m.InBounds(pos.Row+dr, pos.Column+dc) && m.IsOpen(pos.Row+dr, pos.Column+dc) && unit.Battery() > 0
}

// PossibleMoves returns the directions in which unit can currently step
func PossibleMoves(m Maze, unit Unit) []Direction {
	var possible []Direction
	for _, dir := range Directions {
		if CanStep(m, unit, dir) {
			possible = append(possible, dir)
		}
	}
	return possible
}

// Reasons a step can be refused
const (
	BlockedBoundary = "blocked_boundary"
	BlockedObstacle = "blocked_obstacle"
	OutOfBattery    = "out_of_battery"
)

// BlockReason explains why a step from pos in dir with the given battery would
// be refused, or returns "" if it would succeed. Checks run in the same order
// as the robot's own.
func BlockReason(m Maze, pos Position, battery int, dir Direction) string {
	dr, dc := dir.offset()
	row, col := pos.Row+dr, pos.Column+dc
	switch {
	case !m.InBounds(row, col):
		return BlockedBoundary
	case !m.IsOpen(row, col):
		return BlockedObstacle
	case battery <= 0:
		return OutOfBattery
	}
	return ""
}
