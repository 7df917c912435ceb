package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Maze is the read-only view of a grid that robots consult before every step
type Maze interface {
	InBounds(row, col int) bool
	IsOpen(row, col int) bool
}

// InvalidGridError reports a grid that cannot be constructed
type InvalidGridError struct {
	Row    int // -1 when the problem is not tied to a row
	Reason string
}

func (e *InvalidGridError) Error() string {
	if e.Row < 0 {
		return "invalid grid: " + e.Reason
	}
	return fmt.Sprintf("invalid grid: row %d: %s", e.Row, e.Reason)
}

// Grid is an immutable rectangular table of open (true) and blocked (false) cells.
// A single Grid is shared by every robot in a session.
type Grid struct {
	cells [][]bool
	rows  int
	cols  int
}

// NewGrid copies cells into a new Grid. Rows must be non-empty and of equal length.
func NewGrid(cells [][]bool) (*Grid, error) {
	if len(cells) == 0 {
		return nil, &InvalidGridError{Row: -1, Reason: "no rows"}
	}
	if len(cells) > MaxGridSize {
		return nil, &InvalidGridError{Row: -1, Reason: fmt.Sprintf("%d rows exceeds maximum of %d", len(cells), MaxGridSize)}
	}

	cols := len(cells[0])
	if cols == 0 {
		return nil, &InvalidGridError{Row: 0, Reason: "no columns"}
	}
	if cols > MaxGridSize {
		return nil, &InvalidGridError{Row: 0, Reason: fmt.Sprintf("%d columns exceeds maximum of %d", cols, MaxGridSize)}
	}

	copied := make([][]bool, len(cells))
	for i, row := range cells {
		if len(row) != cols {
			return nil, &InvalidGridError{Row: i, Reason: fmt.Sprintf("has %d columns, expected %d", len(row), cols)}
		}
		copied[i] = append([]bool(nil), row...)
	}

	return &Grid{cells: copied, rows: len(cells), cols: cols}, nil
}

// ParseGrid builds a Grid from layout rows where '.' is open and '#' is an obstacle
func ParseGrid(layout []string) (*Grid, error) {
	cells := make([][]bool, len(layout))
	for i, line := range layout {
		cells[i] = make([]bool, 0, len(line))
		for j, ch := range line {
			switch ch {
			case OpenCell:
				cells[i] = append(cells[i], true)
			case ObstacleCell:
				cells[i] = append(cells[i], false)
			default:
				return nil, &InvalidGridError{Row: i, Reason: fmt.Sprintf("invalid character '%c' at column %d", ch, j)}
			}
		}
	}
	return NewGrid(cells)
}

// MustParseGrid is ParseGrid for layouts known to be valid
func MustParseGrid(layout []string) *Grid {
	g, err := ParseGrid(layout)
	if err != nil {
		panic(err)
	}
	return g
}

// ReferenceLayout is the classic 10x10 maze
func ReferenceLayout() []string {
	return []string{
		"..#...#...",
		"..#...#...",
		".#....#...",
		"........#.",
		"........#.",
		"..........",
		".####.....",
		"..#.....#.",
		".#......#.",
		"........#.",
	}
}

// ReferenceGrid returns a fresh Grid for ReferenceLayout
func ReferenceGrid() *Grid {
	return MustParseGrid(ReferenceLayout())
}

// Rows returns the number of rows
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns
func (g *Grid) Cols() int { return g.cols }

// InBounds reports whether (row, col) lies inside the grid
func (g *Grid) InBounds(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// IsOpen reports whether (row, col) is an open cell. Out-of-range cells are not open.
func (g *Grid) IsOpen(row, col int) bool {
	return g.InBounds(row, col) && g.cells[row][col]
}

// OpenCount returns the number of open cells
func (g *Grid) OpenCount() int {
	count := 0
	for _, row := range g.cells {
		for _, open := range row {
			if open {
				count++
			}
		}
	}
	return count
}

// Layout renders the grid back into '.'/'#' rows
func (g *Grid) Layout() []string {
	layout := make([]string, g.rows)
	var b strings.Builder
	for i, row := range g.cells {
		b.Reset()
		for _, open := range row {
			if open {
				b.WriteByte(OpenCell)
			} else {
				b.WriteByte(ObstacleCell)
			}
		}
		layout[i] = b.String()
	}
	return layout
}

// MarshalJSON encodes the grid as its layout rows
func (g *Grid) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Layout())
}

// UnmarshalJSON decodes layout rows, enforcing the same rules as ParseGrid
func (g *Grid) UnmarshalJSON(data []byte) error {
	var layout []string
	if err := json.Unmarshal(data, &layout); err != nil {
		return err
	}
	parsed, err := ParseGrid(layout)
	if err != nil {
		return err
	}
	*g = *parsed
	return nil
}
