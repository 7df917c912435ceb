package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/mazerobots/game/engine"
)

// Report summarizes one configuration file
type Report struct {
	File    string
	Name    string
	Rows    int
	Cols    int
	Open    int
	Blocked int
	Regions int
	Valid   bool
	Error   string
	Robots  []RobotReach
}

// Density is the share of cells that are obstacles
func (r *Report) Density() float64 {
	total := r.Open + r.Blocked
	if total == 0 {
		return 0
	}
	return float64(r.Blocked) / float64(total)
}

// RobotReach is how many cells a preset robot can get to
type RobotReach struct {
	Spec       engine.RobotSpec
	OnBattery  int // cells reachable on the starting battery
	FullCharge int // cells reachable on one full charge
	Region     int // cells in the robot's open region, with unlimited recharges
}

// analyzeFile reads and analyzes one configuration. Problems are recorded on the
// report instead of aborting so that one broken file does not hide the others.
func analyzeFile(path string) *Report {
	report := &Report{File: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		report.Error = fmt.Sprintf("read: %v", err)
		return report
	}

	var config engine.MazeConfig
	if err := json.Unmarshal(data, &config); err != nil {
		report.Error = fmt.Sprintf("invalid JSON: %v", err)
		return report
	}
	analyzeConfig(&config, report)
	return report
}

func analyzeConfig(config *engine.MazeConfig, report *Report) {
	report.Name = config.Name

	if err := engine.ValidateMazeConfig(config); err != nil {
		report.Error = err.Error()
	} else {
		report.Valid = true
	}

	grid, err := engine.ParseGrid(config.Layout)
	if err != nil {
		// nothing further can be measured without a grid
		return
	}
	report.Rows, report.Cols = grid.Rows(), grid.Cols()
	report.Open = grid.OpenCount()
	report.Blocked = report.Rows*report.Cols - report.Open
	report.Regions = countRegions(grid)

	for _, spec := range config.Robots {
		if !grid.IsOpen(spec.Row, spec.Column) {
			continue
		}
		start := engine.Position{Row: spec.Row, Column: spec.Column}
		report.Robots = append(report.Robots, RobotReach{
			Spec:       spec,
			OnBattery:  reachable(grid, start, spec.Battery),
			FullCharge: reachable(grid, start, engine.MaxBattery),
			Region:     reachable(grid, start, -1),
		})
	}
}

// reachable counts open cells within limit steps of start, start included.
// A negative limit means no limit.
func reachable(grid *engine.Grid, start engine.Position, limit int) int {
	dist := map[engine.Position]int{start: 0}
	queue := []engine.Position{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if limit >= 0 && dist[current] >= limit {
			continue
		}
		for _, next := range neighbors(current) {
			if _, seen := dist[next]; seen || !grid.IsOpen(next.Row, next.Column) {
				continue
			}
			dist[next] = dist[current] + 1
			queue = append(queue, next)
		}
	}
	return len(dist)
}

// countRegions counts 4-connected groups of open cells
func countRegions(grid *engine.Grid) int {
	seen := make(map[engine.Position]bool)
	regions := 0

	for row := 0; row < grid.Rows(); row++ {
		for col := 0; col < grid.Cols(); col++ {
			start := engine.Position{Row: row, Column: col}
			if seen[start] || !grid.IsOpen(row, col) {
				continue
			}
			regions++

			stack := []engine.Position{start}
			seen[start] = true
			for len(stack) > 0 {
				current := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, next := range neighbors(current) {
					if !seen[next] && grid.IsOpen(next.Row, next.Column) {
						seen[next] = true
						stack = append(stack, next)
					}
				}
			}
		}
	}
	return regions
}

func neighbors(p engine.Position) []engine.Position {
	return []engine.Position{
		{Row: p.Row + 1, Column: p.Column},
		{Row: p.Row - 1, Column: p.Column},
		{Row: p.Row, Column: p.Column + 1},
		{Row: p.Row, Column: p.Column - 1},
	}
}

// Print writes the report in the same layout for every file
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), r.File)
	if r.Valid {
		fmt.Fprintln(w, "✅ VALID")
	} else {
		fmt.Fprintf(w, "❌ INVALID: %s\n", r.Error)
	}
	if r.Rows == 0 {
		return
	}

	fmt.Fprintf(w, "  Name: %s\n", r.Name)
	fmt.Fprintf(w, "  Grid: %dx%d\n", r.Rows, r.Cols)
	fmt.Fprintf(w, "  Open cells: %d, blocked: %d (density %.1f%%)\n", r.Open, r.Blocked, 100*r.Density())
	if r.Regions > 1 {
		fmt.Fprintf(w, "  ⚠️  Open cells form %d separate regions\n", r.Regions)
	} else {
		fmt.Fprintf(w, "  Open regions: %d\n", r.Regions)
	}

	if len(r.Robots) == 0 {
		fmt.Fprintln(w, "  Preset robots: none")
		return
	}
	fmt.Fprintf(w, "  Preset robots: %d\n", len(r.Robots))
	for _, robot := range r.Robots {
		kind := robot.Spec.Kind
		if kind == "" {
			kind = engine.Surface
		}
		fmt.Fprintf(w, "  - %s (%s) at (%d,%d) battery %d: reaches %d cells now, %d on a full charge, %d in its region\n",
			robot.Spec.Name, kind, robot.Spec.Row, robot.Spec.Column, robot.Spec.Battery,
			robot.OnBattery, robot.FullCharge, robot.Region)
	}
}
