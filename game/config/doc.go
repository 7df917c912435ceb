// Package config loads and stores maze configurations.
//
// Configurations are JSON files in a directory, one maze per file:
//
//	{
//	  "name": "Classic",
//	  "description": "The classic 10x10 maze",
//	  "layout": ["..#...#...", ...],
//	  "legend": {".": "open", "#": "obstacle"},
//	  "robots": [{"name": "Wall-E", "color": "yellow", "row": 0, "column": 1, "battery": 5}]
//	}
//
// The file name without .json is the config id used to create sessions.
// Every file is validated with engine.ValidateMazeConfig when loaded, and
// invalid files are skipped by ListConfigs. The default is classic.json, then
// the first valid file, then the built-in reference maze.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	maze, err := manager.LoadConfig("classic")
package config
