// Package mcp exposes the maze robot REST API as Model Context Protocol tools.
//
// The Client is a thin proxy: every tool call becomes one or two REST requests
// against a running API server, and the JSON answer is rendered as text for the
// agent. Boards are drawn with R for robots, # for obstacles and . for open
// cells, with a column ruler on top and row numbers on the left.
//
// Tools:
//   - create_session, get_session, list_sessions, delete_session
//   - add_robot, robot_state, strongest
//   - move, recharge, dive, run_script, reset
//   - move_history, list_configs
//   - describe_cell, maze_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
