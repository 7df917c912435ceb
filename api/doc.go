// Package api provides the HTTP REST API for maze robot sessions.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session, body {"config_id": "classic"} (optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=n)
//   - GET /api/sessions/{id} - Maze layout, robots and move count
//   - DELETE /api/sessions/{id} - Delete a session
//   - GET /api/sessions/{id}/strongest - Robot with the most battery
//   - POST /api/sessions/{id}/reset - Put every robot back where it started
//   - GET /api/sessions/{id}/history - Paged move history (?page&limit&order&robot)
//
// Robots:
//   - POST /api/sessions/{id}/robots - Add a robot, body is a RobotSpec
//   - GET /api/sessions/{id}/robots - List robots
//   - GET /api/sessions/{id}/robots/{name} - One robot
//   - POST .../robots/{name}/step - {"direction": "forward"}
//   - POST .../robots/{name}/move - {"direction": "left", "steps": 3}, steps defaults to 1
//   - POST .../robots/{name}/recharge
//   - POST .../robots/{name}/dive - {"distance": -2}, diving robots only
//   - POST .../robots/{name}/script - {"script": "..."} or a text/plain body
//
// Configuration:
//   - GET /api/configs - List maze configurations
//   - GET /api/configs/{name} - One configuration
//   - POST /api/configs?id=name - Store a configuration
//
// Other:
//   - GET /api/health
//   - GET /ws?session={id} - WebSocket stream of robot updates
//
// Errors are returned as JSON, {"error": "message"}. Missing sessions, robots
// and configs map to 404, duplicates to 409, malformed input to 400, and
// robots or mazes that break the rules to 422.
package api
