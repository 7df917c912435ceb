package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/mcp-training/mazerobots/game/engine"
	"github.com/wricardo/mcp-training/mazerobots/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Maze Robots",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Maze Robots - MCP Interface

This is a thin client that proxies all requests to the REST API server.

Robots live on a rectangular maze of open (.) and obstacle (#) cells. Every
successful step costs one battery unit; a robot with an empty battery stays put
until it is recharged. Diving robots can also change depth, which is free.

AVAILABLE TOOLS:
- create_session, get_session, list_sessions, delete_session
- add_robot, robot_state, strongest
- move: step a robot one or more times - requires intent explanation
- recharge, dive, run_script
- reset, move_history, list_configs
- describe_cell: check a single cell before planning around it
- maze_instructions: rules and the script language

NOTE: The 'intent' parameter on move serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID"))
}

func robotParam() mcp.ToolOption {
	return mcp.WithString("robot", mcp.Required(), mcp.Description("Robot name (case-insensitive)"))
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.NewTool("create_session",
		mcp.WithDescription("Create a new maze session, optionally from a named config"),
		mcp.WithString("config_id", mcp.Description("Config to use (optional, see list_configs)")),
	), c.handleCreateSession)

	c.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List all active maze sessions"),
	), c.handleListSessions)

	c.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Show a session's maze, robots and move count"),
		sessionParam(),
	), c.handleGetSession)

	c.mcpServer.AddTool(mcp.NewTool("delete_session",
		mcp.WithDescription("Delete a session"),
		sessionParam(),
	), c.handleDeleteSession)

	// Robots
	c.mcpServer.AddTool(mcp.NewTool("add_robot",
		mcp.WithDescription("Place a new robot on an open cell of the maze"),
		sessionParam(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Unique robot name")),
		mcp.WithString("color", mcp.Description("Display color")),
		mcp.WithString("kind", mcp.Enum("surface", "diving"), mcp.Description("Robot kind (default surface)")),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Start row (0-based)")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Start column (0-based)")),
		mcp.WithNumber("battery", mcp.Description("Initial battery, 0-20 (default 0)")),
		mcp.WithNumber("depth", mcp.Description("Initial depth for diving robots (default 0)")),
	), c.handleAddRobot)

	c.mcpServer.AddTool(mcp.NewTool("robot_state",
		mcp.WithDescription("Get one robot's position, battery and depth"),
		sessionParam(),
		robotParam(),
	), c.handleRobotState)

	c.mcpServer.AddTool(mcp.NewTool("strongest",
		mcp.WithDescription("Find the robot with the most battery"),
		sessionParam(),
	), c.handleStrongest)

	// Robot commands
	c.mcpServer.AddTool(mcp.NewTool("move",
		mcp.WithDescription("Step a robot in one direction. Every step is attempted even after one is blocked."),
		sessionParam(),
		robotParam(),
		mcp.WithString("direction", mcp.Required(),
			mcp.Enum("forward", "back", "right", "left"),
			mcp.Description("forward is row+1, back is row-1, right is column+1, left is column-1")),
		mcp.WithNumber("steps", mcp.Description("Number of steps (default 1, max 200)")),
		mcp.WithString("intent", mcp.Description("Brief explanation of the intent behind this move (serves as a rubber duck to help explain your reasoning)")),
	), c.handleMove)

	c.mcpServer.AddTool(mcp.NewTool("recharge",
		mcp.WithDescription("Refill a robot's battery to 20"),
		sessionParam(),
		robotParam(),
	), c.handleRecharge)

	c.mcpServer.AddTool(mcp.NewTool("dive",
		mcp.WithDescription("Change a diving robot's depth. Dives that would surface above 0 are ignored."),
		sessionParam(),
		robotParam(),
		mcp.WithNumber("distance", mcp.Required(), mcp.Description("Signed depth change")),
	), c.handleDive)

	c.mcpServer.AddTool(mcp.NewTool("run_script",
		mcp.WithDescription("Run a command script against a robot (see maze_instructions for the language)"),
		sessionParam(),
		robotParam(),
		mcp.WithString("script", mcp.Required(), mcp.Description("Script source")),
	), c.handleRunScript)

	c.mcpServer.AddTool(mcp.NewTool("reset",
		mcp.WithDescription("Put every robot back where it started"),
		sessionParam(),
	), c.handleReset)

	c.mcpServer.AddTool(mcp.NewTool("move_history",
		mcp.WithDescription("Get move history for a session"),
		sessionParam(),
		mcp.WithNumber("page", mcp.Description("Page number")),
		mcp.WithNumber("limit", mcp.Description("Items per page")),
		mcp.WithString("robot", mcp.Description("Only show moves of this robot")),
	), c.handleMoveHistory)

	c.mcpServer.AddTool(mcp.NewTool("list_configs",
		mcp.WithDescription("List available maze configurations"),
	), c.handleListConfigs)

	c.mcpServer.AddTool(mcp.NewTool("maze_instructions",
		mcp.WithDescription("Get the maze rules and the script language"),
	), c.handleMazeInstructions)

	c.mcpServer.AddTool(mcp.NewTool("describe_cell",
		mcp.WithDescription("Describe a single maze cell: open or obstacle, and which robots stand on it"),
		sessionParam(),
		mcp.WithNumber("row", mcp.Required(), mcp.Description("Row of the cell (0-based)")),
		mcp.WithNumber("column", mcp.Required(), mcp.Description("Column of the cell (0-based)")),
	), c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func robotPath(sessionID, robot, action string) string {
	p := fmt.Sprintf("/api/sessions/%s/robots/%s", url.PathEscape(sessionID), url.PathEscape(robot))
	if action != "" {
		p += "/" + action
	}
	return p
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]string{}
	if configID := request.GetString("config_id", ""); configID != "" {
		body["config_id"] = configID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Created session: %s\n\n%s", session.ID, formatSessionInfo(&session))), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Config: %s, %dx%d, %d robots, Created: %s)\n",
			s.ID, s.ConfigName, s.Rows, s.Cols, len(s.Robots), s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleDeleteSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string `json:"message"`
	}
	if err := c.apiCall(ctx, "DELETE", sessionPath(sessionID, ""), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(response.Message), nil
}

func (c *Client) handleAddRobot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := request.RequireInt("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := request.RequireInt("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	spec := engine.RobotSpec{
		Name:    name,
		Color:   request.GetString("color", ""),
		Kind:    engine.RobotKind(request.GetString("kind", "")),
		Row:     row,
		Column:  column,
		Battery: request.GetInt("battery", 0),
		Depth:   request.GetInt("depth", 0),
	}

	var robot engine.RobotState
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/robots"), spec, &robot); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Added " + formatRobot(&robot)), nil
}

func (c *Client) handleRobotState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, robot, errResult := sessionAndRobot(request)
	if errResult != nil {
		return errResult, nil
	}

	var state engine.RobotState
	if err := c.apiCall(ctx, "GET", robotPath(sessionID, robot, ""), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRobot(&state)), nil
}

func (c *Client) handleStrongest(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.RobotState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/strongest"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Strongest: " + formatRobot(&state)), nil
}

func (c *Client) handleMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, robot, errResult := sessionAndRobot(request)
	if errResult != nil {
		return errResult, nil
	}
	direction, err := request.RequireString("direction")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if intent := request.GetString("intent", ""); intent != "" {
		slog.Debug("move intent", "session", sessionID, "robot", robot, "dir", direction, "intent", intent)
	}

	body := map[string]any{
		"direction": direction,
		"steps":     request.GetInt("steps", 1),
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", robotPath(sessionID, robot, "move"), body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleRecharge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, robot, errResult := sessionAndRobot(request)
	if errResult != nil {
		return errResult, nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", robotPath(sessionID, robot, "recharge"), nil, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleDive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, robot, errResult := sessionAndRobot(request)
	if errResult != nil {
		return errResult, nil
	}
	distance, err := request.RequireInt("distance")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.MoveResult
	if err := c.apiCall(ctx, "POST", robotPath(sessionID, robot, "dive"), map[string]int{"distance": distance}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatMoveResult(&result)), nil
}

func (c *Client) handleRunScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, robot, errResult := sessionAndRobot(request)
	if errResult != nil {
		return errResult, nil
	}
	script, err := request.RequireString("script")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var result service.ScriptResult
	if err := c.apiCall(ctx, "POST", robotPath(sessionID, robot, "script"), map[string]string{"script": script}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(result.Message + "\n")
	for i, rec := range result.Records {
		b.WriteString(formatRecordLine(i+1, rec))
	}
	b.WriteString("\n" + formatRobot(&result.Robot))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string              `json:"message"`
		Robots  []engine.RobotState `json:"robots"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(response.Message + "\n\n")
	for i := range response.Robots {
		b.WriteString("- " + formatRobot(&response.Robots[i]) + "\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleMoveHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page := request.GetInt("page", 0); page > 0 {
		params.Set("page", fmt.Sprint(page))
	}
	if limit := request.GetInt("limit", 0); limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if robot := request.GetString("robot", ""); robot != "" {
		params.Set("robot", robot)
	}
	path := sessionPath(sessionID, "/history")
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Configurations:\n\n")
	for _, config := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Maze: %dx%d, Preset robots: %d\n\n",
			config.ConfigID, config.Name, config.Description, config.Rows, config.Cols, config.Robots)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleMazeInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	instructions := `Maze Robots - Instructions

THE MAZE:
• A rectangular grid of cells, row 0 at the top and column 0 on the left
• . - open cell, robots may stand here
• # - obstacle, no robot may enter
• R - a robot (get_session lists which one)

MOVEMENT:
• forward = row+1, back = row-1, right = column+1, left = column-1
• A step happens only if the target is inside the maze, the target is open and
  the battery is above zero, checked in that order
• A successful step costs 1 battery; a blocked step costs nothing and changes nothing
• move with steps=n attempts all n steps, it does not stop at the first block
• Robots do not collide; several robots may share a cell

BATTERY:
• Battery ranges from 0 to 20
• recharge refills it to 20, anywhere, at any time

DIVING ROBOTS:
• Have a depth starting at 0 or above
• dive adds a signed distance to depth; a dive that would go above 0 is ignored
• Diving costs no battery and ignores the maze

SCRIPTS (run_script):
  # comments run to end of line
  recharge
  forward 3; right          # a missing count means 1
  repeat 2 { back 1 left 2 }
  dive -4                   # diving robots only
• Commands: forward, back (or backward), right, left, recharge, dive, repeat
• A script may attempt at most 1000 steps in total
• Commands before a failing one stay applied

TIPS:
• Use describe_cell before planning a route around suspected obstacles
• Compare battery with the distance you want to travel, and recharge first
• strongest finds the robot with the most battery`

	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, err := request.RequireInt("row")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	column, err := request.RequireInt("column")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(describeCell(&session, row, column)), nil
}

func sessionAndRobot(request mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	robot, err := request.RequireString("robot")
	if err != nil {
		return "", "", mcp.NewToolResultError(err.Error())
	}
	return sessionID, robot, nil
}
