package service

import (
	"time"

	"github.com/wricardo/mcp-training/mazerobots/game/engine"
)

// SessionInfo provides information about a maze session
type SessionInfo struct {
	ID             string              `json:"id"`
	ConfigName     string              `json:"config_name"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAccessedAt time.Time           `json:"last_accessed_at"`
	Rows           int                 `json:"rows"`
	Cols           int                 `json:"cols"`
	Layout         []string            `json:"layout"`
	Robots         []engine.RobotState `json:"robots"`
	TotalMoves     int                 `json:"total_moves"`
}

// MoveResult contains the result of a step, move, recharge or dive
type MoveResult struct {
	Success       bool                `json:"success"` // at least one attempt changed the robot
	Robot         engine.RobotState   `json:"robot"`
	Attempts      int                 `json:"attempts"`
	Successes     int                 `json:"successes"`
	Message       string              `json:"message"`
	BlockedReason string              `json:"blocked_reason,omitempty"` // blocked_boundary|blocked_obstacle|out_of_battery
	Records       []engine.MoveRecord `json:"records,omitempty"`
	PossibleMoves []string            `json:"possible_moves"`
}

// ScriptResult contains the result of running a command script
type ScriptResult struct {
	Robot     engine.RobotState   `json:"robot"`
	Attempts  int                 `json:"attempts"`
	Successes int                 `json:"successes"`
	Records   []engine.MoveRecord `json:"records,omitempty"`
	Message   string              `json:"message"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
	Robot string `json:"robot,omitempty"`
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveRecord `json:"moves"`
	TotalMoves  int                 `json:"total_moves"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// ConfigInfo provides information about a maze configuration
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier to use for session creation
	Name        string `json:"name"`      // Display name
	Description string `json:"description"`
	Rows        int    `json:"rows"`
	Cols        int    `json:"cols"`
	Robots      int    `json:"robots"`
}
