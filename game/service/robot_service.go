package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/mazerobots/game/engine"
)

var (
	ErrInvalidScript = errors.New("invalid script")
	ErrTooManySteps  = errors.New("too many steps")
	ErrNoRobots      = errors.New("session has no robots")
)

// RobotService defines all robot-related operations
type RobotService interface {
	// Session Management
	CreateSession(ctx context.Context, configName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Robots
	AddRobot(ctx context.Context, sessionID string, spec engine.RobotSpec) (*engine.RobotState, error)
	GetRobot(ctx context.Context, sessionID, name string) (*engine.RobotState, error)
	ListRobots(ctx context.Context, sessionID string) ([]engine.RobotState, error)
	Strongest(ctx context.Context, sessionID string) (*engine.RobotState, error)

	// Robot Operations
	Step(ctx context.Context, sessionID, name, direction string) (*MoveResult, error)
	Move(ctx context.Context, sessionID, name, direction string, steps int) (*MoveResult, error)
	Recharge(ctx context.Context, sessionID, name string) (*MoveResult, error)
	Dive(ctx context.Context, sessionID, name string, distance int) (*MoveResult, error)
	RunScript(ctx context.Context, sessionID, name, source string) (*ScriptResult, error)
	Reset(ctx context.Context, sessionID string) ([]engine.RobotState, error)

	// History
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, configName string) (*engine.MazeConfig, error)
	SaveConfig(ctx context.Context, configName string, config *engine.MazeConfig) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, config *engine.MazeConfig) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id string, config *engine.MazeConfig) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager handles maze configuration loading
type ConfigManager interface {
	LoadConfig(name string) (*engine.MazeConfig, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *engine.MazeConfig
	SaveConfig(name string, config *engine.MazeConfig) error
}

// Session represents an active maze session: one shared grid and its robots
type Session struct {
	ID             string
	Arena          *engine.Arena
	Config         *engine.MazeConfig
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
