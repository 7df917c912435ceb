package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/mazerobots/game/config"
	"github.com/wricardo/mcp-training/mazerobots/game/engine"
	"github.com/wricardo/mcp-training/mazerobots/game/service"
	"github.com/wricardo/mcp-training/mazerobots/game/session"
	"github.com/wricardo/mcp-training/mazerobots/transport/websocket"
)

// MockRobotService implements service.RobotService for testing
type MockRobotService struct {
	// Session Management
	CreateSessionFunc func(ctx context.Context, configName string) (*service.SessionInfo, error)
	GetSessionFunc    func(ctx context.Context, sessionID string) (*service.SessionInfo, error)
	ListSessionsFunc  func(ctx context.Context) ([]*service.SessionInfo, error)
	DeleteSessionFunc func(ctx context.Context, sessionID string) error

	// Robots
	AddRobotFunc   func(ctx context.Context, sessionID string, spec engine.RobotSpec) (*engine.RobotState, error)
	GetRobotFunc   func(ctx context.Context, sessionID, name string) (*engine.RobotState, error)
	ListRobotsFunc func(ctx context.Context, sessionID string) ([]engine.RobotState, error)
	StrongestFunc  func(ctx context.Context, sessionID string) (*engine.RobotState, error)

	// Robot Operations
	StepFunc      func(ctx context.Context, sessionID, name, direction string) (*service.MoveResult, error)
	MoveFunc      func(ctx context.Context, sessionID, name, direction string, steps int) (*service.MoveResult, error)
	RechargeFunc  func(ctx context.Context, sessionID, name string) (*service.MoveResult, error)
	DiveFunc      func(ctx context.Context, sessionID, name string, distance int) (*service.MoveResult, error)
	RunScriptFunc func(ctx context.Context, sessionID, name, source string) (*service.ScriptResult, error)
	ResetFunc     func(ctx context.Context, sessionID string) ([]engine.RobotState, error)

	// History
	GetMoveHistoryFunc func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error)

	// Configuration
	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, configName string) (*engine.MazeConfig, error)
	SaveConfigFunc  func(ctx context.Context, configName string, config *engine.MazeConfig) error
}

func (m *MockRobotService) CreateSession(ctx context.Context, configName string) (*service.SessionInfo, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, configName)
	}
	return &service.SessionInfo{ID: "test-session", ConfigName: configName, CreatedAt: time.Now()}, nil
}

func (m *MockRobotService) GetSession(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return &service.SessionInfo{ID: sessionID, ConfigName: "test-config", CreatedAt: time.Now()}, nil
}

func (m *MockRobotService) ListSessions(ctx context.Context) ([]*service.SessionInfo, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx)
	}
	return []*service.SessionInfo{}, nil
}

func (m *MockRobotService) DeleteSession(ctx context.Context, sessionID string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockRobotService) AddRobot(ctx context.Context, sessionID string, spec engine.RobotSpec) (*engine.RobotState, error) {
	if m.AddRobotFunc != nil {
		return m.AddRobotFunc(ctx, sessionID, spec)
	}
	return &engine.RobotState{Name: spec.Name, Color: spec.Color, Row: spec.Row, Column: spec.Column, Battery: spec.Battery}, nil
}

func (m *MockRobotService) GetRobot(ctx context.Context, sessionID, name string) (*engine.RobotState, error) {
	if m.GetRobotFunc != nil {
		return m.GetRobotFunc(ctx, sessionID, name)
	}
	return &engine.RobotState{Name: name}, nil
}

func (m *MockRobotService) ListRobots(ctx context.Context, sessionID string) ([]engine.RobotState, error) {
	if m.ListRobotsFunc != nil {
		return m.ListRobotsFunc(ctx, sessionID)
	}
	return []engine.RobotState{}, nil
}

func (m *MockRobotService) Strongest(ctx context.Context, sessionID string) (*engine.RobotState, error) {
	if m.StrongestFunc != nil {
		return m.StrongestFunc(ctx, sessionID)
	}
	return &engine.RobotState{}, nil
}

func (m *MockRobotService) Step(ctx context.Context, sessionID, name, direction string) (*service.MoveResult, error) {
	if m.StepFunc != nil {
		return m.StepFunc(ctx, sessionID, name, direction)
	}
	return &service.MoveResult{Robot: engine.RobotState{Name: name}}, nil
}

func (m *MockRobotService) Move(ctx context.Context, sessionID, name, direction string, steps int) (*service.MoveResult, error) {
	if m.MoveFunc != nil {
		return m.MoveFunc(ctx, sessionID, name, direction, steps)
	}
	return &service.MoveResult{Robot: engine.RobotState{Name: name}, Attempts: steps}, nil
}

func (m *MockRobotService) Recharge(ctx context.Context, sessionID, name string) (*service.MoveResult, error) {
	if m.RechargeFunc != nil {
		return m.RechargeFunc(ctx, sessionID, name)
	}
	return &service.MoveResult{Robot: engine.RobotState{Name: name, Battery: engine.MaxBattery}}, nil
}

func (m *MockRobotService) Dive(ctx context.Context, sessionID, name string, distance int) (*service.MoveResult, error) {
	if m.DiveFunc != nil {
		return m.DiveFunc(ctx, sessionID, name, distance)
	}
	return &service.MoveResult{Robot: engine.RobotState{Name: name, Depth: distance}}, nil
}

func (m *MockRobotService) RunScript(ctx context.Context, sessionID, name, source string) (*service.ScriptResult, error) {
	if m.RunScriptFunc != nil {
		return m.RunScriptFunc(ctx, sessionID, name, source)
	}
	return &service.ScriptResult{Robot: engine.RobotState{Name: name}}, nil
}

func (m *MockRobotService) Reset(ctx context.Context, sessionID string) ([]engine.RobotState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, sessionID)
	}
	return []engine.RobotState{}, nil
}

func (m *MockRobotService) GetMoveHistory(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetMoveHistoryFunc != nil {
		return m.GetMoveHistoryFunc(ctx, sessionID, opts)
	}
	return &service.HistoryResponse{Moves: []engine.MoveRecord{}, Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (m *MockRobotService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockRobotService) LoadConfig(ctx context.Context, configName string) (*engine.MazeConfig, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, configName)
	}
	return &engine.MazeConfig{Name: configName, Description: "Test config"}, nil
}

func (m *MockRobotService) SaveConfig(ctx context.Context, configName string, mazeConfig *engine.MazeConfig) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, configName, mazeConfig)
	}
	return nil
}

// Test helpers
func setupTestServer(t *testing.T, mockService *MockRobotService) *Server {
	t.Helper()
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return NewServer(mockService, hub)
}

func makeRequest(method, path string, body any) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v (%s)", err, w.Body.String())
	}
}

type routeTest struct {
	name           string
	method         string
	path           string
	body           any
	setupMock      func(*MockRobotService)
	expectedStatus int
	validateResp   func(*testing.T, *httptest.ResponseRecorder)
}

func runRouteTests(t *testing.T, tests []routeTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockRobotService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest(tt.method, tt.path, tt.body))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.validateResp != nil {
				tt.validateResp(t, w)
			}
		})
	}
}

func notFound(ctx context.Context, sessionID string) (*service.SessionInfo, error) {
	return nil, fmt.Errorf("session %s: %w", sessionID, session.ErrSessionNotFound)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("session x: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: R2", engine.ErrRobotNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: nope", config.ErrConfigNotFound), http.StatusNotFound},
		{service.ErrNoRobots, http.StatusNotFound},
		{engine.ErrRobotExists, http.StatusConflict},
		{session.ErrSessionAlreadyExists, http.StatusConflict},
		{fmt.Errorf("%w: \"up-ish\"", engine.ErrUnknownDirection), http.StatusBadRequest},
		{service.ErrTooManySteps, http.StatusBadRequest},
		{service.ErrInvalidScript, http.StatusBadRequest},
		{&engine.PlacementError{Row: 0, Column: 2}, http.StatusUnprocessableEntity},
		{engine.ErrNotDiver, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: bad", config.ErrInvalidConfig), http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

// Session Management Tests

func TestCreateSession(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "Create session with default config",
			method: "POST", path: "/api/sessions",
			setupMock: func(m *MockRobotService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					if configName != "" {
						t.Errorf("Expected empty config name, got %s", configName)
					}
					return &service.SessionInfo{ID: "ab12", ConfigName: "classic"}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected session ID ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:   "Create session with config_id",
			method: "POST", path: "/api/sessions",
			body: map[string]string{"config_id": "lagoon"},
			setupMock: func(m *MockRobotService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return &service.SessionInfo{ID: "cd34", ConfigName: configName}, nil
				}
			},
			expectedStatus: http.StatusCreated,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ConfigName != "lagoon" {
					t.Errorf("Expected config lagoon, got %s", resp.ConfigName)
				}
			},
		},
		{
			name:   "Unknown config",
			method: "POST", path: "/api/sessions",
			body: map[string]string{"config_name": "nope"},
			setupMock: func(m *MockRobotService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("config '%s': %w", configName, config.ErrConfigNotFound)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "Handle service error",
			method: "POST", path: "/api/sessions",
			setupMock: func(m *MockRobotService) {
				m.CreateSessionFunc = func(ctx context.Context, configName string) (*service.SessionInfo, error) {
					return nil, fmt.Errorf("service error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp map[string]string
				parseResponse(t, w, &resp)
				if resp["error"] != "service error" {
					t.Errorf("Expected error message 'service error', got %s", resp["error"])
				}
			},
		},
	})
}

func TestListSessions(t *testing.T) {
	now := time.Now()
	sessions := func(ctx context.Context) ([]*service.SessionInfo, error) {
		return []*service.SessionInfo{
			{ID: "old", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now},
			{ID: "new", CreatedAt: now.Add(-time.Hour), LastAccessedAt: now.Add(-time.Hour)},
		}, nil
	}

	runRouteTests(t, []routeTest{
		{
			name:   "Default sort by access time, newest first",
			method: "GET", path: "/api/sessions",
			setupMock:      func(m *MockRobotService) { m.ListSessionsFunc = sessions },
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Count    int                    `json:"count"`
					Sessions []*service.SessionInfo `json:"sessions"`
				}
				parseResponse(t, w, &resp)
				if resp.Count != 2 || resp.Sessions[0].ID != "old" {
					t.Errorf("Expected old session first, got %+v", resp.Sessions)
				}
			},
		},
		{
			name:   "Sort by creation with limit",
			method: "GET", path: "/api/sessions?sort=created&limit=1",
			setupMock:      func(m *MockRobotService) { m.ListSessionsFunc = sessions },
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Count    int                    `json:"count"`
					Total    int                    `json:"total"`
					Sessions []*service.SessionInfo `json:"sessions"`
				}
				parseResponse(t, w, &resp)
				if resp.Count != 1 || resp.Total != 2 || resp.Sessions[0].ID != "new" {
					t.Errorf("Expected only the newest session, got %+v", resp)
				}
			},
		},
		{
			name:   "Handle service error",
			method: "GET", path: "/api/sessions",
			setupMock: func(m *MockRobotService) {
				m.ListSessionsFunc = func(ctx context.Context) ([]*service.SessionInfo, error) {
					return nil, fmt.Errorf("database error")
				}
			},
			expectedStatus: http.StatusInternalServerError,
		},
	})
}

func TestGetAndDeleteSession(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "Get existing session",
			method: "GET", path: "/api/sessions/ab12",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.SessionInfo
				parseResponse(t, w, &resp)
				if resp.ID != "ab12" {
					t.Errorf("Expected ab12, got %s", resp.ID)
				}
			},
		},
		{
			name:   "Get missing session",
			method: "GET", path: "/api/sessions/zzzz",
			setupMock:      func(m *MockRobotService) { m.GetSessionFunc = notFound },
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "Delete session",
			method: "DELETE", path: "/api/sessions/ab12",
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Delete missing session",
			method: "DELETE", path: "/api/sessions/zzzz",
			setupMock: func(m *MockRobotService) {
				m.DeleteSessionFunc = func(ctx context.Context, sessionID string) error {
					return session.ErrSessionNotFound
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

// Robot Tests

func TestAddRobot(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "Add robot",
			method: "POST", path: "/api/sessions/ab12/robots",
			body: engine.RobotSpec{Name: "Eve", Color: "white", Kind: engine.Diving, Row: 9, Column: 9, Battery: 3},
			setupMock: func(m *MockRobotService) {
				m.AddRobotFunc = func(ctx context.Context, sessionID string, spec engine.RobotSpec) (*engine.RobotState, error) {
					if spec.Kind != engine.Diving || spec.Battery != 3 {
						t.Errorf("Spec not decoded: %+v", spec)
					}
					return &engine.RobotState{ID: "id-1", Name: spec.Name}, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "Duplicate name",
			method: "POST", path: "/api/sessions/ab12/robots",
			body: engine.RobotSpec{Name: "Eve"},
			setupMock: func(m *MockRobotService) {
				m.AddRobotFunc = func(ctx context.Context, sessionID string, spec engine.RobotSpec) (*engine.RobotState, error) {
					return nil, fmt.Errorf("%w: Eve", engine.ErrRobotExists)
				}
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:   "Placement on obstacle",
			method: "POST", path: "/api/sessions/ab12/robots",
			body: engine.RobotSpec{Name: "Rock", Row: 0, Column: 2},
			setupMock: func(m *MockRobotService) {
				m.AddRobotFunc = func(ctx context.Context, sessionID string, spec engine.RobotSpec) (*engine.RobotState, error) {
					return nil, &engine.PlacementError{Row: 0, Column: 2}
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "List robots",
			method: "GET", path: "/api/sessions/ab12/robots",
			setupMock: func(m *MockRobotService) {
				m.ListRobotsFunc = func(ctx context.Context, sessionID string) ([]engine.RobotState, error) {
					return []engine.RobotState{{Name: "Wall-E"}, {Name: "Nemo"}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp struct {
					Count int `json:"count"`
				}
				parseResponse(t, w, &resp)
				if resp.Count != 2 {
					t.Errorf("Expected 2 robots, got %d", resp.Count)
				}
			},
		},
		{
			name:   "Get unknown robot",
			method: "GET", path: "/api/sessions/ab12/robots/R2",
			setupMock: func(m *MockRobotService) {
				m.GetRobotFunc = func(ctx context.Context, sessionID, name string) (*engine.RobotState, error) {
					return nil, fmt.Errorf("%w: %s", engine.ErrRobotNotFound, name)
				}
			},
			expectedStatus: http.StatusNotFound,
		},
	})
}

func TestRobotCommands(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "Step",
			method: "POST", path: "/api/sessions/ab12/robots/Wall-E/step",
			body: map[string]string{"direction": "forward"},
			setupMock: func(m *MockRobotService) {
				m.StepFunc = func(ctx context.Context, sessionID, name, direction string) (*service.MoveResult, error) {
					if sessionID != "ab12" || name != "Wall-E" || direction != "forward" {
						t.Errorf("Unexpected args %s %s %s", sessionID, name, direction)
					}
					return &service.MoveResult{Success: true, Robot: engine.RobotState{Name: name, Row: 1, Column: 1, Battery: 4}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if !resp.Success || resp.Robot.Battery != 4 {
					t.Errorf("Unexpected result %+v", resp)
				}
			},
		},
		{
			name:   "Move defaults to one step",
			method: "POST", path: "/api/sessions/ab12/robots/Wall-E/move",
			body: map[string]string{"direction": "left"},
			setupMock: func(m *MockRobotService) {
				m.MoveFunc = func(ctx context.Context, sessionID, name, direction string, steps int) (*service.MoveResult, error) {
					if steps != 1 {
						t.Errorf("Expected 1 step, got %d", steps)
					}
					return &service.MoveResult{Robot: engine.RobotState{Name: name}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Move with explicit zero steps",
			method: "POST", path: "/api/sessions/ab12/robots/Wall-E/move",
			body: map[string]any{"direction": "left", "steps": 0},
			setupMock: func(m *MockRobotService) {
				m.MoveFunc = func(ctx context.Context, sessionID, name, direction string, steps int) (*service.MoveResult, error) {
					if steps != 0 {
						t.Errorf("Expected 0 steps, got %d", steps)
					}
					return &service.MoveResult{Robot: engine.RobotState{Name: name}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Move too far",
			method: "POST", path: "/api/sessions/ab12/robots/Wall-E/move",
			body: map[string]any{"direction": "left", "steps": 500},
			setupMock: func(m *MockRobotService) {
				m.MoveFunc = func(ctx context.Context, sessionID, name, direction string, steps int) (*service.MoveResult, error) {
					return nil, service.ErrTooManySteps
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Unknown direction",
			method: "POST", path: "/api/sessions/ab12/robots/Wall-E/step",
			body: map[string]string{"direction": "sideways"},
			setupMock: func(m *MockRobotService) {
				m.StepFunc = func(ctx context.Context, sessionID, name, direction string) (*service.MoveResult, error) {
					return nil, fmt.Errorf("%w: %q", engine.ErrUnknownDirection, direction)
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Malformed body",
			method: "POST", path: "/api/sessions/ab12/robots/Wall-E/step",
			body: "not an object",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Recharge",
			method: "POST", path: "/api/sessions/ab12/robots/Wall-E/recharge",
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp service.MoveResult
				parseResponse(t, w, &resp)
				if resp.Robot.Battery != engine.MaxBattery {
					t.Errorf("Expected full battery, got %d", resp.Robot.Battery)
				}
			},
		},
		{
			name:   "Dive",
			method: "POST", path: "/api/sessions/ab12/robots/Nemo/dive",
			body: map[string]int{"distance": -2},
			setupMock: func(m *MockRobotService) {
				m.DiveFunc = func(ctx context.Context, sessionID, name string, distance int) (*service.MoveResult, error) {
					if distance != -2 {
						t.Errorf("Expected distance -2, got %d", distance)
					}
					return &service.MoveResult{Robot: engine.RobotState{Name: name}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Dive without distance",
			method: "POST", path: "/api/sessions/ab12/robots/Nemo/dive",
			body: map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Dive with surface robot",
			method: "POST", path: "/api/sessions/ab12/robots/Wall-E/dive",
			body: map[string]int{"distance": 1},
			setupMock: func(m *MockRobotService) {
				m.DiveFunc = func(ctx context.Context, sessionID, name string, distance int) (*service.MoveResult, error) {
					return nil, fmt.Errorf("%w: %s is a surface robot", engine.ErrNotDiver, name)
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "Strongest in empty session",
			method: "GET", path: "/api/sessions/ab12/strongest",
			setupMock: func(m *MockRobotService) {
				m.StrongestFunc = func(ctx context.Context, sessionID string) (*engine.RobotState, error) {
					return nil, service.ErrNoRobots
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:   "Reset",
			method: "POST", path: "/api/sessions/ab12/reset",
			setupMock: func(m *MockRobotService) {
				m.ResetFunc = func(ctx context.Context, sessionID string) ([]engine.RobotState, error) {
					return []engine.RobotState{{Name: "Wall-E", Row: 0, Column: 1, Battery: 5}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
	})
}

func TestScript(t *testing.T) {
	var got string
	mock := &MockRobotService{
		RunScriptFunc: func(ctx context.Context, sessionID, name, source string) (*service.ScriptResult, error) {
			got = source
			if strings.Contains(source, "jump") {
				return nil, fmt.Errorf("%w: 1:1: unexpected token", service.ErrInvalidScript)
			}
			return &service.ScriptResult{Robot: engine.RobotState{Name: name}, Attempts: 2, Successes: 2}, nil
		},
	}
	server := setupTestServer(t, mock)

	t.Run("JSON body", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/robots/Wall-E/script", map[string]string{"script": "forward 2"}))
		if w.Code != http.StatusOK || got != "forward 2" {
			t.Errorf("Expected 200 with script passed through, got %d %q", w.Code, got)
		}
	})

	t.Run("plain text body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/sessions/ab12/robots/Wall-E/script", strings.NewReader("recharge\nleft 3\n"))
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		if w.Code != http.StatusOK || got != "recharge\nleft 3\n" {
			t.Errorf("Expected 200 with raw script, got %d %q", w.Code, got)
		}
	})

	t.Run("invalid script", func(t *testing.T) {
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/sessions/ab12/robots/Wall-E/script", map[string]string{"script": "jump 3"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestGetHistory(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "Query parameters",
			method: "GET", path: "/api/sessions/ab12/history?page=2&limit=5&order=asc&robot=Nemo",
			setupMock: func(m *MockRobotService) {
				m.GetMoveHistoryFunc = func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					want := service.HistoryOptions{Page: 2, Limit: 5, Order: "asc", Robot: "Nemo"}
					if opts != want {
						t.Errorf("Expected %+v, got %+v", want, opts)
					}
					return &service.HistoryResponse{Moves: []engine.MoveRecord{}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Invalid values fall back to defaults",
			method: "GET", path: "/api/sessions/ab12/history?page=-1&limit=x&order=sideways",
			setupMock: func(m *MockRobotService) {
				m.GetMoveHistoryFunc = func(ctx context.Context, sessionID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
					if opts.Page != 1 || opts.Limit != 20 || opts.Order != "desc" {
						t.Errorf("Expected defaults, got %+v", opts)
					}
					return &service.HistoryResponse{Moves: []engine.MoveRecord{}}, nil
				}
			},
			expectedStatus: http.StatusOK,
		},
	})
}

func TestConfigs(t *testing.T) {
	runRouteTests(t, []routeTest{
		{
			name:   "List configs",
			method: "GET", path: "/api/configs",
			setupMock: func(m *MockRobotService) {
				m.ListConfigsFunc = func(ctx context.Context) ([]*service.ConfigInfo, error) {
					return []*service.ConfigInfo{{ConfigID: "classic", Rows: 10, Cols: 10}}, nil
				}
			},
			expectedStatus: http.StatusOK,
			validateResp: func(t *testing.T, w *httptest.ResponseRecorder) {
				var resp []service.ConfigInfo
				parseResponse(t, w, &resp)
				if len(resp) != 1 || resp[0].ConfigID != "classic" {
					t.Errorf("Unexpected configs %+v", resp)
				}
			},
		},
		{
			name:   "Get config strips .json",
			method: "GET", path: "/api/configs/classic.json",
			setupMock: func(m *MockRobotService) {
				m.LoadConfigFunc = func(ctx context.Context, configName string) (*engine.MazeConfig, error) {
					if configName != "classic" {
						t.Errorf("Expected classic, got %s", configName)
					}
					return engine.DefaultMazeConfig(), nil
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "Create config with explicit id",
			method: "POST", path: "/api/configs?id=tiny",
			body: &engine.MazeConfig{Name: "Tiny", Description: "two cells", Layout: []string{".."}},
			setupMock: func(m *MockRobotService) {
				m.SaveConfigFunc = func(ctx context.Context, configName string, mazeConfig *engine.MazeConfig) error {
					if configName != "tiny" || mazeConfig.Name != "Tiny" {
						t.Errorf("Unexpected save %s %+v", configName, mazeConfig)
					}
					return nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:   "Create config without name",
			method: "POST", path: "/api/configs",
			body: &engine.MazeConfig{Layout: []string{".."}},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:   "Create invalid config",
			method: "POST", path: "/api/configs",
			body: &engine.MazeConfig{Name: "Bad", Layout: []string{"..", "."}},
			setupMock: func(m *MockRobotService) {
				m.SaveConfigFunc = func(ctx context.Context, configName string, mazeConfig *engine.MazeConfig) error {
					return fmt.Errorf("%w: ragged", config.ErrInvalidConfig)
				}
			},
			expectedStatus: http.StatusUnprocessableEntity,
		},
		{
			name:   "Health",
			method: "GET", path: "/api/health",
			expectedStatus: http.StatusOK,
		},
	})
}

func TestWebSocket(t *testing.T) {
	tests := []struct {
		name           string
		queryParams    string
		setupMock      func(*MockRobotService)
		expectedStatus int
	}{
		{"Missing session parameter", "", nil, http.StatusBadRequest},
		{"Invalid session", "?session=invalid", func(m *MockRobotService) { m.GetSessionFunc = notFound }, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockRobotService{}
			if tt.setupMock != nil {
				tt.setupMock(mockService)
			}

			server := setupTestServer(t, mockService)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, httptest.NewRequest("GET", "/ws"+tt.queryParams, nil))

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

// TestEndToEnd drives the real service, session and config managers through HTTP
func TestEndToEnd(t *testing.T) {
	configs, err := config.NewManager("../configs")
	if err != nil {
		t.Fatalf("Failed to create config manager: %v", err)
	}
	robots := service.NewRobotService(session.NewManager(), configs)
	server := httptest.NewServer(NewServer(robots, nil))
	defer server.Close()

	post := func(path string, body any, target any) int {
		t.Helper()
		data, _ := json.Marshal(body)
		resp, err := http.Post(server.URL+path, "application/json", bytes.NewReader(data))
		if err != nil {
			t.Fatalf("POST %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		if target != nil {
			json.NewDecoder(resp.Body).Decode(target)
		}
		return resp.StatusCode
	}

	var info service.SessionInfo
	if code := post("/api/sessions", map[string]string{"config_id": "classic"}, &info); code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", code)
	}
	if len(info.Robots) != 2 {
		t.Fatalf("Expected preset robots, got %d", len(info.Robots))
	}

	var blocked service.MoveResult
	post("/api/sessions/"+info.ID+"/robots/Wall-E/step", map[string]string{"direction": "right"}, &blocked)
	if blocked.Success || blocked.BlockedReason != engine.BlockedObstacle || blocked.Robot.Battery != 5 {
		t.Errorf("Expected right to be blocked by an obstacle, got %+v", blocked)
	}

	var moved service.MoveResult
	post("/api/sessions/"+info.ID+"/robots/wall-e/step", map[string]string{"direction": "forward"}, &moved)
	if !moved.Success || moved.Robot.Position() != (engine.Position{Row: 1, Column: 1}) || moved.Robot.Battery != 4 {
		t.Errorf("Expected forward to (1,1) with battery 4, got %+v", moved.Robot)
	}

	if code := post("/api/sessions/"+info.ID+"/robots/Wall-E/dive", map[string]int{"distance": 1}, nil); code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for surface dive, got %d", code)
	}

	resp, err := http.Get(server.URL + "/api/sessions/" + info.ID + "/strongest")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var strongest engine.RobotState
	json.NewDecoder(resp.Body).Decode(&strongest)
	if strongest.Name != "Nemo" {
		t.Errorf("Expected Nemo to be strongest, got %s", strongest.Name)
	}
}
