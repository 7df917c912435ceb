package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/wricardo/mcp-training/mazerobots/game/config"
	"github.com/wricardo/mcp-training/mazerobots/game/engine"
	"github.com/wricardo/mcp-training/mazerobots/game/service"
	"github.com/wricardo/mcp-training/mazerobots/game/session"
	"github.com/wricardo/mcp-training/mazerobots/transport/websocket"
)

// maxBodyBytes bounds request bodies; scripts are the largest payload
const maxBodyBytes = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.RobotService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(robotService service.RobotService, hub *websocket.Hub) *Server {
	s := &Server{
		service: robotService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/strongest", s.handleStrongest).Methods("GET")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Robots
	api.HandleFunc("/sessions/{id}/robots", s.handleAddRobot).Methods("POST")
	api.HandleFunc("/sessions/{id}/robots", s.handleListRobots).Methods("GET")
	api.HandleFunc("/sessions/{id}/robots/{name}", s.handleGetRobot).Methods("GET")
	api.HandleFunc("/sessions/{id}/robots/{name}/step", s.handleStep).Methods("POST")
	api.HandleFunc("/sessions/{id}/robots/{name}/move", s.handleMove).Methods("POST")
	api.HandleFunc("/sessions/{id}/robots/{name}/recharge", s.handleRecharge).Methods("POST")
	api.HandleFunc("/sessions/{id}/robots/{name}/dive", s.handleDive).Methods("POST")
	api.HandleFunc("/sessions/{id}/robots/{name}/script", s.handleScript).Methods("POST")

	// Configuration
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleCreateConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the router so other handlers (MCP) can be mounted next to the API
func (s *Server) Router() *mux.Router {
	return s.router
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, engine.ErrRobotNotFound),
		errors.Is(err, config.ErrConfigNotFound),
		errors.Is(err, service.ErrNoRobots):
		return http.StatusNotFound

	case errors.Is(err, session.ErrSessionAlreadyExists),
		errors.Is(err, engine.ErrRobotExists):
		return http.StatusConflict

	case errors.Is(err, engine.ErrUnknownDirection),
		errors.Is(err, service.ErrTooManySteps),
		errors.Is(err, service.ErrInvalidScript),
		errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, config.ErrInvalidName):
		return http.StatusBadRequest

	case errors.Is(err, engine.ErrNotDiver),
		errors.Is(err, engine.ErrEmptyName),
		errors.Is(err, engine.ErrInvalidPlacement),
		errors.Is(err, engine.ErrBatteryRange),
		errors.Is(err, engine.ErrNegativeDepth),
		errors.Is(err, config.ErrInvalidConfig),
		engine.IsGridError(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// decodeBody decodes an optional JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// broadcast pushes the session's robots to WebSocket clients
func (s *Server) broadcast(r *http.Request, sessionID string) {
	if s.hub == nil {
		return
	}
	robots, err := s.service.ListRobots(r.Context(), sessionID)
	if err != nil {
		slog.Debug("skipping broadcast", "session", sessionID, "error", err)
		return
	}
	s.hub.BroadcastRobots(sessionID, robots)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConfigID   string `json:"config_id,omitempty"`
		ConfigName string `json:"config_name,omitempty"` // Deprecated, use config_id
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	configID := req.ConfigID
	if configID == "" {
		configID = req.ConfigName
	}

	info, err := s.service.CreateSession(r.Context(), configID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < total {
		sessions = sessions[:l]
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventSessionGone, nil, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

func (s *Server) handleStrongest(w http.ResponseWriter, r *http.Request) {
	robot, err := s.service.Strongest(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, robot)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	robots, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventReset, robots, nil)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Robots reset to their starting positions",
		"robots":  robots,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		opts.Page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		opts.Limit = l
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}
	opts.Robot = query.Get("robot")

	history, err := s.service.GetMoveHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Robot Handlers

func (s *Server) handleAddRobot(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var spec engine.RobotSpec
	if err := decodeBody(r, &spec); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	robot, err := s.service.AddRobot(r.Context(), sessionID, spec)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	s.broadcast(r, sessionID)

	respondJSON(w, http.StatusCreated, robot)
}

func (s *Server) handleListRobots(w http.ResponseWriter, r *http.Request) {
	robots, err := s.service.ListRobots(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":  len(robots),
		"robots": robots,
	})
}

func (s *Server) handleGetRobot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	robot, err := s.service.GetRobot(r.Context(), vars["id"], vars["name"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, robot)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	vars := mux.Vars(r)
	result, err := s.service.Step(r.Context(), vars["id"], vars["name"], req.Direction)
	s.respondMove(w, r, result, err)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Direction string `json:"direction"`
		Steps     *int   `json:"steps,omitempty"`
	}{}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	steps := 1
	if req.Steps != nil {
		steps = *req.Steps
	}

	vars := mux.Vars(r)
	result, err := s.service.Move(r.Context(), vars["id"], vars["name"], req.Direction, steps)
	s.respondMove(w, r, result, err)
}

func (s *Server) handleRecharge(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	result, err := s.service.Recharge(r.Context(), vars["id"], vars["name"])
	s.respondMove(w, r, result, err)
}

func (s *Server) handleDive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Distance *int `json:"distance"`
	}
	if err := decodeBody(r, &req); err != nil || req.Distance == nil {
		respondError(w, http.StatusBadRequest, "distance is required")
		return
	}

	vars := mux.Vars(r)
	result, err := s.service.Dive(r.Context(), vars["id"], vars["name"], *req.Distance)
	s.respondMove(w, r, result, err)
}

// respondMove logs, broadcasts and writes the outcome of a robot command
func (s *Server) respondMove(w http.ResponseWriter, r *http.Request, result *service.MoveResult, err error) {
	vars := mux.Vars(r)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	slog.Info("robot command",
		"session", vars["id"], "robot", result.Robot.Name,
		"attempts", result.Attempts, "successes", result.Successes,
		"at", result.Robot.Position().String(), "battery", result.Robot.Battery,
		"blocked", result.BlockedReason)
	s.broadcast(r, vars["id"])

	respondJSON(w, http.StatusOK, result)
}

// handleScript accepts {"script": "..."} or a text/plain body
func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var source string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "text/plain") {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		source = string(data)
	} else {
		var req struct {
			Script string `json:"script"`
		}
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		source = req.Script
	}

	result, err := s.service.RunScript(r.Context(), vars["id"], vars["name"], source)
	// commands before a failing one stay applied, so clients hear about them either way
	s.broadcast(r, vars["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	slog.Info("script run", "session", vars["id"], "robot", result.Robot.Name, "attempts", result.Attempts, "successes", result.Successes)
	respondJSON(w, http.StatusOK, result)
}

// Configuration Handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	configName := strings.TrimSuffix(mux.Vars(r)["name"], ".json")

	mazeConfig, err := s.service.LoadConfig(r.Context(), configName)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, mazeConfig)
}

// handleCreateConfig stores a maze under ?id=, defaulting to the maze name
func (s *Server) handleCreateConfig(w http.ResponseWriter, r *http.Request) {
	var mazeConfig engine.MazeConfig
	if err := decodeBody(r, &mazeConfig); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if mazeConfig.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}

	configID := r.URL.Query().Get("id")
	if configID == "" {
		configID = mazeConfig.Name
	}

	if err := s.service.SaveConfig(r.Context(), configID, &mazeConfig); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "Configuration saved successfully",
		"config_id": configID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}
	if s.hub == nil {
		http.Error(w, "live updates are disabled", http.StatusServiceUnavailable)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// logRequests logs each request at debug level
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
