package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/mazerobots/game/engine"
	"github.com/wricardo/mcp-training/mazerobots/game/script"
)

// robotServiceImpl implements the RobotService interface
type robotServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	mu       sync.Mutex // held by reads too: they write LastAccessedAt
}

// NewRobotService creates a new robot service instance
func NewRobotService(sessions SessionManager, configs ConfigManager) RobotService {
	return &robotServiceImpl{
		sessions: sessions,
		configs:  configs,
	}
}

// getConfigID returns the config_id for a given config name, used for consistent API responses
func (s *robotServiceImpl) getConfigID(configName string) string {
	availableConfigs, err := s.configs.ListConfigs()
	if err == nil {
		for _, cfg := range availableConfigs {
			if cfg.Name == configName {
				return cfg.ConfigID
			}
		}
	}
	if configName == "" {
		return "default"
	}
	return configName
}

// CreateSession creates a new maze session from a configuration
func (s *robotServiceImpl) CreateSession(ctx context.Context, configName string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var config *engine.MazeConfig
	if configName != "" {
		var err error
		config, err = s.configs.LoadConfig(configName)
		if err != nil {
			return nil, s.configError(configName, err)
		}
	} else {
		config = s.configs.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	info := s.sessionInfo(sess)
	if configName != "" {
		info.ConfigName = configName
	}
	slog.Info("session created", "session", sess.ID, "config", info.ConfigName, "robots", len(info.Robots))
	return info, nil
}

// configError lists the available configurations when the requested one is missing
func (s *robotServiceImpl) configError(configName string, err error) error {
	availableConfigs, listErr := s.configs.ListConfigs()
	if listErr != nil || len(availableConfigs) == 0 {
		return fmt.Errorf("failed to load config %s: %w", configName, err)
	}
	ids := make([]string, 0, len(availableConfigs))
	for _, cfg := range availableConfigs {
		ids = append(ids, cfg.ConfigID)
	}
	return fmt.Errorf("config '%s' (available: %s): %w", configName, strings.Join(ids, ", "), err)
}

// GetSession retrieves session information
func (s *robotServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *robotServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *robotServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	slog.Info("session deleted", "session", sessionID)
	return nil
}

// AddRobot places a new robot in the session's maze
func (s *robotServiceImpl) AddRobot(ctx context.Context, sessionID string, spec engine.RobotSpec) (*engine.RobotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.Arena.AddRobot(spec); err != nil {
		return nil, err
	}
	s.save(sess)

	state, err := sess.Arena.State(spec.Name)
	if err != nil {
		return nil, err
	}
	slog.Info("robot added", "session", sess.ID, "robot", state.Name, "kind", state.Kind, "at", state.Position().String())
	return &state, nil
}

// GetRobot returns the current state of one robot
func (s *robotServiceImpl) GetRobot(ctx context.Context, sessionID, name string) (*engine.RobotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	state, err := sess.Arena.State(name)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// ListRobots returns every robot of the session in insertion order
func (s *robotServiceImpl) ListRobots(ctx context.Context, sessionID string) ([]engine.RobotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Arena.Snapshots(), nil
}

// Strongest returns the robot with the most battery
func (s *robotServiceImpl) Strongest(ctx context.Context, sessionID string) (*engine.RobotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	unit, ok := sess.Arena.Strongest()
	if !ok {
		return nil, ErrNoRobots
	}
	state, err := sess.Arena.State(unit.Name())
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Step attempts a single step
func (s *robotServiceImpl) Step(ctx context.Context, sessionID, name, direction string) (*MoveResult, error) {
	return s.Move(ctx, sessionID, name, direction, 1)
}

// Move attempts exactly steps single steps in one direction
func (s *robotServiceImpl) Move(ctx context.Context, sessionID, name, direction string, steps int) (*MoveResult, error) {
	dir, err := engine.ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	if steps > engine.MaxMoveSteps {
		return nil, fmt.Errorf("%w: %d exceeds the limit of %d", ErrTooManySteps, steps, engine.MaxMoveSteps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	records, err := sess.Arena.Move(name, dir, steps)
	if err != nil {
		return nil, err
	}
	s.save(sess)

	result, err := s.moveResult(sess, name, records)
	if err != nil {
		return nil, err
	}
	if n := len(records); n > 0 && !records[n-1].Success {
		// a refused step changes nothing, so the final state explains it
		result.BlockedReason = engine.BlockReason(sess.Arena.Grid(), result.Robot.Position(), result.Robot.Battery, dir)
	}
	result.Message = moveMessage(result, dir, len(records))

	slog.Debug("robot moved",
		"session", sess.ID, "robot", name, "dir", dir, "steps", len(records),
		"successes", result.Successes, "to", result.Robot.Position().String(), "battery", result.Robot.Battery)
	return result, nil
}

// Recharge fills a robot's battery
func (s *robotServiceImpl) Recharge(ctx context.Context, sessionID, name string) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := sess.Arena.Recharge(name)
	if err != nil {
		return nil, err
	}
	s.save(sess)

	result, err := s.moveResult(sess, name, []engine.MoveRecord{rec})
	if err != nil {
		return nil, err
	}
	result.Message = fmt.Sprintf("%s recharged: battery %d -> %d", result.Robot.Name, rec.BatteryBefore, rec.BatteryAfter)
	return result, nil
}

// Dive changes a diving robot's depth. A dive above the surface is ignored.
func (s *robotServiceImpl) Dive(ctx context.Context, sessionID, name string, distance int) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	rec, err := sess.Arena.Dive(name, distance)
	if err != nil {
		return nil, err
	}
	s.save(sess)

	result, err := s.moveResult(sess, name, []engine.MoveRecord{rec})
	if err != nil {
		return nil, err
	}
	if rec.Success {
		result.Message = fmt.Sprintf("%s is now at depth %d", result.Robot.Name, result.Robot.Depth)
	} else {
		result.Message = fmt.Sprintf("%s cannot rise above the surface, depth stays %d", result.Robot.Name, result.Robot.Depth)
	}
	return result, nil
}

// RunScript parses source and runs it against one robot
func (s *robotServiceImpl) RunScript(ctx context.Context, sessionID, name, source string) (*ScriptResult, error) {
	prog, err := script.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	trace, err := prog.Run(sess.Arena, name)
	if trace != nil {
		// commands before a failure stay applied
		s.save(sess)
	}
	if err != nil {
		return nil, err
	}

	state, err := sess.Arena.State(name)
	if err != nil {
		return nil, err
	}
	slog.Info("script finished", "session", sess.ID, "robot", name, "attempts", trace.Attempts, "successes", trace.Successes)
	return &ScriptResult{
		Robot:     state,
		Attempts:  trace.Attempts,
		Successes: trace.Successes,
		Records:   trace.Records,
		Message:   fmt.Sprintf("%d of %d commands changed %s; now at %s with battery %d", trace.Successes, trace.Attempts, state.Name, state.Position(), state.Battery),
	}, nil
}

// Reset puts every robot back to its initial placement and battery
func (s *robotServiceImpl) Reset(ctx context.Context, sessionID string) ([]engine.RobotState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Arena.Reset(); err != nil {
		return nil, err
	}
	s.save(sess)
	slog.Info("session reset", "session", sess.ID)
	return sess.Arena.Snapshots(), nil
}

// GetMoveHistory returns paginated move history
func (s *robotServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Arena.History()
	if opts.Robot != "" {
		filtered := make([]engine.MoveRecord, 0, len(history))
		for _, rec := range history {
			if strings.EqualFold(rec.Robot, opts.Robot) {
				filtered = append(filtered, rec)
			}
		}
		history = filtered
	}
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	moves := []engine.MoveRecord{}
	if opts.Page > totalPages {
		return &HistoryResponse{
			Moves:       moves,
			TotalMoves:  total,
			Page:        opts.Page,
			PageSize:    opts.Limit,
			TotalPages:  totalPages,
			HasPrevious: true,
		}, nil
	}

	start := (opts.Page - 1) * opts.Limit
	end := min(start+opts.Limit, total)

	if opts.Order == "desc" {
		// most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			moves = append(moves, history[i])
		}
	} else if start < total {
		moves = append(moves, history[start:end]...)
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListConfigs returns available configurations
func (s *robotServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific configuration
func (s *robotServiceImpl) LoadConfig(ctx context.Context, configName string) (*engine.MazeConfig, error) {
	return s.configs.LoadConfig(configName)
}

// SaveConfig validates and stores a configuration
func (s *robotServiceImpl) SaveConfig(ctx context.Context, configName string, config *engine.MazeConfig) error {
	return s.configs.SaveConfig(configName, config)
}

// session fetches a session and touches its access time. Callers hold s.mu.
func (s *robotServiceImpl) session(id string) (*Session, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err := s.sessions.UpdateLastAccessed(sess.ID); err != nil {
		slog.Debug("failed to touch session", "session", sess.ID, "error", err)
	}
	return sess, nil
}

// save persists a session after a mutation. Failures are logged, not returned:
// the in-memory state is already authoritative.
func (s *robotServiceImpl) save(sess *Session) {
	if err := s.sessions.Save(sess.ID); err != nil {
		slog.Warn("failed to persist session", "session", sess.ID, "error", err)
	}
}

func (s *robotServiceImpl) sessionInfo(sess *Session) *SessionInfo {
	grid := sess.Arena.Grid()
	configName := ""
	if sess.Config != nil {
		configName = sess.Config.Name
	}
	return &SessionInfo{
		ID:             sess.ID,
		ConfigName:     s.getConfigID(configName),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Rows:           grid.Rows(),
		Cols:           grid.Cols(),
		Layout:         grid.Layout(),
		Robots:         sess.Arena.Snapshots(),
		TotalMoves:     sess.Arena.TotalMoves(),
	}
}

func (s *robotServiceImpl) moveResult(sess *Session, name string, records []engine.MoveRecord) (*MoveResult, error) {
	unit, err := sess.Arena.Robot(name)
	if err != nil {
		return nil, err
	}
	state, err := sess.Arena.State(name)
	if err != nil {
		return nil, err
	}

	result := &MoveResult{
		Robot:         state,
		Attempts:      len(records),
		Records:       records,
		PossibleMoves: []string{},
	}
	for _, rec := range records {
		if rec.Success {
			result.Successes++
		}
	}
	result.Success = result.Successes > 0
	for _, dir := range engine.PossibleMoves(sess.Arena.Grid(), unit) {
		result.PossibleMoves = append(result.PossibleMoves, string(dir))
	}
	return result, nil
}

func moveMessage(result *MoveResult, dir engine.Direction, attempts int) string {
	name := result.Robot.Name
	switch {
	case attempts == 0:
		return fmt.Sprintf("%s did not move", name)
	case result.Successes == attempts:
		return fmt.Sprintf("%s moved %s %d, now at %s with battery %d", name, dir, attempts, result.Robot.Position(), result.Robot.Battery)
	case result.Successes == 0:
		return fmt.Sprintf("%s could not move %s (%s)", name, dir, result.BlockedReason)
	}
	return fmt.Sprintf("%s moved %s %d of %d, stopped at %s by %s", name, dir, result.Successes, attempts, result.Robot.Position(), result.BlockedReason)
}
