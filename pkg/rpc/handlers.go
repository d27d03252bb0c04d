package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/partyfowl/aoc19/pkg/intcode"
	"github.com/partyfowl/aoc19/pkg/metrics"
	"github.com/partyfowl/aoc19/pkg/pipeline"
	"github.com/partyfowl/aoc19/pkg/results"
	"github.com/partyfowl/aoc19/pkg/search"
	"github.com/partyfowl/aoc19/pkg/types"
)

// Version is reported by getVersion.
const Version = "0.3.0"

// Handler is the function signature for RPC method handlers.
type Handler func(params json.RawMessage) (interface{}, *RPCError)

// HandlerConfig bounds the work a single request may cause.
type HandlerConfig struct {
	// StepLimit is the per-invocation instruction budget. Zero is unbounded.
	StepLimit uint64

	// DenseLimit is the contiguous memory size of each VM, in cells.
	DenseLimit int64

	// MaxRounds bounds feedback rounds and chain resumes during searches.
	MaxRounds int

	// SearchBudget caps the instructions one search may execute across
	// every ordering it evaluates. Zero is unbounded.
	SearchBudget int64

	// MaxSessions caps open sessions. Zero is unlimited.
	MaxSessions int
}

// DefaultHandlerConfig returns limits suitable for untrusted programs.
func DefaultHandlerConfig() HandlerConfig {
	return HandlerConfig{
		StepLimit:    10_000_000,
		DenseLimit:   intcode.DefaultDenseLimit,
		MaxRounds:    10_000,
		SearchBudget: 500_000_000,
		MaxSessions:  1024,
	}
}

// Handlers holds the method table and the state methods operate on.
type Handlers struct {
	config   HandlerConfig
	store    results.Store
	sessions *SessionManager
	metrics  *metrics.Metrics
	health   *metrics.HealthChecker
	handlers map[string]Handler
}

// NewHandlers creates the method table. m and health may be nil.
func NewHandlers(config HandlerConfig, store results.Store, m *metrics.Metrics, health *metrics.HealthChecker) *Handlers {
	if m == nil {
		m = metrics.NewMetrics()
	}

	h := &Handlers{
		config:   config,
		store:    store,
		sessions: NewSessionManager(config.MaxSessions, config.engineOptions()...),
		metrics:  m,
		health:   health,
		handlers: make(map[string]Handler),
	}
	h.sessions.OnChange(func(n int) { m.ActiveSessions.Set(int64(n)) })

	h.registerHandlers()
	return h
}

func (c HandlerConfig) engineOptions() []intcode.Option {
	opts := []intcode.Option{intcode.WithStepLimit(c.StepLimit)}
	if c.DenseLimit > 0 {
		opts = append(opts, intcode.WithDenseLimit(c.DenseLimit))
	}
	return opts
}

// Sessions returns the session table.
func (h *Handlers) Sessions() *SessionManager {
	return h.sessions
}

// GetHandler returns the handler for a method, or nil if not found.
func (h *Handlers) GetHandler(method string) Handler {
	return h.handlers[method]
}

func (h *Handlers) registerHandlers() {
	h.handlers["run"] = h.handleRun
	h.handlers["registerProgram"] = h.handleRegisterProgram
	h.handlers["createSession"] = h.handleCreateSession
	h.handlers["resume"] = h.handleResume
	h.handlers["closeSession"] = h.handleCloseSession
	h.handlers["searchPhases"] = h.handleSearchPhases
	h.handlers["disassemble"] = h.handleDisassemble
	h.handlers["getHealth"] = h.handleGetHealth
	h.handlers["getVersion"] = h.handleGetVersion
}

// decodeParams accepts either a params object or a one-element array
// holding it.
func decodeParams(params json.RawMessage, v interface{}) *RPCError {
	params = bytes.TrimSpace(params)
	if len(params) == 0 {
		return NewRPCError(InvalidParams, "missing params")
	}

	if params[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(params, &arr); err != nil || len(arr) != 1 {
			return NewRPCError(InvalidParams, "invalid params: expected one object")
		}
		params = arr[0]
	}

	if err := json.Unmarshal(params, v); err != nil {
		return NewRPCError(InvalidParams, fmt.Sprintf("invalid params: %v", err))
	}
	return nil
}

// resolveProgram parses program text, registering it with the store, or
// loads a program by digest.
func (h *Handlers) resolveProgram(p ProgramParams) (types.Program, *RPCError) {
	if p.Program != "" {
		program, err := types.Parse(p.Program)
		if err != nil {
			return nil, NewRPCError(InvalidParams, fmt.Sprintf("invalid program: %v", err))
		}
		if h.store != nil {
			if _, err := h.store.PutProgram(program); err != nil {
				return nil, NewRPCError(InternalError, fmt.Sprintf("failed to store program: %v", err))
			}
		}
		return program, nil
	}

	if p.Digest == "" {
		return nil, NewRPCError(InvalidParams, "program or digest required")
	}
	digest, err := types.DigestFromString(p.Digest)
	if err != nil {
		return nil, NewRPCError(InvalidParams, fmt.Sprintf("invalid digest: %v", err))
	}
	if h.store == nil {
		return nil, NewRPCError(ProgramNotFound, "no program store configured")
	}

	program, err := h.store.GetProgram(digest)
	if err != nil {
		return nil, NewRPCError(InternalError, fmt.Sprintf("failed to load program: %v", err))
	}
	if program == nil {
		return nil, NewRPCError(ProgramNotFound, fmt.Sprintf("program not found: %s", p.Digest))
	}
	return program, nil
}

func (h *Handlers) runResult(res intcode.Result, elapsed time.Duration) RunResult {
	h.metrics.RecordResult(res, elapsed)

	out := RunResult{
		Output:    res.Output,
		Remaining: res.Remaining,
		Status:    res.Status.String(),
		Steps:     res.Steps,
	}
	if out.Output == nil {
		out.Output = []int64{}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// handleRun runs a program once on the given input.
// Params: {program | digest, input}
func (h *Handlers) handleRun(params json.RawMessage) (interface{}, *RPCError) {
	var p RunParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	program, rpcErr := h.resolveProgram(p.ProgramParams)
	if rpcErr != nil {
		return nil, rpcErr
	}

	vm := intcode.New(program, h.config.engineOptions()...)
	start := time.Now()
	res := vm.Run(p.Input)
	out := h.runResult(res, time.Since(start))
	h.metrics.RecordVM(vm)

	out.Digest = program.Digest().String()
	return out, nil
}

// handleRegisterProgram stores a program and returns its digest.
// Params: {program}
func (h *Handlers) handleRegisterProgram(params json.RawMessage) (interface{}, *RPCError) {
	var p ProgramParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Program == "" {
		return nil, NewRPCError(InvalidParams, "program required")
	}
	if h.store == nil {
		return nil, NewRPCError(InternalError, "no program store configured")
	}

	program, rpcErr := h.resolveProgram(p)
	if rpcErr != nil {
		return nil, rpcErr
	}
	return RegisterResult{Digest: program.Digest().String(), Words: len(program)}, nil
}

// handleCreateSession starts a suspended-capable VM.
// Params: {program | digest}
func (h *Handlers) handleCreateSession(params json.RawMessage) (interface{}, *RPCError) {
	var p ProgramParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	program, rpcErr := h.resolveProgram(p)
	if rpcErr != nil {
		return nil, rpcErr
	}

	s, err := h.sessions.Create(program)
	if err != nil {
		return nil, NewRPCError(SessionLimit, err.Error())
	}
	return SessionResult{Session: s.ID.String(), Digest: s.Digest.String()}, nil
}

// handleResume feeds input to a session and returns that invocation's output.
// Params: {session, input}
func (h *Handlers) handleResume(params json.RawMessage) (interface{}, *RPCError) {
	var p ResumeParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}

	s, err := h.sessions.Get(p.Session)
	if err != nil {
		return nil, NewRPCError(SessionNotFound, err.Error())
	}

	start := time.Now()
	res := s.Resume(p.Input)
	return h.runResult(res, time.Since(start)), nil
}

// handleCloseSession discards a session.
// Params: {session}
func (h *Handlers) handleCloseSession(params json.RawMessage) (interface{}, *RPCError) {
	var p SessionParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := h.sessions.Close(p.Session); err != nil {
		return nil, NewRPCError(SessionNotFound, err.Error())
	}
	return true, nil
}

// handleSearchPhases finds the phase ordering with the highest signal.
// Params: {program | digest, mode, phases}
func (h *Handlers) handleSearchPhases(params json.RawMessage) (interface{}, *RPCError) {
	var p SearchParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Mode == "" {
		p.Mode = search.ModeSerial.String()
	}
	mode, err := search.ParseMode(p.Mode)
	if err != nil {
		return nil, NewRPCError(InvalidParams, err.Error())
	}
	program, rpcErr := h.resolveProgram(p.ProgramParams)
	if rpcErr != nil {
		return nil, rpcErr
	}

	phases := p.Phases
	if len(phases) == 0 {
		phases = mode.DefaultPhases()
	}
	if len(phases) > 8 {
		return nil, NewRPCError(InvalidParams, "at most 8 phases")
	}

	network := []pipeline.Option{
		pipeline.WithObserver(h.metrics.ObserveStage),
		pipeline.WithEngineOptions(h.config.engineOptions()...),
		pipeline.WithMaxRounds(h.config.MaxRounds),
	}
	if h.config.SearchBudget > 0 {
		network = append(network, pipeline.WithBudget(pipeline.NewBudget(h.config.SearchBudget)))
	}
	opts := []search.Option{search.WithNetworkOptions(network...)}
	if h.store != nil {
		opts = append(opts, search.WithStore(h.store))
	}

	best, err := search.MaxSignal(program, phases, mode, opts...)
	if err != nil {
		code := SearchFailed
		if errors.Is(err, pipeline.ErrNoPhases) {
			code = InvalidParams
		}
		return nil, NewRPCError(code, err.Error())
	}
	h.metrics.RecordSearch(best.Evaluated, best.CacheHits)
	if h.store != nil {
		h.metrics.StoredRecords.SetUint64(h.store.Count())
	}

	return SearchResult{
		Signal:    best.Signal,
		Phases:    best.Phases,
		Evaluated: best.Evaluated,
		CacheHits: best.CacheHits,
	}, nil
}

// handleDisassemble renders a program listing.
// Params: {program | digest}
func (h *Handlers) handleDisassemble(params json.RawMessage) (interface{}, *RPCError) {
	var p ProgramParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	program, rpcErr := h.resolveProgram(p)
	if rpcErr != nil {
		return nil, rpcErr
	}

	lines := intcode.Disassemble(program)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.String()
	}
	return out, nil
}

// handleGetHealth handles the getHealth RPC method.
func (h *Handlers) handleGetHealth(params json.RawMessage) (interface{}, *RPCError) {
	if h.health != nil && !h.health.IsHealthy() {
		return nil, NewRPCError(Unhealthy, h.health.GetStatus().Message)
	}
	return "ok", nil
}

// handleGetVersion handles the getVersion RPC method.
func (h *Handlers) handleGetVersion(params json.RawMessage) (interface{}, *RPCError) {
	return VersionResult{Intcode: Version}, nil
}
