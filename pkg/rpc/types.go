// Package rpc provides a JSON-RPC 2.0 service for running Intcode programs.
//
// Programs are passed as comma-separated text or referenced by the base58
// digest returned from an earlier call. Sessions expose the engine's
// suspend/resume contract: a session holds one VM, and each resume call feeds
// it input and returns the output of that invocation.
package rpc

import (
	"encoding/json"
)

const JSONRPCVersion = "2.0"

// Standard JSON-RPC 2.0 error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603
)

// Service error codes
const (
	ProgramNotFound = -32001
	SessionNotFound = -32002
	SessionLimit    = -32003
	SearchFailed    = -32004
	Unhealthy       = -32005
)

// RPCRequest represents a JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// RPCResponse represents a JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return e.Message
}

// NewRPCError creates a new RPC error.
func NewRPCError(code int, message string) *RPCError {
	return &RPCError{
		Code:    code,
		Message: message,
	}
}

// ProgramParams identifies a program by text or by digest. Text wins when
// both are set.
type ProgramParams struct {
	Program string `json:"program,omitempty"`
	Digest  string `json:"digest,omitempty"`
}

// RunParams are the parameters of run.
type RunParams struct {
	ProgramParams
	Input []int64 `json:"input,omitempty"`
}

// RunResult is the outcome of one engine invocation.
type RunResult struct {
	Output    []int64 `json:"output"`
	Remaining []int64 `json:"remaining,omitempty"`
	Status    string  `json:"status"`
	Steps     uint64  `json:"steps"`
	Error     string  `json:"error,omitempty"`
	Digest    string  `json:"digest,omitempty"`
}

// RegisterResult is the result of registerProgram.
type RegisterResult struct {
	Digest string `json:"digest"`
	Words  int    `json:"words"`
}

// SessionParams identifies a session.
type SessionParams struct {
	Session string `json:"session"`
}

// SessionResult is the result of createSession.
type SessionResult struct {
	Session string `json:"session"`
	Digest  string `json:"digest"`
}

// ResumeParams are the parameters of resume.
type ResumeParams struct {
	SessionParams
	Input []int64 `json:"input,omitempty"`
}

// SearchParams are the parameters of searchPhases. Phases default to the
// conventional set for the mode.
type SearchParams struct {
	ProgramParams
	Mode   string  `json:"mode"`
	Phases []int64 `json:"phases,omitempty"`
}

// SearchResult is the result of searchPhases.
type SearchResult struct {
	Signal    int64   `json:"signal"`
	Phases    []int64 `json:"phases"`
	Evaluated int     `json:"evaluated"`
	CacheHits int     `json:"cacheHits"`
}

// VersionResult represents the result of getVersion.
type VersionResult struct {
	Intcode string `json:"intcode"`
}
