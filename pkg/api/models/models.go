package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	NotificationToolStarted      = "tools.started"
	NotificationToolStopped      = "tools.stopped"
	NotificationSettingsReloaded = "settings.reloaded"
)

const (
	MethodVersion      = "version"
	MethodToolsRunning = "tools.running"
	MethodSessions     = "sessions"
)

type Notification struct {
	Params any
	Method string
}

type RequestObject struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uuid.UUID      `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResponseObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      uuid.UUID    `json:"id"`
	Result  any          `json:"result"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// ResponseErrorObject exists for sending errors, so we can omit result from
// the response, but so nil responses are still returned when using the main
// ResponseObject.
type ResponseErrorObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      uuid.UUID    `json:"id"`
	Error   *ErrorObject `json:"error"`
}

type ToolStartedParams struct {
	Path      string `json:"path"`
	PID       int    `json:"pid"`
	Exclusive bool   `json:"exclusive"`
}

type ToolStoppedParams struct {
	Path string `json:"path"`
}

type RunningTool struct {
	Path      string `json:"path"`
	PID       int    `json:"pid"`
	Exclusive bool   `json:"exclusive"`
}

type VersionResponse struct {
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

type SessionResponse struct {
	StartedAt time.Time  `json:"startedAt"`
	StoppedAt *time.Time `json:"stoppedAt,omitempty"`
	Path      string     `json:"path"`
	PID       int        `json:"pid"`
}
