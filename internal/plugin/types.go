// Package plugin provides discovery and execution of external action
// plugins. Plugins are standalone executables receiving a JSON request on
// stdin and answering with a JSON response on stdout; resolved action
// events are dispatched to them fire-and-forget.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Actions      []string        `json:"actions"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is sent to a plugin for execution. Gesture names the classified
// gesture for gesture triggers and is empty for dwell clicks; X/Y carry
// the normalized gaze point when GazeValid is set.
type Request struct {
	Action     string          `json:"action"`
	Trigger    string          `json:"trigger"`
	Gesture    string          `json:"gesture,omitempty"`
	Confidence float64         `json:"confidence,omitempty"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	GazeValid  bool            `json:"gaze_valid"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
