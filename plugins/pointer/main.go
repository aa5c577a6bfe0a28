// Package main provides a pointer plugin: it moves the cursor to the gaze
// point and performs clicks. Uses cliclick on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action     string          `json:"action"`
	Trigger    string          `json:"trigger"`
	Gesture    string          `json:"gesture"`
	Confidence float64         `json:"confidence"`
	X          float64         `json:"x"`
	Y          float64         `json:"y"`
	GazeValid  bool            `json:"gaze_valid"`
	Config     json.RawMessage `json:"config"`
	Params     json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ScreenConfig carries the physical screen size used to denormalize gaze
// coordinates.
type ScreenConfig struct {
	Width  int `json:"screen_width"`
	Height int `json:"screen_height"`
}

const (
	defaultScreenWidth  = 1920
	defaultScreenHeight = 1080
)

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	screen := ScreenConfig{Width: defaultScreenWidth, Height: defaultScreenHeight}
	if len(req.Config) > 0 {
		json.Unmarshal(req.Config, &screen)
	}

	px := int(req.X * float64(screen.Width))
	py := int(req.Y * float64(screen.Height))

	var err error
	switch req.Action {
	case "move":
		if !req.GazeValid {
			writeErrorResponse("no valid gaze point for move")
			return
		}
		err = movePointer(px, py)
	case "left_click", "right_click", "double_click":
		if req.GazeValid {
			if err = movePointer(px, py); err != nil {
				writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
				return
			}
		}
		err = click(req.Action)
	default:
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	if err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}
	writeSuccessResponse()
}

// movePointer warps the cursor to absolute screen coordinates.
func movePointer(x, y int) error {
	switch runtime.GOOS {
	case "darwin":
		return run("cliclick", fmt.Sprintf("m:%d,%d", x, y))
	case "linux":
		return run("xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y))
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// click performs a mouse click at the current cursor position.
func click(action string) error {
	switch runtime.GOOS {
	case "darwin":
		cmd := map[string]string{
			"left_click":   "c:.",
			"right_click":  "rc:.",
			"double_click": "dc:.",
		}[action]
		return run("cliclick", cmd)
	case "linux":
		button := map[string]string{
			"left_click":   "1",
			"right_click":  "3",
			"double_click": "1",
		}[action]
		args := []string{"click", button}
		if action == "double_click" {
			args = []string{"click", "--repeat", "2", button}
		}
		return run("xdotool", args...)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	resp := Response{
		Success: false,
		Error:   errMsg,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	resp := Response{
		Success: true,
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
