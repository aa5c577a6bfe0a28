package main

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ayusman/netra/internal/app"
	"github.com/ayusman/netra/internal/config"
	"github.com/ayusman/netra/internal/fusion"
	"github.com/ayusman/netra/internal/perf"
	"github.com/ayusman/netra/internal/server"
	"github.com/ayusman/netra/internal/store"
	"github.com/ayusman/netra/internal/tray"
)

func main() {
	fmt.Println("Netra - Gaze and Gesture Input Controller")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	if err := os.MkdirAll(cfg.Plugins.Dir, 0755); err != nil {
		log.Fatalf("Failed to create plugin directory: %v", err)
	}

	st, err := store.New(cfg.Storage.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	a := app.New(app.Config{
		Store:           st,
		PluginDir:       cfg.Plugins.Dir,
		PluginTimeoutMs: cfg.Plugins.TimeoutMs,
		CameraID:        cfg.Camera.DeviceID,
		Tier:            perf.Tier(cfg.Pipeline.Tier),
		MinConfidence:   cfg.Pipeline.MinConfidence,
		DwellDuration:   time.Duration(cfg.Pipeline.DwellMs) * time.Millisecond,
		CycleTimeout:    time.Duration(cfg.Pipeline.CycleTimeoutMs) * time.Millisecond,
		MotionThreshold: cfg.Pipeline.MotionThreshold,
		ScreenWidth:     cfg.Pipeline.ScreenWidth,
		ScreenHeight:    cfg.Pipeline.ScreenHeight,
	})

	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}
	if err := a.LoadProfiles(); err != nil {
		log.Printf("Failed to load gesture profiles: %v", err)
	}
	if err := a.RestoreCalibration(); err != nil {
		log.Printf("Failed to restore calibration: %v", err)
	}

	// Input starts enabled only when a calibration exists and the user
	// did not disable it last session
	a.RestoreEnabled()

	t := tray.New()
	t.SetEnabled(a.IsEnabled())

	// Installed before server.New so the server can chain its event
	// stream onto the same hook.
	a.OnAction = func(ev *fusion.ActionEvent) {
		if ev.Kind == fusion.KindGesture {
			t.SetLastAction(ev.Gesture)
		} else {
			t.SetLastAction(string(ev.Kind))
		}
	}

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       a,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	settingsURL := fmt.Sprintf("http://%s/", addr)

	go func() {
		fmt.Printf("Starting server on %s\n", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	t.OnToggle(func(enabled bool) {
		a.SetEnabled(enabled)
	})
	t.OnRecalibrate(func() {
		if err := a.Calibration().Begin(); err != nil {
			log.Printf("Failed to start calibration: %v", err)
			return
		}
		openBrowser(settingsURL + "calibrate")
	})
	t.OnSettings(func() {
		openBrowser(settingsURL)
	})
	t.OnQuit(func() {
		a.Stop()
	})

	// Blocks until quit
	t.Run()
}

// findWebDir searches for the settings UI directory in common locations.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".netra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}

// openBrowser opens the given URL in the default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		log.Printf("Open %s in your browser", url)
		return
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Failed to open browser: %v", err)
	}
}
