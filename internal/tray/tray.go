// Package tray provides the system tray interface for toggling input
// processing and starting a recalibration.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray is the system tray menu for the Netra controller.
type Tray struct {
	onToggle      func(enabled bool)
	onRecalibrate func()
	onSettings    func()
	onQuit        func()
	enabled       bool
	mu            sync.RWMutex

	// Menu items stored for later updates
	menuToggle     *systray.MenuItem
	menuLastAction *systray.MenuItem
}

// New creates a Tray. Input starts disabled until calibration exists; the
// caller flips the state through SetEnabled once restored.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback for the enable/disable menu item.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRecalibrate sets the callback for the recalibrate menu item.
func (t *Tray) OnRecalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecalibrate = fn
}

// OnSettings sets the callback for the settings menu item.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback for the quit menu item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray. Blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("Netra")
	systray.SetTooltip("Netra gaze and gesture input")

	t.mu.Lock()
	enabled := t.enabled
	t.mu.Unlock()

	if enabled {
		t.menuToggle = systray.AddMenuItem("● Enabled", "Toggle input processing")
	} else {
		t.menuToggle = systray.AddMenuItem("○ Disabled", "Toggle input processing")
	}
	systray.AddSeparator()

	t.menuLastAction = systray.AddMenuItem("Last: none", "Last dispatched action")
	t.menuLastAction.Disable()
	systray.AddSeparator()

	menuRecalibrate := systray.AddMenuItem("Recalibrate...", "Run the gaze calibration")
	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Netra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRecalibrate.ClickedCh:
				t.handleRecalibrate()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
}

func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if enabled {
		t.menuToggle.SetTitle("● Enabled")
	} else {
		t.menuToggle.SetTitle("○ Disabled")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleRecalibrate() {
	t.mu.RLock()
	callback := t.onRecalibrate
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastAction updates the last action display in the menu.
func (t *Tray) SetLastAction(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastAction != nil {
		if name == "" {
			t.menuLastAction.SetTitle("Last: none")
		} else {
			t.menuLastAction.SetTitle("Last: " + name)
		}
	}
}

// SetEnabled sets the displayed enabled state without firing the callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		if enabled {
			t.menuToggle.SetTitle("● Enabled")
		} else {
			t.menuToggle.SetTitle("○ Disabled")
		}
	}
}

// IsEnabled returns the current displayed enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
