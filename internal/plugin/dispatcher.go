package plugin

import (
	"encoding/json"
	"log"

	"github.com/ayusman/netra/internal/fusion"
	"github.com/ayusman/netra/internal/store"
)

// Dispatcher routes resolved action events to their bound plugins.
// Delivery is fire-and-forget: execution failures are logged, never
// propagated back into the pipeline.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	actions  *store.ActionRepository
	// DefaultConfig is passed to plugins whose binding carries no config
	// of its own. Carries the screen size for gaze denormalization.
	DefaultConfig json.RawMessage
}

// NewDispatcher creates a Dispatcher over discovered plugins and the
// persisted action bindings.
func NewDispatcher(manager *Manager, executor *Executor, actions *store.ActionRepository) *Dispatcher {
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		actions:  actions,
	}
}

// Dispatch resolves the event's trigger to a binding and executes the
// bound plugin. Unbound or disabled triggers are silently skipped.
func (d *Dispatcher) Dispatch(ev *fusion.ActionEvent) {
	if ev == nil {
		return
	}

	trigger := store.TriggerDwellClick
	if ev.Kind == fusion.KindGesture {
		trigger = ev.Gesture
	}

	binding, err := d.actions.GetByTrigger(trigger)
	if err != nil {
		log.Printf("Action lookup failed for trigger %q: %v", trigger, err)
		return
	}
	if binding == nil || !binding.Enabled {
		return
	}

	p, err := d.manager.Get(binding.PluginName)
	if err != nil {
		log.Printf("Plugin %q not found for trigger %q", binding.PluginName, trigger)
		return
	}

	cfg := binding.Config
	if len(cfg) == 0 {
		cfg = d.DefaultConfig
	}

	req := &Request{
		Action:     binding.ActionName,
		Trigger:    trigger,
		Gesture:    ev.Gesture,
		Confidence: ev.Confidence,
		X:          ev.X,
		Y:          ev.Y,
		GazeValid:  ev.GazeValid,
		Config:     cfg,
	}

	resp, err := d.executor.Execute(p, req)
	if err != nil {
		log.Printf("Plugin %q action %q failed: %v", binding.PluginName, binding.ActionName, err)
		return
	}
	if !resp.Success {
		log.Printf("Plugin %q action %q reported error: %s", binding.PluginName, binding.ActionName, resp.Error)
	}
}
