package script

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/simcore/ecs"
)

// Phases passed to scripts in the `phase` global besides collision event types.
const (
	PhaseInit   = "init"
	PhaseUpdate = "update"
)

// Runner is one compiled script with its own persistent `state` map. Every
// run re-executes the script body with fresh phase, self, other and dt
// globals.
type Runner struct {
	name     string
	compiled *tengo.Compiled
	state    *tengo.Map
}

// Compile builds a runner for src with the bridge bound as `engine`.
func Compile(name string, src []byte, bridge *Bridge) (*Runner, error) {
	script := tengo.NewScript(src)
	_ = script.Add("phase", "")
	_ = script.Add("self", 0)
	_ = script.Add("other", 0)
	_ = script.Add("dt", 0.0)
	_ = script.Add("state", map[string]any{})
	_ = script.Add("engine", bridge.Module())

	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", name, err)
	}
	return &Runner{
		name:     name,
		compiled: compiled,
		state:    &tengo.Map{Value: map[string]tengo.Object{}},
	}, nil
}

func (r *Runner) Name() string {
	return r.name
}

// Run executes the script once for self. other is zero outside collision phases.
func (r *Runner) Run(phase string, self, other ecs.EntityID, dt float64) error {
	if r == nil || r.compiled == nil {
		return fmt.Errorf("script: nil runner")
	}
	if err := r.compiled.Set("phase", phase); err != nil {
		return err
	}
	if err := r.compiled.Set("self", int64(self)); err != nil {
		return err
	}
	if err := r.compiled.Set("other", int64(other)); err != nil {
		return err
	}
	if err := r.compiled.Set("dt", dt); err != nil {
		return err
	}
	if err := r.compiled.Set("state", r.state); err != nil {
		return err
	}
	if err := r.compiled.Run(); err != nil {
		return fmt.Errorf("script: %s %s: %w", r.name, phase, err)
	}
	return nil
}

// State returns the script's persistent state as plain Go values.
func (r *Runner) State() map[string]any {
	out := make(map[string]any, len(r.state.Value))
	for k, v := range r.state.Value {
		out[k] = objectToAny(v)
	}
	return out
}

// Global returns the value a top-level script variable held after the last run.
func (r *Runner) Global(name string) any {
	if !r.compiled.IsDefined(name) {
		return nil
	}
	return r.compiled.Get(name).Value()
}
