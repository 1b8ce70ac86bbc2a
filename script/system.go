package script

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/log"
	"github.com/milk9111/simcore/physics"
	"github.com/milk9111/simcore/prefabs"
)

type runtime struct {
	path   string
	runner *Runner
	failed bool
}

// System runs the script of every entity holding a Script component once per
// tick, and again for each collision event the entity takes part in. It must
// be scheduled after the physics system to see that tick's collisions.
type System struct {
	bridge  *Bridge
	dir     string
	scripts map[ecs.EntityID]*runtime
	tagger  Tagger
	log     log.Log
}

var _ ecs.System = (*System)(nil)

// Tagger makes an entity's collision objects report contacts. The physics
// collision layer implements it.
type Tagger interface {
	Tag(e *ecs.Entity) error
}

type SystemOption func(*System)

// WithTagger tags every scripted entity that has a physics body when its
// script is first loaded, so its collisions reach the script.
func WithTagger(t Tagger) SystemOption {
	return func(s *System) {
		s.tagger = t
	}
}

// NewSystem loads script sources from dir on disk, falling back to the
// embedded scripts.
func NewSystem(entities *ecs.EntityManager, bridge *Bridge, dir string, logger log.Log, opts ...SystemOption) *System {
	if logger == nil {
		logger = log.Nop()
	}
	s := &System{
		bridge:  bridge,
		dir:     dir,
		scripts: make(map[ecs.EntityID]*runtime),
		log:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	entities.OnDestroy(func(e *ecs.Entity) {
		delete(s.scripts, e.ID())
	})
	return s
}

func (s *System) Update(w *ecs.World, dt float64) {
	if s == nil || w == nil {
		return
	}

	for _, e := range ecs.Query(w.Entities(), component.ScriptComponent.ID()) {
		rt := s.runtimeFor(e)
		if rt == nil {
			continue
		}
		if err := rt.runner.Run(PhaseUpdate, e.ID(), 0, dt); err != nil {
			s.log.Error("script: update failed", log.Uint64("entity", uint64(e.ID())), log.Error(err))
		}
	}

	for _, evt := range w.Events().Peek() {
		ce, ok := evt.Data.(physics.CollisionEvent)
		if !ok {
			continue
		}
		s.runCollision(w, evt.Type, ce.A, ce.B, dt)
		s.runCollision(w, evt.Type, ce.B, ce.A, dt)
	}
}

func (s *System) runCollision(w *ecs.World, phase string, self, other ecs.EntityID, dt float64) {
	e := w.Entities().Resolve(self)
	if e == nil || !e.HasComponent(component.ScriptComponent.ID()) {
		return
	}
	rt := s.runtimeFor(e)
	if rt == nil {
		return
	}
	if err := rt.runner.Run(phase, self, other, dt); err != nil {
		s.log.Error("script: collision handler failed",
			log.Uint64("entity", uint64(self)),
			log.String("phase", phase),
			log.Error(err),
		)
	}
}

// runtimeFor compiles the entity's script on first use or after its path
// changes. A script that fails to compile is not retried until the path changes.
func (s *System) runtimeFor(e *ecs.Entity) *runtime {
	sc := ecs.Get[component.Script](e)
	if sc == nil || sc.Path == "" {
		return nil
	}
	rt := s.scripts[e.ID()]
	if rt != nil && rt.path == sc.Path {
		if rt.failed {
			return nil
		}
		return rt
	}

	rt = &runtime{path: sc.Path}
	s.scripts[e.ID()] = rt

	src, err := prefabs.LoadScript(s.dir, sc.Path)
	if err != nil {
		rt.failed = true
		s.log.Error("script: load failed", log.String("path", sc.Path), log.Error(err))
		return nil
	}
	runner, err := Compile(sc.Path, src, s.bridge)
	if err != nil {
		rt.failed = true
		s.log.Error("script: compile failed", log.String("path", sc.Path), log.Error(err))
		return nil
	}
	rt.runner = runner
	s.tag(e)
	if err := runner.Run(PhaseInit, e.ID(), 0, 0); err != nil {
		s.log.Error("script: init failed", log.Uint64("entity", uint64(e.ID())), log.Error(err))
	}
	return rt
}

func (s *System) tag(e *ecs.Entity) {
	if s.tagger == nil {
		return
	}
	if !e.HasComponent(component.RigidBodyComponent.ID()) && !e.HasComponent(component.CharacterControllerComponent.ID()) {
		return
	}
	if err := s.tagger.Tag(e); err != nil {
		s.log.Warn("script: entity not tagged for collisions", log.Uint64("entity", uint64(e.ID())), log.Error(err))
	}
}

// Invalidate drops every loaded runtime of the script at path, including ones
// that failed to load. They are compiled again on their next run and start
// over with init and an empty state. It returns how many were dropped.
func (s *System) Invalidate(path string) int {
	name := prefabs.ScriptName(path)
	dropped := 0
	for id, rt := range s.scripts {
		if prefabs.ScriptName(rt.path) == name {
			delete(s.scripts, id)
			dropped++
		}
	}
	if dropped > 0 {
		s.log.Info("script: reloading", log.String("script", name), log.Int("runtimes", dropped))
	}
	return dropped
}

// Runner returns the compiled script of id, if one has been loaded.
func (s *System) Runner(id ecs.EntityID) *Runner {
	rt := s.scripts[id]
	if rt == nil {
		return nil
	}
	return rt.runner
}
