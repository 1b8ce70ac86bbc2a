package main

import (
	"fmt"

	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/log"
	"github.com/milk9111/simcore/physics"
	"github.com/milk9111/simcore/prefabs"
	"github.com/milk9111/simcore/script"
)

type simulation struct {
	cfg     config.Config
	log     log.Log
	library *prefabs.Library
	world   *ecs.World
	layer   *physics.CollisionLayer
	scripts *script.System
	rules   *hazardRules
	watcher *prefabs.Watcher
}

func newSimulation(cfg config.Config, logger log.Log) (*simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	library := prefabs.NewLibrary(prefabs.WithDir(cfg.Prefabs.Dir), prefabs.WithLogger(logger))
	if err := library.LoadAll(); err != nil {
		return nil, err
	}

	entities := ecs.NewEntityManager(ecs.WithTemplates(library))
	world := ecs.NewWorld(entities)
	space := physics.NewSpace(cfg.Physics, logger)
	layer := physics.NewCollisionLayer(space, entities,
		physics.WithLayerLogger(logger),
		physics.WithEvents(world.Events()),
	)

	scripts := script.NewSystem(entities, script.NewBridge(entities, logger), cfg.Prefabs.Dir, logger,
		script.WithTagger(layer),
	)
	world.AddSystem(physics.NewPhysicsSystem(space, layer))
	world.AddSystem(scripts)
	world.AddSystem(ecs.SystemFunc(logEvents(logger)))

	s := &simulation{
		cfg:     cfg,
		log:     logger,
		library: library,
		world:   world,
		layer:   layer,
		scripts: scripts,
		rules:   newHazardRules(world, layer, logger),
	}

	if cfg.Prefabs.Watch && cfg.Prefabs.Dir != "" {
		w, err := prefabs.NewWatcher(cfg.Prefabs.Dir)
		if err != nil {
			return nil, fmt.Errorf("watch %s: %w", cfg.Prefabs.Dir, err)
		}
		s.watcher = w
	}

	if err := s.populate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// populate builds the default scene: a floor, the player walking towards a
// strip of spikes and a scripted patroller walking into a crate.
func (s *simulation) populate() error {
	spawn := func(name string, x, y float64) (*ecs.Entity, error) {
		e, err := s.world.Entities().EmplaceTemplate(name, common.V3(x, y, 0), common.Identity(), common.One)
		if err != nil {
			return nil, fmt.Errorf("spawn %s: %w", name, err)
		}
		return e, nil
	}

	if _, err := spawn("ground", 0, 0); err != nil {
		return err
	}
	player, err := spawn("player", -6, 1.4)
	if err != nil {
		return err
	}
	spikes, err := spawn("spikes", 0, 0.75)
	if err != nil {
		return err
	}
	if _, err := spawn("patroller", 6, 1); err != nil {
		return err
	}
	crate, err := spawn("crate", 9, 1)
	if err != nil {
		return err
	}
	// the patroller's script turns around on contact with the crate
	if err := s.layer.Tag(crate); err != nil {
		return err
	}

	return s.rules.Watch(player, spikes)
}

func (s *simulation) Run(ticks int) error {
	step := s.cfg.Physics.TimeStep
	for i := 0; i < ticks; i++ {
		s.pollPrefabs()
		s.world.Tick(step)
		if s.playerGone() {
			s.log.Info("player destroyed", log.Uint64("tick", s.world.Ticks()))
			break
		}
	}
	s.log.Info("simulation finished",
		log.Uint64("ticks", s.world.Ticks()),
		log.Int("entities", s.world.Entities().Len()),
		log.Int("open_episodes", s.layer.OpenEpisodes()),
	)
	return nil
}

func (s *simulation) playerGone() bool {
	return len(ecs.Query(s.world.Entities(), component.PlayerTagComponent.ID())) == 0
}

// pollPrefabs applies pending template and script edits between ticks
// without blocking.
func (s *simulation) pollPrefabs() {
	if s.watcher == nil {
		return
	}
	for {
		select {
		case change, ok := <-s.watcher.Events:
			if !ok {
				s.watcher = nil
				return
			}
			s.apply(change)
		case err, ok := <-s.watcher.Errors:
			if ok {
				s.log.Warn("prefab watcher error", log.Error(err))
			}
		default:
			return
		}
	}
}

func (s *simulation) apply(change prefabs.Change) {
	switch change.Kind {
	case prefabs.ChangeTemplate:
		if _, err := s.library.Reload(change.Path); err != nil {
			s.log.Warn("template reload rejected", log.String("path", change.Path), log.Error(err))
		}
	case prefabs.ChangeScript:
		s.scripts.Invalidate(change.Path)
	}
}

func (s *simulation) Close() {
	if s.watcher != nil {
		_ = s.watcher.Close()
		s.watcher = nil
	}
	s.world.Entities().Clear()
}

func logEvents(logger log.Log) func(w *ecs.World, dt float64) {
	return func(w *ecs.World, dt float64) {
		for _, evt := range w.Events().Peek() {
			ce, ok := evt.Data.(physics.CollisionEvent)
			if !ok {
				continue
			}
			logger.Debug(evt.Type,
				log.Uint64("a", uint64(ce.A)),
				log.Uint64("b", uint64(ce.B)),
				log.Uint64("tick", w.Ticks()),
			)
		}
	}
}
