package main

import (
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/log"
	"github.com/milk9111/simcore/physics"
)

// hazardRules damages entities touching a hazard: once on contact, then every
// Cooldown ticks while the contact persists.
type hazardRules struct {
	world   *ecs.World
	layer   *physics.CollisionLayer
	log     log.Log
	lastHit map[ecs.EntityID]uint64
}

func newHazardRules(world *ecs.World, layer *physics.CollisionLayer, logger log.Log) *hazardRules {
	r := &hazardRules{
		world:   world,
		layer:   layer,
		log:     logger,
		lastHit: make(map[ecs.EntityID]uint64),
	}
	world.Entities().OnDestroy(func(e *ecs.Entity) {
		delete(r.lastHit, e.ID())
	})
	return r
}

// Watch registers damage callbacks for target against hazard.
func (r *hazardRules) Watch(target, hazard *ecs.Entity) error {
	if err := r.layer.RegisterCollisionBeginCallback(target, hazard, func(a, b *ecs.Entity) {
		r.hit(a, b)
	}); err != nil {
		return err
	}
	if err := r.layer.RegisterCollisionCallback(target, hazard, func(a, b *ecs.Entity) {
		h := ecs.Get[component.Hazard](b)
		if h == nil || h.Cooldown <= 0 {
			return
		}
		if r.world.Ticks()-r.lastHit[a.ID()] >= uint64(h.Cooldown) {
			r.hit(a, b)
		}
	}); err != nil {
		return err
	}
	return r.layer.RegisterCollisionEndCallback(target, hazard, func(a, b *ecs.Entity) {
		r.log.Debug("left hazard", log.Uint64("entity", uint64(a.ID())))
	})
}

func (r *hazardRules) hit(victim, source *ecs.Entity) {
	h := ecs.Get[component.Hazard](source)
	health := ecs.Get[component.Health](victim)
	if h == nil || health == nil || health.Dead() {
		return
	}
	r.lastHit[victim.ID()] = r.world.Ticks()
	health.Apply(h.Damage)
	r.log.Info("hazard hit",
		log.Uint64("entity", uint64(victim.ID())),
		log.Int("damage", h.Damage),
		log.Int("health", health.Current),
	)
	if health.Dead() {
		r.world.Entities().Erase(victim.ID())
	}
}
