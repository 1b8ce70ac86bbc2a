package physics

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/ecs"
)

// Handle is a native collision object. The collision layer keys its entity
// tags by handle and never dereferences it.
type Handle = *cp.Shape

// ContactPoint is one contact between the two objects of a manifold.
type ContactPoint struct {
	PointA common.Vec3
	PointB common.Vec3
	// Distance is negative while the objects interpenetrate.
	Distance float64
}

// Manifold is the contact set between two collision objects for one step.
// Normal points from A to B.
type Manifold struct {
	A      Handle
	B      Handle
	Normal common.Vec3
	Points []ContactPoint
}

// Touching reports whether any contact point actually interpenetrates.
func (m Manifold) Touching() bool {
	for _, p := range m.Points {
		if p.Distance < 0 {
			return true
		}
	}
	return false
}

// World is the physics backend consumed by the collision layer.
type World interface {
	Step(dt float64)
	// Manifolds returns the contacts produced by the last Step.
	Manifolds() []Manifold
	// CollisionObjects returns the native objects backing e, creating them if
	// the entity's physics component has not been synced yet. ok is false when
	// the entity has no physics representation at all.
	CollisionObjects(e *ecs.Entity) (handles []Handle, ok bool)
}
