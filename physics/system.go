package physics

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
)

const groundNormalThreshold = 0.5

// PhysicsSystem syncs physics components into the space, steps it, runs the
// collision layer and writes body state back to entity transforms.
type PhysicsSystem struct {
	space *Space
	layer *CollisionLayer

	characters map[*cp.Shape]*component.CharacterController
}

var _ ecs.System = (*PhysicsSystem)(nil)

func NewPhysicsSystem(space *Space, layer *CollisionLayer) *PhysicsSystem {
	return &PhysicsSystem{
		space:      space,
		layer:      layer,
		characters: make(map[*cp.Shape]*component.CharacterController),
	}
}

func (ps *PhysicsSystem) Space() *Space {
	if ps == nil {
		return nil
	}
	return ps.space
}

func (ps *PhysicsSystem) Layer() *CollisionLayer {
	if ps == nil {
		return nil
	}
	return ps.layer
}

func (ps *PhysicsSystem) Update(w *ecs.World, dt float64) {
	if ps == nil || ps.space == nil || w == nil {
		return
	}

	ps.syncEntities(w)
	ps.space.Step(dt)
	ps.syncTransforms(w)

	manifolds := ps.space.Manifolds()
	ps.updateGrounded(manifolds)
	if ps.layer != nil {
		ps.layer.AttachEvents(w.Events())
		ps.layer.Process(manifolds)
	}
}

// syncEntities creates missing bodies and drives character controllers.
func (ps *PhysicsSystem) syncEntities(w *ecs.World) {
	clear(ps.characters)
	for _, e := range w.Entities().Entities() {
		if rb := ecs.Get[component.RigidBody](e); rb != nil {
			ps.space.ensureRigidBody(e, rb)
		}
		cc := ecs.Get[component.CharacterController](e)
		if cc == nil {
			continue
		}
		ps.space.ensureCharacter(e, cc)
		cc.Body.SetVelocity(cc.Velocity.X, cc.Velocity.Y)
		cc.Grounded = false
		ps.characters[cc.Shape] = cc
	}
}

// syncTransforms copies simulated body state into entity transforms. Static
// bodies never move and are skipped.
func (ps *PhysicsSystem) syncTransforms(w *ecs.World) {
	for _, e := range w.Entities().Entities() {
		if rb := ecs.Get[component.RigidBody](e); rb != nil && rb.Body != nil && !rb.Static {
			writeBack(e, rb.Body)
			continue
		}
		if cc := ecs.Get[component.CharacterController](e); cc != nil && cc.Body != nil {
			writeBack(e, cc.Body)
		}
	}
}

func writeBack(e *ecs.Entity, body *cp.Body) {
	pos := body.Position()
	e.Position.X = pos.X
	e.Position.Y = pos.Y
	e.Rotation = common.QuatFromAngleZ(body.Angle())
}

// updateGrounded marks characters standing on something, judged by contact
// normals pointing against gravity.
func (ps *PhysicsSystem) updateGrounded(manifolds []Manifold) {
	if len(ps.characters) == 0 {
		return
	}
	up := ps.space.Up()
	for _, m := range manifolds {
		if !m.Touching() {
			continue
		}
		// the normal points from A to B, so a character on top of B sees it
		// pointing down
		along := m.Normal.X*up.X + m.Normal.Y*up.Y
		if cc, ok := ps.characters[m.A]; ok && along < -groundNormalThreshold {
			cc.Grounded = true
		}
		if cc, ok := ps.characters[m.B]; ok && along > groundNormalThreshold {
			cc.Grounded = true
		}
	}
}
