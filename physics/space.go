package physics

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/common"
	"github.com/milk9111/simcore/config"
	"github.com/milk9111/simcore/ecs"
	"github.com/milk9111/simcore/ecs/component"
	"github.com/milk9111/simcore/log"
)

const collisionTypeTracked cp.CollisionType = 1

const defaultBoxSize = 1.0

// Space adapts a Chipmunk space to World. Contacts are captured from the
// pre-solve handler so sensor and kinematic contacts are reported too.
type Space struct {
	space     *cp.Space
	up        cp.Vector
	manifolds []Manifold
	log       log.Log
}

var _ World = (*Space)(nil)

func NewSpace(cfg config.PhysicsConfig, logger log.Log) *Space {
	if logger == nil {
		logger = log.Nop()
	}
	space := cp.NewSpace()
	space.Iterations = uint(cfg.Iterations)
	gravity := cp.Vector{X: cfg.GravityX, Y: cfg.GravityY}
	space.SetGravity(gravity)

	up := cp.Vector{X: 0, Y: 1}
	if gravity.Length() > 0 {
		up = gravity.Neg().Normalize()
	}

	s := &Space{space: space, up: up, log: logger}
	handler := space.NewCollisionHandler(collisionTypeTracked, collisionTypeTracked)
	handler.UserData = s
	handler.PreSolveFunc = func(arb *cp.Arbiter, space *cp.Space, userData interface{}) bool {
		s, ok := userData.(*Space)
		if !ok || s == nil {
			return true
		}
		s.capture(arb)
		return true
	}
	return s
}

// Native exposes the underlying Chipmunk space.
func (s *Space) Native() *cp.Space {
	if s == nil {
		return nil
	}
	return s.space
}

// Up is the unit vector opposite to gravity.
func (s *Space) Up() common.Vec3 {
	return common.V3(s.up.X, s.up.Y, 0)
}

func (s *Space) Step(dt float64) {
	if s == nil || s.space == nil {
		return
	}
	s.manifolds = nil
	s.space.Step(dt)
}

func (s *Space) Manifolds() []Manifold {
	if s == nil {
		return nil
	}
	return s.manifolds
}

func (s *Space) capture(arb *cp.Arbiter) {
	set := arb.ContactPointSet()
	if set.Count == 0 {
		return
	}
	a, b := arb.Shapes()
	m := Manifold{
		A:      a,
		B:      b,
		Normal: common.V3(set.Normal.X, set.Normal.Y, 0),
		Points: make([]ContactPoint, 0, set.Count),
	}
	for i := 0; i < set.Count; i++ {
		p := set.Points[i]
		m.Points = append(m.Points, ContactPoint{
			PointA:   common.V3(p.PointA.X, p.PointA.Y, 0),
			PointB:   common.V3(p.PointB.X, p.PointB.Y, 0),
			Distance: p.Distance,
		})
	}
	s.manifolds = append(s.manifolds, m)
}

func (s *Space) CollisionObjects(e *ecs.Entity) ([]Handle, bool) {
	if s == nil || e == nil {
		return nil, false
	}
	var handles []Handle
	found := false
	if rb := ecs.Get[component.RigidBody](e); rb != nil {
		found = true
		s.ensureRigidBody(e, rb)
		handles = append(handles, rb.CollisionShapes()...)
	}
	if cc := ecs.Get[component.CharacterController](e); cc != nil {
		found = true
		s.ensureCharacter(e, cc)
		handles = append(handles, cc.CollisionShapes()...)
	}
	return handles, found
}

// ensureRigidBody creates the body and shape for rb on first use.
func (s *Space) ensureRigidBody(e *ecs.Entity, rb *component.RigidBody) {
	if rb.Shape != nil {
		return
	}

	width, height, radius := rb.Width, rb.Height, rb.Radius
	if radius <= 0 && (width <= 0 || height <= 0) {
		width = defaultBoxSize
		height = defaultBoxSize
	}
	center := cp.Vector{X: e.Position.X, Y: e.Position.Y}

	var body *cp.Body
	var shape *cp.Shape
	if rb.Static {
		body = s.space.StaticBody
		if radius > 0 {
			shape = cp.NewCircle(body, radius, center)
		} else {
			bb := cp.BB{L: center.X - width/2, B: center.Y - height/2, R: center.X + width/2, T: center.Y + height/2}
			shape = cp.NewBox2(body, bb, 0)
		}
	} else {
		mass := rb.Mass
		if mass <= 0 {
			mass = 1
		}
		var moment float64
		if radius > 0 {
			moment = cp.MomentForCircle(mass, 0, radius, cp.Vector{})
		} else {
			moment = cp.MomentForBox(mass, width, height)
		}
		body = cp.NewBody(mass, moment)
		body.SetPosition(center)
		body.SetAngle(e.Rotation.AngleZ())
		s.space.AddBody(body)

		if radius > 0 {
			shape = cp.NewCircle(body, radius, cp.Vector{})
		} else {
			shape = cp.NewBox(body, width, height, 0)
		}
	}

	shape.SetFriction(rb.Friction)
	shape.SetElasticity(rb.Elasticity)
	shape.SetSensor(rb.Sensor)
	shape.SetCollisionType(collisionTypeTracked)
	s.space.AddShape(shape)

	rb.Body = body
	rb.Shape = shape
	s.log.Debug("physics: rigid body created",
		log.Uint64("entity", uint64(e.ID())),
		log.Bool("static", rb.Static),
	)
}

func (s *Space) ensureCharacter(e *ecs.Entity, cc *component.CharacterController) {
	if cc.Shape != nil {
		return
	}
	width, height := cc.Width, cc.Height
	if width <= 0 || height <= 0 {
		width = defaultBoxSize
		height = defaultBoxSize
	}

	body := cp.NewKinematicBody()
	body.SetPosition(cp.Vector{X: e.Position.X, Y: e.Position.Y})
	s.space.AddBody(body)

	shape := cp.NewBox(body, width, height, 0)
	shape.SetCollisionType(collisionTypeTracked)
	s.space.AddShape(shape)

	cc.Body = body
	cc.Shape = shape
	s.log.Debug("physics: character body created", log.Uint64("entity", uint64(e.ID())))
}
