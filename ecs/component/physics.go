package component

import "github.com/jakecoffman/cp"

// RigidBody stores Chipmunk2D runtime data and collider configuration. Body
// and Shape are created by the physics system on first sync.
type RigidBody struct {
	Body  *cp.Body
	Shape *cp.Shape

	Width      float64
	Height     float64
	Radius     float64
	Mass       float64
	Friction   float64
	Elasticity float64
	Static     bool
	Sensor     bool
}

// CollisionShapes returns the native collision objects backing this body.
func (rb *RigidBody) CollisionShapes() []*cp.Shape {
	if rb == nil || rb.Shape == nil {
		return nil
	}
	return []*cp.Shape{rb.Shape}
}

// Destroy removes the body and shape from their space.
func (rb *RigidBody) Destroy() {
	releaseShape(rb.Body, rb.Shape)
	rb.Body = nil
	rb.Shape = nil
}

var RigidBodyComponent = Register[RigidBody]("rigid_body",
	Field("width", func(c *RigidBody) float64 { return c.Width }, func(c *RigidBody, v float64) { c.Width = v }),
	Field("height", func(c *RigidBody) float64 { return c.Height }, func(c *RigidBody, v float64) { c.Height = v }),
	Field("radius", func(c *RigidBody) float64 { return c.Radius }, func(c *RigidBody, v float64) { c.Radius = v }),
	Field("mass", func(c *RigidBody) float64 { return c.Mass }, func(c *RigidBody, v float64) { c.Mass = v }),
	Field("friction", func(c *RigidBody) float64 { return c.Friction }, func(c *RigidBody, v float64) { c.Friction = v }),
	Field("elasticity", func(c *RigidBody) float64 { return c.Elasticity }, func(c *RigidBody, v float64) { c.Elasticity = v }),
	Field("static", func(c *RigidBody) bool { return c.Static }, func(c *RigidBody, v bool) { c.Static = v }),
	Field("sensor", func(c *RigidBody) bool { return c.Sensor }, func(c *RigidBody, v bool) { c.Sensor = v }),
)

func releaseShape(body *cp.Body, shape *cp.Shape) {
	if shape == nil {
		return
	}
	space := shape.Space()
	if space == nil {
		return
	}
	space.RemoveShape(shape)
	if body != nil && body != space.StaticBody && space.ContainsBody(body) {
		space.RemoveBody(body)
	}
}
