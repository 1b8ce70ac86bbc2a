package component

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/simcore/common"
)

// CharacterController is a kinematic box moved by velocity rather than forces.
type CharacterController struct {
	Body  *cp.Body
	Shape *cp.Shape

	Width    float64
	Height   float64
	Velocity common.Vec3
	// Grounded is written by the physics system from contact normals.
	Grounded bool
}

func (cc *CharacterController) CollisionShapes() []*cp.Shape {
	if cc == nil || cc.Shape == nil {
		return nil
	}
	return []*cp.Shape{cc.Shape}
}

func (cc *CharacterController) Destroy() {
	releaseShape(cc.Body, cc.Shape)
	cc.Body = nil
	cc.Shape = nil
}

var CharacterControllerComponent = Register[CharacterController]("character_controller",
	Field("width", func(c *CharacterController) float64 { return c.Width }, func(c *CharacterController, v float64) { c.Width = v }),
	Field("height", func(c *CharacterController) float64 { return c.Height }, func(c *CharacterController, v float64) { c.Height = v }),
	Field("velocity", func(c *CharacterController) common.Vec3 { return c.Velocity }, func(c *CharacterController, v common.Vec3) { c.Velocity = v }),
	Field[CharacterController, bool]("grounded", func(c *CharacterController) bool { return c.Grounded }, nil),
)
