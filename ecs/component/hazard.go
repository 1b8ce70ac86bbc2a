package component

// Hazard deals damage to whatever it collides with.
type Hazard struct {
	Damage int
	// Cooldown is the number of ticks between repeated hits while contact persists.
	Cooldown int
}

var HazardComponent = Register[Hazard]("hazard",
	Field("damage", func(c *Hazard) int { return c.Damage }, func(c *Hazard, v int) { c.Damage = v }),
	Field("cooldown", func(c *Hazard) int { return c.Cooldown }, func(c *Hazard, v int) { c.Cooldown = v }),
)
