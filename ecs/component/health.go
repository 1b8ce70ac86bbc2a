package component

type Health struct {
	Current int
	Max     int
}

// Apply subtracts damage and clamps to [0, Max].
func (h *Health) Apply(damage int) {
	h.Current -= damage
	if h.Current < 0 {
		h.Current = 0
	}
	if h.Max > 0 && h.Current > h.Max {
		h.Current = h.Max
	}
}

func (h *Health) Dead() bool {
	return h.Current <= 0
}

var HealthComponent = Register[Health]("health",
	Field("current", func(c *Health) int { return c.Current }, func(c *Health, v int) { c.Current = v }),
	Field("max", func(c *Health) int { return c.Max }, func(c *Health, v int) { c.Max = v }),
)
