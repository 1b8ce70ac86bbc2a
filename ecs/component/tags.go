package component

// Label gives an entity a human-readable name for scripts and logs.
type Label struct {
	Name string
}

var LabelComponent = Register[Label]("label",
	Field("name", func(c *Label) string { return c.Name }, func(c *Label, v string) { c.Name = v }),
)

type PlayerTag struct{}

var PlayerTagComponent = Register[PlayerTag]("player_tag")
