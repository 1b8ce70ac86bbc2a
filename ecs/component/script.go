package component

// Script attaches a tengo script, run every tick and on collision events.
type Script struct {
	Path string
}

var ScriptComponent = Register[Script]("script",
	Field("path", func(c *Script) string { return c.Path }, func(c *Script, v string) { c.Path = v }),
)
