package system

// SimClock is the logical tick counter for the simulation loop. The main
// loop advances it once per tick; the registries read it at creation time.
type SimClock struct {
	tick uint64
}

func NewSimClock() *SimClock { return &SimClock{} }

func (c *SimClock) Advance()            { c.tick++ }
func (c *SimClock) CurrentTick() uint64 { return c.tick }
