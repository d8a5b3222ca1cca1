package aggregate

import "lendingScope/internal/model"

// CycleCache holds working copies of obligations for a single resolution.
// It is created empty and discarded when the resolution ends; nothing in it
// survives into the next cycle.
type CycleCache struct {
	parents map[string]*model.Obligation
	order   []string
}

func NewCycleCache() *CycleCache {
	return &CycleCache{parents: make(map[string]*model.Obligation)}
}

// Get returns the working copy for id.
func (c *CycleCache) Get(id string) (*model.Obligation, bool) {
	o, ok := c.parents[id]
	return o, ok
}

// Put stores a private copy of o and returns it.
func (c *CycleCache) Put(o model.Obligation) *model.Obligation {
	if _, ok := c.parents[o.ID]; !ok {
		c.order = append(c.order, o.ID)
	}
	working := o.Clone()
	c.parents[o.ID] = &working
	return &working
}

// Len returns the number of working copies.
func (c *CycleCache) Len() int {
	return len(c.order)
}

// Snapshot returns copies of all working copies in first-touch order.
func (c *CycleCache) Snapshot() []model.Obligation {
	out := make([]model.Obligation, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.parents[id].Clone())
	}
	return out
}

// Discard drops every working copy.
func (c *CycleCache) Discard() {
	c.parents = make(map[string]*model.Obligation)
	c.order = nil
}
