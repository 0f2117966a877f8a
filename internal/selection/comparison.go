package selection

import "github.com/roach88/papertrail/internal/model"

// MaxComparison is the size of a complete comparison.
const MaxComparison = 2

// Comparison is an ordered set of at most two entities. Adding a third
// evicts the oldest.
type Comparison[E model.Entity] struct {
	members []E
}

// Toggle removes e if present, otherwise appends it.
func (c *Comparison[E]) Toggle(e E) {
	for i, m := range c.members {
		if m.EntityID() == e.EntityID() {
			c.members = append(c.members[:i:i], c.members[i+1:]...)
			return
		}
	}
	c.members = append(c.members, e)
	if len(c.members) > MaxComparison {
		c.members = append([]E(nil), c.members[len(c.members)-MaxComparison:]...)
	}
}

// Clear empties the set.
func (c *Comparison[E]) Clear() {
	c.members = nil
}

// Len returns the number of members.
func (c *Comparison[E]) Len() int { return len(c.members) }

// Complete reports whether the set holds two members.
func (c *Comparison[E]) Complete() bool { return len(c.members) == MaxComparison }

// Contains reports whether id is a member.
func (c *Comparison[E]) Contains(id int64) bool {
	for _, m := range c.members {
		if m.EntityID() == id {
			return true
		}
	}
	return false
}

// Members returns a copy of the members in insertion order.
func (c *Comparison[E]) Members() []E {
	return append([]E(nil), c.members...)
}

// IDs returns member ids in insertion order.
func (c *Comparison[E]) IDs() []int64 {
	ids := make([]int64, len(c.members))
	for i, m := range c.members {
		ids[i] = m.EntityID()
	}
	return ids
}
