package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/cellarena/components"
)

// Roster exposes the entity store's bookkeeping to the systems.
// Slices returned are owned by the store and valid until its next commit.
type Roster interface {
	// Live returns every live entity in ascending serial order.
	Live() []ecs.Entity
	// Groups returns the owner groups that have at least one fragment, ascending.
	Groups() []components.GroupID
	// Members returns the fragments of a group in ascending serial order.
	Members(g components.GroupID) []ecs.Entity
	// Count returns the number of live entities of the given kind.
	Count(k components.Kind) int
}
