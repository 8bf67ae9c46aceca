package archive

import (
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// DefaultExcludedSingleton is the one structure kept out of archives by
// policy: it regenerates fresh with the region instead of freezing.
const DefaultExcludedSingleton = "ancient_monolith"

// Eligibility decides which live entities belong in a region archive. The
// same predicate runs as the save-time filter and as the load-time wipe
// filter, so it must stay pure and side-effect free.
type Eligibility struct {
	World *region.World

	// Def name excluded by policy; empty means DefaultExcludedSingleton.
	ExcludedSingletonDef string
}

func (c Eligibility) excludedDef() string {
	if c.ExcludedSingletonDef != "" {
		return c.ExcludedSingletonDef
	}
	return DefaultExcludedSingleton
}

// ShouldPersist reports whether the entity is archived with the region.
// Wildlife and corpses of any category persist; humanlike agents leave via
// normal travel, tracked creatures would collide on restore, and transient
// kinds cannot survive a session boundary.
func (c Eligibility) ShouldPersist(e *region.Entity) bool {
	if e == nil || e.Destroyed || !e.Spawned {
		return false
	}
	switch e.Kind {
	case region.KindBlueprint, region.KindEffect, region.KindProjectile:
		return false
	}
	// Corpses archive regardless of who they were; only living humanlike
	// agents leave by other means.
	if e.Humanlike && e.Kind != region.KindCorpse {
		return false
	}
	if c.World != nil && c.World.IsTracked(e.ID) {
		return false
	}
	if e.Def == c.excludedDef() {
		return false
	}
	if e.Container {
		// Occupant extraction runs before the entity list is captured, so a
		// container still holding a tracked occupant here means extraction
		// has not reached it; refusing it is the safe answer.
		for _, o := range e.Occupants {
			if o != nil && c.World != nil && c.World.IsTracked(o.ID) {
				return false
			}
			if o != nil && o.Humanlike && o.Kind != region.KindCorpse && !o.Destroyed {
				return false
			}
		}
	}
	return true
}
