package archive

import (
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// HeldRef points at an entity parked in the world-level holding area,
// together with the cell it should return to on restore and the affiliation
// to put back if the holding period stripped it.
type HeldRef struct {
	ID      string       `json:"id"`
	Pos     region.Vec2i `json:"pos"`
	Faction string       `json:"faction,omitempty"`
}

// SideRegistry is the per-region holding record for entities extracted
// before archiving because deep-archiving them would collide with identities
// the world already tracks elsewhere.
type SideRegistry struct {
	RegionID string `json:"region_id"`

	// Player-affiliated entities pulled from sleep containers.
	Sleeping []HeldRef `json:"sleeping,omitempty"`
	// Non-player container occupants.
	ContainerOccupants []HeldRef `json:"container_occupants,omitempty"`
	// Player-affiliated non-human entities extracted while standing free.
	OwnedAnimals []HeldRef `json:"owned_animals,omitempty"`

	// World-tracked creatures are owned outright by the registry; this is
	// the only place their data lives while the region is inactive.
	Tracked []*TrackedCreature `json:"tracked,omitempty"`

	// Backward-compatibility scaffolding: older archives parked every
	// occupant in one undifferentiated list. Drained after the typed lists
	// with the same fallback placement rules.
	Legacy []HeldRef `json:"legacy,omitempty"`
}

// TrackedCreature carries the full state of a world-tracked creature across
// the inactive period. The entity serializes with the registry so the world
// session can persist it across host restarts.
type TrackedCreature struct {
	Entity *region.Entity `json:"entity"`
	Pos    region.Vec2i   `json:"pos"`
}

func (s *SideRegistry) Empty() bool {
	return len(s.Sleeping) == 0 && len(s.ContainerOccupants) == 0 &&
		len(s.OwnedAnimals) == 0 && len(s.Tracked) == 0 && len(s.Legacy) == 0
}

// SideTable is the world-scoped long-lived table of side registries, keyed
// by region id. Entries are created on save and drained on the matching
// load; a region that is never restored keeps its entry indefinitely.
type SideTable struct {
	entries map[string]*SideRegistry
}

func NewSideTable() *SideTable {
	return &SideTable{entries: map[string]*SideRegistry{}}
}

func (t *SideTable) GetOrCreate(regionID string) *SideRegistry {
	if e, ok := t.entries[regionID]; ok {
		return e
	}
	e := &SideRegistry{RegionID: regionID}
	t.entries[regionID] = e
	return e
}

func (t *SideTable) TryGet(regionID string) (*SideRegistry, bool) {
	e, ok := t.entries[regionID]
	return e, ok
}

func (t *SideTable) Release(regionID string) { delete(t.entries, regionID) }

func (t *SideTable) Len() int { return len(t.entries) }
