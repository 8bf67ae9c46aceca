package region

// Kind is an entity's coarse simulation category.
type Kind int

const (
	KindStructure Kind = iota + 1
	KindItem
	KindPlant
	KindCreature
	KindCorpse
	KindBlueprint
	KindEffect
	KindProjectile
)

func (k Kind) String() string {
	switch k {
	case KindStructure:
		return "structure"
	case KindItem:
		return "item"
	case KindPlant:
		return "plant"
	case KindCreature:
		return "creature"
	case KindCorpse:
		return "corpse"
	case KindBlueprint:
		return "blueprint"
	case KindEffect:
		return "effect"
	case KindProjectile:
		return "projectile"
	}
	return "unknown"
}

// Material is a structure's primary construction material.
type Material int

const (
	MaterialNone Material = iota
	MaterialWood
	MaterialMetal
	MaterialStone
	MaterialUnknown
)

// Terrain palette. Ids at or above TerrainFloorBase are constructed floors;
// erosion reverts them to TerrainSoil.
const (
	TerrainSoil      uint16 = 1
	TerrainRock      uint16 = 2
	TerrainFloorBase uint16 = 100
)

func IsConstructedFloor(id uint16) bool { return id >= TerrainFloorBase }

// Entity is any simulated object that can stand in a region: structures,
// items, plants, creatures, corpses and the transient kinds that never
// survive archiving.
type Entity struct {
	ID   string
	Def  string
	Kind Kind

	Pos Vec2i
	Rot int

	HP    int
	MaxHP int

	Spawned   bool
	Destroyed bool

	// Faction affiliation; empty for wild/unowned entities.
	Faction string

	Humanlike bool

	Material          Material
	UnderConstruction bool
	NaturalRock       bool

	// Perishables: RotThreshold > 0 marks the entity perishable; progress
	// accumulates toward the threshold.
	RotProgress  float64
	RotThreshold float64

	// Containers (sleep pods, caskets, storage) hold occupants in place.
	Container bool
	Occupants []*Entity

	// Corpses reference the permanent remembered-dead record by id only;
	// the record itself is never duplicated into a region or archive.
	InnerDeadID string

	// Owning AI group controller, if any.
	GroupID string

	// Current behavior state; stale state is cleared when an entity is
	// respawned after an arbitrary holding period.
	TaskState string
}

func (e *Entity) PlayerOwned(playerFaction string) bool {
	return playerFaction != "" && e.Faction == playerFaction
}

// Damage applies hp loss, clamping at zero and flagging destruction.
func (e *Entity) Damage(amount int) {
	if amount <= 0 || e.Destroyed {
		return
	}
	e.HP -= amount
	if e.HP <= 0 {
		e.HP = 0
		e.Destroyed = true
	}
}

// AddOccupant inserts an entity into a container.
func (e *Entity) AddOccupant(o *Entity) {
	if o == nil {
		return
	}
	e.Occupants = append(e.Occupants, o)
}

// RemoveOccupant removes an occupant by id and returns it.
func (e *Entity) RemoveOccupant(id string) *Entity {
	for i, o := range e.Occupants {
		if o.ID == id {
			e.Occupants = append(e.Occupants[:i], e.Occupants[i+1:]...)
			return o
		}
	}
	return nil
}
