package region

import "fmt"

// RetentionPolicy controls how long the world-level holding area keeps an
// entity that is not placed in any region.
type RetentionPolicy int

const (
	RetentionDefault RetentionPolicy = iota
	RetentionIndefinite
)

// Faction is a long-lived world object that archived entities reference
// across sessions.
type Faction struct {
	ID     string
	Name   string
	Player bool
}

// DeadRecord is an entry in the permanent remembered-dead store. Corpses
// reference these by id; a record with no live referent is eligible for
// garbage collection unless force-retained.
type DeadRecord struct {
	ID       string
	Name     string
	DiedTick uint64
}

// World is the long-lived host state surrounding regions: the tick clock,
// identity registry, the holding area for entities not placed anywhere, the
// uniquely-tracked creature set, factions, the remembered-dead store and its
// forced-retention set, and the two mode flags the archive subsystem toggles.
type World struct {
	PlayerFaction string

	Identities *IdentityRegistry
	Climate    *Climate

	tick uint64

	holding   map[string]*Entity
	retention map[string]RetentionPolicy

	tracked map[string]*Entity

	factions map[string]*Faction

	rememberedDead map[string]*DeadRecord
	forcedRetain   map[string]int

	restorationInProgress bool
	simulationActive      bool
}

func NewWorld(playerFaction string, climate *Climate) *World {
	w := &World{
		PlayerFaction:  playerFaction,
		Identities:     NewIdentityRegistry(),
		Climate:        climate,
		holding:        map[string]*Entity{},
		retention:      map[string]RetentionPolicy{},
		tracked:        map[string]*Entity{},
		factions:       map[string]*Faction{},
		rememberedDead: map[string]*DeadRecord{},
		forcedRetain:   map[string]int{},
	}
	if playerFaction != "" {
		w.factions[playerFaction] = &Faction{ID: playerFaction, Name: playerFaction, Player: true}
	}
	return w
}

func (w *World) Now() uint64      { return w.tick }
func (w *World) Advance(n uint64) { w.tick += n }
func (w *World) SetTick(t uint64) { w.tick = t }

func (w *World) AddFaction(f *Faction) { w.factions[f.ID] = f }

func (w *World) Faction(id string) *Faction { return w.factions[id] }

// Factions returns every live faction; the archive subsystem pre-registers
// these as cross-reference targets on load.
func (w *World) Factions() []*Faction {
	out := make([]*Faction, 0, len(w.factions))
	for _, f := range w.factions {
		out = append(out, f)
	}
	return out
}

// Hold moves an entity into the world-level holding area.
func (w *World) Hold(e *Entity, policy RetentionPolicy) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("hold: entity without id")
	}
	if _, ok := w.holding[e.ID]; ok {
		return fmt.Errorf("hold: %s already held", e.ID)
	}
	w.holding[e.ID] = e
	w.retention[e.ID] = policy
	return nil
}

func (w *World) Held(id string) (*Entity, bool) {
	e, ok := w.holding[id]
	return e, ok
}

// ReleaseHeld removes an entity from the holding area and returns it.
func (w *World) ReleaseHeld(id string) *Entity {
	e := w.holding[id]
	delete(w.holding, id)
	delete(w.retention, id)
	return e
}

func (w *World) HeldCount() int { return len(w.holding) }

// Track marks a spawned creature as uniquely tracked at world level (event
// creatures, quest targets). Tracked creatures must never be deep-archived.
func (w *World) Track(e *Entity) {
	if e != nil && e.ID != "" {
		w.tracked[e.ID] = e
	}
}

func (w *World) Untrack(id string) { delete(w.tracked, id) }

func (w *World) IsTracked(id string) bool {
	_, ok := w.tracked[id]
	return ok
}

// RememberDead records a death in the permanent store.
func (w *World) RememberDead(rec *DeadRecord) { w.rememberedDead[rec.ID] = rec }

func (w *World) DeadRecord(id string) (*DeadRecord, bool) {
	r, ok := w.rememberedDead[id]
	return r, ok
}

// ForceRetain pins a remembered-dead record against garbage collection.
// Calls nest; each ForceRetain needs a matching ReleaseRetention.
func (w *World) ForceRetain(id string) { w.forcedRetain[id]++ }

func (w *World) ReleaseRetention(id string) {
	if w.forcedRetain[id] <= 1 {
		delete(w.forcedRetain, id)
		return
	}
	w.forcedRetain[id]--
}

func (w *World) ForceRetained(id string) bool { return w.forcedRetain[id] > 0 }

// CollectDead drops remembered-dead records that no spawned corpse in the
// given regions references and that are not force-retained. Returns the
// number of records collected.
func (w *World) CollectDead(active ...*Region) int {
	referenced := map[string]bool{}
	for _, r := range active {
		if r == nil {
			continue
		}
		for _, e := range r.Entities() {
			markCorpseRefs(e, referenced)
		}
	}
	n := 0
	for id := range w.rememberedDead {
		if referenced[id] || w.ForceRetained(id) {
			continue
		}
		delete(w.rememberedDead, id)
		n++
	}
	return n
}

func markCorpseRefs(e *Entity, refs map[string]bool) {
	if e == nil {
		return
	}
	if e.InnerDeadID != "" {
		refs[e.InnerDeadID] = true
	}
	for _, o := range e.Occupants {
		markCorpseRefs(o, refs)
	}
}

// Mode flags toggled by the archive subsystem. While restoration is in
// progress the host suppresses proactive collapse checks and reveal
// notifications.
func (w *World) SetRestorationInProgress(v bool) { w.restorationInProgress = v }
func (w *World) RestorationInProgress() bool     { return w.restorationInProgress }

func (w *World) SetSimulationActive(v bool) { w.simulationActive = v }
func (w *World) SimulationActive() bool     { return w.simulationActive }
