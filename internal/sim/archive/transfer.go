package archive

import (
	"fmt"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// TransferManager relocates entities that must not be archived in place.
// Its extraction passes run strictly before the entity list is captured, in
// a fixed order: container occupants, then owned animals, then world-tracked
// creatures, then group leaders. Each pass's already-moved check depends on
// the world registry state the previous pass left behind.
type TransferManager struct {
	World *region.World
}

// ExtractAll runs passes one through three, filling the region's side
// registry. Collections are snapshotted before iteration; entities vanishing
// mid-pass are skipped, never fatal.
func (m *TransferManager) ExtractAll(r *region.Region, side *SideRegistry) error {
	if err := m.drainContainers(r, side); err != nil {
		return fmt.Errorf("drain containers: %w", err)
	}
	if err := m.extractOwnedAnimals(r, side); err != nil {
		return fmt.Errorf("extract owned animals: %w", err)
	}
	if err := m.extractTracked(r, side); err != nil {
		return fmt.Errorf("extract tracked creatures: %w", err)
	}
	return nil
}

// Pass one: every live creature inside a sleep or storage container moves to
// the world holding area with indefinite retention, split by affiliation.
// Corpse occupants stay put; they archive with their container.
func (m *TransferManager) drainContainers(r *region.Region, side *SideRegistry) error {
	for _, c := range r.Entities() {
		if !c.Container || c.Destroyed {
			continue
		}
		occupants := append([]*region.Entity(nil), c.Occupants...)
		for _, occ := range occupants {
			if occ == nil || occ.Destroyed || occ.Kind != region.KindCreature {
				continue
			}
			if c.RemoveOccupant(occ.ID) == nil {
				continue // vanished mid-iteration
			}
			if _, held := m.World.Held(occ.ID); !held {
				if err := m.World.Hold(occ, region.RetentionIndefinite); err != nil {
					return err
				}
			}
			ref := HeldRef{ID: occ.ID, Pos: c.Pos, Faction: occ.Faction}
			if occ.PlayerOwned(m.World.PlayerFaction) {
				side.Sleeping = append(side.Sleeping, ref)
			} else {
				side.ContainerOccupants = append(side.ContainerOccupants, ref)
			}
		}
	}
	return nil
}

// Pass two: player-affiliated non-human entities still standing in the
// region move to world holding with their position recorded.
func (m *TransferManager) extractOwnedAnimals(r *region.Region, side *SideRegistry) error {
	for _, e := range r.Entities() {
		if e.Destroyed || e.Kind != region.KindCreature || e.Humanlike {
			continue
		}
		if !e.PlayerOwned(m.World.PlayerFaction) {
			continue
		}
		if _, held := m.World.Held(e.ID); held {
			continue // pass one already moved it
		}
		pos := e.Pos
		r.Despawn(e)
		if err := m.World.Hold(e, region.RetentionIndefinite); err != nil {
			return err
		}
		side.OwnedAnimals = append(side.OwnedAnimals, HeldRef{ID: e.ID, Pos: pos, Faction: e.Faction})
	}
	return nil
}

// Pass three: non-human, non-player creatures the world uniquely tracks
// while spawned leave world-level tracking entirely; the side registry
// becomes the only owner of their data. They never touch the archive file.
func (m *TransferManager) extractTracked(r *region.Region, side *SideRegistry) error {
	for _, e := range r.Entities() {
		if e.Destroyed || e.Kind != region.KindCreature || e.Humanlike {
			continue
		}
		if e.PlayerOwned(m.World.PlayerFaction) {
			continue
		}
		if !m.World.IsTracked(e.ID) {
			continue // wildlife archives in place
		}
		pos := e.Pos
		r.Despawn(e)
		m.World.Untrack(e.ID)
		m.World.Identities.Remove(e.ID)
		side.Tracked = append(side.Tracked, &TrackedCreature{Entity: e, Pos: pos})
	}
	return nil
}

// CollectGroupLeaders is pass four: controllers whose owned set still
// includes a surviving non-human creature placed in the region. They must be
// archived in the same session as the entity list so the ownership edge
// resolves.
func (m *TransferManager) CollectGroupLeaders(r *region.Region) []*region.GroupController {
	var out []*region.GroupController
	for _, g := range r.Groups.Controllers() {
		if g.OwnsSurvivingNonHuman() {
			out = append(out, g)
		}
	}
	return out
}

// ForceRetainCorpses pins the remembered-dead record behind every archived
// corpse, standalone or nested in a container. While the region is inactive
// nothing else references those records, so without the pin they would be
// garbage collected out from under the archive.
func (m *TransferManager) ForceRetainCorpses(entities []*region.Entity) []string {
	var pinned []string
	var walk func(e *region.Entity)
	walk = func(e *region.Entity) {
		if e == nil {
			return
		}
		if e.Kind == region.KindCorpse && e.InnerDeadID != "" {
			m.World.ForceRetain(e.InnerDeadID)
			pinned = append(pinned, e.InnerDeadID)
		}
		for _, o := range e.Occupants {
			walk(o)
		}
	}
	for _, e := range entities {
		walk(e)
	}
	return pinned
}

// CleanupAfterSave runs once the archive file is finalized, before the host
// deactivates the region: archived non-human entities leave the live region
// and drop their affiliation, except group-owned entities, which keep it so
// they behave correctly if the region ever reactivates without an archive.
func (m *TransferManager) CleanupAfterSave(r *region.Region, archived []*region.Entity) {
	for _, e := range archived {
		if e == nil || e.Humanlike {
			continue
		}
		r.Despawn(e)
		m.removeIdentityTree(e)
		if e.GroupID == "" {
			e.Faction = ""
		}
	}
}

// removeIdentityTree unregisters the entity and every nested occupant, the
// inverse of the registration walk the load runs when it places them back.
// Occupants archived in place (corpses in a casket) carry identities too.
func (m *TransferManager) removeIdentityTree(e *region.Entity) {
	m.World.Identities.Remove(e.ID)
	for _, occ := range e.Occupants {
		if occ != nil {
			m.removeIdentityTree(occ)
		}
	}
}
