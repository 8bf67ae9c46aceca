package archive

import (
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// drainSideRegistry re-inserts everything the save extracted: container
// occupants back into the container standing at their saved cell (free
// placement nearby as fallback), owned animals at their saved position, and
// world-tracked creatures respawned with stale behavior state cleared. The
// legacy list drains last with the container-occupant rules. The region's
// entry is then released.
func (o *Orchestrator) drainSideRegistry(r *region.Region) {
	side, ok := o.Sides.TryGet(r.ID)
	if !ok {
		return
	}

	for _, ref := range side.Sleeping {
		o.reinsertOccupant(r, ref)
	}
	for _, ref := range side.ContainerOccupants {
		o.reinsertOccupant(r, ref)
	}

	for _, ref := range side.OwnedAnimals {
		e := o.World.ReleaseHeld(ref.ID)
		if e == nil {
			o.logf("load %s: held animal %s vanished from world holding", r.ID, ref.ID)
			continue
		}
		restoreAffiliation(e, ref.Faction)
		e.Pos = o.findPlacement(r, ref.Pos)
		if err := r.Spawn(e); err != nil {
			o.logf("load %s: respawn animal %s: %v", r.ID, e.ID, err)
		}
	}

	for _, tc := range side.Tracked {
		e := tc.Entity
		if e == nil {
			continue
		}
		// Whatever the creature was doing points at targets that no longer
		// exist; it starts idle.
		e.TaskState = ""
		e.Destroyed = false
		e.Pos = o.findPlacement(r, tc.Pos)
		if err := o.World.Identities.Register(e.ID, e); err != nil {
			o.logf("load %s: tracked creature %s: %v; dropping", r.ID, e.ID, err)
			continue
		}
		if err := r.Spawn(e); err != nil {
			o.World.Identities.Remove(e.ID)
			o.logf("load %s: respawn tracked %s: %v", r.ID, e.ID, err)
			continue
		}
		o.World.Track(e)
	}

	for _, ref := range side.Legacy {
		o.reinsertOccupant(r, ref)
	}

	o.Sides.Release(r.ID)
	if o.Index != nil {
		o.Index.DeleteSideRegistry(r.ID)
	}
}

// reinsertOccupant puts a held entity back into the container standing at
// its saved position; with the container gone, it spawns free nearby, or at
// a random valid cell as the last resort. Never fatal.
func (o *Orchestrator) reinsertOccupant(r *region.Region, ref HeldRef) {
	e := o.World.ReleaseHeld(ref.ID)
	if e == nil {
		o.logf("load %s: held occupant %s vanished from world holding", r.ID, ref.ID)
		return
	}
	restoreAffiliation(e, ref.Faction)

	if c := r.ContainerAt(ref.Pos); c != nil && !c.Destroyed {
		e.Pos = ref.Pos
		c.AddOccupant(e)
		return
	}

	e.Pos = o.findPlacement(r, ref.Pos)
	if err := r.Spawn(e); err != nil {
		o.logf("load %s: fallback placement for %s: %v", r.ID, e.ID, err)
	}
}

func restoreAffiliation(e *region.Entity, faction string) {
	if e.Faction == "" && faction != "" {
		e.Faction = faction
	}
}

// findPlacement looks for a standable cell near the preferred one, spiraling
// outward; failing that, any random valid cell serves.
func (o *Orchestrator) findPlacement(r *region.Region, want region.Vec2i) region.Vec2i {
	if r.InBounds(want) && r.ContainerAt(want) == nil {
		return want
	}
	for radius := 1; radius <= 10; radius++ {
		for dz := -radius; dz <= radius; dz++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx > -radius && dx < radius && dz > -radius && dz < radius {
					continue
				}
				c := want.Add(region.Vec2i{X: dx, Z: dz})
				if r.InBounds(c) && r.ContainerAt(c) == nil {
					return c
				}
			}
		}
	}
	return region.Vec2i{
		X: o.Decay.Rand.Intn(r.Width),
		Z: o.Decay.Rand.Intn(r.Height),
	}
}
