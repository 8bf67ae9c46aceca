package archive

import (
	"errors"
	"fmt"
	"os"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/archivefile"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/protocol"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/encoding"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// Load restores the region from its archive file, if one exists, and runs
// offline decay for the elapsed interval. A missing archive is a silent
// no-op; a corrupt one aborts and leaves the region in its freshly
// generated state. The restoration-in-progress flag is cleared on every
// path out.
func (o *Orchestrator) Load(r *region.Region) error {
	if r == nil || r.ID == "" {
		o.logf("load: no region id available; skipping")
		return nil
	}
	if o.Dir == "" {
		o.logf("load: no storage location configured; skipping")
		return nil
	}

	rec, err := archivefile.Read(o.Dir, r.ID)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // nothing to restore
		}
		o.logf("load %s: %v; leaving region as generated", r.ID, err)
		o.Metrics.IncLoadFailures()
		o.emit(protocol.OpEvent{
			Type:     protocol.EventLoadFailed,
			RegionID: r.ID,
			Tick:     o.World.Now(),
			Detail:   err.Error(),
		})
		return err
	}

	o.World.SetRestorationInProgress(true)
	defer o.World.SetRestorationInProgress(false)

	res, err := o.load(r, rec)
	if err != nil {
		o.logf("load %s: aborted: %v", r.ID, err)
		o.Metrics.IncLoadFailures()
		o.emit(protocol.OpEvent{
			Type:     protocol.EventLoadFailed,
			RegionID: r.ID,
			Tick:     o.World.Now(),
			Detail:   err.Error(),
		})
		return err
	}

	o.Metrics.IncLoads()
	o.Metrics.AddDecayEvents(res.decayEvents)
	o.emit(protocol.OpEvent{
		Type:         protocol.EventRegionLoaded,
		RegionID:     r.ID,
		Tick:         o.World.Now(),
		ElapsedTicks: res.elapsed,
		Entities:     res.entities,
		Groups:       res.groups,
	})
	o.logf("load %s: restored %d entities, %d groups after %d elapsed ticks (%d failure events)",
		r.ID, res.entities, res.groups, res.elapsed, res.decayEvents)
	return nil
}

type loadResult struct {
	entities    int
	groups      int
	elapsed     uint64
	decayEvents int
}

func (o *Orchestrator) load(r *region.Region, rec archivefile.RecordV1) (res loadResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	// Step 1: clear whatever fresh generation put down that the archive is
	// about to replace. Same predicate as the save-time filter.
	o.wipeEligible(r)

	// Step 2: deserialize entities and group controllers. Nothing is
	// placed or reference-resolved yet.
	sess := NewLoadSession()
	entities := make([]*region.Entity, 0, len(rec.Entities))
	for _, v := range rec.Entities {
		entities = append(entities, entityFromWire(v))
	}
	leaders := make([]*region.GroupController, 0, len(rec.Groups))
	for _, v := range rec.Groups {
		leaders = append(leaders, groupFromWire(v))
	}

	// Step 3: component sub-records load in the same session, before the
	// reference-resolution phase.
	if o.Components != nil {
		o.Components.loadAll(rec, o.Logger)
	}

	// Step 4: terrain applies immediately; everything below assumes the
	// restored ground is already in place.
	if rec.Terrain != nil {
		if err := applyLayer(rec.Terrain, r, r.Terrain); err != nil {
			return res, fmt.Errorf("terrain layer: %w", err)
		}
	}

	// Step 5: ghost removal. Entities can drift into world-level tracking
	// between save and load; an identity we cannot clear is fatal.
	for _, e := range entities {
		if err := o.removeGhosts(e); err != nil {
			return res, err
		}
	}

	// Step 6: pre-register live world objects so fragment references
	// resolve against the live world, not only the fragment.
	for _, f := range o.World.Factions() {
		if err := sess.RegisterTarget(f.ID, f, OriginLive); err != nil {
			return res, err
		}
	}
	for _, e := range entities {
		registerDeadTargets(sess, o.World, e)
	}
	for _, e := range entities {
		if err := registerFragmentTree(sess, e); err != nil {
			return res, o.collisionDiag(sess, err)
		}
	}
	for _, g := range leaders {
		if err := sess.RegisterTarget(g.ID, g, OriginFragment); err != nil {
			return res, o.collisionDiag(sess, err)
		}
	}

	// Step 7: controllers need their manager back-reference before their
	// own post-init runs.
	for _, g := range leaders {
		g.Manager = r.Groups
		gc := g
		sess.OnPostInit(gc.Init)
	}

	// Step 8: one resolution pass over fragment plus live targets.
	for i, g := range leaders {
		gc := g
		for _, ownedID := range rec.Groups[i].OwnedID {
			sess.Resolve(ownedID, func(obj any) {
				if e, ok := obj.(*region.Entity); ok && e != nil {
					gc.Owned = append(gc.Owned, e)
				}
			})
		}
	}
	for _, e := range entities {
		queueAffiliationRefs(sess, e)
	}
	if err := sess.ResolveAll(); err != nil {
		return res, err
	}
	if n := len(sess.Dangling()); n > 0 {
		o.logf("load %s: %d dangling references among %d targets", r.ID, n, sess.TargetCount())
	}

	// Step 9: post-load initialization.
	if err := sess.RunPostInit(); err != nil {
		return res, err
	}

	// Step 10: the decay context everything downstream shares.
	ctx := NewDecayContext(o.World, r, rec.Header.AbandonedTick)

	// Perishables rot before placement; one that crossed its threshold
	// during the elapsed interval is never spawned.
	for _, e := range entities {
		o.Decay.DecayPerishable(ctx, e)
	}

	// Step 11: place survivors and re-attach controllers.
	for _, e := range entities {
		if e.Destroyed {
			continue
		}
		if err := o.placeRestored(r, e); err != nil {
			return res, err
		}
	}
	placedGroups := 0
	for _, g := range leaders {
		if len(g.Owned) == 0 {
			continue
		}
		r.Groups.Attach(g)
		placedGroups++
	}

	// Step 12: drain the side registry back into the region.
	o.drainSideRegistry(r)

	// Step 13: remaining layers. Roof triggers a support recompute and
	// clears any collapse checks queued while it was applied.
	if rec.Roof != nil {
		if err := applyLayer(rec.Roof, r, r.Roof); err != nil {
			return res, fmt.Errorf("roof layer: %w", err)
		}
		r.RecomputeStructuralSupport()
		r.ClearPendingCollapses()
	}
	if rec.Snow != nil {
		if err := applyLayer(rec.Snow, r, r.Snow); err != nil {
			return res, fmt.Errorf("snow layer: %w", err)
		}
	}
	if rec.Pollution != nil {
		r.EnablePollution()
		if err := applyLayer(rec.Pollution, r, r.Pollution); err != nil {
			return res, fmt.Errorf("pollution layer: %w", err)
		}
	}
	if rec.Fog != nil {
		saved := make([]uint16, r.CellCount())
		if err := applyLayer(rec.Fog, r, saved); err != nil {
			return res, fmt.Errorf("fog layer: %w", err)
		}
		// Re-fog everything, then un-fog the cells that were visible when
		// the region was abandoned.
		for i := range r.Fog {
			r.Fog[i] = 1
		}
		for i, v := range saved {
			if v == 0 {
				r.Fog[i] = 0
			}
		}
	}

	// Step 14: offline decay over everything standing in the region.
	events := o.Decay.RunPlaced(ctx)

	// Step 15: corpses are back on the region and protect their
	// remembered-dead records naturally again.
	for _, e := range entities {
		releaseDeadRetention(o.World, e)
	}

	// The archive is fully consumed; a future activation regenerates
	// fresh unless a new save happens first.
	if err := archivefile.Remove(o.Dir, r.ID); err != nil {
		o.logf("load %s: removing consumed archive: %v", r.ID, err)
	}
	if o.Index != nil {
		o.Index.RemoveArchive(r.ID)
	}

	return loadResult{
		entities:    len(entities),
		groups:      placedGroups,
		elapsed:     ctx.ElapsedTicks,
		decayEvents: len(events),
	}, nil
}

func applyLayer(raw []byte, r *region.Region, dst []uint16) error {
	return encoding.DeserializeGrid(raw, r.Width, r.Height, func(x, z int, v uint16) {
		dst[z*r.Width+x] = v
	})
}

// wipeEligible clears from the region everything the classifier would also
// select for archiving, so fresh generation cannot conflict with what is
// about to be restored. Container contents are destroyed before their
// container to keep stale identities out of the permanent dead registry.
func (o *Orchestrator) wipeEligible(r *region.Region) {
	for _, e := range r.Entities() {
		if !o.Eligibility.ShouldPersist(e) {
			continue
		}
		for _, occ := range append([]*region.Entity(nil), e.Occupants...) {
			if occ == nil {
				continue
			}
			occ.Destroyed = true
			occ.Faction = ""
			o.World.Identities.Remove(occ.ID)
		}
		e.Occupants = nil
		e.Destroyed = true
		e.Faction = ""
		r.Despawn(e)
		o.World.Identities.Remove(e.ID)
	}
}

// removeGhosts clears world-level placeholders colliding with an identity
// the archive is about to register. An identity registered to anything else
// cannot be cleared and fails the load.
func (o *Orchestrator) removeGhosts(e *region.Entity) error {
	if _, held := o.World.Held(e.ID); held {
		o.World.ReleaseHeld(e.ID)
		o.World.Identities.Remove(e.ID)
	} else if o.World.IsTracked(e.ID) {
		o.World.Untrack(e.ID)
		o.World.Identities.Remove(e.ID)
	} else if _, ok := o.World.Identities.TryFind(e.ID); ok {
		return fmt.Errorf("%w: live object already carries id %s", ErrIdentityCollision, e.ID)
	}
	for _, occ := range e.Occupants {
		if occ == nil {
			continue
		}
		if err := o.removeGhosts(occ); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) collisionDiag(sess *Session, err error) error {
	if errors.Is(err, ErrIdentityCollision) {
		return fmt.Errorf("%w (targets=%d dangling=%d)", err, sess.TargetCount(), len(sess.Dangling()))
	}
	return err
}

// registerDeadTargets pre-registers remembered-dead records referenced by
// archived corpses as live resolution targets.
func registerDeadTargets(sess *Session, w *region.World, e *region.Entity) {
	if e.InnerDeadID != "" {
		if rec, ok := w.DeadRecord(e.InnerDeadID); ok {
			_ = sess.RegisterTarget(rec.ID, rec, OriginLive)
		}
	}
	for _, occ := range e.Occupants {
		if occ != nil {
			registerDeadTargets(sess, w, occ)
		}
	}
}

// queueAffiliationRefs resolves faction and group edges; a dangling edge
// clears the affiliation instead of pointing at a dead id.
func queueAffiliationRefs(sess *Session, e *region.Entity) {
	if e.Faction != "" {
		ent := e
		sess.Resolve(e.Faction, func(obj any) {
			if _, ok := obj.(*region.Faction); !ok {
				ent.Faction = ""
			}
		})
	}
	if e.GroupID != "" {
		ent := e
		sess.Resolve(e.GroupID, func(obj any) {
			if _, ok := obj.(*region.GroupController); !ok {
				ent.GroupID = ""
			}
		})
	}
	if e.InnerDeadID != "" {
		ent := e
		sess.Resolve(e.InnerDeadID, func(obj any) {
			if _, ok := obj.(*region.DeadRecord); !ok {
				ent.InnerDeadID = ""
			}
		})
	}
	for _, occ := range e.Occupants {
		if occ != nil {
			queueAffiliationRefs(sess, occ)
		}
	}
}

// placeRestored spawns an archived entity at its saved position, draining
// any conflicting container left behind by fresh generation first.
func (o *Orchestrator) placeRestored(r *region.Region, e *region.Entity) error {
	if e.Container {
		if other := r.ContainerAt(e.Pos); other != nil && other.ID != e.ID {
			for _, occ := range append([]*region.Entity(nil), other.Occupants...) {
				if occ == nil {
					continue
				}
				other.RemoveOccupant(occ.ID)
				occ.Pos = o.findPlacement(r, e.Pos)
				if err := o.registerAndSpawn(r, occ); err != nil {
					return err
				}
			}
			r.Despawn(other)
			o.World.Identities.Remove(other.ID)
		}
	}
	return o.registerAndSpawn(r, e)
}

func (o *Orchestrator) registerAndSpawn(r *region.Region, e *region.Entity) error {
	if err := registerIdentityTree(o.World.Identities, e); err != nil {
		return err
	}
	return r.Spawn(e)
}

func registerIdentityTree(ids *region.IdentityRegistry, e *region.Entity) error {
	if err := ids.Register(e.ID, e); err != nil {
		return err
	}
	for _, occ := range e.Occupants {
		if occ == nil {
			continue
		}
		if err := registerIdentityTree(ids, occ); err != nil {
			return err
		}
	}
	return nil
}

func releaseDeadRetention(w *region.World, e *region.Entity) {
	if e.Kind == region.KindCorpse && e.InnerDeadID != "" {
		w.ReleaseRetention(e.InnerDeadID)
	}
	for _, occ := range e.Occupants {
		if occ != nil {
			releaseDeadRetention(w, occ)
		}
	}
}
