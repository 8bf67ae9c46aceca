package archive

import (
	"encoding/json"
	"fmt"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/archivefile"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/protocol"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/encoding"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// Save archives the region to its file and extracts everything that must
// not be archived in place. Missing prerequisites (no region id, no storage
// location) log and no-op; any failure aborts the whole save, and the
// simulation-mode flag is reset either way.
func (o *Orchestrator) Save(r *region.Region) error {
	if r == nil || r.ID == "" {
		o.logf("save: no region id available; skipping")
		return nil
	}
	if o.Dir == "" {
		o.logf("save: no storage location configured; skipping")
		return nil
	}

	o.World.SetSimulationActive(true)
	defer o.World.SetSimulationActive(false)

	counts, err := o.save(r)
	if err != nil {
		o.logf("save %s: aborted: %v", r.ID, err)
		o.Metrics.IncSaveFailures()
		o.emit(protocol.OpEvent{
			Type:     protocol.EventSaveFailed,
			RegionID: r.ID,
			Tick:     o.World.Now(),
			Detail:   err.Error(),
		})
		return err
	}

	o.Metrics.IncSaves()
	o.emit(protocol.OpEvent{
		Type:     protocol.EventRegionSaved,
		RegionID: r.ID,
		Tick:     o.World.Now(),
		Entities: counts.entities,
		Groups:   counts.groups,
	})
	o.logf("save %s: archived %d entities, %d groups", r.ID, counts.entities, counts.groups)
	return nil
}

type saveCounts struct {
	entities int
	groups   int
}

func (o *Orchestrator) save(r *region.Region) (counts saveCounts, err error) {
	// Extraction and serialization form one recoverable unit; nothing may
	// throw past the caller.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	abandonedTick := o.World.Now()

	rec := archivefile.RecordV1{
		Header: archivefile.Header{
			Version:       archivefile.Version,
			RegionID:      r.ID,
			AbandonedTick: abandonedTick,
		},
		Width:  r.Width,
		Height: r.Height,
		TileID: r.TileID,
	}

	// Flatten active grid layers. Inactive optional layers stay nil.
	rec.Terrain = encoding.EncodeLayer(r.Terrain)
	rec.Roof = encoding.EncodeLayer(r.Roof)
	rec.Snow = encoding.EncodeLayer(r.Snow)
	if r.Pollution != nil {
		rec.Pollution = encoding.EncodeLayer(r.Pollution)
	}
	if r.Fog != nil {
		rec.Fog = encoding.EncodeLayer(r.Fog)
	}

	// Ownership transfer: occupants, owned animals, tracked creatures.
	side := o.Sides.GetOrCreate(r.ID)
	tm := &TransferManager{World: o.World}
	if err := tm.ExtractAll(r, side); err != nil {
		return counts, err
	}

	// Group controllers owning surviving non-human entities ride in the
	// same session so their ownership edges resolve.
	leaders := tm.CollectGroupLeaders(r)

	// Caskets are empty and extracted creatures gone; capture the list.
	var entities []*region.Entity
	for _, e := range r.Entities() {
		if o.Eligibility.ShouldPersist(e) {
			entities = append(entities, e)
		}
	}

	// Pin remembered-dead records behind archived corpses before the file
	// is finalized.
	tm.ForceRetainCorpses(entities)

	sess := NewSaveSession()
	for _, e := range entities {
		if err := registerFragmentTree(sess, e); err != nil {
			return counts, err
		}
	}
	for _, g := range leaders {
		if err := sess.RegisterTarget(g.ID, g, OriginFragment); err != nil {
			return counts, err
		}
	}

	for _, e := range entities {
		rec.Entities = append(rec.Entities, entityToWire(e))
	}
	for _, g := range leaders {
		rec.Groups = append(rec.Groups, groupToWire(g))
	}

	if o.Components != nil {
		if err := o.Components.saveAll(&rec); err != nil {
			return counts, err
		}
	}

	if err := archivefile.Write(o.Dir, rec); err != nil {
		return counts, err
	}
	sess.Finalize()

	// Only after the file is finalized: archived non-humans leave the live
	// region, and surviving controllers detach from it.
	tm.CleanupAfterSave(r, entities)
	for _, g := range leaders {
		r.Groups.Detach(g)
	}

	if o.Index != nil {
		if payload, err := json.Marshal(side); err == nil {
			o.Index.PutSideRegistry(r.ID, payload)
		}
		o.Index.RecordArchive(r.ID, abandonedTick, archivefile.Path(o.Dir, r.ID),
			len(rec.Entities), len(rec.Groups))
	}

	return saveCounts{entities: len(rec.Entities), groups: len(rec.Groups)}, nil
}

// registerFragmentTree registers an entity and its nested occupants as
// session targets; a duplicate id anywhere in the tree is an identity
// collision and aborts the save.
func registerFragmentTree(sess *Session, e *region.Entity) error {
	if err := sess.RegisterTarget(e.ID, e, OriginFragment); err != nil {
		return err
	}
	for _, occ := range e.Occupants {
		if occ == nil {
			continue
		}
		if err := registerFragmentTree(sess, occ); err != nil {
			return err
		}
	}
	return nil
}
