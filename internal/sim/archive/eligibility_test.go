package archive

import (
	"testing"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

func classifierWorld() *region.World {
	return region.NewWorld("colony", region.NewClimate(region.TileClimate{BaseTempC: 12}))
}

func TestShouldPersist_Basics(t *testing.T) {
	w := classifierWorld()
	c := Eligibility{World: w}

	if c.ShouldPersist(nil) {
		t.Error("nil entity persisted")
	}

	e := &region.Entity{ID: "e1", Kind: region.KindItem, Spawned: true}
	if !c.ShouldPersist(e) {
		t.Error("plain spawned item should persist")
	}

	e.Destroyed = true
	if c.ShouldPersist(e) {
		t.Error("destroyed entity persisted")
	}
	e.Destroyed = false

	e.Spawned = false
	if c.ShouldPersist(e) {
		t.Error("unspawned entity persisted")
	}
}

func TestShouldPersist_TransientKinds(t *testing.T) {
	c := Eligibility{World: classifierWorld()}
	for _, k := range []region.Kind{region.KindBlueprint, region.KindEffect, region.KindProjectile} {
		e := &region.Entity{ID: "t", Kind: k, Spawned: true}
		if c.ShouldPersist(e) {
			t.Errorf("transient kind %v persisted", k)
		}
	}
	for _, k := range []region.Kind{region.KindStructure, region.KindPlant, region.KindCorpse} {
		e := &region.Entity{ID: "t", Kind: k, Spawned: true}
		if !c.ShouldPersist(e) {
			t.Errorf("kind %v should persist", k)
		}
	}
}

func TestShouldPersist_HumanlikeAndTracked(t *testing.T) {
	w := classifierWorld()
	c := Eligibility{World: w}

	human := &region.Entity{ID: "h", Kind: region.KindCreature, Spawned: true, Humanlike: true}
	if c.ShouldPersist(human) {
		t.Error("humanlike persisted")
	}

	// A host may carry the flag onto the corpse; corpses archive regardless.
	humanCorpse := &region.Entity{ID: "hc", Kind: region.KindCorpse, Spawned: true, Humanlike: true}
	if !c.ShouldPersist(humanCorpse) {
		t.Error("humanlike corpse should persist")
	}

	wolf := &region.Entity{ID: "w", Kind: region.KindCreature, Spawned: true}
	if !c.ShouldPersist(wolf) {
		t.Error("wild creature should persist")
	}
	w.Track(wolf)
	if c.ShouldPersist(wolf) {
		t.Error("world-tracked creature persisted")
	}
}

func TestShouldPersist_ExcludedSingleton(t *testing.T) {
	c := Eligibility{World: classifierWorld()}
	e := &region.Entity{ID: "m", Def: DefaultExcludedSingleton, Kind: region.KindStructure, Spawned: true}
	if c.ShouldPersist(e) {
		t.Error("excluded singleton persisted")
	}

	c.ExcludedSingletonDef = "other_def"
	if !c.ShouldPersist(e) {
		t.Error("override should release the default exclusion")
	}
	e.Def = "other_def"
	if c.ShouldPersist(e) {
		t.Error("overridden exclusion ignored")
	}
}

func TestShouldPersist_ContainerOccupants(t *testing.T) {
	w := classifierWorld()
	c := Eligibility{World: w}

	pod := &region.Entity{ID: "pod", Kind: region.KindStructure, Spawned: true, Container: true}
	if !c.ShouldPersist(pod) {
		t.Error("empty container should persist")
	}

	pod.AddOccupant(&region.Entity{ID: "h", Kind: region.KindCreature, Humanlike: true})
	if c.ShouldPersist(pod) {
		t.Error("container with a live humanlike occupant persisted")
	}
	pod.Occupants = nil

	pod.AddOccupant(&region.Entity{ID: "c", Kind: region.KindCorpse, InnerDeadID: "d1"})
	if !c.ShouldPersist(pod) {
		t.Error("casket holding a corpse should persist")
	}
	pod.Occupants = nil

	pod.AddOccupant(&region.Entity{ID: "hc", Kind: region.KindCorpse, Humanlike: true, InnerDeadID: "d2"})
	if !c.ShouldPersist(pod) {
		t.Error("casket holding a humanlike corpse should persist")
	}
}

// The same predicate runs at save and at wipe time, so it must be pure.
func TestShouldPersist_Idempotent(t *testing.T) {
	w := classifierWorld()
	c := Eligibility{World: w}
	e := &region.Entity{ID: "e", Kind: region.KindItem, Spawned: true, HP: 7, RotProgress: 1.5}

	first := c.ShouldPersist(e)
	for i := 0; i < 5; i++ {
		if c.ShouldPersist(e) != first {
			t.Fatal("classifier changed its answer on repeat")
		}
	}
	if e.HP != 7 || e.RotProgress != 1.5 || !e.Spawned {
		t.Fatal("classifier mutated the entity")
	}
}
