package region

import "testing"

func testWorld() *World {
	return NewWorld("colony", NewClimate(TileClimate{BaseTempC: 10}))
}

func TestWorld_PlayerFactionAutoRegistered(t *testing.T) {
	w := testWorld()
	f := w.Faction("colony")
	if f == nil || !f.Player {
		t.Fatalf("player faction = %+v", f)
	}
}

func TestHolding(t *testing.T) {
	w := testWorld()
	e := &Entity{ID: "a"}

	if err := w.Hold(e, RetentionIndefinite); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if err := w.Hold(e, RetentionIndefinite); err == nil {
		t.Fatal("double hold accepted")
	}
	if got, ok := w.Held("a"); !ok || got != e {
		t.Fatal("held lookup wrong")
	}
	if w.ReleaseHeld("a") != e {
		t.Fatal("release returned wrong entity")
	}
	if w.HeldCount() != 0 {
		t.Fatal("holding not empty after release")
	}
	if w.ReleaseHeld("a") != nil {
		t.Fatal("second release should return nil")
	}
}

func TestForcedRetention_Nests(t *testing.T) {
	w := testWorld()
	w.ForceRetain("d1")
	w.ForceRetain("d1")
	w.ReleaseRetention("d1")
	if !w.ForceRetained("d1") {
		t.Fatal("nested pin released too early")
	}
	w.ReleaseRetention("d1")
	if w.ForceRetained("d1") {
		t.Fatal("pin not released")
	}
}

func TestCollectDead(t *testing.T) {
	w := testWorld()
	w.RememberDead(&DeadRecord{ID: "ref"})
	w.RememberDead(&DeadRecord{ID: "pinned"})
	w.RememberDead(&DeadRecord{ID: "loose"})
	w.ForceRetain("pinned")

	r := New("r1", 8, 8, 0)
	casket := &Entity{ID: "c", Kind: KindStructure, Container: true, Pos: Vec2i{X: 1, Z: 1}}
	casket.AddOccupant(&Entity{ID: "corpse", Kind: KindCorpse, InnerDeadID: "ref"})
	if err := r.Spawn(casket); err != nil {
		t.Fatal(err)
	}

	if n := w.CollectDead(r); n != 1 {
		t.Fatalf("collected %d, want 1", n)
	}
	if _, ok := w.DeadRecord("ref"); !ok {
		t.Fatal("referenced record collected")
	}
	if _, ok := w.DeadRecord("pinned"); !ok {
		t.Fatal("force-retained record collected")
	}
	if _, ok := w.DeadRecord("loose"); ok {
		t.Fatal("unreferenced record kept")
	}
}

func TestModeFlags(t *testing.T) {
	w := testWorld()
	if w.RestorationInProgress() || w.SimulationActive() {
		t.Fatal("flags should start clear")
	}
	w.SetRestorationInProgress(true)
	w.SetSimulationActive(true)
	if !w.RestorationInProgress() || !w.SimulationActive() {
		t.Fatal("flags not set")
	}
}
