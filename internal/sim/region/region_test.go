package region

import "testing"

func TestSpawnDespawn(t *testing.T) {
	r := New("r1", 8, 8, 0)

	e := &Entity{ID: "a", Kind: KindItem, Pos: Vec2i{X: 3, Z: 3}}
	if err := r.Spawn(e); err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if !e.Spawned || r.Find("a") != e {
		t.Fatal("spawn bookkeeping wrong")
	}
	if err := r.Spawn(&Entity{ID: "a", Pos: Vec2i{X: 1, Z: 1}}); err == nil {
		t.Fatal("duplicate id accepted")
	}
	if err := r.Spawn(&Entity{ID: "b", Pos: Vec2i{X: 99, Z: 0}}); err == nil {
		t.Fatal("out-of-bounds spawn accepted")
	}

	r.Despawn(e)
	if e.Spawned || r.Find("a") != nil {
		t.Fatal("despawn bookkeeping wrong")
	}
	r.Despawn(e) // no-op
}

func TestEntities_StableSpawnOrder(t *testing.T) {
	r := New("r1", 8, 8, 0)
	for _, id := range []string{"c", "a", "b"} {
		if err := r.Spawn(&Entity{ID: id, Pos: Vec2i{X: 1, Z: 1}}); err != nil {
			t.Fatal(err)
		}
	}
	got := r.Entities()
	if len(got) != 3 || got[0].ID != "c" || got[1].ID != "a" || got[2].ID != "b" {
		t.Fatalf("order = %v", []string{got[0].ID, got[1].ID, got[2].ID})
	}
}

func TestContainerAt(t *testing.T) {
	r := New("r1", 8, 8, 0)
	pos := Vec2i{X: 2, Z: 5}
	if err := r.Spawn(&Entity{ID: "item", Kind: KindItem, Pos: pos}); err != nil {
		t.Fatal(err)
	}
	if r.ContainerAt(pos) != nil {
		t.Fatal("plain item reported as container")
	}
	pod := &Entity{ID: "pod", Kind: KindStructure, Container: true, Pos: pos}
	if err := r.Spawn(pod); err != nil {
		t.Fatal(err)
	}
	if r.ContainerAt(pos) != pod {
		t.Fatal("container not found at its cell")
	}
}

func TestRecomputeStructuralSupport(t *testing.T) {
	r := New("r1", 10, 10, 0)
	wall := &Entity{ID: "w", Kind: KindStructure, Pos: Vec2i{X: 5, Z: 5}}
	if err := r.Spawn(wall); err != nil {
		t.Fatal(err)
	}

	near := Vec2i{X: 6, Z: 5}
	far := Vec2i{X: 1, Z: 1}
	r.Roof[r.Index(near)] = 1
	r.Roof[r.Index(far)] = 1

	r.RecomputeStructuralSupport()

	if !r.IsRoofed(near) {
		t.Fatal("roof adjacent to a structure should stay")
	}
	if r.IsRoofed(far) {
		t.Fatal("unsupported roof should drop")
	}
}

func TestPendingCollapses(t *testing.T) {
	r := New("r1", 4, 4, 0)
	r.QueueCollapse(Vec2i{X: 1, Z: 1})
	r.QueueCollapse(Vec2i{X: 2, Z: 2})
	if r.PendingCollapses() != 2 {
		t.Fatalf("pending = %d", r.PendingCollapses())
	}
	r.ClearPendingCollapses()
	if r.PendingCollapses() != 0 {
		t.Fatal("clear failed")
	}
}

func TestDamageClampsAndDestroys(t *testing.T) {
	e := &Entity{ID: "e", HP: 10, MaxHP: 10}
	e.Damage(4)
	if e.HP != 6 || e.Destroyed {
		t.Fatalf("after 4: hp=%d destroyed=%v", e.HP, e.Destroyed)
	}
	e.Damage(100)
	if e.HP != 0 || !e.Destroyed {
		t.Fatalf("after overkill: hp=%d destroyed=%v", e.HP, e.Destroyed)
	}
	e.Damage(1) // destroyed entities take no further damage
	if e.HP != 0 {
		t.Fatal("damage applied past destruction")
	}
}
