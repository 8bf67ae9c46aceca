// Package regiontest drives the archive subsystem end to end through its
// exported surface only: build a region, abandon it, advance the clock,
// restore it, and assert on what came back. Tests here exercise the same
// paths a host would, never package internals.
package regiontest

import (
	"io"
	"log"
	"math/rand"
	"testing"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/archive"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/tuning"
)

const PlayerFaction = "colony"

// Temperate is the default test climate: warm enough to rot, wet enough to
// erode, no freeze-thaw cycling.
var Temperate = region.TileClimate{
	BaseTempC:    15,
	SeasonalAmpC: 8,
	DiurnalAmpC:  3,
	RainfallNorm: 0.5,
}

type Harness struct {
	T     *testing.T
	World *region.World
	Orch  *archive.Orchestrator
	Dir   string
}

func NewHarness(t *testing.T) *Harness {
	return NewHarnessWithClimate(t, Temperate)
}

func NewHarnessWithClimate(t *testing.T, climate region.TileClimate) *Harness {
	t.Helper()

	cl := region.NewClimate(climate)
	w := region.NewWorld(PlayerFaction, cl)
	dir := t.TempDir()
	decay := archive.NewDecayEngine(tuning.DefaultDecay(), cl, rand.New(rand.NewSource(1)))

	orch := archive.NewOrchestrator(w, archive.NewSideTable(), dir, decay)
	orch.Logger = log.New(io.Discard, "", 0)

	return &Harness{T: t, World: w, Orch: orch, Dir: dir}
}

// NewRegion builds a soil-floored region on the world's default climate tile.
func (h *Harness) NewRegion(id string, width, height int) *region.Region {
	r := region.New(id, width, height, 0)
	for i := range r.Terrain {
		r.Terrain[i] = region.TerrainSoil
	}
	return r
}

func (h *Harness) SaveOK(r *region.Region) {
	h.T.Helper()
	if err := h.Orch.Save(r); err != nil {
		h.T.Fatalf("save %s: %v", r.ID, err)
	}
}

func (h *Harness) LoadOK(r *region.Region) {
	h.T.Helper()
	if err := h.Orch.Load(r); err != nil {
		h.T.Fatalf("load %s: %v", r.ID, err)
	}
}

func (h *Harness) AdvanceDays(days float64) {
	h.World.Advance(uint64(days * region.TicksPerDay))
}

func (h *Harness) AdvanceYears(years float64) {
	h.World.Advance(uint64(years * region.TicksPerYear))
}

// SpawnStructure places a finished structure of the given material.
func (h *Harness) SpawnStructure(r *region.Region, def string, pos region.Vec2i, mat region.Material, maxHP int) *region.Entity {
	h.T.Helper()
	e := &region.Entity{
		ID:       region.NewID(),
		Def:      def,
		Kind:     region.KindStructure,
		Pos:      pos,
		HP:       maxHP,
		MaxHP:    maxHP,
		Material: mat,
		Faction:  PlayerFaction,
	}
	h.spawn(r, e)
	return e
}

func (h *Harness) SpawnItem(r *region.Region, def string, pos region.Vec2i, maxHP int) *region.Entity {
	h.T.Helper()
	e := &region.Entity{
		ID:    region.NewID(),
		Def:   def,
		Kind:  region.KindItem,
		Pos:   pos,
		HP:    maxHP,
		MaxHP: maxHP,
	}
	h.spawn(r, e)
	return e
}

// SpawnPerishable places a perishable item with the given rot threshold.
func (h *Harness) SpawnPerishable(r *region.Region, def string, pos region.Vec2i, threshold float64) *region.Entity {
	h.T.Helper()
	e := &region.Entity{
		ID:           region.NewID(),
		Def:          def,
		Kind:         region.KindItem,
		Pos:          pos,
		HP:           10,
		MaxHP:        10,
		RotThreshold: threshold,
	}
	h.spawn(r, e)
	return e
}

func (h *Harness) SpawnCreature(r *region.Region, def string, pos region.Vec2i, faction string, humanlike bool) *region.Entity {
	h.T.Helper()
	e := &region.Entity{
		ID:        region.NewID(),
		Def:       def,
		Kind:      region.KindCreature,
		Pos:       pos,
		HP:        20,
		MaxHP:     20,
		Faction:   faction,
		Humanlike: humanlike,
	}
	h.spawn(r, e)
	return e
}

func (h *Harness) SpawnContainer(r *region.Region, def string, pos region.Vec2i) *region.Entity {
	h.T.Helper()
	e := &region.Entity{
		ID:        region.NewID(),
		Def:       def,
		Kind:      region.KindStructure,
		Pos:       pos,
		HP:        100,
		MaxHP:     100,
		Material:  region.MaterialMetal,
		Container: true,
		Faction:   PlayerFaction,
	}
	h.spawn(r, e)
	return e
}

func (h *Harness) spawn(r *region.Region, e *region.Entity) {
	h.T.Helper()
	if err := h.World.Identities.Register(e.ID, e); err != nil {
		h.T.Fatalf("register %s: %v", e.ID, err)
	}
	if err := r.Spawn(e); err != nil {
		h.T.Fatalf("spawn %s: %v", e.ID, err)
	}
}

// RoofOver marks the cells in the rectangle roofed and keeps the roof
// supported by a stone post so recomputation does not strip it.
func (h *Harness) RoofOver(r *region.Region, from, to region.Vec2i) {
	h.T.Helper()
	for z := from.Z; z <= to.Z; z++ {
		for x := from.X; x <= to.X; x++ {
			r.Roof[r.Index(region.Vec2i{X: x, Z: z})] = 1
		}
	}
	h.SpawnStructure(r, "support_post", from, region.MaterialStone, 500)
}

// FloorOver lays constructed floor over the rectangle.
func (h *Harness) FloorOver(r *region.Region, from, to region.Vec2i) {
	for z := from.Z; z <= to.Z; z++ {
		for x := from.X; x <= to.X; x++ {
			r.Terrain[r.Index(region.Vec2i{X: x, Z: z})] = region.TerrainFloorBase
		}
	}
}

// CountFloors returns the number of constructed-floor cells.
func CountFloors(r *region.Region) int {
	n := 0
	for _, t := range r.Terrain {
		if region.IsConstructedFloor(t) {
			n++
		}
	}
	return n
}
