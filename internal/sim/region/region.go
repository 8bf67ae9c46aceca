package region

import (
	"fmt"
	"sort"
)

// Compressed simulation calendar. All decay math derives elapsed days and
// years from these, so they live next to the clock rather than in tuning.
const (
	TicksPerDay  = 2500
	DaysPerYear  = 24
	TicksPerYear = TicksPerDay * DaysPerYear
)

type Vec2i struct {
	X int `json:"x"`
	Z int `json:"z"`
}

func (v Vec2i) Add(o Vec2i) Vec2i { return Vec2i{v.X + o.X, v.Z + o.Z} }

// Region is a bounded spatial area of the live simulation. Cell layers are
// row-major (z*Width + x); entity placement keeps the byID map and the
// Spawned flag in sync.
type Region struct {
	ID     string
	Width  int
	Height int
	TileID int

	Terrain []uint16
	Roof    []uint16
	Snow    []uint16
	// Optional layers; nil while the owning feature is disabled.
	Pollution []uint16
	Fog       []uint16

	Groups *GroupManager

	byID  map[string]*Entity
	order []string

	pendingCollapse []Vec2i
}

func New(id string, width, height, tileID int) *Region {
	n := width * height
	return &Region{
		ID:      id,
		Width:   width,
		Height:  height,
		TileID:  tileID,
		Terrain: make([]uint16, n),
		Roof:    make([]uint16, n),
		Snow:    make([]uint16, n),
		Fog:     make([]uint16, n),
		Groups:  NewGroupManager(),
		byID:    map[string]*Entity{},
	}
}

func (r *Region) CellCount() int { return r.Width * r.Height }

func (r *Region) Index(c Vec2i) int { return c.Z*r.Width + c.X }

func (r *Region) InBounds(c Vec2i) bool {
	return c.X >= 0 && c.Z >= 0 && c.X < r.Width && c.Z < r.Height
}

func (r *Region) CellAt(i int) Vec2i { return Vec2i{X: i % r.Width, Z: i / r.Width} }

func (r *Region) IsRoofed(c Vec2i) bool {
	if !r.InBounds(c) {
		return false
	}
	return r.Roof[r.Index(c)] != 0
}

// EnablePollution activates the optional pollution layer.
func (r *Region) EnablePollution() {
	if r.Pollution == nil {
		r.Pollution = make([]uint16, r.CellCount())
	}
}

// Spawn places an entity into the region. The id must be unique within the
// region; world-level identity bookkeeping is the caller's concern.
func (r *Region) Spawn(e *Entity) error {
	if e == nil || e.ID == "" {
		return fmt.Errorf("spawn: entity without id")
	}
	if _, ok := r.byID[e.ID]; ok {
		return fmt.Errorf("spawn: duplicate entity id %s in region %s", e.ID, r.ID)
	}
	if !r.InBounds(e.Pos) {
		return fmt.Errorf("spawn: %s out of bounds at %v", e.ID, e.Pos)
	}
	r.byID[e.ID] = e
	r.order = append(r.order, e.ID)
	e.Spawned = true
	return nil
}

// Despawn removes an entity from the region without destroying it.
func (r *Region) Despawn(e *Entity) {
	if e == nil {
		return
	}
	if _, ok := r.byID[e.ID]; !ok {
		return
	}
	delete(r.byID, e.ID)
	for i, id := range r.order {
		if id == e.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	e.Spawned = false
}

func (r *Region) Find(id string) *Entity { return r.byID[id] }

// Entities returns the placed entities in stable spawn order. The slice is a
// snapshot; mutating the region while iterating it is safe.
func (r *Region) Entities() []*Entity {
	out := make([]*Entity, 0, len(r.byID))
	for _, id := range r.order {
		if e, ok := r.byID[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// EntitiesAt returns placed entities standing on the given cell.
func (r *Region) EntitiesAt(c Vec2i) []*Entity {
	var out []*Entity
	for _, e := range r.Entities() {
		if e.Pos == c {
			out = append(out, e)
		}
	}
	return out
}

// ContainerAt returns the first container standing on the cell, if any.
func (r *Region) ContainerAt(c Vec2i) *Entity {
	for _, e := range r.EntitiesAt(c) {
		if e.Container {
			return e
		}
	}
	return nil
}

// Structures returns placed structures sorted by id for deterministic
// iteration in decay passes.
func (r *Region) Structures() []*Entity {
	var out []*Entity
	for _, e := range r.Entities() {
		if e.Kind == KindStructure {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// QueueCollapse marks a cell for a deferred roof-collapse check.
func (r *Region) QueueCollapse(c Vec2i) { r.pendingCollapse = append(r.pendingCollapse, c) }

func (r *Region) PendingCollapses() int { return len(r.pendingCollapse) }

func (r *Region) ClearPendingCollapses() { r.pendingCollapse = nil }

// RecomputeStructuralSupport re-derives roof support from standing
// structures: any roofed cell with no structure within one cell loses its
// roof. Called after the roof layer is rewritten wholesale.
func (r *Region) RecomputeStructuralSupport() {
	structs := r.Structures()
	for i := range r.Roof {
		if r.Roof[i] == 0 {
			continue
		}
		c := r.CellAt(i)
		supported := false
		for _, s := range structs {
			dx, dz := s.Pos.X-c.X, s.Pos.Z-c.Z
			if dx >= -1 && dx <= 1 && dz >= -1 && dz <= 1 {
				supported = true
				break
			}
		}
		if !supported {
			r.Roof[i] = 0
		}
	}
}
