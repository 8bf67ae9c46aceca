package archive

import (
	"math"
	"math/rand"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/tuning"
)

// DecayContext is the read-only parameter set shared by every decay pass of
// one restore, derived once so all passes see the same climate sample.
type DecayContext struct {
	Region       *region.Region
	StartTick    uint64
	ElapsedTicks uint64
	TileID       int
	RainfallNorm float64
	FreezeThaw   bool
}

func NewDecayContext(w *region.World, r *region.Region, abandonedTick uint64) DecayContext {
	now := w.Now()
	var elapsed uint64
	if now > abandonedTick {
		elapsed = now - abandonedTick
	}
	return DecayContext{
		Region:       r,
		StartTick:    abandonedTick,
		ElapsedTicks: elapsed,
		TileID:       r.TileID,
		RainfallNorm: w.Climate.Rainfall(r.TileID),
		FreezeThaw:   w.Climate.FreezeThaw(r.TileID),
	}
}

func (c DecayContext) YearsPassed() float64 {
	return float64(c.ElapsedTicks) / float64(region.TicksPerYear)
}

// DecayEngine reconstructs what would have happened to materials, structures
// and perishables over an elapsed interval, as closed-form or stepwise
// approximations rather than a tick replay. Deterministic given identical
// inputs and random source.
type DecayEngine struct {
	Tuning  tuning.Decay
	Climate *region.Climate
	Rand    *rand.Rand
}

func NewDecayEngine(t tuning.Decay, climate *region.Climate, rnd *rand.Rand) *DecayEngine {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(rand.Int63()))
	}
	return &DecayEngine{Tuning: t, Climate: climate, Rand: rnd}
}

// rotRatePerTick maps temperature to rot progress per tick. Nonlinear:
// frozen goods do not rot at all, the rate ramps through the chill band and
// keeps climbing slowly past it.
func rotRatePerTick(tempC float64) float64 {
	switch {
	case tempC <= 0:
		return 0
	case tempC < 10:
		return tempC / 10
	default:
		return 1 + (tempC-10)*0.05
	}
}

// DecayPerishable integrates rot over the elapsed interval in fixed steps,
// sampling temperature at each step start. Stepwise because the rot rate is
// a nonlinear function of a temperature that varies within the interval.
// Returns true if accumulated rot reached the threshold; the entity is then
// destroyed and must not be spawned.
func (d *DecayEngine) DecayPerishable(ctx DecayContext, e *region.Entity) bool {
	if e.RotThreshold <= 0 || e.Destroyed {
		return false
	}
	progress := e.RotProgress
	step := d.Tuning.PerishStepTicks
	if step == 0 {
		step = 2500
	}
	for t := uint64(0); t < ctx.ElapsedTicks; t += step {
		n := step
		if t+n > ctx.ElapsedTicks {
			n = ctx.ElapsedTicks - t
		}
		temp := d.Climate.Temperature(ctx.TileID, ctx.StartTick+t)
		progress += float64(n) * rotRatePerTick(temp)
		if progress >= e.RotThreshold {
			e.Destroyed = true
			return true
		}
	}
	e.RotProgress = progress
	return false
}

// DeteriorateOutdoor wears down unroofed non-structure entities (dropped
// items, corpses) at a fixed per-interval rate scaled by rainfall.
func (d *DecayEngine) DeteriorateOutdoor(ctx DecayContext, e *region.Entity) {
	if e.Destroyed || (e.Kind != region.KindItem && e.Kind != region.KindCorpse) {
		return
	}
	if ctx.Region.IsRoofed(e.Pos) {
		return
	}
	interval := d.Tuning.OutdoorIntervalTicks
	if interval == 0 {
		interval = 250
	}
	intervals := ctx.ElapsedTicks / interval
	rainFactor := d.Tuning.OutdoorRainMin +
		(d.Tuning.OutdoorRainMax-d.Tuning.OutdoorRainMin)*ctx.RainfallNorm
	dmg := int(math.Round(float64(intervals) * d.Tuning.OutdoorDamagePerStep * rainFactor))
	e.Damage(dmg)
}

func (d *DecayEngine) materialFactor(m region.Material) float64 {
	switch m {
	case region.MaterialWood:
		return d.Tuning.MaterialWood
	case region.MaterialMetal:
		return d.Tuning.MaterialMetal
	case region.MaterialStone:
		return d.Tuning.MaterialStone
	case region.MaterialNone:
		return d.Tuning.MaterialNone
	default:
		return d.Tuning.MaterialUnknown
	}
}

// DecayStructure applies yearly material decay to one structure.
func (d *DecayEngine) DecayStructure(ctx DecayContext, e *region.Entity) {
	if e.Destroyed || e.Kind != region.KindStructure {
		return
	}
	if e.UnderConstruction || e.NaturalRock {
		return
	}
	roofed := ctx.Region.IsRoofed(e.Pos)

	exposure := 1.0
	rain := 0.5 + 1.5*ctx.RainfallNorm
	if roofed {
		exposure = d.Tuning.RoofedExposure
		rain = 1.0
	}
	freeze := 1.0
	if ctx.FreezeThaw {
		freeze = d.Tuning.FreezeThawFactor
	}

	frac := ctx.YearsPassed() * d.materialFactor(e.Material) * exposure * rain * freeze
	e.Damage(int(math.Round(float64(e.MaxHP) * frac)))
}

// FloorRemovalChance is the cumulative probability that an unroofed
// constructed floor eroded away over the elapsed years.
func (d *DecayEngine) FloorRemovalChance(ctx DecayContext) float64 {
	rainMod := 0.5 + 1.5*ctx.RainfallNorm
	freezeMod := 1.0
	if ctx.FreezeThaw {
		freezeMod = d.Tuning.FloorFreezeFactor
	}
	perYear := d.Tuning.FloorBasePerYear * rainMod * freezeMod
	if perYear >= 1 {
		return 1
	}
	if perYear <= 0 {
		return 0
	}
	p := 1 - math.Pow(1-perYear, ctx.YearsPassed())
	if p < 0 {
		return 0
	}
	return p
}

// ErodeFloors samples each unroofed constructed-floor cell once against the
// cumulative removal probability, reverting removed floors to soil. Returns
// the number of cells reverted.
func (d *DecayEngine) ErodeFloors(ctx DecayContext) int {
	p := d.FloorRemovalChance(ctx)
	if p <= 0 {
		return 0
	}
	r := ctx.Region
	removed := 0
	for i := range r.Terrain {
		if !region.IsConstructedFloor(r.Terrain[i]) || r.Roof[i] != 0 {
			continue
		}
		if d.Rand.Float64() < p {
			r.Terrain[i] = region.TerrainSoil
			removed++
		}
	}
	return removed
}

// RunPlaced applies the per-entity and per-region passes to everything
// standing in the region: outdoor deterioration, structural decay, floor
// erosion, then discrete structural-failure events. Perishable rot runs
// separately before placement so destroyed perishables are never spawned.
// Entities destroyed by any pass are despawned. Returns the failure events
// for logging.
func (d *DecayEngine) RunPlaced(ctx DecayContext) []FailureEvent {
	for _, e := range ctx.Region.Entities() {
		d.DeteriorateOutdoor(ctx, e)
		d.DecayStructure(ctx, e)
		if e.Destroyed {
			ctx.Region.Despawn(e)
		}
	}
	d.ErodeFloors(ctx)

	events := d.StructuralFailures(ctx)
	for _, e := range ctx.Region.Entities() {
		if e.Destroyed {
			ctx.Region.Despawn(e)
		}
	}
	return events
}
