package archive

import (
	"math"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// FailureEvent is one discrete structural failure sampled from the elapsed
// interval: a collapse, a burst pipe, a fallen tree.
type FailureEvent struct {
	Center   region.Vec2i
	Radius   int
	Severity float64
}

// Severity saturates toward 1 with elapsed years; the rate is chosen so ten
// abandoned years land at roughly 0.86.
const severityRate = 0.1966

func failureSeverity(years float64) float64 {
	if years <= 0 {
		return 0
	}
	return 1 - math.Exp(-severityRate*years)
}

// StructuralFailures samples the elapsed interval for discrete failure
// events and applies their damage. The expected event count is elapsed time
// over an adjusted mean time between failures; high rainfall, freeze-thaw
// and low roof coverage among candidate structures all shorten it.
func (d *DecayEngine) StructuralFailures(ctx DecayContext) []FailureEvent {
	years := ctx.YearsPassed()
	if years < d.Tuning.EventMinYears {
		return nil
	}

	candidates := d.failureCandidates(ctx)
	if len(candidates) == 0 {
		return nil
	}

	roofed := 0
	for _, s := range candidates {
		if ctx.Region.IsRoofed(s.Pos) {
			roofed++
		}
	}
	roofFrac := float64(roofed) / float64(len(candidates))

	freeze := 1.0
	if ctx.FreezeThaw {
		freeze = d.Tuning.FreezeThawFactor
	}
	divisor := (1 + ctx.RainfallNorm) * freeze * (2 - roofFrac)
	mtbfTicks := d.Tuning.EventMTBFDays * float64(region.TicksPerDay) / divisor
	if mtbfTicks <= 0 {
		return nil
	}

	expected := float64(ctx.ElapsedTicks) / mtbfTicks
	n := int(expected)
	if d.Rand.Float64() < expected-float64(n) {
		n++
	}
	if n > d.Tuning.EventMaxPerRestore {
		n = d.Tuning.EventMaxPerRestore
	}

	var events []FailureEvent
	for i := 0; i < n; i++ {
		survivors := d.failureCandidates(ctx)
		if len(survivors) == 0 {
			break
		}
		epicenter := d.pickEpicenter(ctx, survivors)
		radius := d.Tuning.EventRadiusMin +
			d.Rand.Intn(d.Tuning.EventRadiusMax-d.Tuning.EventRadiusMin+1)
		ev := FailureEvent{Center: epicenter.Pos, Radius: radius, Severity: failureSeverity(years)}
		d.applyFailure(ctx, ev, ctx.Region.IsRoofed(epicenter.Pos))
		events = append(events, ev)
	}
	return events
}

func (d *DecayEngine) failureCandidates(ctx DecayContext) []*region.Entity {
	var out []*region.Entity
	for _, s := range ctx.Region.Structures() {
		if s.Destroyed || s.UnderConstruction || s.NaturalRock {
			continue
		}
		out = append(out, s)
	}
	return out
}

// pickEpicenter prefers unroofed structures; with none exposed, any
// survivor can fail.
func (d *DecayEngine) pickEpicenter(ctx DecayContext, survivors []*region.Entity) *region.Entity {
	var unroofed []*region.Entity
	for _, s := range survivors {
		if !ctx.Region.IsRoofed(s.Pos) {
			unroofed = append(unroofed, s)
		}
	}
	if len(unroofed) > 0 && d.Rand.Float64() < 0.75 {
		return unroofed[d.Rand.Intn(len(unroofed))]
	}
	return survivors[d.Rand.Intn(len(survivors))]
}

func (d *DecayEngine) applyFailure(ctx DecayContext, ev FailureEvent, roofedCenter bool) {
	falloff := func(c region.Vec2i) float64 {
		dx, dz := float64(c.X-ev.Center.X), float64(c.Z-ev.Center.Z)
		dist := math.Sqrt(dx*dx + dz*dz)
		if dist > float64(ev.Radius) {
			return 0
		}
		return math.Pow(1-dist/float64(ev.Radius+1), d.Tuning.EventFalloffExp)
	}

	for _, s := range d.failureCandidates(ctx) {
		f := falloff(s.Pos)
		if f <= 0 {
			continue
		}
		frac := ev.Severity * f
		if roofedCenter {
			frac *= d.Tuning.EventRoofedCenter
		}
		if ctx.Region.IsRoofed(s.Pos) {
			frac *= d.Tuning.EventRoofedTarget
		}
		s.Damage(int(math.Round(float64(s.MaxHP) * frac)))
	}

	// Same falloff drives floor removal inside the radius, scaled by
	// severity and exposure.
	r := ctx.Region
	for z := ev.Center.Z - ev.Radius; z <= ev.Center.Z+ev.Radius; z++ {
		for x := ev.Center.X - ev.Radius; x <= ev.Center.X+ev.Radius; x++ {
			c := region.Vec2i{X: x, Z: z}
			if !r.InBounds(c) {
				continue
			}
			i := r.Index(c)
			if !region.IsConstructedFloor(r.Terrain[i]) {
				continue
			}
			f := falloff(c)
			if f <= 0 {
				continue
			}
			exposure := 1.0
			if r.Roof[i] != 0 {
				exposure = d.Tuning.RoofedExposure
			}
			if d.Rand.Float64() < ev.Severity*f*exposure {
				r.Terrain[i] = region.TerrainSoil
			}
		}
	}
}
