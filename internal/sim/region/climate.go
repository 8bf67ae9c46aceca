package region

import "math"

// TileClimate is the climate sample for one world-map tile.
type TileClimate struct {
	BaseTempC    float64
	SeasonalAmpC float64
	DiurnalAmpC  float64
	RainfallNorm float64 // [0,1]
}

// Climate answers read-only climate queries per world-map tile. Temperature
// is a pure function of tile and tick (seasonal plus diurnal term), so decay
// reconstruction can sample any point of an elapsed interval.
type Climate struct {
	Default TileClimate
	Tiles   map[int]TileClimate
}

func NewClimate(def TileClimate) *Climate {
	return &Climate{Default: def, Tiles: map[int]TileClimate{}}
}

func (c *Climate) tile(id int) TileClimate {
	if t, ok := c.Tiles[id]; ok {
		return t
	}
	return c.Default
}

func (c *Climate) Temperature(tileID int, tick uint64) float64 {
	t := c.tile(tileID)
	yearFrac := float64(tick%TicksPerYear) / float64(TicksPerYear)
	dayFrac := float64(tick%TicksPerDay) / float64(TicksPerDay)
	return t.BaseTempC +
		t.SeasonalAmpC*math.Sin(2*math.Pi*yearFrac) +
		t.DiurnalAmpC*math.Sin(2*math.Pi*dayFrac)
}

func (c *Climate) Rainfall(tileID int) float64 {
	r := c.tile(tileID).RainfallNorm
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// FreezeThaw reports whether the tile's temperature range crosses 0°C across
// a 12-sample year (diurnal term excluded; it is symmetric around the
// seasonal curve).
func (c *Climate) FreezeThaw(tileID int) bool {
	t := c.tile(tileID)
	min, max := math.Inf(1), math.Inf(-1)
	for i := 0; i < 12; i++ {
		yearFrac := float64(i) / 12
		temp := t.BaseTempC + t.SeasonalAmpC*math.Sin(2*math.Pi*yearFrac)
		min = math.Min(min, temp)
		max = math.Max(max, temp)
	}
	return min < 0 && max > 0
}
