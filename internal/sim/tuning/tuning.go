package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Decay holds every constant the offline-decay engine uses. Defaults are
// compiled in; an operator can override them from a yaml file.
type Decay struct {
	// Perishables: rot is integrated stepwise because the rot rate is a
	// nonlinear function of temperature, which varies inside the elapsed
	// interval.
	PerishStepTicks uint64 `yaml:"perish_step_ticks"`

	// Outdoor item deterioration.
	OutdoorIntervalTicks uint64  `yaml:"outdoor_interval_ticks"`
	OutdoorDamagePerStep float64 `yaml:"outdoor_damage_per_step"`
	OutdoorRainMin       float64 `yaml:"outdoor_rain_min"`
	OutdoorRainMax       float64 `yaml:"outdoor_rain_max"`

	// Structural material decay, yearly damage fractions by material.
	MaterialWood    float64 `yaml:"material_wood"`
	MaterialMetal   float64 `yaml:"material_metal"`
	MaterialStone   float64 `yaml:"material_stone"`
	MaterialNone    float64 `yaml:"material_none"`
	MaterialUnknown float64 `yaml:"material_unknown"`

	RoofedExposure   float64 `yaml:"roofed_exposure"`
	FreezeThawFactor float64 `yaml:"freeze_thaw_factor"`

	// Floor erosion.
	FloorBasePerYear  float64 `yaml:"floor_base_per_year"`
	FloorFreezeFactor float64 `yaml:"floor_freeze_factor"`

	// Structural failure events.
	EventMTBFDays      float64 `yaml:"event_mtbf_days"`
	EventMinYears      float64 `yaml:"event_min_years"`
	EventMaxPerRestore int     `yaml:"event_max_per_restore"`
	EventRadiusMin     int     `yaml:"event_radius_min"`
	EventRadiusMax     int     `yaml:"event_radius_max"`
	EventFalloffExp    float64 `yaml:"event_falloff_exp"`
	EventRoofedCenter  float64 `yaml:"event_roofed_center"`
	EventRoofedTarget  float64 `yaml:"event_roofed_target"`
}

func DefaultDecay() Decay {
	return Decay{
		PerishStepTicks: 2500,

		OutdoorIntervalTicks: 250,
		OutdoorDamagePerStep: 0.015,
		OutdoorRainMin:       0.5,
		OutdoorRainMax:       2.0,

		MaterialWood:    0.15,
		MaterialMetal:   0.07,
		MaterialStone:   0.02,
		MaterialNone:    0.04,
		MaterialUnknown: 0.05,

		RoofedExposure:   0.08,
		FreezeThawFactor: 1.4,

		FloorBasePerYear:  0.06,
		FloorFreezeFactor: 1.5,

		EventMTBFDays:      300,
		EventMinYears:      0.25,
		EventMaxPerRestore: 8,
		EventRadiusMin:     2,
		EventRadiusMax:     6,
		EventFalloffExp:    1.8,
		EventRoofedCenter:  0.65,
		EventRoofedTarget:  0.35,
	}
}

// Load reads overrides from a yaml file on top of the defaults.
func Load(path string) (Decay, error) {
	d := DefaultDecay()
	raw, err := os.ReadFile(path)
	if err != nil {
		return d, err
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("decay tuning %s: %w", path, err)
	}
	return d, nil
}
