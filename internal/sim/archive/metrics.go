package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the operational counters the orchestrator bumps. All optional;
// a nil *Metrics disables them.
type Metrics struct {
	Saves        prometheus.Counter
	Loads        prometheus.Counter
	SaveFailures prometheus.Counter
	LoadFailures prometheus.Counter
	DecayEvents  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Saves: f.NewCounter(prometheus.CounterOpts{
			Name: "region_saves_total", Help: "Completed region archive saves."}),
		Loads: f.NewCounter(prometheus.CounterOpts{
			Name: "region_loads_total", Help: "Completed region archive restores."}),
		SaveFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "region_save_failures_total", Help: "Aborted region archive saves."}),
		LoadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "region_load_failures_total", Help: "Aborted region archive restores."}),
		DecayEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "region_decay_events_total", Help: "Structural failure events applied on restore."}),
	}
}

func (m *Metrics) IncSaves() {
	if m != nil {
		m.Saves.Inc()
	}
}

func (m *Metrics) IncLoads() {
	if m != nil {
		m.Loads.Inc()
	}
}

func (m *Metrics) IncSaveFailures() {
	if m != nil {
		m.SaveFailures.Inc()
	}
}

func (m *Metrics) IncLoadFailures() {
	if m != nil {
		m.LoadFailures.Inc()
	}
}

func (m *Metrics) AddDecayEvents(n int) {
	if m != nil && n > 0 {
		m.DecayEvents.Add(float64(n))
	}
}
