package archive

import (
	"log"
	"os"
	"time"

	"github.com/elitenudel/KjellnersPesistentMaps/internal/protocol"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// IndexSink receives index rows for completed operations. Implementations
// are fire-and-forget; the orchestrator never blocks on indexing.
type IndexSink interface {
	RecordArchive(regionID string, abandonedTick uint64, path string, entities, groups int)
	RemoveArchive(regionID string)
	PutSideRegistry(regionID string, payload []byte)
	DeleteSideRegistry(regionID string)
}

// EventSink receives operation events for the observer feed.
type EventSink interface {
	Publish(ev protocol.OpEvent)
}

// OpLog receives operation events for the persistent operation log.
type OpLog interface {
	Write(v any) error
}

// Orchestrator drives region archive saves and restores. Exactly one save or
// load is ever in flight at a time; all hooks (index, events, oplog,
// metrics) are optional.
type Orchestrator struct {
	World *region.World
	Sides *SideTable
	Dir   string

	Eligibility Eligibility
	Components  *ComponentRegistry
	Decay       *DecayEngine

	Logger  *log.Logger
	OpLog   OpLog
	Events  EventSink
	Metrics *Metrics
	Index   IndexSink
}

func NewOrchestrator(w *region.World, sides *SideTable, dir string, decay *DecayEngine) *Orchestrator {
	return &Orchestrator{
		World:       w,
		Sides:       sides,
		Dir:         dir,
		Eligibility: Eligibility{World: w},
		Components:  NewComponentRegistry(),
		Decay:       decay,
		Logger:      log.New(os.Stdout, "[archive] ", log.LstdFlags|log.Lmicroseconds),
	}
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	}
}

func (o *Orchestrator) emit(ev protocol.OpEvent) {
	ev.CreatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	if o.OpLog != nil {
		if err := o.OpLog.Write(ev); err != nil {
			o.logf("oplog: %v", err)
		}
	}
	if o.Events != nil {
		o.Events.Publish(ev)
	}
}
