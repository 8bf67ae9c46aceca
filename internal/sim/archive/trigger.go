package archive

import (
	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/archivefile"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

// Trigger is the thin host-facing adapter: the host calls it when a region
// deactivates or reactivates, and it decides nothing beyond "archive exists
// or not". Errors stay inside the orchestrator's logging; the host always
// keeps running.
type Trigger struct {
	Orch *Orchestrator
}

func (t *Trigger) OnRegionDeactivated(r *region.Region, locationID string) {
	if r != nil && r.ID == "" {
		r.ID = locationID
	}
	_ = t.Orch.Save(r)
}

func (t *Trigger) OnRegionActivated(r *region.Region, locationID string) {
	if r != nil && r.ID == "" {
		r.ID = locationID
	}
	if r == nil || !archivefile.Exists(t.Orch.Dir, r.ID) {
		return
	}
	_ = t.Orch.Load(r)
}
