package region

// GroupController is an AI coordination object owning a set of entities as a
// unit (a raid squad, a caravan, a manhunter pack). Controllers live in a
// region's GroupManager while the region is active.
type GroupController struct {
	ID      string
	Def     string
	Faction string
	Owned   []*Entity

	// Back-reference to the manager of the region the controller is
	// attached to. Must be set before post-load initialization runs.
	Manager *GroupManager

	initialized bool
}

// OwnsSurvivingNonHuman reports whether any owned entity is a live non-human
// creature still placed in the region.
func (g *GroupController) OwnsSurvivingNonHuman() bool {
	for _, e := range g.Owned {
		if e == nil || e.Destroyed || !e.Spawned {
			continue
		}
		if e.Kind == KindCreature && !e.Humanlike {
			return true
		}
	}
	return false
}

// RemoveOwned drops an entity from the owned set without touching the
// entity itself.
func (g *GroupController) RemoveOwned(id string) {
	for i, e := range g.Owned {
		if e != nil && e.ID == id {
			g.Owned = append(g.Owned[:i], g.Owned[i+1:]...)
			return
		}
	}
}

// Init is the controller's post-load initialization. It requires the manager
// back-reference to already be attached.
func (g *GroupController) Init() error {
	if g.Manager == nil {
		return errNoManager{id: g.ID}
	}
	g.initialized = true
	return nil
}

func (g *GroupController) Initialized() bool { return g.initialized }

type errNoManager struct{ id string }

func (e errNoManager) Error() string {
	return "group controller " + e.id + " initialized without a manager"
}

// GroupManager tracks the controllers active in one region.
type GroupManager struct {
	controllers []*GroupController
}

func NewGroupManager() *GroupManager { return &GroupManager{} }

func (m *GroupManager) Attach(g *GroupController) {
	for _, have := range m.controllers {
		if have == g {
			return
		}
	}
	g.Manager = m
	m.controllers = append(m.controllers, g)
}

func (m *GroupManager) Detach(g *GroupController) {
	for i, have := range m.controllers {
		if have == g {
			m.controllers = append(m.controllers[:i], m.controllers[i+1:]...)
			return
		}
	}
}

func (m *GroupManager) Controllers() []*GroupController {
	out := make([]*GroupController, len(m.controllers))
	copy(out, m.controllers)
	return out
}
