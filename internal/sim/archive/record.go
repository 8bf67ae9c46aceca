package archive

import (
	"github.com/elitenudel/KjellnersPesistentMaps/internal/persistence/archivefile"
	"github.com/elitenudel/KjellnersPesistentMaps/internal/sim/region"
)

func entityToWire(e *region.Entity) archivefile.EntityV1 {
	v := archivefile.EntityV1{
		ID:                e.ID,
		Def:               e.Def,
		Kind:              int(e.Kind),
		Pos:               [2]int{e.Pos.X, e.Pos.Z},
		Rot:               e.Rot,
		HP:                e.HP,
		MaxHP:             e.MaxHP,
		Faction:           e.Faction,
		Humanlike:         e.Humanlike,
		Material:          int(e.Material),
		UnderConstruction: e.UnderConstruction,
		NaturalRock:       e.NaturalRock,
		RotProgress:       e.RotProgress,
		RotThreshold:      e.RotThreshold,
		Container:         e.Container,
		InnerDeadID:       e.InnerDeadID,
		GroupID:           e.GroupID,
		TaskState:         e.TaskState,
	}
	for _, o := range e.Occupants {
		if o != nil {
			v.Occupants = append(v.Occupants, entityToWire(o))
		}
	}
	return v
}

func entityFromWire(v archivefile.EntityV1) *region.Entity {
	e := &region.Entity{
		ID:                v.ID,
		Def:               v.Def,
		Kind:              region.Kind(v.Kind),
		Pos:               region.Vec2i{X: v.Pos[0], Z: v.Pos[1]},
		Rot:               v.Rot,
		HP:                v.HP,
		MaxHP:             v.MaxHP,
		Faction:           v.Faction,
		Humanlike:         v.Humanlike,
		Material:          region.Material(v.Material),
		UnderConstruction: v.UnderConstruction,
		NaturalRock:       v.NaturalRock,
		RotProgress:       v.RotProgress,
		RotThreshold:      v.RotThreshold,
		Container:         v.Container,
		InnerDeadID:       v.InnerDeadID,
		GroupID:           v.GroupID,
		TaskState:         v.TaskState,
	}
	for _, o := range v.Occupants {
		e.Occupants = append(e.Occupants, entityFromWire(o))
	}
	return e
}

func groupToWire(g *region.GroupController) archivefile.GroupV1 {
	v := archivefile.GroupV1{ID: g.ID, Def: g.Def, Faction: g.Faction}
	for _, e := range g.Owned {
		if e != nil {
			v.OwnedID = append(v.OwnedID, e.ID)
		}
	}
	return v
}

func groupFromWire(v archivefile.GroupV1) *region.GroupController {
	return &region.GroupController{ID: v.ID, Def: v.Def, Faction: v.Faction}
}
