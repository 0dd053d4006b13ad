package planner

import (
	"github.com/brensch/antbeacon/game"
)

// Allocate turns the footprint into beacons and returns them with the ants
// left unspent.
//
// Every cell gets AntCost. Then, in footprint order, a cell that still holds
// resources and where the opponent has more than AntCost ants is raised to the
// opponent count if the remaining supply covers the whole deficit. Cells that
// cannot be fully covered keep the default.
func Allocate(controlled []int, state *game.TurnState, freeAnts int, cfg Config) ([]game.Beacon, int) {
	beacons := make([]game.Beacon, len(controlled))
	for i, cell := range controlled {
		beacons[i] = game.Beacon{
			Cell:      cell,
			Strength:  cfg.AntCost,
			Resources: state.Resources[cell],
			OppAnts:   state.OppAnts[cell],
		}
	}

	for i := range beacons {
		b := &beacons[i]
		if b.Resources <= 0 || b.OppAnts <= b.Strength {
			continue
		}
		deficit := b.OppAnts - cfg.AntCost
		if deficit > freeAnts {
			continue
		}
		b.Strength += deficit
		freeAnts -= deficit
	}

	return beacons, freeAnts
}
