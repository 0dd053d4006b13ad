package planner

import (
	"github.com/brensch/antbeacon/game"
)

// StopReason records why footprint expansion ended.
type StopReason string

const (
	// StopExhausted means no harvestable cell is reachable from the footprint.
	StopExhausted StopReason = "exhausted"
	// StopBudget means the nearest target costs more than the free ants.
	StopBudget StopReason = "budget"
)

// Expansion is the result of one turn of footprint growth.
type Expansion struct {
	// Controlled starts with the bases and then lists admitted cells in
	// admission order, each path target-first.
	Controlled []int
	// FreeAnts is the supply left after admission costs.
	FreeAnts int
	// Spent is the total debited from the initial supply.
	Spent    int
	Admitted int
	Stop     StopReason
}

// Expand grows the controlled footprint from bases toward the nearest
// harvestable cells while the ant supply covers len(path)*AntCost.
//
// The first path is always admitted, even when unaffordable, so the colony
// never stalls on its bases. Debits are clamped to the remaining supply.
func Expand(board *game.Board, state *game.TurnState, bases []int, cfg Config) Expansion {
	return expandWith(NewFrontier(board), Harvestable(board, state), state.TotalMyAnts(), bases, cfg)
}

func expandWith(f *Frontier, pred func(int) bool, ants int, bases []int, cfg Config) Expansion {
	controlled := make([]int, 0, len(bases)+8)
	seen := make(map[int]bool, len(bases))
	for _, b := range bases {
		if seen[b] {
			continue
		}
		seen[b] = true
		controlled = append(controlled, b)
	}
	baseCount := len(controlled)

	exp := Expansion{FreeAnts: ants}
	for {
		path, ok := f.Nearest(controlled, pred)
		if !ok {
			exp.Stop = StopExhausted
			break
		}

		cost := len(path) * cfg.AntCost
		if cost > exp.FreeAnts && len(controlled) != baseCount {
			exp.Stop = StopBudget
			break
		}

		controlled = append(controlled, path...)
		debit := min(cost, exp.FreeAnts)
		exp.FreeAnts -= debit
		exp.Spent += debit
		exp.Admitted++
	}

	exp.Controlled = controlled
	return exp
}
