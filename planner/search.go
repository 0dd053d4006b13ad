package planner

import (
	"github.com/brensch/antbeacon/game"
)

const unvisited = -1

// Frontier runs multi-source breadth-first searches over a board.
// The predecessor and queue buffers are reused between calls, so a Frontier
// must not be shared between goroutines.
type Frontier struct {
	board *game.Board
	prev  []int
	queue []int
}

func NewFrontier(board *game.Board) *Frontier {
	return &Frontier{
		board: board,
		prev:  make([]int, board.NumCells()),
		queue: make([]int, 0, board.NumCells()),
	}
}

// Harvestable matches non-empty cells that still hold resources this turn.
func Harvestable(board *game.Board, state *game.TurnState) func(int) bool {
	return func(i int) bool {
		return board.Cells[i].Type != game.CellEmpty && state.Resources[i] > 0
	}
}

// Nearest searches outward from every controlled cell at once and returns the
// path to the first cell satisfying pred that is not itself controlled.
//
// The path runs target-first and stops before the controlled ancestor. Cells
// are expanded in queue order with neighbor slots 0..5, so ties between equally
// near targets go to the earlier seed. An empty controlled set finds nothing.
func (f *Frontier) Nearest(controlled []int, pred func(int) bool) ([]int, bool) {
	if len(controlled) == 0 {
		return nil, false
	}

	for i := range f.prev {
		f.prev[i] = unvisited
	}
	f.queue = f.queue[:0]

	// Seeds are their own predecessor.
	for _, c := range controlled {
		if f.prev[c] != unvisited {
			continue
		}
		f.prev[c] = c
		f.queue = append(f.queue, c)
	}

	for head := 0; head < len(f.queue); head++ {
		cur := f.queue[head]
		if f.prev[cur] != cur && pred(cur) {
			return f.pathTo(cur), true
		}
		for _, nb := range f.board.Cells[cur].Neighbors {
			if nb == game.NoNeighbor || f.prev[nb] != unvisited {
				continue
			}
			f.prev[nb] = cur
			f.queue = append(f.queue, nb)
		}
	}
	return nil, false
}

func (f *Frontier) pathTo(target int) []int {
	var path []int
	for cur := target; f.prev[cur] != cur; cur = f.prev[cur] {
		path = append(path, cur)
	}
	return path
}

// FindNearest is a one-shot Nearest on a fresh Frontier.
func FindNearest(board *game.Board, controlled []int, pred func(int) bool) ([]int, bool) {
	return NewFrontier(board).Nearest(controlled, pred)
}
