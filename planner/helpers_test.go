package planner

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/brensch/antbeacon/game"
)

type boardBuilder struct {
	cells []game.Cell
}

func newBoardBuilder(n int) *boardBuilder {
	cells := make([]game.Cell, n)
	for i := range cells {
		for d := range cells[i].Neighbors {
			cells[i].Neighbors[d] = game.NoNeighbor
		}
	}
	return &boardBuilder{cells: cells}
}

// link connects a to b through direction dir, and b back to a through the
// opposite direction.
func (bb *boardBuilder) link(a, dir, b int) *boardBuilder {
	bb.cells[a].Neighbors[dir] = b
	bb.cells[b].Neighbors[(dir+3)%game.NumDirections] = a
	return bb
}

func (bb *boardBuilder) resource(i int, typ game.CellType, amount int) *boardBuilder {
	bb.cells[i].Type = typ
	bb.cells[i].Resources = amount
	return bb
}

func (bb *boardBuilder) build(t *testing.T, myBases, oppBases []int) *game.Board {
	t.Helper()
	b, err := game.NewBoard(bb.cells, myBases, oppBases)
	if err != nil {
		t.Fatalf("build board: %v", err)
	}
	return b
}

// chainBuilder links 0-1-...-(n-1) through direction 0.
func chainBuilder(n int) *boardBuilder {
	bb := newBoardBuilder(n)
	for i := 0; i+1 < n; i++ {
		bb.link(i, 0, i+1)
	}
	return bb
}

// stateFor copies the board's initial resources into a fresh turn state.
func stateFor(b *game.Board, turn int) *game.TurnState {
	s := game.NewTurnState(turn, b.NumCells())
	for i, c := range b.Cells {
		s.Resources[i] = c.Resources
	}
	return s
}

// hexGrid builds a w*h parallelogram of hex cells in axial coordinates with
// random resources. Directions 0..5 are (1,0) (1,-1) (0,-1) (-1,0) (-1,1) (0,1).
func hexGrid(t *testing.T, rng *rand.Rand, w, h int, resourceChance float64) *game.Board {
	t.Helper()
	bb := newBoardBuilder(w * h)
	idx := func(q, r int) int { return r*w + q }
	for r := 0; r < h; r++ {
		for q := 0; q < w; q++ {
			i := idx(q, r)
			if q+1 < w {
				bb.link(i, 0, idx(q+1, r))
			}
			if q+1 < w && r > 0 {
				bb.link(i, 1, idx(q+1, r-1))
			}
			if r > 0 {
				bb.link(i, 2, idx(q, r-1))
			}
			if rng.Float64() < resourceChance {
				typ := game.CellEgg
				if rng.Intn(2) == 0 {
					typ = game.CellCrystal
				}
				bb.resource(i, typ, rng.Intn(3)*10)
			}
		}
	}

	perm := rng.Perm(w * h)
	nBases := 1 + rng.Intn(3)
	return bb.build(t, perm[:nBases], perm[nBases:2*nBases])
}

// distancesFrom runs a plain BFS from the given sources and returns hop counts,
// -1 for unreachable cells.
func distancesFrom(b *game.Board, sources []int) []int {
	dist := make([]int, b.NumCells())
	for i := range dist {
		dist[i] = -1
	}
	queue := []int{}
	for _, s := range sources {
		if dist[s] == -1 {
			dist[s] = 0
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, nb := range b.Cells[cur].Neighbors {
			if nb != game.NoNeighbor && dist[nb] == -1 {
				dist[nb] = dist[cur] + 1
				queue = append(queue, nb)
			}
		}
	}
	return dist
}

func adjacent(b *game.Board, x, y int) bool {
	for _, nb := range b.Cells[x].Neighbors {
		if nb == y {
			return true
		}
	}
	return false
}

func dumpFootprint(b *game.Board, s *game.TurnState, controlled []int) string {
	in := make(map[int]bool, len(controlled))
	for _, c := range controlled {
		in[c] = true
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Turn=%d Cells=%d Ants=%d Controlled=%v\n", s.Turn, b.NumCells(), s.TotalMyAnts(), controlled)
	for i, c := range b.Cells {
		mark := ' '
		switch {
		case b.IsBase(i):
			mark = 'B'
		case in[i]:
			mark = '*'
		}
		fmt.Fprintf(&sb, "%c %3d %-7s res=%-3d my=%-3d opp=%-3d nb=%v\n",
			mark, i, c.Type, s.Resources[i], s.MyAnts[i], s.OppAnts[i], c.Neighbors)
	}
	return sb.String()
}

func beaconMap(beacons []game.Beacon) map[int]int {
	m := make(map[int]int, len(beacons))
	for _, b := range beacons {
		m[b.Cell] = b.Strength
	}
	return m
}
