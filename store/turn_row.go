// Package store persists matches: one parquet recording per match with a row
// per turn, and a SQLite index of matches played.
package store

import (
	"encoding/json"
	"fmt"

	"github.com/brensch/antbeacon/game"
	"github.com/brensch/antbeacon/planner"
)

// TurnRow is one planned turn.
//
// The Cell* slices hold the referee snapshot indexed by cell. Beacon cells and
// strengths are parallel and in footprint order.
type TurnRow struct {
	MatchID  string `parquet:"match_id,dict"`
	Turn     int32  `parquet:"turn"`
	Cells    int32  `parquet:"cells"`
	MyScore  int32  `parquet:"my_score"`
	OppScore int32  `parquet:"opp_score"`
	MyAnts   int32  `parquet:"my_ants"`
	OppAnts  int32  `parquet:"opp_ants"`
	AntCost  int32  `parquet:"ant_cost"`

	CellResources []int32 `parquet:"cell_resources,zstd"`
	CellMyAnts    []int32 `parquet:"cell_my_ants,zstd"`
	CellOppAnts   []int32 `parquet:"cell_opp_ants,zstd"`

	Controlled     []int32 `parquet:"controlled"`
	BeaconCell     []int32 `parquet:"beacon_cell"`
	BeaconStrength []int32 `parquet:"beacon_strength"`

	// Reinforced counts beacons raised above the default strength.
	Reinforced    int32  `parquet:"reinforced"`
	FreeAnts      int32  `parquet:"free_ants"`
	Spent         int32  `parquet:"spent"`
	Stop          string `parquet:"stop,dict"`
	ElapsedMicros int64  `parquet:"elapsed_us"`
}

// NewTurnRow flattens a state and its plan into a row.
func NewTurnRow(matchID string, state *game.TurnState, plan *planner.TurnPlan, antCost int) TurnRow {
	row := TurnRow{
		MatchID:       matchID,
		Turn:          int32(state.Turn),
		Cells:         int32(len(state.Resources)),
		MyScore:       int32(state.MyScore),
		OppScore:      int32(state.OppScore),
		MyAnts:        int32(state.TotalMyAnts()),
		OppAnts:       int32(state.TotalOppAnts()),
		AntCost:       int32(antCost),
		CellResources: toInt32(state.Resources),
		CellMyAnts:    toInt32(state.MyAnts),
		CellOppAnts:   toInt32(state.OppAnts),
		Controlled:    toInt32(plan.Controlled),
		FreeAnts:      int32(plan.FreeAnts),
		Spent:         int32(plan.Spent),
		Stop:          string(plan.Stop),
		ElapsedMicros: plan.Elapsed.Microseconds(),
	}
	row.BeaconCell = make([]int32, len(plan.Beacons))
	row.BeaconStrength = make([]int32, len(plan.Beacons))
	for i, b := range plan.Beacons {
		row.BeaconCell[i] = int32(b.Cell)
		row.BeaconStrength[i] = int32(b.Strength)
		if b.Strength > antCost {
			row.Reinforced++
		}
	}
	return row
}

// Beacons rebuilds the beacon list from the row.
func (r TurnRow) Beacons() []game.Beacon {
	out := make([]game.Beacon, len(r.BeaconCell))
	for i := range r.BeaconCell {
		cell := int(r.BeaconCell[i])
		out[i] = game.Beacon{Cell: cell, Strength: int(r.BeaconStrength[i])}
		if cell < len(r.CellResources) {
			out[i].Resources = int(r.CellResources[cell])
		}
		if cell < len(r.CellOppAnts) {
			out[i].OppAnts = int(r.CellOppAnts[cell])
		}
	}
	return out
}

func toInt32(xs []int) []int32 {
	out := make([]int32, len(xs))
	for i, x := range xs {
		out[i] = int32(x)
	}
	return out
}

// BoardSnapshot is the static board, stored as JSON in the recording's
// key/value metadata under "board".
type BoardSnapshot struct {
	Types     []uint8  `json:"types"`
	Resources []int    `json:"resources"`
	Neighbors [][6]int `json:"neighbors"`
	MyBases   []int    `json:"my_bases"`
	OppBases  []int    `json:"opp_bases"`
}

func SnapshotBoard(b *game.Board) BoardSnapshot {
	s := BoardSnapshot{
		Types:     make([]uint8, b.NumCells()),
		Resources: make([]int, b.NumCells()),
		Neighbors: make([][6]int, b.NumCells()),
		MyBases:   append([]int(nil), b.MyBases...),
		OppBases:  append([]int(nil), b.OppBases...),
	}
	for i, c := range b.Cells {
		s.Types[i] = uint8(c.Type)
		s.Resources[i] = c.Resources
		s.Neighbors[i] = c.Neighbors
	}
	return s
}

// Board rebuilds and validates the board.
func (s BoardSnapshot) Board() (*game.Board, error) {
	if len(s.Resources) != len(s.Types) || len(s.Neighbors) != len(s.Types) {
		return nil, fmt.Errorf("%w: snapshot lengths differ", game.ErrInvalidBoard)
	}
	cells := make([]game.Cell, len(s.Types))
	for i := range cells {
		typ, err := game.ParseCellType(int(s.Types[i]))
		if err != nil {
			return nil, err
		}
		cells[i] = game.Cell{Type: typ, Resources: s.Resources[i], Neighbors: s.Neighbors[i]}
	}
	return game.NewBoard(cells, s.MyBases, s.OppBases)
}

func encodeBoard(b *game.Board) (string, error) {
	buf, err := json.Marshal(SnapshotBoard(b))
	if err != nil {
		return "", fmt.Errorf("encode board: %w", err)
	}
	return string(buf), nil
}

func decodeBoard(s string) (*game.Board, error) {
	var snap BoardSnapshot
	if err := json.Unmarshal([]byte(s), &snap); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	return snap.Board()
}
