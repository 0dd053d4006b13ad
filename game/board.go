// Package game defines the board and per-turn state types for the ant colony
// match.
//
// The Board is built once from the map setup and is read-only for the rest of
// the match. TurnState is replaced wholesale every turn. Cells are addressed by
// their dense index in Board.Cells.
package game

import (
	"errors"
	"fmt"
)

// NoNeighbor marks an absent neighbor slot at the map edge.
const NoNeighbor = -1

// NumDirections is the number of neighbor slots on a hex cell.
const NumDirections = 6

var (
	ErrInvalidBoard = errors.New("invalid board")
	ErrInvalidState = errors.New("invalid turn state")
)

type CellType uint8

const (
	CellEmpty CellType = iota
	CellEgg
	CellCrystal
)

// ParseCellType converts a wire code (0, 1, 2) into a CellType.
func ParseCellType(code int) (CellType, error) {
	switch code {
	case 0:
		return CellEmpty, nil
	case 1:
		return CellEgg, nil
	case 2:
		return CellCrystal, nil
	}
	return CellEmpty, fmt.Errorf("%w: unknown cell type %d", ErrInvalidBoard, code)
}

func (t CellType) String() string {
	switch t {
	case CellEmpty:
		return "empty"
	case CellEgg:
		return "egg"
	case CellCrystal:
		return "crystal"
	default:
		return fmt.Sprintf("CellType(%d)", uint8(t))
	}
}

// Cell is a node of the hex graph. Neighbors holds one index per direction,
// NoNeighbor where the direction leaves the map.
type Cell struct {
	Type      CellType
	Resources int
	Neighbors [NumDirections]int
}

// Board is the static hex graph for a match.
type Board struct {
	Cells    []Cell
	MyBases  []int
	OppBases []int
}

// NewBoard validates the graph and bases and returns the board.
// The slices are retained, callers must not modify them afterwards.
func NewBoard(cells []Cell, myBases, oppBases []int) (*Board, error) {
	b := &Board{Cells: cells, MyBases: myBases, OppBases: oppBases}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Board) NumCells() int {
	return len(b.Cells)
}

// Neighbors returns the neighbor slots of cell i.
func (b *Board) Neighbors(i int) [NumDirections]int {
	return b.Cells[i].Neighbors
}

// IsBase reports whether i is one of our colony bases.
func (b *Board) IsBase(i int) bool {
	for _, base := range b.MyBases {
		if base == i {
			return true
		}
	}
	return false
}

// Validate checks index ranges, neighbor symmetry and the base lists.
func (b *Board) Validate() error {
	n := len(b.Cells)
	if n == 0 {
		return fmt.Errorf("%w: no cells", ErrInvalidBoard)
	}

	for i, c := range b.Cells {
		if c.Type > CellCrystal {
			return fmt.Errorf("%w: cell %d has unknown type %d", ErrInvalidBoard, i, c.Type)
		}
		if c.Resources < 0 {
			return fmt.Errorf("%w: cell %d has negative resources %d", ErrInvalidBoard, i, c.Resources)
		}
		for dir, nb := range c.Neighbors {
			if nb == NoNeighbor {
				continue
			}
			if nb < 0 || nb >= n {
				return fmt.Errorf("%w: cell %d direction %d points to %d (cells=%d)", ErrInvalidBoard, i, dir, nb, n)
			}
			if nb == i {
				return fmt.Errorf("%w: cell %d links to itself", ErrInvalidBoard, i)
			}
			if !b.links(nb, i) {
				return fmt.Errorf("%w: cell %d lists %d but not the reverse", ErrInvalidBoard, i, nb)
			}
		}
	}

	if err := validateBases(n, "my", b.MyBases); err != nil {
		return err
	}
	return validateBases(n, "opponent", b.OppBases)
}

func (b *Board) links(from, to int) bool {
	for _, nb := range b.Cells[from].Neighbors {
		if nb == to {
			return true
		}
	}
	return false
}

func validateBases(n int, side string, bases []int) error {
	if len(bases) == 0 {
		return fmt.Errorf("%w: no %s bases", ErrInvalidBoard, side)
	}
	seen := make(map[int]bool, len(bases))
	for _, base := range bases {
		if base < 0 || base >= n {
			return fmt.Errorf("%w: %s base %d out of range (cells=%d)", ErrInvalidBoard, side, base, n)
		}
		if seen[base] {
			return fmt.Errorf("%w: duplicate %s base %d", ErrInvalidBoard, side, base)
		}
		seen[base] = true
	}
	return nil
}
