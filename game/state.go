package game

import "fmt"

// TurnState is the per-turn snapshot from the referee.
// Resources, MyAnts and OppAnts are indexed by cell and have one entry per cell.
type TurnState struct {
	Turn      int
	MyScore   int
	OppScore  int
	Resources []int
	MyAnts    []int
	OppAnts   []int
}

// NewTurnState allocates a zeroed state for a board of n cells.
func NewTurnState(turn, n int) *TurnState {
	return &TurnState{
		Turn:      turn,
		Resources: make([]int, n),
		MyAnts:    make([]int, n),
		OppAnts:   make([]int, n),
	}
}

// Validate checks that the slices match the cell count and hold no negatives.
func (s *TurnState) Validate(n int) error {
	if s == nil {
		return fmt.Errorf("%w: nil state", ErrInvalidState)
	}
	if len(s.Resources) != n || len(s.MyAnts) != n || len(s.OppAnts) != n {
		return fmt.Errorf("%w: lengths resources=%d my_ants=%d opp_ants=%d, want %d",
			ErrInvalidState, len(s.Resources), len(s.MyAnts), len(s.OppAnts), n)
	}
	for i := 0; i < n; i++ {
		if s.Resources[i] < 0 || s.MyAnts[i] < 0 || s.OppAnts[i] < 0 {
			return fmt.Errorf("%w: negative value at cell %d", ErrInvalidState, i)
		}
	}
	return nil
}

func (s *TurnState) TotalMyAnts() int {
	return sum(s.MyAnts)
}

func (s *TurnState) TotalOppAnts() int {
	return sum(s.OppAnts)
}

// Clone performs a deep copy of the state.
func (s *TurnState) Clone() *TurnState {
	if s == nil {
		return nil
	}
	out := &TurnState{
		Turn:     s.Turn,
		MyScore:  s.MyScore,
		OppScore: s.OppScore,
	}
	out.Resources = append([]int(nil), s.Resources...)
	out.MyAnts = append([]int(nil), s.MyAnts...)
	out.OppAnts = append([]int(nil), s.OppAnts...)
	return out
}

func sum(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

// Beacon is one routing directive for the movement layer.
// Resources and OppAnts are copied from the turn state at decision time.
type Beacon struct {
	Cell      int `json:"cell"`
	Strength  int `json:"strength"`
	Resources int `json:"resources"`
	OppAnts   int `json:"opp_ants"`
}
