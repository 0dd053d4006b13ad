package planner

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/brensch/antbeacon/game"
)

func TestExpand_ChainAffordable(t *testing.T) {
	b := chainBuilder(3).resource(2, game.CellCrystal, 10).build(t, []int{0}, []int{2})
	s := stateFor(b, 1)
	s.MyAnts[0] = 4

	exp := Expand(b, s, b.MyBases, DefaultConfig())
	t.Logf("\n%s", dumpFootprint(b, s, exp.Controlled))

	if want := []int{0, 2, 1}; !reflect.DeepEqual(exp.Controlled, want) {
		t.Fatalf("controlled=%v want=%v", exp.Controlled, want)
	}
	if exp.FreeAnts != 0 || exp.Spent != 4 || exp.Admitted != 1 {
		t.Fatalf("free=%d spent=%d admitted=%d want 0/4/1", exp.FreeAnts, exp.Spent, exp.Admitted)
	}
	if exp.Stop != StopExhausted {
		t.Fatalf("stop=%s want=%s", exp.Stop, StopExhausted)
	}
}

func TestExpand_FirstStepAlwaysTaken(t *testing.T) {
	b := chainBuilder(4).resource(3, game.CellEgg, 2).build(t, []int{0}, []int{3})
	s := stateFor(b, 1)
	s.MyAnts[0] = 1

	exp := Expand(b, s, b.MyBases, DefaultConfig())

	if want := []int{0, 3, 2, 1}; !reflect.DeepEqual(exp.Controlled, want) {
		t.Fatalf("controlled=%v want=%v", exp.Controlled, want)
	}
	// cost 6 is clamped to the single available ant
	if exp.Spent != 1 || exp.FreeAnts != 0 {
		t.Fatalf("spent=%d free=%d want 1/0", exp.Spent, exp.FreeAnts)
	}
}

func TestExpand_ZeroAntsStillTakesFirstStep(t *testing.T) {
	b := chainBuilder(3).
		resource(1, game.CellEgg, 2).
		resource(2, game.CellCrystal, 2).
		build(t, []int{0}, []int{2})
	s := stateFor(b, 1)

	exp := Expand(b, s, b.MyBases, DefaultConfig())

	if want := []int{0, 1}; !reflect.DeepEqual(exp.Controlled, want) {
		t.Fatalf("controlled=%v want=%v", exp.Controlled, want)
	}
	if exp.Stop != StopBudget || exp.Spent != 0 {
		t.Fatalf("stop=%s spent=%d", exp.Stop, exp.Spent)
	}
}

func TestExpand_StopsOnBudget(t *testing.T) {
	b := chainBuilder(6).
		resource(2, game.CellCrystal, 5).
		resource(5, game.CellCrystal, 5).
		build(t, []int{0}, []int{5})
	s := stateFor(b, 1)
	s.MyAnts[0] = 3
	s.MyAnts[1] = 3

	exp := Expand(b, s, b.MyBases, DefaultConfig())

	if want := []int{0, 2, 1}; !reflect.DeepEqual(exp.Controlled, want) {
		t.Fatalf("controlled=%v want=%v", exp.Controlled, want)
	}
	if exp.Stop != StopBudget {
		t.Fatalf("stop=%s want=%s", exp.Stop, StopBudget)
	}
	if exp.FreeAnts != 2 {
		t.Fatalf("free=%d want=2", exp.FreeAnts)
	}
}

func TestExpand_IsolatedBase(t *testing.T) {
	// Base 0 only reaches an empty cell and a depleted crystal.
	bb := newBoardBuilder(4)
	bb.link(0, 0, 1).link(0, 1, 2)
	bb.resource(2, game.CellCrystal, 10)
	bb.resource(3, game.CellCrystal, 40)
	b := bb.build(t, []int{0}, []int{3})
	s := stateFor(b, 9)
	s.Resources[2] = 0
	s.MyAnts[0] = 20

	exp := Expand(b, s, b.MyBases, DefaultConfig())

	if want := []int{0}; !reflect.DeepEqual(exp.Controlled, want) {
		t.Fatalf("controlled=%v want=%v", exp.Controlled, want)
	}
	if exp.Stop != StopExhausted || exp.Admitted != 0 || exp.FreeAnts != 20 {
		t.Fatalf("stop=%s admitted=%d free=%d", exp.Stop, exp.Admitted, exp.FreeAnts)
	}
}

func TestExpand_DuplicateBasesCollapse(t *testing.T) {
	b := chainBuilder(3).resource(2, game.CellEgg, 1).build(t, []int{0}, []int{2})
	s := stateFor(b, 1)
	s.MyAnts[0] = 10

	exp := Expand(b, s, []int{0, 0}, DefaultConfig())
	if want := []int{0, 2, 1}; !reflect.DeepEqual(exp.Controlled, want) {
		t.Fatalf("controlled=%v want=%v", exp.Controlled, want)
	}
}

func TestExpand_CustomAntCost(t *testing.T) {
	b := chainBuilder(3).resource(1, game.CellEgg, 1).resource(2, game.CellEgg, 1).build(t, []int{0}, []int{2})
	s := stateFor(b, 1)
	s.MyAnts[0] = 5

	exp := Expand(b, s, b.MyBases, Config{AntCost: 3})
	// first hop costs 3, second would cost 3 with 2 left
	if want := []int{0, 1}; !reflect.DeepEqual(exp.Controlled, want) {
		t.Fatalf("controlled=%v want=%v", exp.Controlled, want)
	}
	if exp.FreeAnts != 2 || exp.Stop != StopBudget {
		t.Fatalf("free=%d stop=%s", exp.FreeAnts, exp.Stop)
	}
}

func TestExpand_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1234))
	cfg := DefaultConfig()
	for round := 0; round < 200; round++ {
		b := hexGrid(t, rng, 3+rng.Intn(8), 3+rng.Intn(8), 0.3)
		s := stateFor(b, round)
		for i := range s.MyAnts {
			if rng.Intn(4) == 0 {
				s.MyAnts[i] = rng.Intn(8)
			}
		}
		ants := s.TotalMyAnts()

		exp := Expand(b, s, b.MyBases, cfg)

		if len(exp.Controlled) > b.NumCells() {
			t.Fatalf("round %d: controlled=%d cells=%d", round, len(exp.Controlled), b.NumCells())
		}
		if !reflect.DeepEqual(exp.Controlled[:len(b.MyBases)], b.MyBases) {
			t.Fatalf("round %d: controlled %v does not start with bases %v", round, exp.Controlled, b.MyBases)
		}
		seen := map[int]bool{}
		for _, c := range exp.Controlled {
			if seen[c] {
				t.Fatalf("round %d: cell %d admitted twice: %v", round, c, exp.Controlled)
			}
			seen[c] = true
		}
		if exp.Spent > ants || exp.FreeAnts != ants-exp.Spent || exp.FreeAnts < 0 {
			t.Fatalf("round %d: ants=%d spent=%d free=%d", round, ants, exp.Spent, exp.FreeAnts)
		}

		// Every admission after the first was paid in full.
		added := len(exp.Controlled) - len(b.MyBases)
		if exp.Admitted > 1 {
			first, _ := FindNearest(b, b.MyBases, Harvestable(b, s))
			paid := (added - len(first)) * cfg.AntCost
			if paid > exp.Spent {
				t.Fatalf("round %d: later admissions cost %d but only %d spent", round, paid, exp.Spent)
			}
		}
	}
}
