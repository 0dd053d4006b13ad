// Package planner decides each turn's beacons.
//
// A turn runs in two passes. Expand grows the controlled footprint from the
// colony bases toward the nearest harvestable cells under an ant budget, then
// Allocate assigns beacon strengths and reinforces contested resource cells
// with whatever budget is left. Nothing carries over between turns.
package planner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/brensch/antbeacon/game"
)

// TurnPlan is everything decided for one turn.
type TurnPlan struct {
	Turn       int           `json:"turn"`
	Controlled []int         `json:"controlled"`
	Beacons    []game.Beacon `json:"beacons"`
	// FreeAnts is the supply left after expansion and reinforcement.
	FreeAnts int           `json:"free_ants"`
	Spent    int           `json:"spent"`
	Stop     StopReason    `json:"stop"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// Planner holds the match-long board and the search buffers.
type Planner struct {
	board    *game.Board
	cfg      Config
	log      *slog.Logger
	frontier *Frontier
}

func New(board *game.Board, cfg Config, logger *slog.Logger) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := board.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		board:    board,
		cfg:      cfg,
		log:      logger,
		frontier: NewFrontier(board),
	}, nil
}

func (p *Planner) Config() Config { return p.cfg }

// Plan computes the beacons for one turn. It only fails when the state does
// not match the board.
func (p *Planner) Plan(state *game.TurnState) (*TurnPlan, error) {
	start := time.Now()
	if err := state.Validate(p.board.NumCells()); err != nil {
		return nil, fmt.Errorf("turn %d: %w", stateTurn(state), err)
	}

	ants := state.TotalMyAnts()
	exp := expandWith(p.frontier, Harvestable(p.board, state), ants, p.board.MyBases, p.cfg)
	beacons, free := Allocate(exp.Controlled, state, exp.FreeAnts, p.cfg)

	plan := &TurnPlan{
		Turn:       state.Turn,
		Controlled: exp.Controlled,
		Beacons:    beacons,
		FreeAnts:   free,
		Spent:      exp.Spent,
		Stop:       exp.Stop,
		Elapsed:    time.Since(start),
	}

	p.log.Debug("planned turn",
		"turn", state.Turn,
		"ants", ants,
		"controlled", len(exp.Controlled),
		"admitted", exp.Admitted,
		"spent", exp.Spent,
		"reinforced", exp.FreeAnts-free,
		"free", free,
		"stop", string(exp.Stop),
		"elapsed", plan.Elapsed,
	)
	return plan, nil
}

func stateTurn(s *game.TurnState) int {
	if s == nil {
		return -1
	}
	return s.Turn
}
