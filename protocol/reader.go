// Package protocol speaks the referee's line protocol.
//
// Setup (once):
//
//	<cells>
//	<type> <resources> <n0> <n1> <n2> <n3> <n4> <n5>   (one line per cell, -1 = no neighbor)
//	<bases>
//	<my base indices...>
//	<opponent base indices...>
//
// Each turn:
//
//	<my score> <opponent score>
//	<resources> <my ants> <opponent ants>                 (one line per cell)
//
// The bot answers every turn with a single line of ';'-separated commands.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brensch/antbeacon/game"
)

var ErrMalformed = errors.New("malformed input")

const maxLineBytes = 1 << 20

type Reader struct {
	sc   *bufio.Scanner
	line int
	turn int
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{sc: sc}
}

// Line returns the number of lines consumed so far.
func (r *Reader) Line() int { return r.line }

func (r *Reader) next() (string, error) {
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", fmt.Errorf("read line %d: %w", r.line+1, err)
		}
		return "", io.EOF
	}
	r.line++
	return r.sc.Text(), nil
}

// ints reads one line of integers. want < 0 accepts any count.
func (r *Reader) ints(want int, what string) ([]int, error) {
	text, err := r.next()
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(text)
	if want >= 0 && len(fields) != want {
		return nil, fmt.Errorf("%w: line %d (%s): got %d values, want %d", ErrMalformed, r.line, what, len(fields), want)
	}
	out := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d (%s): %q is not an integer", ErrMalformed, r.line, what, f)
		}
		out[i] = v
	}
	return out, nil
}

// unexpectedEOF turns a premature io.EOF into a protocol error.
func unexpectedEOF(err error, what string) error {
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected end of input reading %s", ErrMalformed, what)
	}
	return err
}

// ReadBoard consumes the map setup and returns a validated board.
func (r *Reader) ReadBoard() (*game.Board, error) {
	head, err := r.ints(1, "cell count")
	if err != nil {
		return nil, unexpectedEOF(err, "cell count")
	}
	n := head[0]
	if n <= 0 {
		return nil, fmt.Errorf("%w: cell count %d", ErrMalformed, n)
	}

	cells := make([]game.Cell, n)
	for i := 0; i < n; i++ {
		vals, err := r.ints(2+game.NumDirections, "cell")
		if err != nil {
			return nil, unexpectedEOF(err, fmt.Sprintf("cell %d", i))
		}
		typ, err := game.ParseCellType(vals[0])
		if err != nil {
			return nil, fmt.Errorf("%w: cell %d: %w", ErrMalformed, i, err)
		}
		if vals[1] < 0 {
			return nil, fmt.Errorf("%w: cell %d has negative resources %d", ErrMalformed, i, vals[1])
		}
		cells[i].Type = typ
		cells[i].Resources = vals[1]
		for d := 0; d < game.NumDirections; d++ {
			nb := vals[2+d]
			if nb < game.NoNeighbor || nb >= n {
				return nil, fmt.Errorf("%w: cell %d neighbor %d out of range", ErrMalformed, i, nb)
			}
			cells[i].Neighbors[d] = nb
		}
	}

	count, err := r.ints(1, "base count")
	if err != nil {
		return nil, unexpectedEOF(err, "base count")
	}
	myBases, err := r.ints(-1, "my bases")
	if err != nil {
		return nil, unexpectedEOF(err, "my bases")
	}
	oppBases, err := r.ints(-1, "opponent bases")
	if err != nil {
		return nil, unexpectedEOF(err, "opponent bases")
	}
	if len(myBases) != count[0] || len(oppBases) != count[0] {
		return nil, fmt.Errorf("%w: base count %d but got %d mine and %d opponent", ErrMalformed, count[0], len(myBases), len(oppBases))
	}

	board, err := game.NewBoard(cells, myBases, oppBases)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return board, nil
}

// ReadTurn consumes one turn. It returns io.EOF when the feed ends cleanly
// before a new turn starts.
func (r *Reader) ReadTurn(board *game.Board) (*game.TurnState, error) {
	scores, err := r.ints(2, "scores")
	if err != nil {
		return nil, err
	}

	n := board.NumCells()
	state := game.NewTurnState(r.turn, n)
	state.MyScore, state.OppScore = scores[0], scores[1]

	for i := 0; i < n; i++ {
		vals, err := r.ints(3, "cell state")
		if err != nil {
			return nil, unexpectedEOF(err, fmt.Sprintf("turn %d cell %d", r.turn, i))
		}
		if vals[0] < 0 || vals[1] < 0 || vals[2] < 0 {
			return nil, fmt.Errorf("%w: line %d: negative value in %v", ErrMalformed, r.line, vals)
		}
		state.Resources[i] = vals[0]
		state.MyAnts[i] = vals[1]
		state.OppAnts[i] = vals[2]
	}

	r.turn++
	return state, nil
}
