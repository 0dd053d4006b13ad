// Command replay steps through a recorded match in the terminal.
//
//	replay match_<id>_<ts>.parquet
//	replay -match-db matches.db            # most recent recorded match
//	replay -match-db matches.db -match <id>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/brensch/antbeacon/store"
	tea "github.com/charmbracelet/bubbletea"
)

type model struct {
	rec     *store.Recording
	turn    int
	playing bool
	every   time.Duration
}

func initialModel(rec *store.Recording, every time.Duration) model {
	return model{rec: rec, every: every}
}

type TickMsg time.Time

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) last() int {
	return len(m.rec.Turns) - 1
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "right", "l":
			m.turn = min(m.turn+1, m.last())
		case "left", "h":
			m.turn = max(m.turn-1, 0)
		case "home", "g":
			m.turn = 0
		case "end", "G":
			m.turn = m.last()
		case " ", "space":
			m.playing = !m.playing
			if m.playing {
				return m, tickCmd(m.every)
			}
		}
	case TickMsg:
		if !m.playing {
			return m, nil
		}
		if m.turn >= m.last() {
			m.playing = false
			return m, nil
		}
		m.turn++
		return m, tickCmd(m.every)
	}
	return m, nil
}

func (m model) View() string {
	if len(m.rec.Turns) == 0 {
		return "Recording has no turns.\n\nPress q to quit.\n"
	}
	row := m.rec.Turns[m.turn]
	board := m.rec.Board

	var b strings.Builder
	fmt.Fprintf(&b, "Match %s  turn %d  (%d/%d)\n", m.rec.MatchID, row.Turn, m.turn+1, len(m.rec.Turns))
	fmt.Fprintf(&b, "Score:      %d - %d\n", row.MyScore, row.OppScore)
	fmt.Fprintf(&b, "Ants:       mine %d, opponent %d\n", row.MyAnts, row.OppAnts)
	fmt.Fprintf(&b, "Footprint:  %d cells, spent %d, free %d, stop %s\n", len(row.Controlled), row.Spent, row.FreeAnts, row.Stop)
	fmt.Fprintf(&b, "Planned in: %s\n\n", time.Duration(row.ElapsedMicros)*time.Microsecond)

	b.WriteString("Beacons:\n")
	b.WriteString("  cell  type     base  res  mine  opp  strength\n")
	for _, bc := range row.Beacons() {
		mark := ""
		if board.IsBase(bc.Cell) {
			mark = "*"
		}
		mine := 0
		if bc.Cell < len(row.CellMyAnts) {
			mine = int(row.CellMyAnts[bc.Cell])
		}
		reinforced := ""
		if int32(bc.Strength) > row.AntCost {
			reinforced = " +"
		}
		fmt.Fprintf(&b, "  %4d  %-7s  %4s  %3d  %4d  %3d  %8d%s\n",
			bc.Cell, board.Cells[bc.Cell].Type, mark, bc.Resources, mine, bc.OppAnts, bc.Strength, reinforced)
	}

	state := "paused"
	if m.playing {
		state = "playing"
	}
	fmt.Fprintf(&b, "\n[%s]  ←/h prev  →/l next  g/G first/last  space play  q quit\n", state)
	return b.String()
}

func main() {
	matchDB := flag.String("match-db", "", "SQLite match index used to find the recording")
	matchID := flag.String("match", "", "Match ID to replay (default: most recent in -match-db)")
	every := flag.Duration("every", 300*time.Millisecond, "Autoplay step interval")
	flag.Parse()

	path, err := resolvePath(flag.Arg(0), *matchDB, *matchID)
	if err != nil {
		log.Fatalf("Failed to locate recording: %v", err)
	}
	rec, err := store.ReadRecording(path)
	if err != nil {
		log.Fatalf("Failed to read recording: %v", err)
	}

	p := tea.NewProgram(initialModel(rec, *every), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolvePath(arg, matchDB, matchID string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	if matchDB == "" {
		return "", fmt.Errorf("give a recording path or -match-db")
	}
	idx, err := store.OpenMatchIndex(matchDB)
	if err != nil {
		return "", err
	}
	defer idx.Close()

	var m store.Match
	if matchID != "" {
		if m, err = idx.Get(matchID); err != nil {
			return "", err
		}
	} else if m, err = idx.LatestRecorded(); err != nil {
		return "", fmt.Errorf("%s: %w", matchDB, err)
	}
	if m.Recording == "" {
		return "", fmt.Errorf("match %s has no recording", m.ID)
	}
	return m.Recording, nil
}
