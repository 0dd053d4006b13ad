package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/brensch/antbeacon/planner"
	"github.com/brensch/antbeacon/protocol"
	"github.com/brensch/antbeacon/store"
)

// chainFeed is a 3-cell line 0-1-2 with my base on 0 and a contested crystal
// on 2, played for two turns.
const chainFeed = `3
0 0 1 -1 -1 -1 -1 -1
0 0 2 -1 -1 0 -1 -1
2 10 -1 -1 -1 1 -1 -1
1
0
2
0 0
0 4 0
0 0 0
10 0 0
3 1
0 6 0
0 2 0
7 2 5
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func commandSet(line string) map[string]bool {
	set := map[string]bool{}
	for _, cmd := range strings.Split(line, ";") {
		set[cmd] = true
	}
	return set
}

func TestRunAnswersEveryTurn(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), options{AntCost: 2}, discardLogger(), strings.NewReader(chainFeed), &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%q want 2", lines)
	}

	first := commandSet(lines[0])
	for _, want := range []string{"BEACON 0 2", "BEACON 1 2", "BEACON 2 2"} {
		if !first[want] {
			t.Fatalf("turn 0 line %q missing %q", lines[0], want)
		}
	}
	// Ten ants: the path costs 4, leaving 6 to match the opponent's 5 on the crystal.
	if !commandSet(lines[1])["BEACON 2 5"] {
		t.Fatalf("turn 1 line %q not reinforced", lines[1])
	}
}

func TestRunMessageAndWait(t *testing.T) {
	// Isolated base with nothing to harvest: only the base beacon is sent.
	feed := "1\n0 0 -1 -1 -1 -1 -1 -1\n1\n0\n0\n0 0\n0 3 0\n"
	var out bytes.Buffer
	opts := options{AntCost: 2, Message: "hi;there", WaitOnEmpty: true}
	if err := run(context.Background(), opts, discardLogger(), strings.NewReader(feed), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := out.String(); got != "BEACON 0 2;MESSAGE hi,there\n" {
		t.Fatalf("out=%q", got)
	}
}

func TestRunMalformedIsFatal(t *testing.T) {
	feed := chainFeed[:strings.Index(chainFeed, "3 1\n")] + "3 1\n0 x 0\n"
	var out bytes.Buffer
	err := run(context.Background(), options{AntCost: 2}, discardLogger(), strings.NewReader(feed), &out)
	if !errors.Is(err, protocol.ErrMalformed) {
		t.Fatalf("err=%v want ErrMalformed", err)
	}
	if !strings.Contains(err.Error(), "(line 13)") {
		t.Fatalf("err=%v missing input line", err)
	}
	if strings.Count(out.String(), "\n") != 1 {
		t.Fatalf("expected the first turn to be answered, out=%q", out.String())
	}
}

func TestRunRejectsBadAntCost(t *testing.T) {
	if err := run(context.Background(), options{AntCost: 0}, discardLogger(), strings.NewReader(chainFeed), io.Discard); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestRunRecordsAndIndexes(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "matches.db")
	opts := options{AntCost: 2, RecordDir: filepath.Join(dir, "rec"), MatchDB: dbPath}
	if err := run(context.Background(), opts, discardLogger(), strings.NewReader(chainFeed), io.Discard); err != nil {
		t.Fatalf("run: %v", err)
	}

	idx, err := store.OpenMatchIndex(dbPath)
	if err != nil {
		t.Fatalf("OpenMatchIndex: %v", err)
	}
	defer idx.Close()
	matches, err := idx.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches=%+v want 1", matches)
	}
	m := matches[0]
	if m.Turns != 2 || m.MyScore != 3 || m.OppScore != 1 || m.Cells != 3 || m.EndedAt.IsZero() {
		t.Fatalf("match=%+v", m)
	}
	if _, err := os.Stat(m.Recording); err != nil {
		t.Fatalf("recording %q: %v", m.Recording, err)
	}

	rec, err := store.ReadRecording(m.Recording)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}
	if rec.MatchID != m.ID || len(rec.Turns) != 2 {
		t.Fatalf("recording id=%s turns=%d", rec.MatchID, len(rec.Turns))
	}
	if rec.Turns[1].Reinforced != 1 {
		t.Fatalf("turn 1 reinforced=%d want=1", rec.Turns[1].Reinforced)
	}
}

func TestStoppedRecordingStaysIndexed(t *testing.T) {
	dir := t.TempDir()
	r := protocol.NewReader(strings.NewReader(chainFeed))
	board, err := r.ReadBoard()
	if err != nil {
		t.Fatalf("ReadBoard: %v", err)
	}
	p, err := planner.New(board, planner.DefaultConfig(), discardLogger())
	if err != nil {
		t.Fatalf("planner.New: %v", err)
	}

	opts := options{AntCost: 2, RecordDir: filepath.Join(dir, "rec"), MatchDB: filepath.Join(dir, "matches.db")}
	m := &match{id: "m-stop", log: discardLogger(), antCost: 2}
	m.openSinks(context.Background(), opts, board)
	if m.recorder == nil || m.index == nil {
		t.Fatalf("sinks not opened: recorder=%v index=%v", m.recorder, m.index)
	}

	for turn := 0; turn < 2; turn++ {
		state, err := r.ReadTurn(board)
		if err != nil {
			t.Fatalf("ReadTurn %d: %v", turn, err)
		}
		plan, err := p.Plan(state)
		if err != nil {
			t.Fatalf("Plan %d: %v", turn, err)
		}
		m.observe(state, plan)
		if turn == 0 {
			// Same path observe takes when a write fails.
			m.stopRecording()
		}
	}
	m.close()

	if m.recording == "" {
		t.Fatalf("partial recording path dropped")
	}
	idx, err := store.OpenMatchIndex(opts.MatchDB)
	if err != nil {
		t.Fatalf("OpenMatchIndex: %v", err)
	}
	defer idx.Close()
	got, err := idx.Get("m-stop")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Recording != m.recording || got.Turns != 2 {
		t.Fatalf("indexed=%+v want recording %q", got, m.recording)
	}
	rec, err := store.ReadRecording(got.Recording)
	if err != nil {
		t.Fatalf("ReadRecording: %v", err)
	}
	if len(rec.Turns) != 1 {
		t.Fatalf("recorded turns=%d want=1", len(rec.Turns))
	}
}
