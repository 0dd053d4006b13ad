// Command antbot plays a hex-board ant colony match over stdin/stdout.
//
// The referee writes the map once and then one turn per block; antbot answers
// each turn with a single line of BEACON commands. Diagnostics go to stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/antbeacon/game"
	"github.com/brensch/antbeacon/logging"
	"github.com/brensch/antbeacon/planner"
	"github.com/brensch/antbeacon/protocol"
	"github.com/brensch/antbeacon/spectate"
	"github.com/brensch/antbeacon/store"
	"github.com/google/uuid"
)

type options struct {
	AntCost      int
	RecordDir    string
	MatchDB      string
	SpectateAddr string
	Message      string
	WaitOnEmpty  bool
}

func main() {
	antCost := flag.Int("ant-cost", getEnvIntOrDefault("ANT_COST", planner.DefaultConfig().AntCost), "Ants needed to hold one footprint cell")
	logFormat := flag.String("log-format", getEnvOrDefault("LOG_FORMAT", logging.FormatText), "Stderr log format: text, json or pretty")
	logLevel := flag.String("log-level", getEnvOrDefault("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	recordDir := flag.String("record-dir", getEnvOrDefault("RECORD_DIR", ""), "Write a parquet recording per match into this directory")
	matchDB := flag.String("match-db", getEnvOrDefault("MATCH_DB", ""), "SQLite match index path")
	spectateAddr := flag.String("spectate", getEnvOrDefault("SPECTATE_ADDR", ""), "Serve turn frames over websocket on this address (path /ws)")
	message := flag.String("message", getEnvOrDefault("MESSAGE", ""), "Append MESSAGE <text> to every turn")
	waitOnEmpty := flag.Bool("wait-on-empty", getEnvBoolOrDefault("WAIT_ON_EMPTY", false), "Send WAIT when there are no beacons")
	flag.Parse()

	level, err := logging.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := logging.New(os.Stderr, *logFormat, level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		AntCost:      *antCost,
		RecordDir:    *recordDir,
		MatchDB:      *matchDB,
		SpectateAddr: *spectateAddr,
		Message:      *message,
		WaitOnEmpty:  *waitOnEmpty,
	}
	if err := run(ctx, opts, logger, os.Stdin, os.Stdout); err != nil {
		logger.Error("antbot failed", "err", err)
		os.Exit(1)
	}
}

type turnResult struct {
	state *game.TurnState
	err   error
}

// match holds the optional sinks for one game.
type match struct {
	id        string
	log       *slog.Logger
	antCost   int
	recorder  *store.Recorder
	recording string // published file once the recorder is closed
	index     *store.MatchIndex
	hub       *spectate.Hub

	turns    int
	myScore  int
	oppScore int
}

func run(ctx context.Context, opts options, logger *slog.Logger, in io.Reader, out io.Writer) error {
	cfg := planner.Config{AntCost: opts.AntCost}
	if err := cfg.Validate(); err != nil {
		return err
	}

	reader := protocol.NewReader(in)
	board, err := reader.ReadBoard()
	if err != nil {
		return fmt.Errorf("read map: %w", err)
	}

	id := uuid.NewString()
	m := &match{id: id, log: logger.With("match", id), antCost: cfg.AntCost}

	p, err := planner.New(board, cfg, m.log)
	if err != nil {
		return err
	}
	m.log.Info("match started",
		"cells", board.NumCells(),
		"bases", len(board.MyBases),
		"ant_cost", p.Config().AntCost,
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.openSinks(runCtx, opts, board)
	defer m.close()

	writer := protocol.NewWriter(out)
	writer.Message = opts.Message
	writer.WaitOnEmpty = opts.WaitOnEmpty

	turns := make(chan turnResult)
	go func() {
		defer close(turns)
		for {
			state, err := reader.ReadTurn(board)
			select {
			case turns <- turnResult{state, err}:
			case <-runCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.log.Info("interrupted", "turns", m.turns)
			return nil
		case res, ok := <-turns:
			if !ok {
				return nil
			}
			if errors.Is(res.err, io.EOF) {
				m.log.Info("feed closed", "turns", m.turns, "my_score", m.myScore, "opp_score", m.oppScore)
				return nil
			}
			if res.err != nil {
				return fmt.Errorf("read turn %d (line %d): %w", m.turns, reader.Line(), res.err)
			}

			plan, err := p.Plan(res.state)
			if err != nil {
				return err
			}
			if err := writer.WriteTurn(plan.Beacons); err != nil {
				return fmt.Errorf("write turn %d: %w", res.state.Turn, err)
			}
			m.observe(res.state, plan)
		}
	}
}

// openSinks starts whatever side outputs were asked for. A sink that fails to
// open is logged and skipped; the match still gets played.
func (m *match) openSinks(ctx context.Context, opts options, board *game.Board) {
	if opts.RecordDir != "" {
		rec, err := store.NewRecorder(opts.RecordDir, m.id, board)
		if err != nil {
			m.log.Warn("recording disabled", "err", err)
		} else {
			m.recorder = rec
		}
	}

	if opts.MatchDB != "" {
		idx, err := store.OpenMatchIndex(opts.MatchDB)
		if err != nil {
			m.log.Warn("match index disabled", "err", err)
		} else if err := idx.StartMatch(store.Match{
			ID:        m.id,
			StartedAt: time.Now(),
			Cells:     board.NumCells(),
			Bases:     len(board.MyBases),
			AntCost:   m.antCost,
		}); err != nil {
			m.log.Warn("match index disabled", "err", err)
			idx.Close()
		} else {
			m.index = idx
		}
	}

	if opts.SpectateAddr != "" {
		m.hub = spectate.NewHub(m.log)
		go m.hub.Run(ctx)

		mux := http.NewServeMux()
		mux.Handle("/ws", m.hub)
		srv := &http.Server{Addr: opts.SpectateAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.log.Warn("spectate server stopped", "err", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()
		m.log.Info("spectate listening", "addr", opts.SpectateAddr)
	}
}

func (m *match) observe(state *game.TurnState, plan *planner.TurnPlan) {
	m.turns++
	m.myScore, m.oppScore = state.MyScore, state.OppScore

	if m.recorder != nil {
		if err := m.recorder.Record(store.NewTurnRow(m.id, state, plan, m.antCost)); err != nil {
			m.log.Warn("recording failed, disabling", "turn", state.Turn, "rows", m.recorder.Rows(), "err", err)
			m.stopRecording()
		}
	}
	if m.hub != nil {
		if err := m.hub.Broadcast(spectate.NewFrame(m.id, state, plan)); err != nil {
			m.log.Warn("spectate frame", "turn", state.Turn, "err", err)
		}
	}
}

// stopRecording closes the recorder. Turns recorded so far stay published and
// the path is kept for the match index.
func (m *match) stopRecording() {
	if m.recorder == nil {
		return
	}
	path, rows, err := m.recorder.Close()
	m.recorder = nil
	if err != nil {
		m.log.Warn("close recording", "err", err)
		return
	}
	if path != "" {
		m.recording = path
		m.log.Info("recording written", "path", path, "rows", rows)
	}
}

func (m *match) close() {
	m.stopRecording()
	if m.index != nil {
		if err := m.index.FinishMatch(m.id, m.turns, m.myScore, m.oppScore, m.recording); err != nil {
			m.log.Warn("finish match", "err", err)
		}
		m.index.Close()
	}
}

// Environment variable helpers
func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		var i int
		if _, err := fmt.Sscanf(val, "%d", &i); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}
