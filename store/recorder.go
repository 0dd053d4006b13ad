package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/brensch/antbeacon/game"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

const (
	schemaName = "antbeacon_turn_v1"

	// DefaultFlushRows is how many turns are buffered before a row group is cut.
	DefaultFlushRows = 50
)

// Recorder streams one match into a parquet file. Rows go to outDir/tmp and
// the file is moved into outDir on Close, so readers never see a partial file.
type Recorder struct {
	matchID string
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[TurnRow]

	flushRows int
	pending   int
	rows      int
}

func NewRecorder(outDir, matchID string, board *game.Board) (*Recorder, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	if matchID == "" {
		return nil, fmt.Errorf("matchID is required")
	}

	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	boardJSON, err := encodeBoard(board)
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("match_%s_%d.parquet", matchID, time.Now().UnixNano())
	tmpPath := filepath.Join(tmpDir, name)
	outPath := filepath.Join(absOut, name)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	w := parquet.NewGenericWriter[TurnRow](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("cell_resources"),
		parquet.SkipPageBounds("cell_my_ants"),
		parquet.SkipPageBounds("cell_opp_ants"),
	)
	w.SetKeyValueMetadata("schema", schemaName)
	w.SetKeyValueMetadata("match_id", matchID)
	w.SetKeyValueMetadata("board", boardJSON)

	return &Recorder{
		matchID:   matchID,
		tmpPath:   tmpPath,
		outPath:   outPath,
		file:      f,
		writer:    w,
		flushRows: DefaultFlushRows,
	}, nil
}

func (r *Recorder) MatchID() string { return r.matchID }
func (r *Recorder) OutPath() string { return r.outPath }
func (r *Recorder) Rows() int       { return r.rows }

// Record appends one turn.
func (r *Recorder) Record(row TurnRow) error {
	if r.writer == nil {
		return fmt.Errorf("recorder is closed")
	}
	if _, err := r.writer.Write([]TurnRow{row}); err != nil {
		return fmt.Errorf("write turn %d: %w", row.Turn, err)
	}
	r.rows++
	r.pending++
	if r.pending >= r.flushRows {
		if err := r.writer.Flush(); err != nil {
			return fmt.Errorf("flush row group: %w", err)
		}
		r.pending = 0
	}
	return nil
}

// Close finalizes the file and moves it out of tmp/. A recording with no
// turns is discarded and Close returns an empty path.
func (r *Recorder) Close() (outPath string, rows int, err error) {
	if r.writer == nil && r.file == nil {
		return "", 0, nil
	}

	var closeErr error
	if r.writer != nil {
		closeErr = r.writer.Close()
		r.writer = nil
	}
	var fileErr error
	if r.file != nil {
		_ = r.file.Sync()
		fileErr = r.file.Close()
		r.file = nil
	}
	if closeErr != nil {
		_ = os.Remove(r.tmpPath)
		return "", 0, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		_ = os.Remove(r.tmpPath)
		return "", 0, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if r.rows == 0 {
		_ = os.Remove(r.tmpPath)
		return "", 0, nil
	}
	if err := os.Rename(r.tmpPath, r.outPath); err != nil {
		return "", 0, fmt.Errorf("rename parquet: %w", err)
	}
	return r.outPath, r.rows, nil
}

// Recording is a match loaded back from disk.
type Recording struct {
	MatchID string
	Board   *game.Board
	Turns   []TurnRow
}

// ReadRecording loads every turn of a recording along with its board.
func ReadRecording(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	if schema, _ := pf.Lookup("schema"); schema != schemaName {
		return nil, fmt.Errorf("%s: unexpected schema %q", path, schema)
	}
	rec := &Recording{}
	rec.MatchID, _ = pf.Lookup("match_id")

	boardJSON, ok := pf.Lookup("board")
	if !ok {
		return nil, fmt.Errorf("%s: missing board metadata", path)
	}
	if rec.Board, err = decodeBoard(boardJSON); err != nil {
		return nil, err
	}

	reader := parquet.NewGenericReader[TurnRow](pf)
	defer reader.Close()

	rec.Turns = make([]TurnRow, 0, reader.NumRows())
	for {
		// Fresh buffer each pass: the reader reuses slice capacity of the rows it fills.
		buf := make([]TurnRow, 64)
		n, err := reader.Read(buf)
		rec.Turns = append(rec.Turns, buf[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read turns: %w", err)
		}
	}
	return rec, nil
}
