package protocol

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/brensch/antbeacon/game"
)

// FormatCommands renders beacons as "BEACON <cell> <strength>" joined by ';'.
// No beacons gives an empty string.
func FormatCommands(beacons []game.Beacon) string {
	parts := make([]string, 0, len(beacons))
	for _, b := range beacons {
		parts = append(parts, "BEACON "+strconv.Itoa(b.Cell)+" "+strconv.Itoa(b.Strength))
	}
	return strings.Join(parts, ";")
}

// Commands are ';'-separated and one turn is one line.
var messageEscaper = strings.NewReplacer(";", ",", "\n", " ", "\r", " ")

// Writer emits one command line per turn.
type Writer struct {
	w *bufio.Writer

	// Message, when set, is appended as a MESSAGE command.
	Message string
	// WaitOnEmpty sends WAIT instead of an empty line when there are no beacons.
	WaitOnEmpty bool
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Line builds the full command line for a turn, without the newline.
func (w *Writer) Line(beacons []game.Beacon) string {
	line := FormatCommands(beacons)
	if line == "" && w.WaitOnEmpty {
		line = "WAIT"
	}
	if w.Message != "" {
		msg := "MESSAGE " + messageEscaper.Replace(w.Message)
		if line == "" {
			line = msg
		} else {
			line += ";" + msg
		}
	}
	return line
}

// WriteTurn writes and flushes the command line.
func (w *Writer) WriteTurn(beacons []game.Beacon) error {
	if _, err := w.w.WriteString(w.Line(beacons)); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}
