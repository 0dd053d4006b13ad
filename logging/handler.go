// Package logging provides slog handlers for the bot's stderr diagnostics.
//
// Stdout carries the command line for the referee, so everything human
// readable goes to stderr. The "text" format keeps one record per line and
// hoists the turn number to the front so a referee's per-turn stderr capture
// reads naturally. The "pretty" format prints indented JSON objects.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// TurnKey is the attribute hoisted to the line prefix by the text format.
const TurnKey = "turn"

// New builds a logger for the given format ("text", "json" or "pretty").
func New(w io.Writer, format string, level slog.Leveler) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case FormatText, "":
		return slog.New(NewTurnHandler(w, opts, false)), nil
	case FormatPretty:
		return slog.New(NewTurnHandler(w, opts, true)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// ParseLevel accepts debug, info, warn, error (any case).
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse log level: %w", err)
	}
	return l, nil
}

type field struct {
	key   string
	value any
}

// TurnHandler renders records either as single text lines or as indented
// JSON objects.
type TurnHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	level  slog.Leveler
	pretty bool

	attrs  []slog.Attr
	groups []string
}

func NewTurnHandler(w io.Writer, opts *slog.HandlerOptions, pretty bool) *TurnHandler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &TurnHandler{
		w:      w,
		mu:     &sync.Mutex{},
		level:  level,
		pretty: pretty,
	}
}

func (h *TurnHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *TurnHandler) Handle(_ context.Context, r slog.Record) error {
	when := r.Time
	if when.IsZero() {
		when = time.Now()
	}

	fields := make([]field, 0, len(h.attrs)+r.NumAttrs())
	// Handler attrs were qualified with their groups in WithAttrs.
	for _, a := range h.attrs {
		fields = appendAttr(fields, nil, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = appendAttr(fields, h.groups, a)
		return true
	})

	var out []byte
	if h.pretty {
		out = h.renderPretty(when, r, fields)
	} else {
		out = h.renderText(when, r, fields)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(out)
	return err
}

func (h *TurnHandler) renderText(when time.Time, r slog.Record, fields []field) []byte {
	var b strings.Builder
	b.WriteString(when.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())
	for _, f := range fields {
		if f.key == TurnKey {
			fmt.Fprintf(&b, " [turn %v]", f.value)
			break
		}
	}
	b.WriteByte(' ')
	b.WriteString(r.Message)
	for _, f := range fields {
		if f.key == TurnKey {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(textValue(f.value))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func (h *TurnHandler) renderPretty(when time.Time, r slog.Record, fields []field) []byte {
	payload := make(map[string]any, len(fields)+3)
	payload["time"] = when.Format(time.RFC3339Nano)
	payload["level"] = r.Level.String()
	payload["msg"] = r.Message
	for _, f := range fields {
		payload[f.key] = f.value
	}

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		b = []byte("{\"time\":" + strconv.Quote(payload["time"].(string)) + ",\"level\":" + strconv.Quote(r.Level.String()) + ",\"msg\":" + strconv.Quote(r.Message) + "}")
	}
	return append(b, '\n')
}

func (h *TurnHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, qualify(h.groups, a))
	}
	return &clone
}

func (h *TurnHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// qualify prefixes a with the open group names so later groups do not apply.
func qualify(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		return a
	}
	a.Key = strings.Join(groups, ".") + "." + a.Key
	return a
}

func appendAttr(dst []field, groups []string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	return appendValue(dst, groups, a.Key, a.Value)
}

func appendValue(dst []field, groups []string, key string, v slog.Value) []field {
	if v.Kind() == slog.KindGroup {
		prefix := key
		for _, ga := range v.Group() {
			ga.Value = ga.Value.Resolve()
			if prefix == "" {
				dst = appendValue(dst, groups, ga.Key, ga.Value)
			} else {
				dst = appendValue(dst, groups, prefix+"."+ga.Key, ga.Value)
			}
		}
		return dst
	}
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	return append(dst, field{key: key, value: valueToAny(v)})
}

func valueToAny(v slog.Value) any {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return v.Int64()
	case slog.KindUint64:
		return v.Uint64()
	case slog.KindFloat64:
		return v.Float64()
	case slog.KindBool:
		return v.Bool()
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return v.Any()
	default:
		return v.String()
	}
}

func textValue(v any) string {
	switch x := v.(type) {
	case string:
		if x == "" || strings.ContainsAny(x, " =\"\t\n") {
			return strconv.Quote(x)
		}
		return x
	default:
		return fmt.Sprint(x)
	}
}
