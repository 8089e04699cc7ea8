package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// newJSONHandler emits one JSON object per line with ts/level/msg keys.
// Durations render as strings ("1.5s") and run/request identifiers carried
// on the context are added when the call site did not set them.
func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	opts := slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: replaceJSONAttr,
	}
	return contextHandler{next: slog.NewJSONHandler(w, &opts)}
}

func replaceJSONAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			attr.Key = "ts"
			if attr.Value.Kind() == slog.KindTime {
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return attr
		case slog.LevelKey:
			attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
			return attr
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
			return attr
		}
	}
	if attr.Value.Kind() == slog.KindDuration {
		attr.Value = slog.StringValue(attr.Value.Duration().String())
	}
	return attr
}

// contextHandler copies run_id and correlation_id from the record context.
type contextHandler struct {
	next slog.Handler
	// set holds keys already bound through WithAttrs.
	set map[string]struct{}
}

func (h contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h contextHandler) Handle(ctx context.Context, record slog.Record) error {
	fields := ContextFields(ctx)
	if len(fields) > 0 {
		present := make(map[string]struct{}, record.NumAttrs())
		record.Attrs(func(a slog.Attr) bool {
			present[a.Key] = struct{}{}
			return true
		})
		for _, f := range fields {
			if _, ok := present[f.Key]; ok {
				continue
			}
			if _, ok := h.set[f.Key]; ok {
				continue
			}
			record.AddAttrs(f)
		}
	}
	return h.next.Handle(ctx, record)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	set := make(map[string]struct{}, len(h.set)+len(attrs))
	for k := range h.set {
		set[k] = struct{}{}
	}
	for _, a := range attrs {
		set[a.Key] = struct{}{}
	}
	return contextHandler{next: h.next.WithAttrs(attrs), set: set}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{next: h.next.WithGroup(name), set: h.set}
}
