package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// jsonTimeFormat keeps millisecond precision; most ingestion stages finish in
// well under a second.
const jsonTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// identityKeys are dropped from JSON records when empty so log queries on
// them never match placeholder values.
var identityKeys = map[string]struct{}{
	FieldDocumentID:    {},
	FieldStage:         {},
	FieldCorrelationID: {},
	FieldErrorCode:     {},
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) (slog.Handler, error) {
	opts := slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) == 0 {
				switch attr.Key {
				case slog.TimeKey:
					attr.Key = "ts"
					if attr.Value.Kind() == slog.KindTime {
						attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(jsonTimeFormat))
					}
					return attr
				case slog.LevelKey:
					attr.Key = "level"
					attr.Value = slog.StringValue(strings.ToLower(attr.Value.String()))
					return attr
				case slog.MessageKey:
					attr.Key = "msg"
					return attr
				case slog.SourceKey:
					if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
						attr.Value = slog.StringValue(fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
					}
					return attr
				}
			}
			if _, ok := identityKeys[attr.Key]; ok && attr.Value.Kind() == slog.KindString && attr.Value.String() == "" {
				return slog.Attr{}
			}
			// Durations become fractional milliseconds instead of nanosecond integers.
			if attr.Value.Kind() == slog.KindDuration {
				ms := float64(attr.Value.Duration()) / float64(time.Millisecond)
				return slog.Float64(attr.Key+"_ms", ms)
			}
			return attr
		},
	}

	return slog.NewJSONHandler(w, &opts), nil
}
