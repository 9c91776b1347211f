// Package metrics defines the hook interface pipeline components report
// through. Sinks are injected; there is no global registry.
package metrics

import (
	"log/slog"
	"maps"
	"sync"
	"time"

	"rulecast/internal/logging"
)

// Sink receives pipeline events. Implementations must be safe for
// concurrent use.
type Sink interface {
	OnStage(stage string, elapsed time.Duration, err error)
	OnOCRFallback(page int, status string)
	OnIngestion(status, code string, elapsed time.Duration)
	OnStoryboard(scenes, totalSeconds int)
}

// Nop discards every event.
type Nop struct{}

func (Nop) OnStage(string, time.Duration, error)      {}
func (Nop) OnOCRFallback(int, string)                 {}
func (Nop) OnIngestion(string, string, time.Duration) {}
func (Nop) OnStoryboard(int, int)                     {}

// Snapshot is a point-in-time copy of a Recorder.
type Snapshot struct {
	Stages       map[string]int
	StageErrors  map[string]int
	OCRFallbacks map[string]int
	Ingestions   map[string]int
	ErrorCodes   map[string]int
	Storyboards  int
	Scenes       int
}

// Recorder keeps in-memory counters. Useful in tests and for the API
// health endpoint.
type Recorder struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{snap: Snapshot{
		Stages:       map[string]int{},
		StageErrors:  map[string]int{},
		OCRFallbacks: map[string]int{},
		Ingestions:   map[string]int{},
		ErrorCodes:   map[string]int{},
	}}
}

func (r *Recorder) OnStage(stage string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Stages[stage]++
	if err != nil {
		r.snap.StageErrors[stage]++
	}
}

func (r *Recorder) OnOCRFallback(_ int, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.OCRFallbacks[status]++
}

func (r *Recorder) OnIngestion(status, code string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Ingestions[status]++
	if code != "" {
		r.snap.ErrorCodes[code]++
	}
}

func (r *Recorder) OnStoryboard(scenes, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Storyboards++
	r.snap.Scenes += scenes
}

// Snapshot returns a copy of the current counters.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Stages:       maps.Clone(r.snap.Stages),
		StageErrors:  maps.Clone(r.snap.StageErrors),
		OCRFallbacks: maps.Clone(r.snap.OCRFallbacks),
		Ingestions:   maps.Clone(r.snap.Ingestions),
		ErrorCodes:   maps.Clone(r.snap.ErrorCodes),
		Storyboards:  r.snap.Storyboards,
		Scenes:       r.snap.Scenes,
	}
}

// LogSink writes events as debug-level structured log lines.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a LogSink on a "metrics" component logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logging.NewComponentLogger(logger, "metrics")}
}

func (s *LogSink) OnStage(stage string, elapsed time.Duration, err error) {
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String(logging.FieldStage, stage),
		logging.Duration("elapsed", elapsed),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	s.logger.Debug("stage timing", logging.Args(attrs...)...)
}

func (s *LogSink) OnOCRFallback(page int, status string) {
	s.logger.Debug("ocr fallback",
		logging.String(logging.FieldEventType, "ocr_fallback"),
		logging.Int("page", page),
		logging.String("status", status),
	)
}

func (s *LogSink) OnIngestion(status, code string, elapsed time.Duration) {
	s.logger.Debug("ingestion finished",
		logging.String(logging.FieldEventType, "ingestion_complete"),
		logging.String("status", status),
		logging.String(logging.FieldErrorCode, code),
		logging.Duration("elapsed", elapsed),
	)
}

func (s *LogSink) OnStoryboard(scenes, totalSeconds int) {
	s.logger.Debug("storyboard compiled",
		logging.String(logging.FieldEventType, "storyboard_complete"),
		logging.Int("scenes", scenes),
		logging.Int("total_seconds", totalSeconds),
	)
}

// Multi fans events out to several sinks.
type Multi []Sink

func (m Multi) OnStage(stage string, elapsed time.Duration, err error) {
	for _, sink := range m {
		sink.OnStage(stage, elapsed, err)
	}
}

func (m Multi) OnOCRFallback(page int, status string) {
	for _, sink := range m {
		sink.OnOCRFallback(page, status)
	}
}

func (m Multi) OnIngestion(status, code string, elapsed time.Duration) {
	for _, sink := range m {
		sink.OnIngestion(status, code, elapsed)
	}
}

func (m Multi) OnStoryboard(scenes, totalSeconds int) {
	for _, sink := range m {
		sink.OnStoryboard(scenes, totalSeconds)
	}
}
