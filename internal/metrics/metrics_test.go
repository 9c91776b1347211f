package metrics_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"rulecast/internal/metrics"
)

func TestRecorderCountsEvents(t *testing.T) {
	rec := metrics.NewRecorder()
	var sink metrics.Sink = rec

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sink.OnStage("normalize", time.Millisecond, nil)
		}()
	}
	wg.Wait()
	sink.OnStage("headings", time.Millisecond, errors.New("boom"))
	sink.OnOCRFallback(3, "failed")
	sink.OnIngestion("rejected", "INGEST_HEADING_MISSING", time.Second)
	sink.OnIngestion("accepted", "", time.Second)
	sink.OnStoryboard(4, 20)

	snap := rec.Snapshot()
	if snap.Stages["normalize"] != 10 || snap.StageErrors["headings"] != 1 {
		t.Fatalf("unexpected stage counters: %+v", snap)
	}
	if snap.OCRFallbacks["failed"] != 1 || snap.Ingestions["accepted"] != 1 || snap.ErrorCodes["INGEST_HEADING_MISSING"] != 1 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
	if snap.Storyboards != 1 || snap.Scenes != 4 {
		t.Fatalf("unexpected storyboard counters: %+v", snap)
	}

	snap.Stages["normalize"] = 0
	if rec.Snapshot().Stages["normalize"] != 10 {
		t.Fatal("expected snapshot to be a copy")
	}
}

func TestMultiAndLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rec := metrics.NewRecorder()
	sink := metrics.Multi{metrics.Nop{}, rec, metrics.NewLogSink(logger)}

	sink.OnIngestion("accepted", "", 2*time.Second)

	if rec.Snapshot().Ingestions["accepted"] != 1 {
		t.Fatal("expected recorder to receive event")
	}
	if !strings.Contains(buf.String(), "ingestion finished") || !strings.Contains(buf.String(), "component=metrics") {
		t.Fatalf("expected log line, got %q", buf.String())
	}
}
