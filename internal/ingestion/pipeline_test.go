package ingestion_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"rulecast/internal/catalog"
	"rulecast/internal/config"
	"rulecast/internal/contract"
	"rulecast/internal/ingestion"
	"rulecast/internal/manifest"
	"rulecast/internal/metrics"
	"rulecast/internal/pages"
	"rulecast/internal/services"
	"rulecast/internal/testsupport"
)

type harness struct {
	cfg      *config.Config
	store    *manifest.FileStore
	catalog  *catalog.Store
	recorder *metrics.Recorder
	pipeline *ingestion.Pipeline
}

func newHarness(t *testing.T, loader *contract.Loader, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if loader == nil {
		loader = contract.NewLoader(nil)
	}
	h := &harness{
		cfg:      cfg,
		store:    manifest.NewFileStore(cfg.Paths.ManifestDir),
		catalog:  testsupport.MustOpenCatalog(t, cfg),
		recorder: metrics.NewRecorder(),
	}
	n := 0
	pipeline, err := ingestion.New(ingestion.Dependencies{
		Contracts: loader,
		Store:     h.store,
		Catalog:   h.catalog,
		Metrics:   h.recorder,
		OCR:       cfg.OCR,
		Clock:     func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			n++
			return fmt.Sprintf("gen-%d", n)
		},
	})
	if err != nil {
		t.Fatalf("ingestion.New: %v", err)
	}
	h.pipeline = pipeline
	return h
}

func sampleDocument() *ingestion.Document {
	return &ingestion.Document{
		Metadata: testsupport.SampleMetadata(),
		BGG:      testsupport.SampleBGG(),
		Pages:    testsupport.SamplePages(),
	}
}

func TestNewRequiresLoaderAndStore(t *testing.T) {
	if _, err := ingestion.New(ingestion.Dependencies{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestIngestPersistsAndCatalogs(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	outcome, err := h.pipeline.Ingest(ctx, sampleDocument())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if outcome.Status != catalog.StatusAccepted || outcome.ErrorCode != "" {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.IngestionID != "gen-1" || outcome.DocumentID != "gen-2" {
		t.Fatalf("unexpected ids %q/%q", outcome.IngestionID, outcome.DocumentID)
	}
	if outcome.Location != h.store.Location(outcome.DocumentID) {
		t.Fatalf("location = %q", outcome.Location)
	}
	if _, err := os.Stat(outcome.Location); err != nil {
		t.Fatalf("manifest file missing: %v", err)
	}

	loaded, err := h.store.Load(ctx, outcome.DocumentID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Document.IngestionID != outcome.IngestionID {
		t.Fatalf("persisted ingestion id = %q", loaded.Document.IngestionID)
	}
	if loaded.Stats.HeadingCount != 5 || loaded.Stats.ComponentCount != 5 {
		t.Fatalf("unexpected stats %+v", loaded.Stats)
	}

	rec, err := h.catalog.Get(ctx, outcome.DocumentID)
	if err != nil || rec == nil {
		t.Fatalf("catalog Get: %v %v", rec, err)
	}
	if rec.Title != "Harbor Lights" || rec.ComponentCount != 5 || rec.Location != outcome.Location {
		t.Fatalf("unexpected catalog record %+v", rec)
	}
	if !strings.HasPrefix(rec.ContentHash, "sha256:") {
		t.Fatalf("content hash = %q", rec.ContentHash)
	}

	history, err := h.catalog.History(ctx, outcome.DocumentID, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Status != catalog.StatusAccepted {
		t.Fatalf("unexpected history %+v", history)
	}

	snap := h.recorder.Snapshot()
	if snap.Ingestions["accepted"] != 1 {
		t.Fatalf("ingestion metrics %+v", snap.Ingestions)
	}
	for _, stage := range []string{ingestion.StageNormalize, ingestion.StageBuild, ingestion.StagePersist, ingestion.StageCatalog} {
		if snap.Stages[stage] != 1 {
			t.Fatalf("stage %s count = %d", stage, snap.Stages[stage])
		}
	}
}

func TestIngestKeepsSuppliedDocumentID(t *testing.T) {
	h := newHarness(t, nil)
	doc := sampleDocument()
	doc.Metadata.DocumentID = "harbor-lights-2e"

	outcome, err := h.pipeline.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if outcome.DocumentID != "harbor-lights-2e" || outcome.Manifest.Document.ID != "harbor-lights-2e" {
		t.Fatalf("document id not preserved: %+v", outcome)
	}
}

func TestIngestRejectsMissingMetadata(t *testing.T) {
	h := newHarness(t, nil)
	doc := sampleDocument()
	doc.Metadata.DocumentID = "no-title"
	doc.Metadata.Title = ""

	outcome, err := h.pipeline.Ingest(context.Background(), doc)
	if err == nil {
		t.Fatal("expected rejection")
	}
	if services.CodeOf(err) != services.CodeMetadataMissing {
		t.Fatalf("code = %q", services.CodeOf(err))
	}
	if outcome.Status != catalog.StatusRejected || outcome.Manifest != nil {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if _, statErr := os.Stat(h.store.Location("no-title")); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("rejected document must not be persisted: %v", statErr)
	}

	history, err := h.catalog.History(context.Background(), "no-title", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Status != catalog.StatusRejected || history[0].ErrorCode != services.CodeMetadataMissing {
		t.Fatalf("unexpected history %+v", history)
	}
	if rec, _ := h.catalog.Get(context.Background(), "no-title"); rec != nil {
		t.Fatalf("rejected document listed in catalog: %+v", rec)
	}
	if h.recorder.Snapshot().ErrorCodes[services.CodeMetadataMissing] != 1 {
		t.Fatal("error code not reported to metrics")
	}
}

func TestIngestRejectsDocumentWithoutHeadings(t *testing.T) {
	h := newHarness(t, nil)
	doc := sampleDocument()
	for i := range doc.Pages {
		for j := range doc.Pages[i].Blocks {
			doc.Pages[i].Blocks[j].FontSize = 11
		}
	}

	outcome, err := h.pipeline.Ingest(context.Background(), doc)
	if !errors.Is(err, services.ErrStructural) {
		t.Fatalf("expected structural error, got %v", err)
	}
	if outcome.ErrorCode != services.CodeHeadingMissing {
		t.Fatalf("code = %q", outcome.ErrorCode)
	}
}

func TestIngestRejectsOCRBudgetOverrun(t *testing.T) {
	c := contract.Builtin()
	c.OCR.MaxFallbacksPerDocument = 1
	h := newHarness(t, contract.NewLoader(c))

	doc := sampleDocument()
	// Thin out pages 3 and 5 so both fall below the density threshold, and
	// report OCR as having failed on them.
	doc.Pages[2].Blocks = doc.Pages[2].Blocks[:1]
	doc.Pages[2].OCR = &pages.OCRAttachment{OK: false}
	doc.Pages[4].Blocks = doc.Pages[4].Blocks[:1]
	doc.Pages[4].OCR = &pages.OCRAttachment{OK: false}

	outcome, err := h.pipeline.Ingest(context.Background(), doc)
	if !errors.Is(err, services.ErrBudgetExceeded) {
		t.Fatalf("expected budget error, got %v", err)
	}
	if outcome.ErrorCode != services.CodeOCRExceeded || outcome.Status != catalog.StatusRejected {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if got := h.recorder.Snapshot().OCRFallbacks[pages.StatusFailed]; got != 2 {
		t.Fatalf("ocr fallback metrics = %d", got)
	}
}

func TestIngestSparsePagesWithoutOCRStayWithinBudget(t *testing.T) {
	c := contract.Builtin()
	c.OCR.MaxFallbacksPerDocument = 1
	h := newHarness(t, contract.NewLoader(c))

	doc := sampleDocument()
	doc.Pages[2].Blocks = doc.Pages[2].Blocks[:1]
	doc.Pages[4].Blocks = doc.Pages[4].Blocks[:1]

	outcome, err := h.pipeline.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("Ingest returned error: %v", err)
	}
	if outcome.Status != catalog.StatusAccepted || len(outcome.Manifest.OCRUsage) != 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if got := len(h.recorder.Snapshot().OCRFallbacks); got != 0 {
		t.Fatalf("expected no ocr fallback metrics, got %d", got)
	}
}

func TestIngestInvalidPageNumbering(t *testing.T) {
	h := newHarness(t, nil)
	doc := sampleDocument()
	doc.Pages[1].Number = 7

	outcome, err := h.pipeline.Ingest(context.Background(), doc)
	if services.CodeOf(err) != services.CodeInputInvalid {
		t.Fatalf("expected input invalid, got %v", err)
	}
	if outcome.Status != catalog.StatusRejected {
		t.Fatalf("status = %q", outcome.Status)
	}
}

func TestIngestCancelledContextFails(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc := sampleDocument()
	doc.Metadata.DocumentID = "cancelled"
	outcome, err := h.pipeline.Ingest(ctx, doc)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if outcome.Status != catalog.StatusFailed {
		t.Fatalf("status = %q", outcome.Status)
	}
	history, err := h.catalog.History(context.Background(), "cancelled", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].Status != catalog.StatusFailed {
		t.Fatalf("attempt not recorded after cancellation: %+v", history)
	}
}

func TestIngestUsesContractSnapshot(t *testing.T) {
	loader := contract.NewLoader(nil)
	h := newHarness(t, loader)
	before := h.pipeline.Contract()

	outcome, err := h.pipeline.Ingest(context.Background(), sampleDocument())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if outcome.Manifest.Heuristics.ContractVersion != before.Version {
		t.Fatalf("contract version = %q", outcome.Manifest.Heuristics.ContractVersion)
	}
}

func TestDecodeDocument(t *testing.T) {
	valid := `{"metadata":{"title":"Harbor Lights","gameId":"harbor-lights","source":"a.pdf","edition":2},
		"pages":[{"number":1,"blocks":[{"text":"Setup","bbox":{"x":1,"y":2,"width":3,"height":4},"fontSize":24}]}]}`
	doc, err := ingestion.DecodeDocument(strings.NewReader(valid))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(doc.Pages) != 1 || doc.Pages[0].Blocks[0].Text != "Setup" {
		t.Fatalf("unexpected pages %+v", doc.Pages)
	}
	if doc.Metadata.Extra["edition"] != "2" {
		t.Fatalf("extra metadata = %+v", doc.Metadata.Extra)
	}

	for name, body := range map[string]string{
		"malformed":    `{"pages": [`,
		"missingPages": `{"metadata":{}}`,
		"objectPages":  `{"pages":{"number":1}}`,
		"wrongType":    `{"pages":[{"number":"one"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ingestion.DecodeDocument(strings.NewReader(body))
			if services.CodeOf(err) != services.CodeInputInvalid {
				t.Fatalf("expected INGEST_INPUT_INVALID, got %v", err)
			}
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation marker, got %v", err)
			}
		})
	}
}
