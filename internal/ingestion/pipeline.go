package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"rulecast/internal/catalog"
	"rulecast/internal/config"
	"rulecast/internal/contract"
	"rulecast/internal/digest"
	"rulecast/internal/logging"
	"rulecast/internal/manifest"
	"rulecast/internal/metrics"
	"rulecast/internal/pages"
	"rulecast/internal/services"
)

// Stage names used in logs, errors, and metrics.
const (
	StageNormalize = "normalize"
	StageBuild     = "build"
	StagePersist   = "persist"
	StageCatalog   = "catalog"
)

// Dependencies wires a Pipeline.
type Dependencies struct {
	Contracts *contract.Loader
	Store     manifest.Store
	// Catalog is optional; without it attempts are not recorded.
	Catalog   *catalog.Store
	Metrics   metrics.Sink
	Logger    *slog.Logger
	OCR       config.OCR
	Recoverer pages.Recoverer
	Clock     func() time.Time
	NewID     func() string
}

// Pipeline runs ingestions.
type Pipeline struct {
	contracts *contract.Loader
	store     manifest.Store
	catalog   *catalog.Store
	metrics   metrics.Sink
	logger    *slog.Logger
	ocr       config.OCR
	recoverer pages.Recoverer
	now       func() time.Time
	newID     func() string
}

// Outcome describes a finished ingestion attempt.
type Outcome struct {
	IngestionID string             `json:"ingestionId"`
	DocumentID  string             `json:"documentId"`
	Status      catalog.Status     `json:"status"`
	ErrorCode   string             `json:"errorCode,omitempty"`
	Error       string             `json:"error,omitempty"`
	Location    string             `json:"location,omitempty"`
	Duration    time.Duration      `json:"durationNs"`
	Manifest    *manifest.Manifest `json:"-"`
}

// New validates dependencies and returns a Pipeline.
func New(deps Dependencies) (*Pipeline, error) {
	if deps.Contracts == nil || deps.Store == nil {
		return nil, errors.New("ingestion pipeline requires a contract loader and a manifest store")
	}
	p := &Pipeline{
		contracts: deps.Contracts,
		store:     deps.Store,
		catalog:   deps.Catalog,
		metrics:   deps.Metrics,
		logger:    logging.NewComponentLogger(deps.Logger, "ingestion"),
		ocr:       deps.OCR,
		recoverer: deps.Recoverer,
		now:       deps.Clock,
		newID:     deps.NewID,
	}
	if p.metrics == nil {
		p.metrics = metrics.Nop{}
	}
	if p.recoverer == nil {
		p.recoverer = pages.AttachedRecoverer{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = uuid.NewString
	}
	return p, nil
}

// Contract returns the currently active contract.
func (p *Pipeline) Contract() *contract.Contract {
	return p.contracts.Current()
}

// ReloadContract swaps in the contract at path when its version is newer than
// the active one. In-flight ingestions keep the snapshot they started with.
func (p *Pipeline) ReloadContract(path string) (*contract.Contract, bool, error) {
	previous := p.contracts.Current()
	active, swapped, err := p.contracts.Reload(path)
	switch {
	case err != nil:
		logging.WarnWithContext(p.logger, "contract reload refused", "contract_reload_failed",
			logging.String("path", path),
			logging.String("active_version", previous.Version),
			logging.Error(err),
			logging.String(logging.FieldImpact, "ingestion keeps the active contract"),
		)
	case swapped:
		p.logger.Info("contract reloaded",
			logging.String(logging.FieldEventType, "contract_reloaded"),
			logging.String("path", path),
			logging.String("previous_version", previous.Version),
			logging.String("version", active.Version),
		)
	default:
		p.logger.Info("contract unchanged",
			logging.String(logging.FieldEventType, "contract_reload_noop"),
			logging.String("path", path),
			logging.String("version", active.Version),
		)
	}
	return active, swapped, err
}

// Ingest runs doc through every stage. The returned Outcome is non-nil even
// on failure so callers can report the ingestion id and status. On failure no
// manifest is persisted.
func (p *Pipeline) Ingest(ctx context.Context, doc *Document) (*Outcome, error) {
	start := p.now()
	c := p.contracts.Current()
	outcome := &Outcome{IngestionID: p.newID()}

	if doc == nil {
		doc = &Document{}
	}
	meta := doc.Metadata
	outcome.DocumentID = meta.Value(manifest.FieldDocumentID)
	if outcome.DocumentID == "" {
		outcome.DocumentID = p.newID()
		// A contract that requires documentId must still reject its absence.
		if !slices.Contains(c.Metadata.RequiredFields, manifest.FieldDocumentID) {
			meta.DocumentID = outcome.DocumentID
		}
	}

	ctx = services.WithDocumentID(ctx, outcome.DocumentID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("ingestion started",
		logging.String(logging.FieldEventType, "ingestion_start"),
		logging.String("ingestion_id", outcome.IngestionID),
		logging.String("contract_version", c.Version),
		logging.Int("pages", len(doc.Pages)),
	)

	m, location, err := p.run(ctx, c, outcome.IngestionID, meta, doc)
	outcome.Duration = p.now().Sub(start)
	if err != nil {
		p.fail(ctx, logger, outcome, err)
		return outcome, err
	}

	outcome.Status = catalog.StatusAccepted
	outcome.Location = location
	outcome.Manifest = m
	p.record(ctx, logger, outcome)
	p.metrics.OnIngestion(string(outcome.Status), "", outcome.Duration)
	logger.Info("manifest accepted",
		logging.String(logging.FieldEventType, "ingestion_complete"),
		logging.String("ingestion_id", outcome.IngestionID),
		logging.String("location", location),
		logging.Int("headings", m.Stats.HeadingCount),
		logging.Int("components", m.Stats.ComponentCount),
		logging.Int("ocr_events", len(m.OCRUsage)),
		logging.Duration("elapsed", outcome.Duration),
	)
	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context, c *contract.Contract, ingestionID string, meta manifest.Metadata, doc *Document) (*manifest.Manifest, string, error) {
	normalizer := pages.NewNormalizer(pages.Options{
		Precision:      c.HeadingRules.CoordinatePrecision,
		MinTextDensity: p.ocr.MinTextDensity,
		OCREnabled:     p.ocr.Enabled,
		Concurrency:    p.ocr.Concurrency,
		Recoverer:      p.recoverer,
		Logger:         p.logger,
	})
	var normalized pages.Result
	if err := p.stage(ctx, StageNormalize, func(stageCtx context.Context) error {
		var err error
		normalized, err = normalizer.Normalize(stageCtx, doc.Pages)
		return err
	}); err != nil {
		return nil, "", err
	}
	for _, event := range normalized.Events {
		p.metrics.OnOCRFallback(event.Page, event.Status)
	}

	builder := manifest.NewBuilder(c,
		manifest.WithClock(p.now),
		manifest.WithIDGenerator(p.newID),
		manifest.WithDensityThreshold(p.ocr.MinTextDensity),
		manifest.WithLogger(p.logger),
	)
	var m *manifest.Manifest
	if err := p.stage(ctx, StageBuild, func(stageCtx context.Context) error {
		var err error
		m, err = builder.Build(stageCtx, manifest.Input{
			IngestionID: ingestionID,
			Metadata:    meta,
			BGG:         doc.BGG,
			Pages:       normalized.Pages,
			Events:      normalized.Events,
		})
		return err
	}); err != nil {
		return nil, "", err
	}

	var location string
	if err := p.stage(ctx, StagePersist, func(stageCtx context.Context) error {
		var err error
		location, err = p.store.Save(stageCtx, m)
		return err
	}); err != nil {
		return nil, "", err
	}
	return m, location, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, p.logger)
	started := time.Now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))
	err := fn(stageCtx)
	elapsed := time.Since(started)
	p.metrics.OnStage(name, elapsed, err)
	if err != nil {
		return err
	}
	logger.Debug("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, outcome *Outcome, err error) {
	outcome.Status = services.FailureStatus(err)
	outcome.ErrorCode = services.CodeOf(err)
	outcome.Error = err.Error()
	p.metrics.OnIngestion(string(outcome.Status), outcome.ErrorCode, outcome.Duration)

	attrs := []logging.Attr{
		logging.String("ingestion_id", outcome.IngestionID),
		logging.String("resolved_status", string(outcome.Status)),
		logging.String(logging.FieldErrorCode, outcome.ErrorCode),
		logging.Error(err),
	}
	if outcome.Status == catalog.StatusRejected {
		attrs = append(attrs,
			logging.String(logging.FieldImpact, "document rejected; no manifest written"),
			logging.String(logging.FieldErrorHint, hintFor(outcome.ErrorCode)),
		)
		logging.WarnWithContext(logger, "document rejected", "ingestion_rejected", attrs...)
	} else {
		attrs = append(attrs, logging.Alert("ingestion_failure"))
		logging.ErrorWithContext(logger, "ingestion failed", "ingestion_failed", attrs...)
	}
	p.record(ctx, logger, outcome)
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, outcome *Outcome) {
	if p.catalog == nil {
		return
	}
	// Recording must survive a cancelled caller so the attempt is not lost.
	ctx = context.WithoutCancel(services.WithStage(ctx, StageCatalog))
	started := time.Now()
	err := p.recordCatalog(ctx, outcome)
	p.metrics.OnStage(StageCatalog, time.Since(started), err)
	if err != nil {
		logging.WarnWithContext(logger, "catalog update failed", "catalog_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "manifest not listed in catalog"),
			logging.String(logging.FieldErrorHint, "re-ingest the document once the catalog is writable"),
		)
	}
}

func (p *Pipeline) recordCatalog(ctx context.Context, outcome *Outcome) error {
	if m := outcome.Manifest; m != nil {
		rec := catalog.ManifestRecord{
			DocumentID:     m.Document.ID,
			IngestionID:    m.Document.IngestionID,
			Title:          m.Document.Title,
			GameID:         m.Document.GameID,
			Version:        m.Version,
			ContentHash:    manifestHash(m),
			Location:       outcome.Location,
			HeadingCount:   m.Stats.HeadingCount,
			ComponentCount: m.Stats.ComponentCount,
			OCRPages:       len(m.OCRUsage),
			CreatedAt:      m.Document.GeneratedAt,
			UpdatedAt:      m.Document.GeneratedAt,
		}
		if err := p.catalog.RecordManifest(ctx, rec); err != nil {
			return err
		}
	}
	return p.catalog.RecordAttempt(ctx, catalog.Attempt{
		IngestionID:  outcome.IngestionID,
		DocumentID:   outcome.DocumentID,
		Status:       outcome.Status,
		ErrorCode:    outcome.ErrorCode,
		ErrorMessage: outcome.Error,
		StartedAt:    p.now().Add(-outcome.Duration),
		Duration:     outcome.Duration,
	})
}

// manifestHash fingerprints the component hash sequence so the catalog can
// tell whether a re-ingestion changed content.
func manifestHash(m *manifest.Manifest) string {
	if len(m.Assets.Components) == 0 {
		return ""
	}
	var joined []byte
	for _, asset := range m.Assets.Components {
		joined = append(joined, asset.Hash...)
		joined = append(joined, '\n')
	}
	sum, err := digest.Sum(m.Heuristics.HashingAlgorithm, joined)
	if err != nil {
		return ""
	}
	return sum
}

func hintFor(code string) string {
	switch code {
	case services.CodeMetadataMissing:
		return "supply every metadata field the contract requires"
	case services.CodeHeadingMissing:
		return "check font sizes against headingRules.levels or attach OCR output"
	case services.CodeOCRExceeded:
		return "raise ocr.maxFallbacksPerDocument or supply a text-layer PDF extraction"
	case services.CodeInputInvalid:
		return "fix the document payload and resubmit"
	default:
		return "check logs for details"
	}
}
