package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"rulecast/internal/components"
	"rulecast/internal/contract"
	"rulecast/internal/digest"
	"rulecast/internal/headings"
	"rulecast/internal/logging"
	"rulecast/internal/pages"
	"rulecast/internal/services"
	"rulecast/internal/textutil"
)

const stageName = "manifest"

// Input is everything Build needs for one document.
type Input struct {
	// IngestionID is generated when empty.
	IngestionID string
	Metadata    Metadata
	BGG         map[string]any
	Pages       []pages.Page
	Events      []pages.Event
}

// Builder assembles manifests under one contract.
type Builder struct {
	contract         *contract.Contract
	now              func() time.Time
	newID            func() string
	densityThreshold int
	logger           *slog.Logger
}

// BuilderOption customizes a Builder.
type BuilderOption func(*Builder)

// WithClock overrides the generatedAt clock.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDGenerator overrides document and ingestion id generation.
func WithIDGenerator(newID func() string) BuilderOption {
	return func(b *Builder) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// WithDensityThreshold records the OCR density threshold in the heuristics block.
func WithDensityThreshold(threshold int) BuilderOption {
	return func(b *Builder) {
		b.densityThreshold = threshold
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logger
	}
}

// NewBuilder returns a Builder bound to c.
func NewBuilder(c *contract.Contract, opts ...BuilderOption) *Builder {
	b := &Builder{
		contract: c,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.NewComponentLogger(b.logger, "manifest")
	return b
}

// Contract returns the contract the builder enforces.
func (b *Builder) Contract() *contract.Contract {
	return b.contract
}

// Build validates input and assembles a manifest. Checks run in order:
// metadata, OCR budget, outline, hashes. The first failure aborts the build
// and no manifest is returned.
func (b *Builder) Build(ctx context.Context, in Input) (*Manifest, error) {
	c := b.contract
	if c == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "build", "contract is required", nil)
	}
	logger := logging.WithContext(ctx, b.logger)

	if missing := in.Metadata.Missing(c.Metadata.RequiredFields); len(missing) > 0 {
		return nil, &MissingMetadataError{Fields: missing}
	}
	documentID := in.Metadata.Value(FieldDocumentID)
	if documentID != "" && !textutil.ValidIdentifier(documentID) {
		return nil, services.WrapCode(services.ErrValidation, services.CodeInputInvalid, stageName, "metadata",
			fmt.Sprintf("documentId %q must use letters, digits, '-', '_' or '.'", documentID), nil)
	}

	if budget := c.OCR.MaxFallbacksPerDocument; len(in.Events) > budget {
		return nil, services.WrapCode(services.ErrBudgetExceeded, services.CodeOCRExceeded, stageName, "ocr budget",
			fmt.Sprintf("%d OCR fallbacks exceed budget of %d", len(in.Events), budget), nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "build", "cancelled", err)
	}

	outline, err := headings.Detect(c, in.Pages)
	if err != nil {
		return nil, err
	}
	comps, err := components.Extract(c, in.Pages, outline)
	if err != nil {
		return nil, err
	}
	pageAssets, err := b.pageAssets(in.Pages)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTransient, stageName, "build", "cancelled", err)
	}

	componentAssets := make([]ComponentAsset, 0, len(comps))
	for _, comp := range comps {
		componentAssets = append(componentAssets, ComponentAsset{ID: comp.ID, Hash: comp.Hash})
	}
	if documentID == "" {
		documentID = b.newID()
	}
	ingestionID := in.IngestionID
	if ingestionID == "" {
		ingestionID = b.newID()
	}

	m := &Manifest{
		Version: c.Version,
		Document: Document{
			ID:          documentID,
			IngestionID: ingestionID,
			Title:       in.Metadata.Value(FieldTitle),
			GameID:      in.Metadata.Value(FieldGameID),
			Source:      in.Metadata.Value(FieldSource),
			BGG:         NormalizeBGG(c, in.BGG),
			Extra:       maps.Clone(in.Metadata.Extra),
			GeneratedAt: b.now().UTC(),
		},
		Outline:    outline,
		Components: comps,
		Assets: Assets{
			Pages:      pageAssets,
			Components: componentAssets,
		},
		Heuristics: Heuristics{
			ContractVersion:      c.Version,
			TOCHeuristicsVersion: c.TOC.HeuristicsVersion,
			FontSizeThreshold:    c.HeadingRules.FontSizeThreshold,
			CoordinatePrecision:  c.HeadingRules.CoordinatePrecision,
			Levels:               append([]contract.Level(nil), c.HeadingRules.Levels...),
			HashingAlgorithm:     c.Hashing.Algorithm,
			OCRDensityThreshold:  b.densityThreshold,
		},
		OCRUsage: append([]pages.Event(nil), in.Events...),
		Stats: Stats{
			PageCount:      len(in.Pages),
			HeadingCount:   len(outline),
			ComponentCount: len(comps),
		},
	}
	if len(m.OCRUsage) == 0 {
		m.OCRUsage = []pages.Event{}
	}

	logger.Debug("manifest assembled",
		logging.String("manifest_document", m.Document.ID),
		logging.Int("headings", m.Stats.HeadingCount),
		logging.Int("components", m.Stats.ComponentCount),
		logging.Int("ocr_events", len(m.OCRUsage)),
	)
	return m, nil
}

func (b *Builder) pageAssets(doc []pages.Page) ([]PageAsset, error) {
	assets := make([]PageAsset, 0, len(doc))
	for _, page := range doc {
		hash, err := digest.SumString(b.contract.Hashing.Algorithm, page.Text())
		if err != nil {
			return nil, services.WrapCode(services.ErrIntegrity, services.CodeHashFailed, stageName, "hash",
				fmt.Sprintf("page %d", page.Number), err)
		}
		assets = append(assets, PageAsset{Page: page.Number, Hash: hash})
	}
	return assets, nil
}
