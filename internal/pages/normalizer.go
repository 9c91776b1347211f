package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"rulecast/internal/logging"
	"rulecast/internal/services"
	"rulecast/internal/textutil"
)

const stageName = "normalize"

// Options configures a Normalizer.
type Options struct {
	// Precision is the number of decimals kept on block coordinates.
	Precision int
	// MinTextDensity is the non-space rune count below which recovery runs.
	MinTextDensity int
	OCREnabled     bool
	// Concurrency bounds parallel recoveries. Values below 1 mean 1.
	Concurrency int
	Recoverer   Recoverer
	Logger      *slog.Logger
}

// Normalizer cleans raw pages and runs OCR fallback.
type Normalizer struct {
	opts   Options
	logger *slog.Logger
}

// NewNormalizer constructs a Normalizer.
func NewNormalizer(opts Options) *Normalizer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Normalizer{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "pages"),
	}
}

type recovery struct {
	blocks []Block
	event  *Event
}

// Normalize validates page numbering, recovers low-density pages, and returns
// normalized pages in input order along with every fallback event.
func (n *Normalizer) Normalize(ctx context.Context, raw []RawPage) (Result, error) {
	if err := validateNumbering(raw); err != nil {
		return Result{}, err
	}
	logger := logging.WithContext(ctx, n.logger)

	densities := make([]int, len(raw))
	recoveries := make([]recovery, len(raw))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(n.opts.Concurrency)
	for i, page := range raw {
		densities[i] = textDensity(page.Blocks)
		if !n.shouldRecover(densities[i]) {
			continue
		}
		group.Go(func() error {
			blocks, err := n.opts.Recoverer.Recover(groupCtx, page)
			event := &Event{Page: page.Number, Reason: ReasonLowTextDensity, Density: densities[i]}
			switch {
			case err == nil:
				event.Status = StatusRecovered
				recoveries[i] = recovery{blocks: blocks, event: event}
				logger.Debug("ocr recovery succeeded",
					logging.Int("page", page.Number),
					logging.Int("density", densities[i]),
					logging.Int("blocks", len(blocks)),
				)
			case groupCtx.Err() != nil:
				return groupCtx.Err()
			case errors.Is(err, ErrNoOCROutput):
				logger.Debug("ocr not attempted",
					logging.Int("page", page.Number),
					logging.Int("density", densities[i]),
				)
			default:
				event.Status = StatusFailed
				recoveries[i] = recovery{event: event}
				logging.WarnWithContext(logger, "ocr recovery failed", "ocr_recovery_failed",
					logging.Int("page", page.Number),
					logging.Int("density", densities[i]),
					logging.Error(err),
					logging.String(logging.FieldImpact, "page keeps its extracted text"),
					logging.String(logging.FieldErrorHint, "re-run OCR for this page or raise its scan quality"),
				)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stageName, "ocr", "recovery aborted", err)
	}
	if err := ctx.Err(); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, stageName, "ocr", "recovery aborted", err)
	}

	result := Result{Pages: make([]Page, 0, len(raw))}
	for i, page := range raw {
		blocks := page.Blocks
		rec := recoveries[i]
		recovered := false
		if rec.event != nil {
			result.Events = append(result.Events, *rec.event)
			if rec.event.Status == StatusRecovered {
				blocks = rec.blocks
				recovered = true
			}
		}
		normalized := n.normalizeBlocks(blocks)
		result.Pages = append(result.Pages, Page{
			Number:    page.Number,
			Blocks:    normalized,
			Density:   textDensity(normalized),
			Recovered: recovered,
		})
	}

	logger.Debug("pages normalized",
		logging.Int("pages", len(result.Pages)),
		logging.Int("ocr_events", len(result.Events)),
	)
	return result, nil
}

func (n *Normalizer) shouldRecover(density int) bool {
	return n.opts.OCREnabled && n.opts.Recoverer != nil && density < n.opts.MinTextDensity
}

func (n *Normalizer) normalizeBlocks(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, block := range blocks {
		out = append(out, Block{
			Text: textutil.NormalizeText(block.Text),
			BBox: BBox{
				X: Round(block.BBox.X, n.opts.Precision),
				Y: Round(block.BBox.Y, n.opts.Precision),
			},
			FontSize: block.FontSize,
		})
	}
	return out
}

// Round rounds value to precision decimal places.
func Round(value float64, precision int) float64 {
	if precision < 0 {
		return value
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(value*scale) / scale
}

func validateNumbering(raw []RawPage) error {
	previous := 0
	for i, page := range raw {
		if page.Number <= 0 {
			return inputError(fmt.Sprintf("page at index %d has non-positive number %d", i, page.Number))
		}
		if page.Number <= previous {
			return inputError(fmt.Sprintf("page %d follows page %d; numbers must strictly increase", page.Number, previous))
		}
		previous = page.Number
	}
	return nil
}

func inputError(message string) error {
	return services.WrapCode(services.ErrValidation, services.CodeInputInvalid, stageName, "validate", message, nil)
}

func textDensity(blocks []Block) int {
	total := 0
	for _, block := range blocks {
		total += textutil.Density(block.Text)
	}
	return total
}
