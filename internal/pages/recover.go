package pages

import (
	"context"
	"errors"
)

var (
	// ErrNoOCROutput means no OCR ran for the page. The normalizer records no
	// fallback event for it.
	ErrNoOCROutput = errors.New("no OCR output attached")
	// ErrOCRFailed means OCR ran for the page but produced nothing usable.
	ErrOCRFailed = errors.New("OCR reported failure")
)

// Recoverer supplies replacement blocks for a page with too little text.
type Recoverer interface {
	Recover(ctx context.Context, page RawPage) ([]Block, error)
}

// RecovererFunc adapts a function to Recoverer.
type RecovererFunc func(ctx context.Context, page RawPage) ([]Block, error)

// Recover calls f.
func (f RecovererFunc) Recover(ctx context.Context, page RawPage) ([]Block, error) {
	return f(ctx, page)
}

// AttachedRecoverer returns the OCR blocks the upload layer attached to the
// page. It never runs OCR itself.
type AttachedRecoverer struct{}

// Recover implements Recoverer.
func (AttachedRecoverer) Recover(ctx context.Context, page RawPage) ([]Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if page.OCR == nil {
		return nil, ErrNoOCROutput
	}
	if !page.OCR.OK || len(page.OCR.Blocks) == 0 {
		return nil, ErrOCRFailed
	}
	return page.OCR.Blocks, nil
}
