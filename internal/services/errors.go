package services

import (
	"errors"
	"fmt"
	"strings"

	"rulecast/internal/catalog"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrValidation     = errors.New("validation error")
	ErrStructural     = errors.New("structural error")
	ErrBudgetExceeded = errors.New("budget exceeded")
	ErrIntegrity      = errors.New("integrity error")
	ErrNotFound       = errors.New("not found")
	ErrTransient      = errors.New("transient failure")
)

// In-band error codes surfaced to manifest consumers and API clients.
const (
	CodeContractInvalid   = "CONTRACT_INVALID"
	CodeMetadataMissing   = "INGEST_METADATA_MISSING"
	CodeInputInvalid      = "INGEST_INPUT_INVALID"
	CodeHeadingMissing    = "INGEST_HEADING_MISSING"
	CodeOCRExceeded       = "INGEST_OCR_EXCEEDED"
	CodeHashFailed        = "INGEST_HASH_FAILED"
	CodeStoryboardInvalid = "STORYBOARD_INPUT_INVALID"
)

// Error carries a classification marker, an optional in-band code, and the
// stage context a failure occurred in.
type Error struct {
	Marker error
	Code   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Marker.Error())
	if e.Code != "" {
		b.WriteString(" [")
		b.WriteString(e.Code)
		b.WriteByte(']')
	}
	b.WriteString(": ")
	b.WriteString(e.Detail)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the marker and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	return WrapCode(marker, "", stage, operation, message, err)
}

// WrapCode is Wrap with an in-band error code attached.
func WrapCode(marker error, code, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &Error{
		Marker: marker,
		Code:   code,
		Detail: buildDetail(stage, operation, message),
		Err:    err,
	}
}

// ErrorCode returns the in-band code attached to e.
func (e *Error) ErrorCode() string { return e.Code }

// CodeOf returns the outermost in-band code carried by err, or "" when none.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	if coded, ok := err.(interface{ ErrorCode() string }); ok {
		if code := coded.ErrorCode(); code != "" {
			return code
		}
	}
	switch u := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range u.Unwrap() {
			if code := CodeOf(inner); code != "" {
				return code
			}
		}
	case interface{ Unwrap() error }:
		return CodeOf(u.Unwrap())
	}
	return ""
}

// FailureStatus maps a pipeline error to the catalog status recorded for the
// ingestion attempt.
func FailureStatus(err error) catalog.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrStructural), errors.Is(err, ErrBudgetExceeded):
		return catalog.StatusRejected
	default:
		return catalog.StatusFailed
	}
}

// Describe renders a short human summary for CLI output.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if code := CodeOf(err); code != "" {
		return fmt.Sprintf("%s: %v", code, err)
	}
	return err.Error()
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
