package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"rulecast/internal/manifest"
	"rulecast/internal/pages"
	"rulecast/internal/services"
)

// Document is the raw ingestion request.
type Document struct {
	Metadata manifest.Metadata `json:"metadata"`
	BGG      map[string]any    `json:"bgg,omitempty"`
	Pages    []pages.RawPage   `json:"pages"`
}

// DecodeDocument parses a raw document. Malformed JSON or a non-array
// "pages" value is an input error coded INGEST_INPUT_INVALID.
func DecodeDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "decode", "read", "document body", err)
	}
	var probe struct {
		Pages json.RawMessage `json:"pages"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, inputError("document is not a JSON object", err)
	}
	if trimmed := bytes.TrimSpace(probe.Pages); len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, inputError("pages must be an array", nil)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, inputError(fmt.Sprintf("field %s has the wrong type", typeErr.Field), err)
		}
		return nil, inputError("decode document", err)
	}
	return &doc, nil
}

func inputError(message string, err error) error {
	return services.WrapCode(services.ErrValidation, services.CodeInputInvalid, "decode", "document", message, err)
}
