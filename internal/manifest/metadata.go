package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"rulecast/internal/services"
)

// Known metadata keys.
const (
	FieldTitle      = "title"
	FieldGameID     = "gameId"
	FieldSource     = "source"
	FieldDocumentID = "documentId"
)

// Metadata is the caller-supplied description of a document. Keys outside
// the known set are kept in Extra so contracts can require them.
type Metadata struct {
	Title      string
	GameID     string
	Source     string
	DocumentID string
	Extra      map[string]string
}

// Value returns the trimmed value for a metadata key.
func (m Metadata) Value(field string) string {
	switch field {
	case FieldTitle:
		return strings.TrimSpace(m.Title)
	case FieldGameID:
		return strings.TrimSpace(m.GameID)
	case FieldSource:
		return strings.TrimSpace(m.Source)
	case FieldDocumentID:
		return strings.TrimSpace(m.DocumentID)
	default:
		return strings.TrimSpace(m.Extra[field])
	}
}

// Missing lists every required field without a non-blank value, in the
// order given.
func (m Metadata) Missing(required []string) []string {
	var missing []string
	for _, field := range required {
		if m.Value(field) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

// UnmarshalJSON accepts a flat object. Non-string extra values are rendered
// with their JSON text so they still satisfy presence checks.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{}
	for key, value := range raw {
		text, err := rawText(value)
		if err != nil {
			return fmt.Errorf("metadata.%s: %w", key, err)
		}
		switch key {
		case FieldTitle:
			m.Title = text
		case FieldGameID:
			m.GameID = text
		case FieldSource:
			m.Source = text
		case FieldDocumentID:
			m.DocumentID = text
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[key] = text
		}
	}
	return nil
}

// MarshalJSON renders the flat object form.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(m.Extra)+4)
	for key, value := range m.Extra {
		out[key] = value
	}
	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}
	set(FieldTitle, m.Title)
	set(FieldGameID, m.GameID)
	set(FieldSource, m.Source)
	set(FieldDocumentID, m.DocumentID)
	return json.Marshal(out)
}

func rawText(value json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(value))
	if trimmed == "null" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return trimmed, nil
}

// MissingMetadataError lists every required metadata field that was absent.
type MissingMetadataError struct {
	Fields []string
}

func (e *MissingMetadataError) Error() string {
	return fmt.Sprintf("missing required metadata: %s", strings.Join(e.Fields, ", "))
}

// ErrorCode implements the in-band code lookup used by services.CodeOf.
func (e *MissingMetadataError) ErrorCode() string { return services.CodeMetadataMissing }

// Unwrap classifies the error as a validation failure.
func (e *MissingMetadataError) Unwrap() error { return services.ErrValidation }
