package manifest

import (
	"time"

	"rulecast/internal/components"
	"rulecast/internal/contract"
	"rulecast/internal/headings"
	"rulecast/internal/pages"
)

// Document identifies the ingested rulebook.
type Document struct {
	ID          string            `json:"id"`
	IngestionID string            `json:"ingestionId"`
	Title       string            `json:"title"`
	GameID      string            `json:"gameId"`
	Source      string            `json:"source"`
	BGG         map[string]any    `json:"bgg,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// PageAsset fingerprints one normalized page.
type PageAsset struct {
	Page int    `json:"page"`
	Hash string `json:"hash"`
}

// ComponentAsset fingerprints one component.
type ComponentAsset struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

// Assets aggregates every content hash in the manifest.
type Assets struct {
	Pages      []PageAsset      `json:"pages"`
	Components []ComponentAsset `json:"components"`
}

// Heuristics records the rules the manifest was produced under.
type Heuristics struct {
	ContractVersion      string           `json:"contractVersion"`
	TOCHeuristicsVersion string           `json:"tocHeuristicsVersion"`
	FontSizeThreshold    float64          `json:"fontSizeThreshold"`
	CoordinatePrecision  int              `json:"coordinatePrecision"`
	Levels               []contract.Level `json:"levels"`
	HashingAlgorithm     string           `json:"hashingAlgorithm"`
	OCRDensityThreshold  int              `json:"ocrDensityThreshold"`
}

// Stats summarizes the manifest.
type Stats struct {
	PageCount      int `json:"pageCount"`
	HeadingCount   int `json:"headingCount"`
	ComponentCount int `json:"componentCount"`
}

// Manifest is the canonical, versioned description of one ingestion.
type Manifest struct {
	Version    string                 `json:"version"`
	Document   Document               `json:"document"`
	Outline    []headings.Heading     `json:"outline"`
	Components []components.Component `json:"components"`
	Assets     Assets                 `json:"assets"`
	Heuristics Heuristics             `json:"heuristics"`
	OCRUsage   []pages.Event          `json:"ocrUsage"`
	Stats      Stats                  `json:"stats"`
}

// Heading returns the outline entry with id, if present.
func (m *Manifest) Heading(id string) (headings.Heading, bool) {
	for _, heading := range m.Outline {
		if heading.ID == id {
			return heading, true
		}
	}
	return headings.Heading{}, false
}
