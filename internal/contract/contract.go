// Package contract loads the governance contract that every ingestion and
// storyboard compilation is evaluated against.
//
// A contract is immutable once loaded. Callers receive a *Contract and must
// treat it as read-only; the Loader swaps whole values on reload so concurrent
// readers never observe a partially updated contract.
package contract

import (
	"slices"
	"sort"
	"time"
)

// Level maps a heading level to the minimum font size that qualifies for it.
type Level struct {
	Level   int     `json:"level"`
	MinSize float64 `json:"minSize"`
}

// HeadingRules drives heading detection.
type HeadingRules struct {
	CoordinatePrecision int     `json:"coordinatePrecision"`
	FontSizeThreshold   float64 `json:"fontSizeThreshold"`
	SlugMaxLength       int     `json:"slugMaxLength"`
	Levels              []Level `json:"levels"`
}

// BGGRules lists the BoardGameGeek fields a manifest may carry.
type BGGRules struct {
	AllowedFields []string `json:"allowedFields"`
}

// MetadataRules lists required document metadata.
type MetadataRules struct {
	RequiredFields []string `json:"requiredFields"`
	BGG            BGGRules `json:"bgg"`
}

// Hashing selects the content digest algorithm.
type Hashing struct {
	Algorithm string `json:"algorithm"`
}

// OCR carries the per-document OCR fallback budget.
type OCR struct {
	MaxFallbacksPerDocument int `json:"maxFallbacksPerDocument"`
}

// TOC records the outline heuristics version stamped into manifests.
type TOC struct {
	HeuristicsVersion string `json:"heuristicsVersion"`
}

// Contract is the governance schema merged over built-in defaults.
type Contract struct {
	Version      string        `json:"version"`
	HeadingRules HeadingRules  `json:"headingRules"`
	Metadata     MetadataRules `json:"metadata"`
	Hashing      Hashing       `json:"hashing"`
	OCR          OCR           `json:"ocr"`
	TOC          TOC           `json:"toc"`

	// Source is the file the contract was read from, or "builtin".
	Source   string    `json:"-"`
	LoadedAt time.Time `json:"-"`
}

// SourceBuiltin marks a contract built from defaults only.
const SourceBuiltin = "builtin"

// Default returns the built-in governance rules.
func Default() Contract {
	return Contract{
		Version: "1.0.0",
		HeadingRules: HeadingRules{
			CoordinatePrecision: 2,
			FontSizeThreshold:   16,
			SlugMaxLength:       64,
			Levels: []Level{
				{Level: 1, MinSize: 24},
				{Level: 2, MinSize: 20},
				{Level: 3, MinSize: 16},
			},
		},
		Metadata: MetadataRules{
			RequiredFields: []string{"title", "gameId", "source"},
			BGG: BGGRules{
				AllowedFields: []string{
					"id", "name", "yearPublished", "minPlayers", "maxPlayers",
					"playingTime", "minAge", "designers", "publishers",
					"categories", "mechanics",
				},
			},
		},
		Hashing: Hashing{Algorithm: "sha256"},
		OCR:     OCR{MaxFallbacksPerDocument: 5},
		TOC:     TOC{HeuristicsVersion: "1.0.0"},
		Source:  SourceBuiltin,
	}
}

// Builtin returns the validated default contract.
func Builtin() *Contract {
	c := Default()
	c.normalize()
	c.LoadedAt = time.Now().UTC()
	return &c
}

// LevelFor returns the heading level for fontSize: the numerically lowest
// level whose threshold is met. ok is false when no level applies or the size
// is below the global font size threshold.
func (c *Contract) LevelFor(fontSize float64) (int, bool) {
	if fontSize < c.HeadingRules.FontSizeThreshold {
		return 0, false
	}
	for _, level := range c.HeadingRules.Levels {
		if fontSize >= level.MinSize {
			return level.Level, true
		}
	}
	return 0, false
}

// AllowsBGGField reports whether a BGG key survives normalization.
func (c *Contract) AllowsBGGField(key string) bool {
	return slices.Contains(c.Metadata.BGG.AllowedFields, key)
}

// Clone returns a deep copy.
func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	out := *c
	out.HeadingRules.Levels = slices.Clone(c.HeadingRules.Levels)
	out.Metadata.RequiredFields = slices.Clone(c.Metadata.RequiredFields)
	out.Metadata.BGG.AllowedFields = slices.Clone(c.Metadata.BGG.AllowedFields)
	return &out
}

func (c *Contract) normalize() {
	sort.SliceStable(c.HeadingRules.Levels, func(i, j int) bool {
		return c.HeadingRules.Levels[i].Level < c.HeadingRules.Levels[j].Level
	})
}
