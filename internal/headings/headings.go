// Package headings recovers a document outline from normalized pages.
package headings

import (
	"fmt"
	"sort"
	"strings"

	"rulecast/internal/contract"
	"rulecast/internal/pages"
	"rulecast/internal/services"
	"rulecast/internal/textutil"
)

// FallbackSlug is used when a heading title has no slug-safe characters.
const FallbackSlug = "section"

// Heading is one outline entry.
type Heading struct {
	ID    string     `json:"id"`
	Title string     `json:"title"`
	Level int        `json:"level"`
	Page  int        `json:"page"`
	BBox  pages.BBox `json:"bbox"`
	Slug  string     `json:"slug"`
}

// Detect classifies blocks by font size against the contract's level
// thresholds and returns the outline sorted by page, then vertical position,
// with ties kept in detection order. Ids follow outline order. A document
// with no headings is a structural failure coded INGEST_HEADING_MISSING.
func Detect(c *contract.Contract, doc []pages.Page) ([]Heading, error) {
	if c == nil {
		return nil, services.Wrap(services.ErrConfiguration, "headings", "detect", "contract is required", nil)
	}
	var outline []Heading
	for _, page := range doc {
		for _, block := range page.Blocks {
			title := strings.TrimSpace(block.Text)
			if title == "" {
				continue
			}
			level, ok := c.LevelFor(block.FontSize)
			if !ok {
				continue
			}
			slug := textutil.Slugify(title, c.HeadingRules.SlugMaxLength)
			if slug == "" {
				slug = FallbackSlug
			}
			outline = append(outline, Heading{
				Title: title,
				Level: level,
				Page:  page.Number,
				BBox:  block.BBox,
				Slug:  slug,
			})
		}
	}
	if len(outline) == 0 {
		return nil, services.WrapCode(
			services.ErrStructural,
			services.CodeHeadingMissing,
			"headings",
			"detect",
			fmt.Sprintf("no headings found across %d pages", len(doc)),
			nil,
		)
	}

	sort.SliceStable(outline, func(i, j int) bool {
		if outline[i].Page != outline[j].Page {
			return outline[i].Page < outline[j].Page
		}
		return outline[i].BBox.Y < outline[j].BBox.Y
	})
	for i := range outline {
		outline[i].ID = fmt.Sprintf("h-%03d", i+1)
	}
	return outline, nil
}
