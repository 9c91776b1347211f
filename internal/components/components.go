// Package components partitions a document into hashed content components
// bounded by its outline.
package components

import (
	"fmt"
	"strings"

	"rulecast/internal/contract"
	"rulecast/internal/digest"
	"rulecast/internal/headings"
	"rulecast/internal/pages"
	"rulecast/internal/services"
)

// TypePhase is the only component type emitted today.
const TypePhase = "phase"

// Confidence is a fixed policy value, not a computed signal.
const Confidence = 0.95

// Component is the content between one heading and the next.
type Component struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	SourceHeading string  `json:"sourceHeading"`
	Text          string  `json:"text"`
	Hash          string  `json:"hash"`
	PageStart     int     `json:"pageStart"`
	PageEnd       int     `json:"pageEnd"`
	Confidence    float64 `json:"confidence"`
}

// Extract emits one component per heading, in outline order. A component
// spans from its heading's page through the page before the next heading's
// page, or through the last page for the final heading. When that span is
// empty the component covers only its heading's page.
func Extract(c *contract.Contract, doc []pages.Page, outline []headings.Heading) ([]Component, error) {
	if len(outline) == 0 {
		return nil, nil
	}
	lastPage := 0
	if len(doc) > 0 {
		lastPage = doc[len(doc)-1].Number
	}

	out := make([]Component, 0, len(outline))
	for i, heading := range outline {
		start := heading.Page
		end := lastPage
		if i+1 < len(outline) {
			end = outline[i+1].Page - 1
		}
		if end < start {
			end = start
		}

		text := spanText(doc, start, end)
		hash, err := digest.SumString(c.Hashing.Algorithm, text)
		if err != nil {
			return nil, services.WrapCode(
				services.ErrIntegrity,
				services.CodeHashFailed,
				"components",
				"hash",
				fmt.Sprintf("component for heading %s", heading.ID),
				err,
			)
		}
		out = append(out, Component{
			ID:            fmt.Sprintf("c-%03d", i+1),
			Type:          TypePhase,
			SourceHeading: heading.ID,
			Text:          text,
			Hash:          hash,
			PageStart:     start,
			PageEnd:       end,
			Confidence:    Confidence,
		})
	}
	return out, nil
}

func spanText(doc []pages.Page, start, end int) string {
	var parts []string
	for _, page := range doc {
		if page.Number < start {
			continue
		}
		if page.Number > end {
			break
		}
		parts = append(parts, page.Text())
	}
	return strings.Join(parts, "\n")
}
