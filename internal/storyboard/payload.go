package storyboard

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"rulecast/internal/headings"
	"rulecast/internal/manifest"
	"rulecast/internal/services"
	"rulecast/internal/textutil"
)

const setupSlugMarker = "setup"

// DecodePayload parses payload JSON. A "setupSteps" value that is present
// but not an array is rejected rather than coerced.
func DecodePayload(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, services.Wrap(services.ErrTransient, stageName, "read", "payload body", err)
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Payload{}, invalid("decode", fmt.Sprintf("payload is not a JSON object: %v", err))
	}
	if raw, ok := probe["setupSteps"]; ok {
		trimmed := bytes.TrimSpace(raw)
		if !bytes.Equal(trimmed, []byte("null")) && (len(trimmed) == 0 || trimmed[0] != '[') {
			return Payload{}, invalid("decode", "setupSteps must be an array")
		}
	}
	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Payload{}, invalid("decode", err.Error())
	}
	return payload, nil
}

// PayloadFromManifest derives setup steps from a manifest. Components under
// a heading whose slug mentions "setup", and under that heading's deeper
// subheadings, become steps in outline order. When no heading matches,
// every component becomes a step.
func PayloadFromManifest(m *manifest.Manifest) Payload {
	payload := Payload{
		Game: Game{
			Slug:  m.Document.GameID,
			Title: m.Document.Title,
		},
		Source: &Source{
			DocumentID:      m.Document.ID,
			ManifestVersion: m.Version,
		},
	}
	if payload.Game.Slug != "" {
		payload.Game.Slug = textutil.Slugify(payload.Game.Slug, stepSlugMaxLength)
	}

	selected := setupHeadings(m.Outline)
	for _, comp := range m.Components {
		if len(selected) > 0 {
			if _, ok := selected[comp.SourceHeading]; !ok {
				continue
			}
		}
		pagesRef := make([]int, 0, comp.PageEnd-comp.PageStart+1)
		for page := comp.PageStart; page <= comp.PageEnd; page++ {
			pagesRef = append(pagesRef, page)
		}
		payload.SetupSteps = append(payload.SetupSteps, SetupStep{
			ID:            comp.ID,
			Order:         len(payload.SetupSteps) + 1,
			Text:          comp.Text,
			ComponentRefs: []string{comp.ID},
			PageRefs:      pagesRef,
		})
	}
	return payload
}

func setupHeadings(outline []headings.Heading) map[string]struct{} {
	selected := make(map[string]struct{})
	for i := 0; i < len(outline); i++ {
		if !strings.Contains(outline[i].Slug, setupSlugMarker) {
			continue
		}
		root := outline[i]
		selected[root.ID] = struct{}{}
		for i+1 < len(outline) && outline[i+1].Level > root.Level {
			i++
			selected[outline[i].ID] = struct{}{}
		}
	}
	return selected
}
