package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"rulecast/internal/manifest"
	"rulecast/internal/pages"
)

func block(text string, y, size float64) pages.Block {
	return pages.Block{Text: text, BBox: pages.BBox{X: 72, Y: y}, FontSize: size}
}

// SampleMetadata returns metadata satisfying the default contract.
func SampleMetadata() manifest.Metadata {
	return manifest.Metadata{
		Title:  "Harbor Lights",
		GameID: "harbor-lights",
		Source: "uploads/harbor-lights.pdf",
	}
}

// SampleBGG returns a BGG record with one key outside the default allow-list.
func SampleBGG() map[string]any {
	return map[string]any{
		"id":         float64(4242),
		"name":       "Harbor Lights",
		"minPlayers": float64(2),
		"maxPlayers": float64(4),
		"rank":       float64(101),
	}
}

// SamplePages returns a five-page rulebook with five headings: a title, a
// "Setup" section with one level-2 subsection, then gameplay and scoring.
// Every page carries enough text to stay above the default OCR density.
func SamplePages() []pages.RawPage {
	return []pages.RawPage{
		{Number: 1, Blocks: []pages.Block{
			block("Harbor Lights", 50, 28),
			block("Guide your fleet through the fog and trade at every port before the lights go out.", 120, 11),
		}},
		{Number: 2, Blocks: []pages.Block{
			block("Setup", 40, 24),
			block("Place the harbor board in the middle of the table.", 90, 11),
			block("Each player takes five coins and one ship of their color.", 130, 11),
		}},
		{Number: 3, Blocks: []pages.Block{
			block("Player Boards", 40, 20),
			block("Give every player a dock board and three cargo tokens.", 90, 11),
		}},
		{Number: 4, Blocks: []pages.Block{
			block("Gameplay", 40, 24),
			block("On your turn sail one space, then trade or unload cargo at the port you reach.", 90, 11),
		}},
		{Number: 5, Blocks: []pages.Block{
			block("Scoring", 40, 24),
			block("The game ends when the last lighthouse dims; most coins wins the game.", 90, 11),
		}},
	}
}

// WriteJSON encodes v to path, creating parent directories.
func WriteJSON(t testing.TB, path string, v any) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
