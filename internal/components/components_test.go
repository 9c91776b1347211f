package components_test

import (
	"errors"
	"testing"

	"rulecast/internal/components"
	"rulecast/internal/contract"
	"rulecast/internal/digest"
	"rulecast/internal/headings"
	"rulecast/internal/pages"
	"rulecast/internal/services"
)

func page(number int, texts ...string) pages.Page {
	p := pages.Page{Number: number}
	for i, text := range texts {
		p.Blocks = append(p.Blocks, pages.Block{Text: text, BBox: pages.BBox{Y: float64(i * 10)}, FontSize: 11})
	}
	return p
}

func TestExtractSpansAndHashes(t *testing.T) {
	doc := []pages.Page{
		page(1, "Setup", "Place the board."),
		page(2, "Deal cards."),
		page(3, "Gameplay", "Take turns."),
		page(4, "Scoring"),
		page(5, "Count points."),
	}
	outline := []headings.Heading{
		{ID: "h-001", Title: "Setup", Page: 1},
		{ID: "h-002", Title: "Gameplay", Page: 3},
		{ID: "h-003", Title: "Scoring", Page: 4},
	}
	c := contract.Builtin()

	got, err := components.Extract(c, doc, outline)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 components, got %d", len(got))
	}
	spans := [][2]int{{1, 2}, {3, 3}, {4, 5}}
	for i, span := range spans {
		if got[i].PageStart != span[0] || got[i].PageEnd != span[1] {
			t.Fatalf("component %d span = %d-%d, want %d-%d", i, got[i].PageStart, got[i].PageEnd, span[0], span[1])
		}
		if i > 0 && got[i].PageStart != got[i-1].PageEnd+1 {
			t.Fatalf("expected contiguous spans, got %+v", got)
		}
		if got[i].SourceHeading != outline[i].ID || got[i].Type != components.TypePhase || got[i].Confidence != 0.95 {
			t.Fatalf("unexpected component fields: %+v", got[i])
		}
	}
	if got[0].ID != "c-001" || got[0].Text != "Setup\nPlace the board.\nDeal cards." {
		t.Fatalf("unexpected first component: %+v", got[0])
	}
	want, _ := digest.SumString("sha256", got[0].Text)
	if got[0].Hash != want {
		t.Fatalf("expected hash of component text, got %q want %q", got[0].Hash, want)
	}

	again, err := components.Extract(c, doc, outline)
	if err != nil {
		t.Fatalf("second Extract returned error: %v", err)
	}
	for i := range got {
		if got[i].Hash != again[i].Hash {
			t.Fatal("expected deterministic hashes")
		}
	}
}

func TestExtractSamePageHeadingsFallBackToOwnPage(t *testing.T) {
	doc := []pages.Page{page(1, "Setup", "Components"), page(2, "Board")}
	outline := []headings.Heading{
		{ID: "h-001", Page: 1},
		{ID: "h-002", Page: 1},
	}
	got, err := components.Extract(contract.Builtin(), doc, outline)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if got[0].PageStart != 1 || got[0].PageEnd != 1 {
		t.Fatalf("expected fallback span 1-1, got %d-%d", got[0].PageStart, got[0].PageEnd)
	}
	if got[1].PageStart != 1 || got[1].PageEnd != 2 {
		t.Fatalf("expected final span 1-2, got %d-%d", got[1].PageStart, got[1].PageEnd)
	}
}

func TestExtractHashFailureIsIntegrityError(t *testing.T) {
	c := contract.Builtin().Clone()
	c.Hashing.Algorithm = "crc32"
	_, err := components.Extract(c, []pages.Page{page(1, "x")}, []headings.Heading{{ID: "h-001", Page: 1}})
	if !errors.Is(err, services.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if services.CodeOf(err) != services.CodeHashFailed {
		t.Fatalf("expected INGEST_HASH_FAILED, got %q", services.CodeOf(err))
	}
}
