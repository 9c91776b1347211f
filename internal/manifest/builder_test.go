package manifest_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"rulecast/internal/contract"
	"rulecast/internal/manifest"
	"rulecast/internal/pages"
	"rulecast/internal/services"
	"rulecast/internal/testsupport"
)

var fixedTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newBuilder(c *contract.Contract) *manifest.Builder {
	return manifest.NewBuilder(c,
		manifest.WithClock(func() time.Time { return fixedTime }),
		manifest.WithIDGenerator(sequentialIDs()),
		manifest.WithDensityThreshold(40),
	)
}

func normalizedSample(t *testing.T) []pages.Page {
	t.Helper()
	result, err := pages.NewNormalizer(pages.Options{Precision: 2}).Normalize(context.Background(), testsupport.SamplePages())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	return result.Pages
}

func sampleInput(t *testing.T) manifest.Input {
	return manifest.Input{
		Metadata: testsupport.SampleMetadata(),
		BGG:      testsupport.SampleBGG(),
		Pages:    normalizedSample(t),
	}
}

func TestBuildAssemblesManifest(t *testing.T) {
	c := contract.Builtin()
	m, err := newBuilder(c).Build(context.Background(), sampleInput(t))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if m.Version != c.Version {
		t.Fatalf("expected contract version, got %q", m.Version)
	}
	if m.Document.ID != "id-1" || m.Document.IngestionID != "id-2" {
		t.Fatalf("unexpected ids: %+v", m.Document)
	}
	if !m.Document.GeneratedAt.Equal(fixedTime) {
		t.Fatalf("unexpected generatedAt: %v", m.Document.GeneratedAt)
	}
	if m.Stats != (manifest.Stats{PageCount: 5, HeadingCount: 5, ComponentCount: 5}) {
		t.Fatalf("unexpected stats: %+v", m.Stats)
	}
	if !sort.SliceIsSorted(m.Outline, func(i, j int) bool {
		if m.Outline[i].Page != m.Outline[j].Page {
			return m.Outline[i].Page < m.Outline[j].Page
		}
		return m.Outline[i].BBox.Y < m.Outline[j].BBox.Y
	}) {
		t.Fatalf("outline not sorted: %+v", m.Outline)
	}
	if len(m.Assets.Pages) != 5 || len(m.Assets.Components) != 5 {
		t.Fatalf("unexpected assets: %+v", m.Assets)
	}
	for i, comp := range m.Components {
		if m.Assets.Components[i].ID != comp.ID || m.Assets.Components[i].Hash != comp.Hash {
			t.Fatalf("asset %d does not match component %+v", i, comp)
		}
	}
	if _, ok := m.Document.BGG["rank"]; ok {
		t.Fatal("expected disallowed BGG key to be dropped")
	}
	if m.Document.BGG["name"] != "Harbor Lights" {
		t.Fatalf("expected allowed BGG key kept, got %v", m.Document.BGG)
	}
	if m.Heuristics.HashingAlgorithm != "sha256" || m.Heuristics.OCRDensityThreshold != 40 || len(m.Heuristics.Levels) != 3 {
		t.Fatalf("unexpected heuristics: %+v", m.Heuristics)
	}
	if m.OCRUsage == nil {
		t.Fatal("expected empty, non-nil OCR usage")
	}
}

func TestBuildIsDeterministicApartFromIDs(t *testing.T) {
	c := contract.Builtin()
	first, err := newBuilder(c).Build(context.Background(), sampleInput(t))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	second, err := newBuilder(c).Build(context.Background(), sampleInput(t))
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !reflect.DeepEqual(first.Assets, second.Assets) || !reflect.DeepEqual(first.Outline, second.Outline) {
		t.Fatal("expected identical structure and hashes across builds")
	}
}

func TestBuildUsesSuppliedDocumentID(t *testing.T) {
	in := sampleInput(t)
	in.Metadata.DocumentID = "harbor-lights-v2"
	m, err := newBuilder(contract.Builtin()).Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if m.Document.ID != "harbor-lights-v2" || m.Document.IngestionID != "id-1" {
		t.Fatalf("unexpected ids: %+v", m.Document)
	}
}

func TestBuildRejectsUnsafeDocumentID(t *testing.T) {
	in := sampleInput(t)
	in.Metadata.DocumentID = "../escape"
	_, err := newBuilder(contract.Builtin()).Build(context.Background(), in)
	if services.CodeOf(err) != services.CodeInputInvalid {
		t.Fatalf("expected INGEST_INPUT_INVALID, got %v", err)
	}
}

func TestBuildListsEveryMissingField(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*manifest.Metadata)
		want   []string
	}{
		{name: "gameId only", mutate: func(m *manifest.Metadata) { m.GameID = "" }, want: []string{"gameId"}},
		{name: "blank counts as missing", mutate: func(m *manifest.Metadata) { m.Title = "  "; m.Source = "" }, want: []string{"title", "source"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := sampleInput(t)
			tc.mutate(&in.Metadata)
			m, err := newBuilder(contract.Builtin()).Build(context.Background(), in)
			if m != nil {
				t.Fatal("expected no manifest")
			}
			var missing *manifest.MissingMetadataError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingMetadataError, got %v", err)
			}
			if !reflect.DeepEqual(missing.Fields, tc.want) {
				t.Fatalf("missing fields = %v, want %v", missing.Fields, tc.want)
			}
			if !errors.Is(err, services.ErrValidation) || services.CodeOf(err) != services.CodeMetadataMissing {
				t.Fatalf("expected validation marker and INGEST_METADATA_MISSING, got %v", err)
			}
		})
	}
}

func TestBuildContractRequiredExtraField(t *testing.T) {
	c := contract.Builtin().Clone()
	c.Metadata.RequiredFields = append(c.Metadata.RequiredFields, "language")
	in := sampleInput(t)

	_, err := newBuilder(c).Build(context.Background(), in)
	var missing *manifest.MissingMetadataError
	if !errors.As(err, &missing) || !reflect.DeepEqual(missing.Fields, []string{"language"}) {
		t.Fatalf("expected language to be missing, got %v", err)
	}

	in.Metadata.Extra = map[string]string{"language": "en"}
	m, err := newBuilder(c).Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if m.Document.Extra["language"] != "en" {
		t.Fatalf("expected extra metadata carried, got %v", m.Document.Extra)
	}
}

func TestBuildEnforcesOCRBudget(t *testing.T) {
	c := contract.Builtin().Clone()
	c.OCR.MaxFallbacksPerDocument = 1
	in := sampleInput(t)
	in.Events = []pages.Event{
		{Page: 1, Reason: pages.ReasonLowTextDensity, Status: pages.StatusRecovered},
		{Page: 2, Reason: pages.ReasonLowTextDensity, Status: pages.StatusRecovered},
	}

	m, err := newBuilder(c).Build(context.Background(), in)
	if m != nil {
		t.Fatal("expected no manifest when budget exceeded")
	}
	if !errors.Is(err, services.ErrBudgetExceeded) || services.CodeOf(err) != services.CodeOCRExceeded {
		t.Fatalf("expected INGEST_OCR_EXCEEDED, got %v", err)
	}

	in.Events = in.Events[:1]
	m, err = newBuilder(c).Build(context.Background(), in)
	if err != nil {
		t.Fatalf("expected build within budget, got %v", err)
	}
	if len(m.OCRUsage) != 1 {
		t.Fatalf("expected OCR usage recorded, got %+v", m.OCRUsage)
	}
}

func TestBuildCheckOrder(t *testing.T) {
	c := contract.Builtin().Clone()
	c.OCR.MaxFallbacksPerDocument = 0
	in := manifest.Input{
		Metadata: manifest.Metadata{Title: "No Game"},
		Pages:    []pages.Page{{Number: 1, Blocks: []pages.Block{{Text: "body", FontSize: 10}}}},
		Events:   []pages.Event{{Page: 1}},
	}

	_, err := newBuilder(c).Build(context.Background(), in)
	if services.CodeOf(err) != services.CodeMetadataMissing {
		t.Fatalf("expected metadata check first, got %v", err)
	}

	in.Metadata = testsupport.SampleMetadata()
	_, err = newBuilder(c).Build(context.Background(), in)
	if services.CodeOf(err) != services.CodeOCRExceeded {
		t.Fatalf("expected OCR budget check second, got %v", err)
	}

	in.Events = nil
	_, err = newBuilder(c).Build(context.Background(), in)
	if services.CodeOf(err) != services.CodeHeadingMissing {
		t.Fatalf("expected heading check third, got %v", err)
	}
}

func TestBuildHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := newBuilder(contract.Builtin()).Build(ctx, sampleInput(t))
	if m != nil || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation with no manifest, got %v %v", m, err)
	}
}
