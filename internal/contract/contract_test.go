package contract_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"rulecast/internal/contract"
	"rulecast/internal/services"
)

func writeContract(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write contract: %v", err)
	}
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeContract(t, t.TempDir(), "contract.json", `{
		"version": "1.2.0",
		"hashing": {"algorithm": "SHA512"},
		"ocr": {"maxFallbacksPerDocument": 2}
	}`)

	c, err := contract.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Version != "1.2.0" || c.Source != path {
		t.Fatalf("unexpected version/source: %q %q", c.Version, c.Source)
	}
	if c.Hashing.Algorithm != "sha512" {
		t.Fatalf("expected normalized algorithm, got %q", c.Hashing.Algorithm)
	}
	if c.OCR.MaxFallbacksPerDocument != 2 {
		t.Fatalf("unexpected OCR budget: %d", c.OCR.MaxFallbacksPerDocument)
	}
	def := contract.Default()
	if len(c.HeadingRules.Levels) != len(def.HeadingRules.Levels) {
		t.Fatalf("expected default levels to survive, got %+v", c.HeadingRules.Levels)
	}
	if strings.Join(c.Metadata.RequiredFields, ",") != "title,gameId,source" {
		t.Fatalf("unexpected required fields: %v", c.Metadata.RequiredFields)
	}
	if c.LoadedAt.IsZero() {
		t.Fatal("expected LoadedAt to be stamped")
	}
}

func TestLoadReplacesLevelsAndSortsThem(t *testing.T) {
	path := writeContract(t, t.TempDir(), "contract.json", `{
		"version": "2.0.0",
		"headingRules": {"levels": [{"level": 2, "minSize": 18}, {"level": 1, "minSize": 30}]}
	}`)
	c, err := contract.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(c.HeadingRules.Levels) != 2 || c.HeadingRules.Levels[0].Level != 1 {
		t.Fatalf("expected replaced, sorted levels, got %+v", c.HeadingRules.Levels)
	}
	if level, ok := c.LevelFor(32); !ok || level != 1 {
		t.Fatalf("expected level 1 for 32pt, got %d %v", level, ok)
	}
	if level, ok := c.LevelFor(19); !ok || level != 2 {
		t.Fatalf("expected level 2 for 19pt, got %d %v", level, ok)
	}
}

func TestLevelForDefaults(t *testing.T) {
	c := contract.Builtin()
	cases := []struct {
		size  float64
		level int
		ok    bool
	}{
		{size: 30, level: 1, ok: true},
		{size: 24, level: 1, ok: true},
		{size: 21, level: 2, ok: true},
		{size: 16, level: 3, ok: true},
		{size: 15.9, ok: false},
		{size: 11, ok: false},
	}
	for _, tc := range cases {
		level, ok := c.LevelFor(tc.size)
		if ok != tc.ok || level != tc.level {
			t.Fatalf("LevelFor(%v) = %d, %v; want %d, %v", tc.size, level, ok, tc.level, tc.ok)
		}
	}
}

func TestLoadFailuresAreConfigErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing version":       `{"hashing": {"algorithm": "sha256"}}`,
		"bad version":           `{"version": "latest"}`,
		"unknown field":         `{"version": "1.0.0", "hashng": {}}`,
		"empty levels":          `{"version": "1.0.0", "headingRules": {"levels": []}}`,
		"duplicate level":       `{"version": "1.0.0", "headingRules": {"levels": [{"level": 1, "minSize": 20}, {"level": 1, "minSize": 22}]}}`,
		"level without minSize": `{"version": "1.0.0", "headingRules": {"levels": [{"level": 2}]}}`,
		"level without level":   `{"version": "1.0.0", "headingRules": {"levels": [{"minSize": 30}]}}`,
		"duplicate required":    `{"version": "1.0.0", "metadata": {"requiredFields": ["title", "gameId", "gameId"]}}`,
		"unsupported hash":      `{"version": "1.0.0", "hashing": {"algorithm": "md5"}}`,
		"negative budget":       `{"version": "1.0.0", "ocr": {"maxFallbacksPerDocument": -1}}`,
		"precision too large":   `{"version": "1.0.0", "headingRules": {"coordinatePrecision": 9}}`,
		"malformed":             `{"version": `,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeContract(t, dir, strings.ReplaceAll(name, " ", "_")+".json", body)
			_, err := contract.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration marker, got %v", err)
			}
			if services.CodeOf(err) != services.CodeContractInvalid {
				t.Fatalf("expected CONTRACT_INVALID, got %q", services.CodeOf(err))
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := contract.Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist cause, got %v", err)
	}
}

func TestOpenWithoutPathUsesBuiltin(t *testing.T) {
	loader, err := contract.Open("")
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if loader.Current().Source != contract.SourceBuiltin {
		t.Fatalf("expected builtin source, got %q", loader.Current().Source)
	}
}

func TestReloadIsVersionGuarded(t *testing.T) {
	dir := t.TempDir()
	v1 := writeContract(t, dir, "v1.json", `{"version": "1.0.0"}`)
	v1b := writeContract(t, dir, "v1b.json", `{"version": "1.0.0", "ocr": {"maxFallbacksPerDocument": 9}}`)
	v2 := writeContract(t, dir, "v2.json", `{"version": "1.1.0", "ocr": {"maxFallbacksPerDocument": 7}}`)

	loader, err := contract.Open(v1)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	current, swapped, err := loader.Reload(v1b)
	if err != nil || swapped {
		t.Fatalf("expected same-version reload to be a no-op, got swapped=%v err=%v", swapped, err)
	}
	if current.OCR.MaxFallbacksPerDocument != 5 {
		t.Fatalf("expected original contract retained, got budget %d", current.OCR.MaxFallbacksPerDocument)
	}

	current, swapped, err = loader.Reload(v2)
	if err != nil || !swapped {
		t.Fatalf("expected newer version to swap, got swapped=%v err=%v", swapped, err)
	}
	if loader.Current().OCR.MaxFallbacksPerDocument != 7 || current.Version != "1.1.0" {
		t.Fatalf("unexpected active contract: %+v", loader.Current())
	}

	_, swapped, err = loader.Reload(v1)
	if !errors.Is(err, contract.ErrVersionRegression) || swapped {
		t.Fatalf("expected regression error, got swapped=%v err=%v", swapped, err)
	}
	if loader.Current().Version != "1.1.0" {
		t.Fatalf("regression must not change active contract, got %q", loader.Current().Version)
	}
}

func TestLoaderConcurrentReads(t *testing.T) {
	loader := contract.NewLoader(nil)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if loader.Current().HeadingRules.SlugMaxLength != 64 {
					t.Error("unexpected slug length")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestCloneIsDeep(t *testing.T) {
	c := contract.Builtin()
	clone := c.Clone()
	clone.HeadingRules.Levels[0].MinSize = 99
	clone.Metadata.RequiredFields[0] = "changed"
	if c.HeadingRules.Levels[0].MinSize == 99 || c.Metadata.RequiredFields[0] == "changed" {
		t.Fatal("expected clone to not share slices")
	}
}
