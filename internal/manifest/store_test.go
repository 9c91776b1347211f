package manifest_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"rulecast/internal/contract"
	"rulecast/internal/manifest"
	"rulecast/internal/services"
	"rulecast/internal/testsupport"
)

func buildSample(t *testing.T) *manifest.Manifest {
	t.Helper()
	in := sampleInput(t)
	in.Metadata.DocumentID = "harbor-lights"
	m, err := newBuilder(contract.Builtin()).Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestFileStoreSaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "manifests")
	store := manifest.NewFileStore(dir)
	m := buildSample(t)

	location, err := store.Save(context.Background(), m)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if location != filepath.Join(dir, "harbor-lights.json") {
		t.Fatalf("unexpected location %q", location)
	}

	loaded, err := store.Load(context.Background(), "harbor-lights")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Document.IngestionID != m.Document.IngestionID || len(loaded.Outline) != len(m.Outline) {
		t.Fatalf("loaded manifest differs: %+v", loaded.Document)
	}
	if loaded.Components[0].Hash != m.Components[0].Hash {
		t.Fatal("expected component hashes to survive persistence")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestFileStoreConcurrentSaves(t *testing.T) {
	store := manifest.NewFileStore(t.TempDir())
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		m := buildSample(t)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Save(context.Background(), m); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent save failed: %v", err)
	}
	if _, err := store.Load(context.Background(), "harbor-lights"); err != nil {
		t.Fatalf("Load after concurrent saves: %v", err)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := manifest.NewFileStore(t.TempDir())
	for _, id := range []string{"absent", "../etc/passwd"} {
		_, err := store.Load(context.Background(), id)
		if !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("Load(%q): expected not found, got %v", id, err)
		}
	}
}

func TestFileStoreRejectsUnsafeID(t *testing.T) {
	store := manifest.NewFileStore(t.TempDir())
	m := buildSample(t)
	m.Document.ID = "../outside"
	if _, err := store.Save(context.Background(), m); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

type fakeObjectAPI struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.puts++
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestObjectStoreSingleBufferedPut(t *testing.T) {
	api := &fakeObjectAPI{}
	store := manifest.NewObjectStore(api, "rules", "manifests")
	m := buildSample(t)

	location, err := store.Save(context.Background(), m)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if location != "s3://rules/manifests/harbor-lights.json" {
		t.Fatalf("unexpected location %q", location)
	}
	if api.puts != 1 {
		t.Fatalf("expected exactly one PutObject, got %d", api.puts)
	}

	loaded, err := store.Load(context.Background(), "harbor-lights")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Document.ID != "harbor-lights" {
		t.Fatalf("unexpected loaded document: %+v", loaded.Document)
	}

	if _, err := store.Load(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestNewStoreSelectsBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := manifest.NewStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	if _, ok := store.(*manifest.FileStore); !ok {
		t.Fatalf("expected FileStore, got %T", store)
	}
	if store.Location("doc") != filepath.Join(cfg.Paths.ManifestDir, "doc.json") {
		t.Fatalf("unexpected location: %q", store.Location("doc"))
	}
}
