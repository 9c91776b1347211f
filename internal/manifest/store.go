package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"rulecast/internal/config"
	"rulecast/internal/fileutil"
	"rulecast/internal/services"
	"rulecast/internal/textutil"
)

// Store persists manifests keyed by document id.
type Store interface {
	// Save writes m atomically and returns its location.
	Save(ctx context.Context, m *Manifest) (string, error)
	// Load returns the stored manifest or an error marked services.ErrNotFound.
	Load(ctx context.Context, documentID string) (*Manifest, error)
	// Location reports where a document's manifest lives.
	Location(documentID string) string
}

// NewStore returns the backend selected by storage.backend.
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageS3:
		client, err := NewS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			return nil, err
		}
		return NewObjectStore(client, cfg.Storage.S3.Bucket, cfg.Storage.S3.Prefix), nil
	case config.StorageFilesystem, "":
		return NewFileStore(cfg.Paths.ManifestDir), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

const lockRetryDelay = 25 * time.Millisecond

// FileStore keeps one JSON file per document in a directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Location implements Store.
func (s *FileStore) Location(documentID string) string {
	return filepath.Join(s.dir, documentID+".json")
}

// Save implements Store. Concurrent saves for the same document serialize on
// a lock file under <dir>/.locks.
func (s *FileStore) Save(ctx context.Context, m *Manifest) (string, error) {
	id, err := checkID(m)
	if err != nil {
		return "", err
	}
	lockDir := filepath.Join(s.dir, ".locks")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure lock directory: %w", err)
	}
	lock := flock.New(filepath.Join(lockDir, id+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "save", "acquire manifest lock", err)
	}
	if !locked {
		return "", services.Wrap(services.ErrTransient, stageName, "save", "manifest lock unavailable", nil)
	}
	defer func() { _ = lock.Unlock() }()

	path := s.Location(id)
	if err := fileutil.WriteJSONAtomic(path, m); err != nil {
		return "", services.Wrap(services.ErrTransient, stageName, "save", path, err)
	}
	return path, nil
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, documentID string) (*Manifest, error) {
	if !textutil.ValidIdentifier(documentID) {
		return nil, services.Wrap(services.ErrNotFound, stageName, "load", fmt.Sprintf("invalid document id %q", documentID), nil)
	}
	var m Manifest
	if err := fileutil.ReadJSON(s.Location(documentID), &m); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, stageName, "load", documentID, err)
		}
		return nil, services.Wrap(services.ErrTransient, stageName, "load", documentID, err)
	}
	return &m, nil
}

func checkID(m *Manifest) (string, error) {
	if m == nil {
		return "", errors.New("manifest is nil")
	}
	id := strings.TrimSpace(m.Document.ID)
	if !textutil.ValidIdentifier(id) {
		return "", services.WrapCode(services.ErrValidation, services.CodeInputInvalid, stageName, "save",
			fmt.Sprintf("invalid document id %q", id), nil)
	}
	return id, nil
}
