// Package digest computes the content-addressable fingerprints stored in
// manifests.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/minio/highwayhash"
)

// Supported algorithm names.
const (
	SHA256         = "sha256"
	SHA512         = "sha512"
	HighwayHash256 = "highwayhash256"
)

// highwayKey is fixed so digests stay stable across processes.
var highwayKey = []byte("rulecast-manifest-highwayhash-k1")

var constructors = map[string]func() (hash.Hash, error){
	SHA256: func() (hash.Hash, error) { return sha256.New(), nil },
	SHA512: func() (hash.Hash, error) { return sha512.New(), nil },
	HighwayHash256: func() (hash.Hash, error) {
		return highwayhash.New(highwayKey)
	},
}

// Supported reports whether algorithm can be used for manifest hashing.
func Supported(algorithm string) bool {
	_, ok := constructors[normalize(algorithm)]
	return ok
}

// Algorithms lists the supported algorithm names in sorted order.
func Algorithms() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sum hashes data and renders the result as "<algorithm>:<hex>".
func Sum(algorithm string, data []byte) (string, error) {
	name := normalize(algorithm)
	newHash, ok := constructors[name]
	if !ok {
		return "", fmt.Errorf("unsupported hashing algorithm %q", algorithm)
	}
	h, err := newHash()
	if err != nil {
		return "", fmt.Errorf("init %s: %w", name, err)
	}
	if _, err := h.Write(data); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// SumString is Sum for text content.
func SumString(algorithm, text string) (string, error) {
	return Sum(algorithm, []byte(text))
}

func normalize(algorithm string) string {
	return strings.ToLower(strings.TrimSpace(algorithm))
}
