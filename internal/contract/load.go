package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"rulecast/internal/digest"
	"rulecast/internal/services"
)

// Load reads the contract at path and merges it over Default. Missing keys
// keep their defaults; a supplied list replaces the default list. Any failure
// is a configuration error coded CONTRACT_INVALID.
func Load(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configError("read", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, configError("parse", path, err)
	}
	c.Source = path
	return c, nil
}

// Parse decodes and validates a contract document.
func Parse(data []byte) (*Contract, error) {
	c := Default()
	// The document must declare its own version.
	c.Version = ""
	c.Source = ""
	// Decoding into the default slice would let omitted level fields inherit
	// default values; a supplied list must stand on its own.
	defaultLevels := c.HeadingRules.Levels
	c.HeadingRules.Levels = nil

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode contract: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode contract: trailing data after contract document")
	}

	if c.HeadingRules.Levels == nil {
		c.HeadingRules.Levels = defaultLevels
	}

	c.Version = strings.TrimSpace(c.Version)
	c.Hashing.Algorithm = strings.ToLower(strings.TrimSpace(c.Hashing.Algorithm))
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.LoadedAt = time.Now().UTC()
	return &c, nil
}

// Validate checks the merged contract for internal consistency.
func (c *Contract) Validate() error {
	if c.Version == "" {
		return errors.New("version is required")
	}
	if !semver.IsValid(canonicalVersion(c.Version)) {
		return fmt.Errorf("version %q is not a semantic version", c.Version)
	}
	rules := c.HeadingRules
	if len(rules.Levels) == 0 {
		return errors.New("headingRules.levels must not be empty")
	}
	seenLevels := make(map[int]struct{}, len(rules.Levels))
	seenSizes := make(map[float64]struct{}, len(rules.Levels))
	for _, level := range rules.Levels {
		if level.Level <= 0 {
			return fmt.Errorf("headingRules.levels: level %d must be positive", level.Level)
		}
		if level.MinSize <= 0 {
			return fmt.Errorf("headingRules.levels: level %d minSize must be positive", level.Level)
		}
		if _, dup := seenLevels[level.Level]; dup {
			return fmt.Errorf("headingRules.levels: duplicate level %d", level.Level)
		}
		if _, dup := seenSizes[level.MinSize]; dup {
			return fmt.Errorf("headingRules.levels: duplicate minSize %g", level.MinSize)
		}
		seenLevels[level.Level] = struct{}{}
		seenSizes[level.MinSize] = struct{}{}
	}
	if rules.CoordinatePrecision < 0 || rules.CoordinatePrecision > 6 {
		return fmt.Errorf("headingRules.coordinatePrecision %d out of range [0, 6]", rules.CoordinatePrecision)
	}
	if rules.SlugMaxLength <= 0 {
		return errors.New("headingRules.slugMaxLength must be positive")
	}
	if rules.FontSizeThreshold < 0 {
		return errors.New("headingRules.fontSizeThreshold must not be negative")
	}
	seenFields := make(map[string]struct{}, len(c.Metadata.RequiredFields))
	for _, field := range c.Metadata.RequiredFields {
		name := strings.TrimSpace(field)
		if name == "" {
			return errors.New("metadata.requiredFields must not contain empty names")
		}
		if _, dup := seenFields[name]; dup {
			return fmt.Errorf("metadata.requiredFields: duplicate field %q", name)
		}
		seenFields[name] = struct{}{}
	}
	if !digest.Supported(c.Hashing.Algorithm) {
		return fmt.Errorf("hashing.algorithm %q unsupported (want one of %s)",
			c.Hashing.Algorithm, strings.Join(digest.Algorithms(), ", "))
	}
	if c.OCR.MaxFallbacksPerDocument < 0 {
		return errors.New("ocr.maxFallbacksPerDocument must not be negative")
	}
	return nil
}

func canonicalVersion(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}

func configError(op, path string, err error) error {
	return services.WrapCode(
		services.ErrConfiguration,
		services.CodeContractInvalid,
		"contract",
		op,
		path,
		err,
	)
}
