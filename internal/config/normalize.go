package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeOCR()
	c.normalizeStoryboard()
	c.normalizeAPI()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	// An empty contract path selects the built-in rules.
	if contractPath := strings.TrimSpace(c.Paths.ContractPath); contractPath != "" {
		expanded, err := expandPath(contractPath)
		if err != nil {
			return fmt.Errorf("paths.contract_path: %w", err)
		}
		c.Paths.ContractPath = expanded
	} else {
		c.Paths.ContractPath = ""
	}

	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.manifest_dir", &c.Paths.ManifestDir, defaultManifestDir},
		{"paths.storyboard_dir", &c.Paths.StoryboardDir, defaultStoryboardDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	s3 := &c.Storage.S3
	s3.Region = strings.TrimSpace(s3.Region)
	if s3.Region == "" {
		if value, ok := os.LookupEnv("AWS_REGION"); ok && strings.TrimSpace(value) != "" {
			s3.Region = strings.TrimSpace(value)
		} else {
			s3.Region = defaultS3Region
		}
	}
	s3.Bucket = strings.TrimSpace(s3.Bucket)
	s3.Endpoint = strings.TrimSpace(s3.Endpoint)
	s3.Prefix = strings.Trim(strings.TrimSpace(s3.Prefix), "/")
	s3.AccessKey = strings.TrimSpace(s3.AccessKey)
	if s3.AccessKey == "" {
		s3.AccessKey = firstEnv("RULECAST_S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	}
	s3.SecretKey = strings.TrimSpace(s3.SecretKey)
	if s3.SecretKey == "" {
		s3.SecretKey = firstEnv("RULECAST_S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	}
}

func (c *Config) normalizeOCR() {
	if c.OCR.MinTextDensity < 0 {
		c.OCR.MinTextDensity = 0
	}
	if c.OCR.Concurrency <= 0 {
		c.OCR.Concurrency = defaultOCRConcurrency
	}
}

func (c *Config) normalizeStoryboard() {
	c.Storyboard.Resolution = strings.ToLower(strings.TrimSpace(c.Storyboard.Resolution))
	if c.Storyboard.Resolution == "" {
		c.Storyboard.Resolution = defaultResolution
	}
	if c.Storyboard.WordsPerMinute <= 0 {
		c.Storyboard.WordsPerMinute = defaultWordsPerMinute
	}
	if c.Storyboard.IntroSeconds <= 0 {
		c.Storyboard.IntroSeconds = defaultIntroSeconds
	}
	if c.Storyboard.EndCardSeconds <= 0 {
		c.Storyboard.EndCardSeconds = defaultEndCardSeconds
	}
	if c.Storyboard.PauseSeconds < 0 {
		c.Storyboard.PauseSeconds = 0
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	if c.API.ReadTimeoutSeconds <= 0 {
		c.API.ReadTimeoutSeconds = defaultAPIReadTimeout
	}
	if c.API.WriteTimeoutSeconds <= 0 {
		c.API.WriteTimeoutSeconds = defaultAPIWriteTimeout
	}
	if c.API.MaxBodyMB <= 0 {
		c.API.MaxBodyMB = defaultAPIMaxBodyMB
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "console", "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
