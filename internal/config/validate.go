package config

import (
	"errors"
	"fmt"
)

var knownResolutions = map[string]struct{}{
	"1080p":    {},
	"720p":     {},
	"4k":       {},
	"vertical": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateStoryboard(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageFilesystem:
		if c.Paths.ManifestDir == "" {
			return errors.New("paths.manifest_dir must be set for the filesystem backend")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket must be set when storage.backend = \"s3\"")
		}
		if (c.Storage.S3.AccessKey == "") != (c.Storage.S3.SecretKey == "") {
			return errors.New("storage.s3.access_key and storage.s3.secret_key must be set together")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want filesystem or s3)", c.Storage.Backend)
	}
	return nil
}

func (c *Config) validateStoryboard() error {
	if _, ok := knownResolutions[c.Storyboard.Resolution]; !ok {
		return fmt.Errorf("storyboard.resolution: unsupported value %q", c.Storyboard.Resolution)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
