package preflight

import (
	"context"

	"rulecast/internal/config"
	"rulecast/internal/manifest"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, result := range results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckContract(cfg.Paths.ContractPath),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Storyboard directory", cfg.Paths.StoryboardDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckCatalog(cfg.CatalogPath()),
	}

	switch cfg.Storage.Backend {
	case config.StorageS3:
		client, err := manifest.NewS3Client(ctx, cfg.Storage.S3)
		if err != nil {
			results = append(results, Result{Name: bucketCheckName, Detail: err.Error()})
			break
		}
		results = append(results, CheckBucket(ctx, client, cfg.Storage.S3.Bucket))
	default:
		results = append(results, CheckDirectoryAccess("Manifest directory", cfg.Paths.ManifestDir))
	}
	return results
}
