package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"rulecast/internal/catalog"
	"rulecast/internal/config"
	"rulecast/internal/contract"
	"rulecast/internal/ingestion"
	"rulecast/internal/logging"
	"rulecast/internal/manifest"
	"rulecast/internal/metrics"
	"rulecast/internal/storyboard"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	contractsOnce sync.Once
	contracts     *contract.Loader
	contractsErr  error

	catalog *catalog.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// log returns the process logger, falling back to a no-op logger when the
// configured sinks cannot be opened.
func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// contractLoader loads the governance contract once per process. A broken
// contract file is fatal for every command that needs it.
func (c *commandContext) contractLoader() (*contract.Loader, error) {
	c.contractsOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.contractsErr = err
			return
		}
		c.contracts, c.contractsErr = contract.Open(cfg.Paths.ContractPath)
	})
	return c.contracts, c.contractsErr
}

func (c *commandContext) manifestStore(ctx context.Context) (manifest.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return manifest.NewStore(ctx, cfg)
}

func (c *commandContext) openCatalog() (*catalog.Store, error) {
	if c.catalog != nil {
		return c.catalog, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	c.catalog = store
	return store, nil
}

func (c *commandContext) metricsSink() metrics.Sink {
	return metrics.NewLogSink(c.log())
}

func (c *commandContext) pipeline(ctx context.Context, sink metrics.Sink) (*ingestion.Pipeline, manifest.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	loader, err := c.contractLoader()
	if err != nil {
		return nil, nil, err
	}
	store, err := c.manifestStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	catalogStore, err := c.openCatalog()
	if err != nil {
		return nil, nil, err
	}
	pipeline, err := ingestion.New(ingestion.Dependencies{
		Contracts: loader,
		Store:     store,
		Catalog:   catalogStore,
		Metrics:   sink,
		Logger:    c.log(),
		OCR:       cfg.OCR,
	})
	if err != nil {
		return nil, nil, err
	}
	return pipeline, store, nil
}

func (c *commandContext) compiler(sink metrics.Sink) *storyboard.Compiler {
	return storyboard.NewCompiler(storyboard.OptionsFromConfig(c.configValue().Storyboard), sink, c.log())
}

func (c *commandContext) close() {
	if c.catalog != nil {
		_ = c.catalog.Close()
		c.catalog = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
