package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"rulecast/internal/api"
	"rulecast/internal/logging"
	"rulecast/internal/metrics"
	"rulecast/internal/preflight"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			apiCfg := cfg.API
			if bind != "" {
				apiCfg.Bind = bind
			}

			for _, result := range preflight.Failed(preflight.RunAll(cmd.Context(), cfg)) {
				logging.WarnWithContext(ctx.log(), "preflight check failed", "preflight_failed",
					logging.String("check", result.Name),
					logging.String("detail", result.Detail),
					logging.String(logging.FieldImpact, "requests touching this resource will fail"),
				)
			}

			recorder := metrics.NewRecorder()
			sink := metrics.Multi{recorder, ctx.metricsSink()}
			pipeline, store, err := ctx.pipeline(cmd.Context(), sink)
			if err != nil {
				return err
			}
			catalogStore, err := ctx.openCatalog()
			if err != nil {
				return err
			}

			gin.SetMode(gin.ReleaseMode)
			server, err := api.New(api.Dependencies{
				Config:   apiCfg,
				Pipeline: pipeline,
				Store:    store,
				Catalog:  catalogStore,
				Recorder: recorder,
				Compiler: ctx.compiler(sink),
				Logger:   ctx.log(),

				ContractPath: cfg.Paths.ContractPath,
			})
			if err != nil {
				return err
			}
			if err := server.Start(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s (contract %s)\n", server.Addr(), pipeline.Contract().Version)

			hangup := make(chan os.Signal, 1)
			signal.Notify(hangup, syscall.SIGHUP)
			defer signal.Stop(hangup)
			go reloadOnSignal(cmd.Context(), hangup, func() {
				if cfg.Paths.ContractPath == "" {
					ctx.log().Info("contract reload skipped; built-in rules are active")
					return
				}
				_, _, _ = pipeline.ReloadContract(cfg.Paths.ContractPath)
			})

			<-cmd.Context().Done()
			server.Stop()
			ctx.log().Info("rulecast server shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Override api.bind")
	return cmd
}

// reloadOnSignal calls reload for every signal received until ctx ends.
func reloadOnSignal(ctx context.Context, signals <-chan os.Signal, reload func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-signals:
			reload()
		}
	}
}
