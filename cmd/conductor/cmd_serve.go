package main

import (
	"context"
	"fmt"

	"sregrade/internal/conductor/api"
	"sregrade/internal/conductor/critical"
	"sregrade/internal/conductor/driver"
	"sregrade/internal/conductor/metrics"
	"sregrade/internal/conductor/service"
	"sregrade/pkg/utils/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveProblems []string
	serveFilter   string
	serveNoop     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the grading API and sweep the selected problems",
	Long: `Starts the HTTP API and runs every selected problem in turn. The agent drives each
problem through /submit; the sweep moves on once the problem reaches done.

SIGINT or SIGTERM while a fault is injected recovers the fault before exiting.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringArrayVar(&serveProblems, "problem", nil, "Problem id to run (repeatable); default all non-noop problems")
	serveCmd.Flags().StringVar(&serveFilter, "filter", "", "Only run problem ids containing this substring")
	serveCmd.Flags().BoolVar(&serveNoop, "noop", false, "Run the matching noop control after each problem")
}

func runServe(cmd *cobra.Command, _ []string) error {
	appCfg, err := loadAppConfig(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return fmt.Errorf("load app config failed: %w", err)
	}
	if len(serveProblems) > 0 {
		appCfg.Driver.Problems = serveProblems
	}
	if cmd.Flags().Changed("filter") {
		appCfg.Driver.Filter = serveFilter
	}
	if cmd.Flags().Changed("noop") {
		appCfg.Driver.RunNoop = serveNoop
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		return fmt.Errorf("init logger failed: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	// a normal return or a panic still recovers an injected fault
	defer critical.RunHooks()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	critical.Watch(ctx)

	reg, err := buildRegistry(appCfg)
	if err != nil {
		logger.Error(ctx, "init problem registry failed", zap.Error(err))
		return err
	}

	m := metrics.New(nil)
	conductor, err := service.NewConductor(service.Config{
		Registry:         reg,
		Guard:            critical.Default(),
		Metrics:          m,
		RequiredBinaries: appCfg.Conductor.RequiredBinaries,
	})
	if err != nil {
		logger.Error(ctx, "init conductor failed", zap.Error(err))
		return err
	}

	exports, err := buildSinks(ctx, appCfg.Export)
	if err != nil {
		logger.Error(ctx, "init export sinks failed", zap.Error(err))
		return err
	}
	defer exports.close(ctx)

	sweep, err := driver.New(driver.Config{
		Conductor:      conductor,
		Registry:       reg,
		ProblemIDs:     appCfg.Driver.Problems,
		Filter:         appCfg.Driver.Filter,
		PollInterval:   appCfg.Driver.PollInterval,
		ProblemTimeout: appCfg.Driver.ProblemTimeout,
		RunNoop:        appCfg.Driver.RunNoop,
		ResultsDir:     appCfg.Driver.ResultsDir,
		RunSinks:       exports.runs,
		ArtifactSinks:  exports.artifacts,
	})
	if err != nil {
		logger.Error(ctx, "init driver failed", zap.Error(err))
		return err
	}

	server := api.NewServer(api.Config{
		Addr:            appCfg.Server.Addr,
		ReadTimeout:     appCfg.Server.ReadTimeout,
		WriteTimeout:    appCfg.Server.WriteTimeout,
		IdleTimeout:     appCfg.Server.IdleTimeout,
		ShutdownTimeout: appCfg.Server.ShutdownTimeout,
	}, conductor, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		defer server.RequestShutdown()
		runs, err := sweep.Run(gctx)
		failed := 0
		for _, run := range runs {
			if run.Err != nil {
				failed++
			}
		}
		logger.Info(ctx, "sweep summary", zap.Int("runs", len(runs)), zap.Int("failed", failed))
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "conductor stopped", zap.Error(err))
		return err
	}
	return nil
}
