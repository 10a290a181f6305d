// Package main provides the trialsynth binary: it pulls clinical-trial
// registry data, grounds the extracted entity mentions and writes
// graph-ready flat files.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/spf13/cobra"

	"github.com/gyorilab/trialsynth/internal/config"
	"github.com/gyorilab/trialsynth/internal/fetch"
	"github.com/gyorilab/trialsynth/internal/snapshot"
	"github.com/gyorilab/trialsynth/internal/util"
	"github.com/gyorilab/trialsynth/internal/validate"
	"github.com/gyorilab/trialsynth/pkg/ground"
	"github.com/gyorilab/trialsynth/pkg/logger"
	"github.com/gyorilab/trialsynth/pkg/logger/console"
	"github.com/gyorilab/trialsynth/pkg/process"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath   string
		reload       bool
		storeSamples bool
		runValidate  bool
		maxPages     int
		workers      int
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "trialsynth",
		Short: "Build a clinical-trial knowledge graph from registry data",
		Long: `Trialsynth fetches trial records from ClinicalTrials.gov, grounds their
condition and intervention mentions against biomedical vocabularies and
writes trials, bioentities and edges as graph-ready compressed TSVs.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, runOptions{
				configPath:   configPath,
				reload:       reload,
				storeSamples: storeSamples,
				validate:     runValidate,
				maxPages:     maxPages,
				workers:      workers,
				debug:        debug,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().BoolVar(&reload, "reload", false, "Refetch from the registry API even if a raw snapshot exists")
	cmd.Flags().BoolVar(&storeSamples, "store-samples", false, "Write uncompressed sample files next to the outputs")
	cmd.Flags().BoolVar(&runValidate, "validate", false, "Validate the written flat files after the run")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "Stop fetching after this many API pages (0 = no cap)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Grounding worker count (overrides config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")

	return cmd
}

type runOptions struct {
	configPath   string
	reload       bool
	storeSamples bool
	validate     bool
	maxPages     int
	workers      int
	debug        bool
}

func run(cmd *cobra.Command, opts runOptions) error {
	log := logger.New(console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: opts.debug,
	}))
	util.LoadEnv(log)

	runID, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	log = log.With("run_id", runID)

	cfg, err := config.Load(opts.configPath, log)
	if err != nil {
		return err
	}
	if opts.workers > 0 {
		cfg.Grounding.Workers = opts.workers
	}
	if opts.debug {
		cfg.Debug = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("[main] starting pipeline", "registry", cfg.Registry, "data_dir", cfg.DataDir)

	fetcher := fetch.NewFetcher(fetch.FetcherParams{
		BaseURL:      cfg.API.URL,
		Fields:       cfg.API.Fields,
		PageSize:     cfg.API.PageSize,
		Timeout:      cfg.API.Timeout.Std(),
		Retries:      cfg.API.Retries,
		RetryDelay:   cfg.API.RetryDelay.Std(),
		SnapshotPath: cfg.RawSnapshotPath(),
		Registry:     cfg.Registry,
		Log:          log,
	})

	mesh, err := ground.LoadMeshTable(cfg.Grounding.MeshTablePath, log)
	if err != nil {
		return err
	}
	groundingClient, err := ground.NewRESTClient(ground.RESTClientParams{
		BaseURL: cfg.Grounding.ServiceURL,
		Timeout: cfg.Grounding.Timeout.Std(),
		Log:     log,
	})
	if err != nil {
		return err
	}
	conditionResolver, err := ground.NewConditionGrounder(ground.Params{
		Oracle:    groundingClient,
		Annotator: groundingClient,
		Mesh:      mesh,
		Log:       log,
	})
	if err != nil {
		return err
	}
	interventionResolver, err := ground.NewInterventionGrounder(ground.Params{
		Oracle:    groundingClient,
		Annotator: groundingClient,
		Mesh:      mesh,
		Log:       log,
	})
	if err != nil {
		return err
	}

	var archive *snapshot.Archive
	if cfg.Archive.Enabled {
		archive, err = snapshot.NewArchive(ctx, snapshot.ArchiveParams{
			Bucket: cfg.Archive.Bucket,
			Prefix: cfg.Archive.Prefix,
			Log:    log,
		})
		if err != nil {
			return err
		}
		if !opts.reload {
			snapshot.Seed(ctx, archive, fetcher.SnapshotPath(), log)
		}
	}

	processor, err := process.NewProcessor(process.Params{
		Fetcher:              fetcher,
		ConditionResolver:    conditionResolver,
		InterventionResolver: interventionResolver,
		Validator:            validate.NewValidator(log),
		Registry:             cfg.Registry,
		Paths: process.OutputPaths{
			Trials:            cfg.TrialsPath(),
			TrialsSample:      cfg.TrialsSamplePath(),
			BioEntities:       cfg.BioEntitiesPath(),
			BioEntitiesSample: cfg.BioEntitiesSamplePath(),
			Edges:             cfg.EdgesPath(),
			EdgesSample:       cfg.EdgesSamplePath(),
		},
		NumSamples:   cfg.Samples.NumEntries,
		Reload:       opts.reload,
		MaxPages:     opts.maxPages,
		Workers:      cfg.Grounding.Workers,
		StoreSamples: opts.storeSamples,
		Validate:     opts.validate,
		Log:          log,
	})
	if err != nil {
		return err
	}

	if err := processor.Run(ctx); err != nil {
		return err
	}

	if archive != nil {
		if err := archive.Upload(ctx, fetcher.SnapshotPath()); err != nil {
			return err
		}
	}

	log.Info("[main] pipeline complete")
	return nil
}
