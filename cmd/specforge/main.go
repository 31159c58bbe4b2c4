package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"specforge/internal/analysis"
	"specforge/internal/artifact"
	"specforge/internal/broadcast"
	"specforge/internal/config"
	"specforge/internal/discovery"
	"specforge/internal/logger"
	"specforge/internal/orchestrator"
	"specforge/internal/runstore"
	"specforge/internal/scan"
	"specforge/internal/server"
)

var (
	version = "0.1.0"

	configFile string
	verbose    bool

	outputJSON bool
	maxDepth   int
	ignoreDirs []string
	noPersist  bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "specforge",
		Short: "specforge - API surface discovery and generation",
		Long: `specforge statically discovers HTTP endpoints in a source tree and
generates an API specification, test suites and a runnable mock service from them.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	scanCmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Discover endpoints in a source tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}
	scanCmd.Flags().BoolVar(&outputJSON, "json", true, "print endpoints as JSON")
	scanCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "limit directory recursion; 0 means unlimited")
	scanCmd.Flags().StringSliceVar(&ignoreDirs, "ignore", nil, "directory names to skip instead of the built-in list")

	runCmd := &cobra.Command{
		Use:   "run [path]",
		Short: "Run the full pipeline against a source tree",
		Long:  "Discover endpoints, then generate a spec, tests and a mock bundle, writing artifacts to the output directory.",
		Args:  cobra.ExactArgs(1),
		RunE:  runPipeline,
	}
	runCmd.Flags().BoolVar(&noPersist, "no-persist", false, "skip saving the run to the run store")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	rootCmd.AddCommand(scanCmd, runCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, err
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	if verbose {
		level = logger.DebugLevel
	}
	log := logger.New(logger.Config{Level: level, Pretty: cfg.Env == "local"})
	return cfg, log, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	_, log, err := setup()
	if err != nil {
		return err
	}
	agent := discovery.NewAgent(log)
	if maxDepth > 0 || ignoreDirs != nil {
		agent.SetScanOptions(scan.Options{MaxDepth: maxDepth, IgnoreDirs: ignoreDirs})
	}
	endpoints, err := agent.Scan(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	files, fails := agent.Stats()
	log.Infof("scanned %d files, %d parse failures, %d endpoints", files, fails, len(endpoints))

	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(endpoints)
	}
	for _, ep := range endpoints {
		fmt.Printf("%-7s %-40s %s\n", ep.Method, ep.Path, ep.HandlerName)
	}
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	az, closeAz := buildAnalyzer(cmd.Context(), cfg, log)
	defer closeAz()

	broker := broadcast.NewBroker()
	events, unsubscribe := broker.Subscribe(64)
	defer unsubscribe()
	go func() {
		for evt := range events {
			if evt.Stage != "" {
				log.Infof("[%s] %s: %s", evt.Type, evt.Stage, evt.Message)
			} else {
				log.Infof("[%s] %s", evt.Type, evt.Message)
			}
		}
	}()

	orch := orchestrator.NewDefault(log, broker, orchestrator.Pipeline{
		TestOptions: cfg.Tests,
		MockConfig:  cfg.Mock,
		Analyzer:    az,
	})
	result, err := orch.Orchestrate(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	writer := artifact.NewWriter(cfg.OutDir)
	runDir, written, err := writer.WriteRun(result)
	if err != nil {
		return fmt.Errorf("write artifacts: %w", err)
	}
	log.Infof("wrote %d artifacts to %s", len(written), runDir)

	if cfg.Artifact.S3Enabled {
		mirrorToS3(cmd.Context(), cfg, log, result.RunID, runDir, written)
	}

	if !noPersist {
		store, err := runstore.NewFromEnv(cfg.StoreDB)
		if err != nil {
			log.Errorf("open run store: %v", err)
		} else {
			defer store.Close()
			if err := store.Save(result); err != nil {
				log.Errorf("persist run: %v", err)
			}
		}
	}

	if len(result.Errors) > 0 {
		for _, msg := range result.Errors {
			log.Errorf("stage error: %s", msg)
		}
	}
	fmt.Printf("run %s: %d endpoints, %d operations, %d test artifacts\n",
		result.RunID, len(result.Endpoints), result.Spec.OperationCount(), len(result.Tests))
	return nil
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	store, err := runstore.NewFromEnv(cfg.StoreDB)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	az, closeAz := buildAnalyzer(ctx, cfg, log)
	defer closeAz()

	srv := server.New(log, cfg, store, az)

	go func() {
		if err := srv.Start(); err != nil {
			log.Errorf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildAnalyzer returns the configured analyzer and a cleanup func. When
// Gemini is not enabled the findings stage is a no-op.
func buildAnalyzer(ctx context.Context, cfg *config.Config, log *logger.Logger) (analysis.Analyzer, func()) {
	if !cfg.Gemini.Enabled {
		return analysis.Noop{}, func() {}
	}
	az, err := analysis.NewGeminiAnalyzer(ctx, cfg.Gemini.Model)
	if err != nil {
		log.Errorf("gemini analyzer unavailable: %v", err)
		return analysis.Noop{}, func() {}
	}
	return az, func() {}
}

func mirrorToS3(ctx context.Context, cfg *config.Config, log *logger.Logger, runID, runDir string, written []string) {
	s3, err := artifact.NewS3Store(artifact.S3Config{
		Endpoint:  cfg.Artifact.Endpoint,
		Region:    cfg.Artifact.Region,
		AccessKey: cfg.Artifact.AccessKey,
		SecretKey: cfg.Artifact.SecretKey,
		Bucket:    cfg.Artifact.Bucket,
		UseSSL:    cfg.Artifact.UseSSL,
	})
	if err != nil {
		log.Errorf("s3 store: %v", err)
		return
	}
	for _, rel := range written {
		content, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(rel)))
		if err != nil {
			log.Errorf("read %s for mirror: %v", rel, err)
			continue
		}
		if err := s3.Put(ctx, runID, rel, content); err != nil {
			log.Errorf("mirror %s: %v", rel, err)
		}
	}
}
