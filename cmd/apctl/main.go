package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/devsha256/anypoint-automation-utils/internal/batch"
	"github.com/devsha256/anypoint-automation-utils/internal/config"
	"github.com/devsha256/anypoint-automation-utils/internal/history"
	"github.com/devsha256/anypoint-automation-utils/internal/platform"
	"github.com/devsha256/anypoint-automation-utils/internal/web"
	"github.com/devsha256/anypoint-automation-utils/pkg/api"
)

var (
	// Version is set during build
	Version = "dev"
	// BuildTime is set during build
	BuildTime = "unknown"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	// Summaries and listings go to stdout; logs stay on stderr.
	log.SetOutput(os.Stderr)

	cfg := config.FromEnv()

	var (
		appPattern string
		verbose    bool
		webPort    uint16 = 4483
		limit      int    = 20
	)

	rootCmd := &cobra.Command{
		Use:   "apctl",
		Short: "Anypoint Bulk Application Lifecycle Tool",
		Long: `Apctl automates bulk lifecycle operations (list, start, stop)
against a fleet of applications deployed on a remote runtime platform,
delegating the remote calls to the Anypoint Platform CLI.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	listCmd := &cobra.Command{
		Use:   "list-apps",
		Short: "List the deployed applications",
		Run: func(cmd *cobra.Command, args []string) {
			executor := platform.NewCLIExecutor(cfg, log)

			apps, err := executor.ListApplications(cmd.Context())
			if err != nil {
				log.Fatalf("Failed to list applications: %v", err)
			}
			if apps == nil {
				apps = []api.Application{}
			}

			printJSON(log, apps)
		},
	}

	startCmd := &cobra.Command{
		Use:   "start-apps",
		Short: "Start every application matching the pattern",
		Run: func(cmd *cobra.Command, args []string) {
			runBatch(cmd.Context(), log, cfg, api.OperationStart, appPattern)
		},
	}
	startCmd.Flags().StringVar(&appPattern, "app", "", "Application name pattern (glob or regex); matches all when omitted")

	stopCmd := &cobra.Command{
		Use:   "stop-apps",
		Short: "Stop every application matching the pattern",
		Run: func(cmd *cobra.Command, args []string) {
			runBatch(cmd.Context(), log, cfg, api.OperationStop, appPattern)
		},
	}
	stopCmd.Flags().StringVar(&appPattern, "app", "", "Application name pattern (glob or regex); matches all when omitted")

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent batch runs",
		Run: func(cmd *cobra.Command, args []string) {
			store, err := history.NewManager(cfg.DataDir, log)
			if err != nil {
				log.Fatalf("Failed to open run history: %v", err)
			}
			defer store.Close()

			records, err := store.ListRuns(limit)
			if err != nil {
				log.Fatalf("Failed to list runs: %v", err)
			}
			if records == nil {
				records = []*api.RunRecord{}
			}

			printJSON(log, records)
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", limit, "Maximum number of runs to show")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the batch API over HTTP",
		Run: func(cmd *cobra.Command, args []string) {
			runServer(log, cfg, webPort)
		},
	}
	serveCmd.Flags().Uint16Var(&webPort, "port", webPort, "HTTP listen port")

	rootCmd.AddCommand(listCmd, startCmd, stopCmd, historyCmd, serveCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("apctl %s (built at %s)\n", Version, BuildTime)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Failed to execute command: %v", err)
	}
}

// runBatch executes one batch lifecycle run and prints its summary. The
// process exits non-zero only when the run itself aborts; individual command
// failures are part of the summary and keep the exit code at zero.
func runBatch(ctx context.Context, log *logrus.Logger, cfg *config.Config, kind api.OperationKind, pattern string) {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	executor := platform.NewCLIExecutor(cfg, log)
	orchestrator := batch.NewOrchestrator(executor, log)

	startedAt := time.Now()
	summary, err := orchestrator.Run(ctx, kind, pattern)
	if err != nil {
		log.Fatalf("Run aborted: %v", err)
	}

	recordRun(log, cfg, kind, pattern, summary, startedAt)
	printJSON(log, summary)
}

// recordRun persists the completed run to the local history store. History
// is best effort: a storage failure is logged, never fails the run.
func recordRun(log *logrus.Logger, cfg *config.Config, kind api.OperationKind, pattern string, summary *api.BatchSummary, startedAt time.Time) {
	store, err := history.NewManager(cfg.DataDir, log)
	if err != nil {
		log.Warnf("Failed to open run history: %v", err)
		return
	}
	defer store.Close()

	if _, err := store.RecordRun(kind, pattern, summary, startedAt); err != nil {
		log.Warnf("Failed to record run: %v", err)
	}
}

func printJSON(log *logrus.Logger, v interface{}) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
}

func runServer(log *logrus.Logger, cfg *config.Config, webPort uint16) {
	executor := platform.NewCLIExecutor(cfg, log)
	orchestrator := batch.NewOrchestrator(executor, log)

	store, err := history.NewManager(cfg.DataDir, log)
	if err != nil {
		log.Fatalf("Failed to open run history: %v", err)
	}
	defer store.Close()

	server := web.NewWebServer(orchestrator, executor, store, log, webPort)
	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start web server: %v", err)
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("Apctl server is running. Press Ctrl+C to stop.")

	sig := <-sigCh
	log.Infof("Received signal %v, shutting down...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}

	log.Info("Shutdown complete")
}
