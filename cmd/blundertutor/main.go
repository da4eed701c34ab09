// Command blundertutor drives the analysis pipeline over one game or a
// whole backlog of unanalyzed games, per spec.md § External Interfaces'
// CLI surface. It is modeled on the teacher CLI's (cli/cmd/ariadne)
// flag-and-signal-handling shape: parse flags, build the engine-side
// object graph, install a graceful-shutdown signal handler, run, report,
// exit with a matching status code.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"blundertutor/config"
	"blundertutor/coordinator"
	"blundertutor/models"
	"blundertutor/pipeline"
	"blundertutor/pipeline/steps"
	"blundertutor/repository"
	"blundertutor/telemetry/logging"
	"blundertutor/telemetry/metrics"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "analyze":
		err = runAnalyze(os.Args[2:])
	case "analyze-bulk":
		err = runAnalyzeBulk(os.Args[2:])
	case "-version", "--version", "version":
		fmt.Println("blundertutor")
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Printf("blundertutor: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  blundertutor analyze GAME_ID [--config path] [--depth N] [--time T] [--steps s1,s2,...] [--force]
  blundertutor analyze-bulk [--config path] [--source lichess|chesscom] [--username U] [--limit N] [--force] [--concurrency J]`)
}

// shutdownContext installs the teacher's own two-signal shutdown
// pattern: the first SIGINT/SIGTERM cancels ctx so in-flight work can
// wind down; a second forces an immediate exit.
func shutdownContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("blundertutor: signal received, shutting down gracefully...")
		cancel()
		<-sigCh
		log.Println("blundertutor: second signal received, forcing exit")
		os.Exit(1)
	}()
	return ctx, cancel
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func openRepository(cfg *config.Config) (repository.Repository, error) {
	return repository.Open(cfg.DatabasePath)
}

func runAnalyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	configPath := fs.String("config", "", "optional YAML config file")
	depth := fs.Int("depth", 0, "override search depth (0 = use config)")
	timeLimit := fs.Float64("time", 0, "override per-position time limit in seconds (0 = use config)")
	stepsFlag := fs.String("steps", "", "comma-separated explicit step list (overrides config preset)")
	force := fs.Bool("force", false, "re-run every requested step even if already completed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("analyze: GAME_ID is required")
	}
	gameID := fs.Arg(0)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *depth > 0 {
		cfg.Depth = *depth
		cfg.TimeLimit = nil
	}
	if *timeLimit > 0 {
		cfg.TimeLimit = timeLimit
	}
	requestedSteps := cfg.ResolveSteps()
	if *stepsFlag != "" {
		requestedSteps = strings.Split(*stepsFlag, ",")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	reg, err := pipeline.NewRegistry(steps.All(nil, true)...)
	if err != nil {
		return fmt.Errorf("build step registry: %w", err)
	}
	logger := logging.New(nil)
	executor := pipeline.NewExecutor(reg, repo, logger, metrics.NoOp())

	ctx, cancel := shutdownContext()
	defer cancel()

	report, err := executor.Run(ctx, pipeline.RunRequest{
		GameID:     gameID,
		Steps:      requestedSteps,
		ForceRerun: *force,
		Cfg:        cfg,
	})
	if err != nil {
		return fmt.Errorf("analyze %s: %w", gameID, err)
	}
	fmt.Printf("game=%s success=%v executed=%v skipped=%v failed=%v\n",
		report.GameID, report.Success, report.StepsExecuted, report.StepsSkipped, report.StepsFailed)
	if !report.Success {
		return fmt.Errorf("analyze %s: %s", gameID, report.Error)
	}
	return nil
}

func runAnalyzeBulk(args []string) error {
	fs := flag.NewFlagSet("analyze-bulk", flag.ExitOnError)
	configPath := fs.String("config", "", "optional YAML config file")
	sourceFlag := fs.String("source", "", "restrict to one source: lichess|chesscom")
	username := fs.String("username", "", "restrict to one imported username")
	limit := fs.Int("limit", 0, "maximum number of games to analyze (0 = unbounded)")
	force := fs.Bool("force", false, "re-analyze games that already have results")
	concurrency := fs.Int("concurrency", 0, "engine pool size (0 = use config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	reg, err := pipeline.NewRegistry(steps.All(nil, true)...)
	if err != nil {
		return fmt.Errorf("build step registry: %w", err)
	}
	logger := logging.New(nil)
	executor := pipeline.NewExecutor(reg, repo, logger, metrics.NoOp())
	coord := coordinator.New(repo, executor, cfg, nil, nil, nil, logger, metrics.NoOp())

	var source *models.Source
	if *sourceFlag != "" {
		s := models.Source(*sourceFlag)
		source = &s
	}
	var usernamePtr *string
	if *username != "" {
		usernamePtr = username
	}

	ctx, cancel := shutdownContext()
	defer cancel()

	result, err := coord.Run(ctx, coordinator.Request{
		JobID:       "cli-bulk",
		Source:      source,
		Username:    usernamePtr,
		Limit:       *limit,
		ForceRerun:  *force,
		Concurrency: *concurrency,
	})
	if err != nil {
		return fmt.Errorf("analyze-bulk: %w", err)
	}
	fmt.Printf("processed=%d analyzed=%d skipped=%d failed=%d\n", result.Processed, result.Analyzed, result.Skipped, result.Failed)
	if result.Failed > 0 && result.Analyzed == 0 && result.Processed > 0 {
		return fmt.Errorf("analyze-bulk: all %d processed games failed", result.Processed)
	}
	return nil
}
