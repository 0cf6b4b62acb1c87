package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/opportunity-miner/internal/classify"
	"github.com/jonathan/opportunity-miner/internal/config"
	"github.com/jonathan/opportunity-miner/internal/db"
	"github.com/jonathan/opportunity-miner/internal/llm"
	"github.com/jonathan/opportunity-miner/internal/observability"
	"github.com/jonathan/opportunity-miner/internal/pipeline"
	"github.com/jonathan/opportunity-miner/internal/ratelimit"
	"github.com/jonathan/opportunity-miner/internal/reddit"
	"github.com/jonathan/opportunity-miner/internal/report"
)

var runCommand = &cobra.Command{
	Use:   "run SUBREDDIT -k KEYWORD [KEYWORD...]",
	Short: "Mine a subreddit until enough new opportunities are found",
	Long: `Fetches posts in batches, keeps discussions with enough comments, classifies each one and
stores the judgements. The run stops when --target new opportunities were found for this run or
the source has no more posts.

--time recent (the default) pages through the newest posts and keeps those matching a keyword.
--time with a year, e.g. 2022, searches that calendar year for the keywords in a single batch.

Configuration can be loaded from a TOML or JSON file using --config. Command-line arguments override config file values.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMiningCmd,
}

var (
	runKeywords   []string
	runTarget     int
	runTimePeriod string
)

func init() {
	runCommand.Flags().StringSliceVarP(&runKeywords, "keywords", "k", nil, "Keywords to match (repeatable or comma separated; extra arguments are also keywords)")
	runCommand.Flags().IntVar(&runTarget, "target", 10, "Number of new opportunities to find")
	runCommand.Flags().StringVarP(&runTimePeriod, "time", "t", "recent", "'recent' or a year such as 2022")

	rootCmd.AddCommand(runCommand)
}

// miningRequest is a validated run invocation
type miningRequest struct {
	Subreddit  string
	Keywords   []string
	Target     int
	TimePeriod string
}

func buildMiningRequest(args, keywordFlags []string, target int, timePeriod string) (*miningRequest, error) {
	subreddit := strings.TrimPrefix(strings.TrimSpace(args[0]), "r/")
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	keywords := parseKeywords(keywordFlags, args[1:])
	if len(keywords) == 0 {
		return nil, fmt.Errorf("at least one keyword is required (-k)")
	}
	if target <= 0 {
		return nil, fmt.Errorf("--target must be positive, got %d", target)
	}
	timePeriod = strings.TrimSpace(timePeriod)
	if timePeriod == "" {
		timePeriod = "recent"
	}
	return &miningRequest{
		Subreddit:  subreddit,
		Keywords:   keywords,
		Target:     target,
		TimePeriod: timePeriod,
	}, nil
}

func runMiningCmd(cmd *cobra.Command, args []string) error {
	req, err := buildMiningRequest(args, runKeywords, runTarget, runTimePeriod)
	if err != nil {
		return err
	}

	cfg, err := loadCommandConfig(cmd.Flags().Changed)
	if err != nil {
		return err
	}
	if err := cfg.ValidateForRun(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	limiter := ratelimit.NewLimiter(ratelimit.OutboundConfig(cfg.RequestsPerMinute))
	defer limiter.Stop()

	redditClient, err := reddit.New(reddit.Options{
		BaseURL:       cfg.RedditBaseURL,
		AuthURL:       cfg.RedditAuthURL,
		HistoricalURL: cfg.HistoricalURL,
		ClientID:      cfg.RedditClientID,
		ClientSecret:  cfg.RedditClientSecret,
		UserAgent:     cfg.RedditUserAgent,
		Limiter:       limiter,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create reddit client: %w", err)
	}

	llmClient, err := llm.NewGeminiClient(ctx, llm.DefaultConfig().WithModel(llm.TierStandard, cfg.Model), cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = llmClient.Close() }()

	return executeRun(ctx, os.Stdout, cfg, req, store, redditClient, classify.NewLLMClassifier(llmClient), logger)
}

// executeRun creates the run row, drives the orchestrator and prints the summary and category report.
func executeRun(ctx context.Context, out io.Writer, cfg *config.Config, req *miningRequest, store db.Store,
	fetcher pipeline.Fetcher, classifier pipeline.Classifier, logger *zap.Logger) error {
	printer := observability.NewPrinter(out, cfg.Verbose)

	runID, err := store.CreateRun(ctx, req.Subreddit, strings.Join(req.Keywords, ","))
	if err != nil {
		return err
	}
	logger.Info("run: created",
		zap.Int64("run_id", runID),
		zap.String("subreddit", req.Subreddit),
		zap.Strings("keywords", req.Keywords),
		zap.String("time", req.TimePeriod),
		zap.Int("target", req.Target),
	)

	orchestrator := pipeline.NewOrchestrator(fetcher, classifier, store, store, pipeline.Options{
		PageSize:        cfg.PageSize,
		HistoricalLimit: cfg.HistoricalLimit,
		CommentLimit:    cfg.CommentLimit,
		MinComments:     cfg.MinComments,
		BatchDelay:      cfg.BatchDelay.Std(),
		Cooldown:        cfg.Cooldown.Std(),
		Retry: pipeline.RetryPolicy{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay.Std(),
			MaxDelay:     cfg.Retry.MaxDelay.Std(),
			Multiplier:   cfg.Retry.Multiplier,
			Jitter:       cfg.Retry.JitterEnabled(),
		},
		IsRetryable: reddit.IsRetryable,
		Logger:      logger,
		OnProgress:  printer.Progress,
	})

	result, runErr := orchestrator.Run(ctx, pipeline.RunRequest{
		RunID:      runID,
		Subreddit:  req.Subreddit,
		Keywords:   req.Keywords,
		TimePeriod: req.TimePeriod,
		Target:     req.Target,
	})
	if result == nil {
		return runErr
	}

	// The summary and report still print after an interrupt.
	reportCtx := context.WithoutCancel(ctx)
	run, err := store.GetRun(reportCtx, runID)
	if err != nil {
		logger.Warn("run: failed to load run for summary", zap.Error(err))
	}
	printer.PrintRunSummary(run, result)

	rep, err := store.Report(reportCtx, report.Filter{Kind: report.KindCategory, RunIDs: []int64{runID}})
	if err != nil {
		logger.Warn("run: failed to build category report", zap.Error(err))
	} else if err := rep.Render(out); err != nil {
		return err
	}

	if runErr != nil {
		return fmt.Errorf("run %d ended as %s: %w", runID, result.Outcome, runErr)
	}
	return nil
}
