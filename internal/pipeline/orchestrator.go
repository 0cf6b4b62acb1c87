package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/opportunity-miner/internal/logging"
	"github.com/jonathan/opportunity-miner/internal/types"
)

// ProgressEvent reports the end of a batch or of the run
type ProgressEvent struct {
	RunID       int64         `json:"run_id"`
	Batch       int           `json:"batch"`
	State       string        `json:"state"`
	Mode        Mode          `json:"mode,omitempty"`
	Fetched     int           `json:"fetched"`
	Filtered    int           `json:"filtered"`
	Analyzed    int           `json:"analyzed"`
	NewCount    int           `json:"new_count"`
	Accumulated int           `json:"accumulated"`
	Target      int           `json:"target"`
	Wait        time.Duration `json:"wait,omitempty"`
	Final       bool          `json:"final"`
	Message     string        `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options tunes the orchestrator. Zero sizes and limits fall back to DefaultOptions;
// zero waits and a zero comment threshold are used as given.
type Options struct {
	PageSize        int
	HistoricalLimit int
	CommentLimit    int
	MinComments     int
	BatchDelay      time.Duration
	Cooldown        time.Duration
	// MaxIdlePolls bounds how many times a zero-new recent batch re-polls the same cursor before advancing.
	MaxIdlePolls int
	Retry        RetryPolicy
	// IsRetryable classifies fetch errors; nil retries everything except context errors.
	IsRetryable func(error) bool
	Sleep       SleepFunc
	Now         func() time.Time
	Logger      *zap.Logger
	OnProgress  ProgressCallback
}

// DefaultOptions returns the defaults used for any unset option.
func DefaultOptions() Options {
	return Options{
		PageSize:        100,
		HistoricalLimit: 100,
		CommentLimit:    20,
		MinComments:     5,
		BatchDelay:      2 * time.Second,
		Cooldown:        time.Minute,
		MaxIdlePolls:    3,
		Retry:           DefaultRetryPolicy(),
	}
}

// RunRequest identifies one mining run.
type RunRequest struct {
	RunID      int64
	Subreddit  string
	Keywords   []string
	TimePeriod string
	Target     int
}

// Result summarizes a finished run.
type Result struct {
	Outcome     State
	Accumulated int
	Target      int
	Batches     int
	Err         error
}

// TargetMet reports whether enough new opportunities were found.
func (r *Result) TargetMet() bool {
	return r.Accumulated >= r.Target
}

// Orchestrator drives batches until the target is met, the source runs out, or a fetch fails for good.
type Orchestrator struct {
	fetcher    Fetcher
	classifier Classifier
	persister  Persister
	recorder   BatchRecorder
	opts       Options
	logger     *zap.Logger
}

// NewOrchestrator wires the collaborators. recorder may be nil.
func NewOrchestrator(fetcher Fetcher, classifier Classifier, persister Persister, recorder BatchRecorder, opts Options) *Orchestrator {
	defaults := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = defaults.PageSize
	}
	if opts.HistoricalLimit <= 0 {
		opts.HistoricalLimit = defaults.HistoricalLimit
	}
	if opts.CommentLimit <= 0 {
		opts.CommentLimit = defaults.CommentLimit
	}
	if opts.MinComments < 0 {
		opts.MinComments = defaults.MinComments
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = 0
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	}
	if opts.MaxIdlePolls <= 0 {
		opts.MaxIdlePolls = defaults.MaxIdlePolls
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = defaults.Retry
	}
	if opts.IsRetryable == nil {
		opts.IsRetryable = func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := logging.OrNop(opts.Logger)

	return &Orchestrator{
		fetcher:    fetcher,
		classifier: classifier,
		persister:  persister,
		recorder:   recorder,
		opts:       opts,
		logger:     logger,
	}
}

// Run executes batches for req. Cancelling ctx stops the loop at the next batch boundary
// or during a wait; a batch that has started fetching is always finished first.
// The returned error is set for FatalError and Interrupted outcomes.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if req.Target <= 0 {
		return nil, fmt.Errorf("target must be positive, got %d", req.Target)
	}

	log := o.logger.With(zap.Int64("run_id", req.RunID), zap.String("subreddit", req.Subreddit))
	batchCtx := context.WithoutCancel(ctx)

	bs := &BatchState{
		RunID:      req.RunID,
		Subreddit:  req.Subreddit,
		Keywords:   req.Keywords,
		TimePeriod: req.TimePeriod,
		Target:     req.Target,
	}

	state := StateRouting
	for !state.Terminal() {
		switch state {
		case StateRouting:
			if err := ctx.Err(); err != nil {
				bs.Err = err
				state = StateInterrupted
				continue
			}
			bs.reset()
			bs.Number++
			bs.StartedAt = o.opts.Now()
			routing := Route(bs.TimePeriod)
			bs.Mode = routing.Mode
			bs.Window = routing.Window
			log.Debug("pipeline: batch started",
				zap.Int("batch", bs.Number),
				zap.String("mode", string(bs.Mode)),
				zap.String("cursor", bs.Cursor),
			)
			state = StateFetching

		case StateFetching:
			state = o.fetch(ctx, batchCtx, bs, log)

		case StateFiltering:
			bs.Filtered = FilterPosts(bs.Posts, bs.Mode, bs.Keywords, o.opts.MinComments)
			state = StateAnalyzing

		case StateAnalyzing:
			o.analyze(batchCtx, bs, log)
			state = StatePersisting

		case StatePersisting:
			o.persist(batchCtx, bs, log)
			bs.Accumulated += bs.NewCount
			o.record(batchCtx, bs, types.BatchStatusCompleted, log)
			state = o.decide(ctx, bs, log)
		}
	}

	result := &Result{
		Outcome:     state,
		Accumulated: bs.Accumulated,
		Target:      bs.Target,
		Batches:     bs.Number,
		Err:         bs.Err,
	}
	o.emit(bs, state, 0, true, summaryMessage(result))
	log.Info("pipeline: run finished",
		zap.String("outcome", state.String()),
		zap.Int("accumulated", bs.Accumulated),
		zap.Int("target", bs.Target),
		zap.Int("batches", bs.Number),
	)

	if state == StateFatalError || state == StateInterrupted {
		return result, bs.Err
	}
	return result, nil
}

// fetch runs the Fetching stage with retries. Backoff waits honor ctx; the calls themselves use batchCtx.
func (o *Orchestrator) fetch(ctx, batchCtx context.Context, bs *BatchState, log *zap.Logger) State {
	onRetry := func(attempt int, delay time.Duration, err error) {
		log.Warn("pipeline: fetch failed, retrying",
			zap.Int("batch", bs.Number),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	err := retry(ctx, o.opts.Retry, o.opts.Sleep, o.opts.IsRetryable, onRetry, func() error {
		switch bs.Mode {
		case ModeHistorical:
			posts, err := o.fetcher.FetchHistorical(batchCtx, bs.Subreddit, bs.Keywords, *bs.Window, o.opts.HistoricalLimit)
			if err != nil {
				return err
			}
			bs.Posts, bs.NextCursor = posts, ""
		default:
			posts, next, err := o.fetcher.FetchRecent(batchCtx, bs.Subreddit, o.opts.PageSize, bs.Cursor)
			if err != nil {
				return err
			}
			bs.Posts, bs.NextCursor = posts, next
		}
		return nil
	})
	if err != nil {
		bs.Err = fmt.Errorf("fetch batch %d: %w", bs.Number, err)
		if ctx.Err() != nil {
			return StateInterrupted
		}
		log.Error("pipeline: fetch failed", zap.Int("batch", bs.Number), zap.Error(err))
		o.record(batchCtx, bs, types.BatchStatusFailed, log)
		return StateFatalError
	}
	return StateFiltering
}

// analyze classifies each filtered post in order. Failures skip the post.
func (o *Orchestrator) analyze(ctx context.Context, bs *BatchState, log *zap.Logger) {
	bs.Judgements = make([]*types.Judgement, 0, len(bs.Filtered))
	for _, post := range bs.Filtered {
		plog := log.With(zap.String("post_id", post.ID), zap.String("url", post.URL))

		comments, err := o.fetcher.FetchTopComments(ctx, post.ID, o.opts.CommentLimit)
		if err != nil {
			plog.Warn("pipeline: failed to fetch comments, skipping post", zap.Error(err))
			continue
		}

		judgement, err := o.classifier.Classify(ctx, post.Title, post.Body, comments)
		if err != nil {
			plog.Warn("pipeline: classification failed, skipping post", zap.Error(err))
			continue
		}
		if judgement == nil {
			plog.Warn("pipeline: classifier returned no judgement, skipping post")
			continue
		}

		judgement.Annotate(post)
		bs.Judgements = append(bs.Judgements, judgement)
	}
}

// persist stores judgements in order. A failed record counts as not new.
func (o *Orchestrator) persist(ctx context.Context, bs *BatchState, log *zap.Logger) {
	bs.NewCount = 0
	for _, j := range bs.Judgements {
		isNew, err := o.persister.PersistOpportunity(ctx, bs.RunID, j)
		if err != nil {
			log.Warn("pipeline: failed to persist opportunity", zap.String("url", j.URL), zap.Error(err))
			continue
		}
		if isNew {
			bs.NewCount++
		}
	}
}

// decide picks the next state after a completed batch and performs any wait.
func (o *Orchestrator) decide(ctx context.Context, bs *BatchState, log *zap.Logger) State {
	if bs.NextCursor == "" {
		o.emit(bs, StateSourceExhausted, 0, false, "reached the end of available posts")
		return StateSourceExhausted
	}
	if bs.Accumulated >= bs.Target {
		o.emit(bs, StateTargetReached, 0, false, "target reached")
		return StateTargetReached
	}

	wait := o.opts.BatchDelay
	idle := bs.Mode == ModeRecent && bs.NewCount == 0
	if idle {
		wait += o.opts.Cooldown
		bs.IdlePolls++
	} else {
		bs.IdlePolls = 0
	}

	// An idle batch re-polls the same position, up to MaxIdlePolls times in a row
	if idle && bs.IdlePolls < o.opts.MaxIdlePolls {
		o.emit(bs, StateRouting, wait, false, "no new opportunities in this batch, waiting before polling again")
	} else {
		if idle {
			log.Debug("pipeline: cursor idle too long, advancing", zap.Int("idle_polls", bs.IdlePolls))
			bs.IdlePolls = 0
		}
		bs.Cursor = bs.NextCursor
		o.emit(bs, StateRouting, wait, false, "continuing")
	}

	if err := o.opts.Sleep(ctx, wait); err != nil {
		bs.Err = err
		return StateInterrupted
	}
	return StateRouting
}

func (o *Orchestrator) record(ctx context.Context, bs *BatchState, status string, log *zap.Logger) {
	if o.recorder == nil {
		return
	}

	completed := o.opts.Now()
	rec := &types.BatchRecord{
		ID:          uuid.NewString(),
		RunID:       bs.RunID,
		BatchNumber: bs.Number,
		Mode:        string(bs.Mode),
		CursorIn:    bs.Cursor,
		CursorOut:   bs.NextCursor,
		Fetched:     len(bs.Posts),
		Filtered:    len(bs.Filtered),
		Analyzed:    len(bs.Judgements),
		NewCount:    bs.NewCount,
		Status:      status,
		StartedAt:   bs.StartedAt,
		CompletedAt: &completed,
	}
	if bs.Err != nil {
		rec.ErrorMessage = bs.Err.Error()
	}
	if err := o.recorder.RecordBatch(ctx, rec); err != nil {
		log.Warn("pipeline: failed to record batch", zap.Int("batch", bs.Number), zap.Error(err))
	}
}

func (o *Orchestrator) emit(bs *BatchState, state State, wait time.Duration, final bool, message string) {
	if o.opts.OnProgress == nil {
		return
	}
	o.opts.OnProgress(ProgressEvent{
		RunID:       bs.RunID,
		Batch:       bs.Number,
		State:       state.String(),
		Mode:        bs.Mode,
		Fetched:     len(bs.Posts),
		Filtered:    len(bs.Filtered),
		Analyzed:    len(bs.Judgements),
		NewCount:    bs.NewCount,
		Accumulated: bs.Accumulated,
		Target:      bs.Target,
		Wait:        wait,
		Final:       final,
		Message:     message,
	})
}

func summaryMessage(r *Result) string {
	switch r.Outcome {
	case StateTargetReached:
		return fmt.Sprintf("target of %d met: found %d new opportunities", r.Target, r.Accumulated)
	case StateSourceExhausted:
		if r.TargetMet() {
			return fmt.Sprintf("source exhausted after meeting target of %d: found %d new opportunities", r.Target, r.Accumulated)
		}
		return fmt.Sprintf("source exhausted before target of %d: found %d new opportunities", r.Target, r.Accumulated)
	case StateInterrupted:
		return fmt.Sprintf("run interrupted: found %d/%d new opportunities", r.Accumulated, r.Target)
	default:
		return fmt.Sprintf("run aborted: %v (found %d/%d new opportunities, already saved)", r.Err, r.Accumulated, r.Target)
	}
}
