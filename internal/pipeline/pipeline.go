// =============================================================================
// IRS 527 Splitter - Pipeline Module
// =============================================================================
//
// This module orchestrates one complete run over an IRS 527 bulk data file.
//
// RUN STEPS:
//   1. Open the input, the per-type output files and the exception log.
//      Failing here is fatal and nothing has been read yet.
//   2. Pass one: collect organization names into the registry.
//   3. Pass two: classify every line and route it:
//        - "B" lines go to the worker pool, then through the batch writer
//        - "A" lines are parsed and written on the reading goroutine
//        - every other type is written on the reading goroutine
//   4. Wait for the pool, close the batch writer, close the outputs.
//
// CONCURRENCY:
//   The reading goroutine is the only writer of every sink except "B". The
//   batch writer goroutine is the only writer of the "B" sink. The registry is
//   complete before the pool starts and never changes afterwards.
//
// =============================================================================

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/irs527-splitter/internal/config"
	"github.com/ginjaninja78/irs527-splitter/internal/fuzzy"
	"github.com/ginjaninja78/irs527-splitter/internal/record"
	"github.com/ginjaninja78/irs527-splitter/internal/registry"
	"github.com/ginjaninja78/irs527-splitter/internal/schema"
	"github.com/ginjaninja78/irs527-splitter/internal/sink"
	"github.com/ginjaninja78/irs527-splitter/internal/stats"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures a Splitter.
type Options struct {
	// RunID identifies the run in logs and stored summaries. A random UUID is
	// used when empty.
	RunID string

	InputFile string
	OutputDir string
	Delimiter string

	// Schema defines the record types and their header tables.
	// Default: schema.Default()
	Schema *schema.Schema

	// ProgressEvery logs progress every N lines in each pass. 0 disables it.
	ProgressEvery int

	Threshold        int
	NoMatchFill      string
	TransferKeywords []string

	Workers     int
	TaskTimeout time.Duration

	BatchSize     int
	QueueCapacity int
	FlushInterval time.Duration

	Logger *slog.Logger
}

// OptionsFromConfig maps a validated configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config, s *schema.Schema, logger *slog.Logger) Options {
	return Options{
		InputFile:        cfg.InputFile,
		OutputDir:        cfg.OutputDir,
		Delimiter:        cfg.Delimiter,
		Schema:           s,
		ProgressEvery:    cfg.ProgressEvery,
		Threshold:        cfg.Matching.ScoreThreshold,
		NoMatchFill:      cfg.Matching.NoMatchFill,
		TransferKeywords: cfg.Matching.TransferKeywords,
		Workers:          cfg.Pool.Workers,
		TaskTimeout:      cfg.Pool.TaskTimeout,
		BatchSize:        cfg.Writer.BatchSize,
		QueueCapacity:    cfg.Writer.QueueCapacity,
		FlushInterval:    cfg.Writer.FlushInterval,
		Logger:           logger,
	}
}

// applyDefaults fills options left at their zero value.
func applyDefaults(opts *Options) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.Delimiter == "" {
		opts.Delimiter = "|"
	}
	if opts.Schema == nil {
		opts.Schema = schema.Default()
	}
	if opts.TransferKeywords == nil {
		opts.TransferKeywords = stats.DefaultTransferKeywords
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
}

// =============================================================================
// RESULT
// =============================================================================

// Result describes a finished run.
type Result struct {
	RunID      string
	InputFile  string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt time.Time

	// RegistrySize is the number of distinct organization names.
	RegistrySize int

	// LinesRead counts the lines seen in pass two.
	LinesRead int

	// Skipped counts lines with an empty or unknown record type.
	Skipped int

	// Dropped counts "B" lines with too few fields to process.
	Dropped int

	// Written is the number of records written per type.
	Written map[types.RecordType]int64

	// SlowTasks counts "B" tasks that ran past the task timeout.
	SlowTasks int64

	// Batches is the number of batches the "B" writer flushed.
	Batches int64

	Matcher fuzzy.Stats
	Summary stats.Summary
}

// Duration returns how long the run took.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// =============================================================================
// SPLITTER
// =============================================================================

// Splitter runs the two-pass pipeline over one input file.
type Splitter struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Splitter.
func New(opts Options) *Splitter {
	applyDefaults(&opts)
	return &Splitter{
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "pipeline"), slog.String("run_id", opts.RunID)),
	}
}

// Run executes both passes. The returned error is non-nil when an input or
// output could not be opened, when reading the input failed part way, when
// an output write failed, or when ctx was cancelled. Outputs are closed in
// every case.
func (s *Splitter) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		RunID:     s.opts.RunID,
		InputFile: s.opts.InputFile,
		OutputDir: s.opts.OutputDir,
		StartedAt: time.Now(),
	}

	s.logger.Info("starting run",
		slog.String("input", s.opts.InputFile),
		slog.String("output_dir", s.opts.OutputDir),
		slog.Int("workers", s.opts.Workers))

	// =========================================================================
	// STEP 1: OPEN INPUT AND OUTPUTS
	// =========================================================================

	firstPass, err := record.Open(s.opts.InputFile)
	if err != nil {
		return nil, err
	}
	defer firstPass.Close()

	out, err := openOutputs(s.opts)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 2: BUILD THE NAME REGISTRY
	// =========================================================================

	reg, err := registry.Build(firstPass, registry.BuildOptions{
		Delimiter:     s.opts.Delimiter,
		ProgressEvery: s.opts.ProgressEvery,
		Logger:        s.opts.Logger,
	})
	if err != nil {
		return nil, errors.Join(err, out.close())
	}
	result.RegistrySize = reg.Len()

	// =========================================================================
	// STEP 3: SPLIT, SCORE AND AGGREGATE
	// =========================================================================

	secondPass, err := record.Open(s.opts.InputFile)
	if err != nil {
		return nil, errors.Join(err, out.close())
	}
	defer secondPass.Close()

	runErr := s.split(ctx, secondPass, reg, out, result)

	// =========================================================================
	// STEP 4: CLOSE OUTPUTS
	// =========================================================================

	if err := out.close(); err != nil {
		runErr = errors.Join(runErr, err)
	}
	result.Written = out.sinks.Counts()
	result.FinishedAt = time.Now()

	if runErr != nil {
		s.logger.Error("run failed", slog.String("error", runErr.Error()))
		return result, runErr
	}

	s.logger.Info("run complete",
		slog.Int("lines", result.LinesRead),
		slog.Int("registry_names", result.RegistrySize),
		slog.Int64("expenditures", result.Summary.ExpenditureCount),
		slog.Int64("exceptions", result.Summary.Exception(types.TypeContribution)+result.Summary.Exception(types.TypeExpenditure)),
		slog.Duration("duration", result.Duration()))
	return result, nil
}

// split runs pass two. It always waits for every dispatched task and drains
// the batch writer before returning.
func (s *Splitter) split(ctx context.Context, reader *record.Reader, reg *registry.Registry, out *outputs, result *Result) error {
	agg := stats.New(stats.Options{
		Threshold:        s.opts.Threshold,
		TransferKeywords: s.opts.TransferKeywords,
	})
	matcher := fuzzy.NewMatcher(reg)
	classifier := record.NewClassifier(s.opts.Schema, s.opts.Delimiter)

	writer := sink.NewBatchWriter(out.sinks.Sink(types.TypeExpenditure), sink.BatchOptions{
		BatchSize:     s.opts.BatchSize,
		QueueCapacity: s.opts.QueueCapacity,
		FlushInterval: s.opts.FlushInterval,
		Logger:        s.opts.Logger,
	})

	w := &expenditureWorker{
		agg:         agg,
		matcher:     matcher,
		exceptions:  out.exceptions,
		writer:      writer,
		delimiter:   s.opts.Delimiter,
		noMatchFill: s.opts.NoMatchFill,
		logger:      s.logger,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)

	var slow atomic.Int64
	readErr := s.dispatch(gctx, reader, classifier, out, agg, result, func(rec types.Record) {
		g.Go(func() error {
			return watch(s.opts.TaskTimeout, &slow, s.logger, rec.LineNumber, func() error {
				return w.process(gctx, rec)
			})
		})
	})

	poolErr := g.Wait()
	writeErr := writer.Close()

	result.SlowTasks = slow.Load()
	result.Batches = writer.Batches()
	result.Matcher = matcher.Stats()
	result.Summary = agg.Snapshot()

	// A cancelled group context is a symptom of poolErr, not a cause.
	if poolErr != nil && errors.Is(readErr, context.Canceled) && ctx.Err() == nil {
		readErr = nil
	}
	return errors.Join(readErr, poolErr, writeErr)
}

// dispatch reads every line, writes the synchronous types and hands "B"
// records to submit.
func (s *Splitter) dispatch(ctx context.Context, reader *record.Reader, classifier *record.Classifier,
	out *outputs, agg *stats.Aggregator, result *Result, submit func(types.Record)) error {

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		result.LinesRead++

		if s.opts.ProgressEvery > 0 && reader.LineNumber()%s.opts.ProgressEvery == 0 {
			s.logger.Info("splitting records",
				slog.Int("lines", reader.LineNumber()),
				slog.Int("dropped", result.Dropped))
		}

		rec, ok := classifier.Classify(reader.Line(), reader.LineNumber())
		if !ok {
			result.Skipped++
			continue
		}

		switch rec.Type {
		case types.TypeExpenditure:
			if rec.RawFieldCount < types.MinExpenditureFields {
				result.Dropped++
				continue
			}
			submit(rec)

		case types.TypeContribution:
			if err := s.contribution(rec, agg, out); err != nil {
				return err
			}

		default:
			if err := out.sinks.Sink(rec.Type).WriteLine(rec.Join(s.opts.Delimiter)); err != nil {
				return err
			}
		}
	}

	return reader.Err()
}

// contribution tallies and writes one "A" record on the reading goroutine.
// A blank amount is an exception, unlike on "B" records.
func (s *Splitter) contribution(rec types.Record, agg *stats.Aggregator, out *outputs) error {
	raw := rec.Field(types.AmountIndex)

	amount, err := record.ParseRequiredAmount(raw)
	if err != nil {
		agg.RecordException(types.TypeContribution)
		s.logger.Debug("unparseable contribution amount",
			slog.Int("line", rec.LineNumber),
			slog.String("amount", raw))
		if err := out.exceptions.Write(types.TypeContribution, raw, rec.Line); err != nil {
			return err
		}
	} else {
		agg.RecordContribution(amount)
	}

	return out.sinks.Sink(types.TypeContribution).WriteLine(rec.Join(s.opts.Delimiter))
}

// =============================================================================
// OUTPUTS
// =============================================================================

// outputs groups the files that must be closed at the end of a run.
type outputs struct {
	sinks      *sink.Set
	exceptions *sink.ExceptionLog
}

func openOutputs(opts Options) (*outputs, error) {
	if !opts.Schema.Has(types.TypeExpenditure) {
		return nil, fmt.Errorf("%w: schema has no %q table", schema.ErrUnknownRecordType, types.TypeExpenditure)
	}

	sinks, err := sink.OpenSet(opts.OutputDir, opts.Schema, opts.Delimiter)
	if err != nil {
		return nil, err
	}

	exceptions, err := sink.OpenExceptionLog(filepath.Join(opts.OutputDir, sink.ExceptionLogName))
	if err != nil {
		return nil, errors.Join(err, sinks.Close())
	}

	return &outputs{sinks: sinks, exceptions: exceptions}, nil
}

func (o *outputs) close() error {
	return errors.Join(o.sinks.Close(), o.exceptions.Close())
}
