package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ginjaninja78/irs527-splitter/internal/fuzzy"
	"github.com/ginjaninja78/irs527-splitter/internal/record"
	"github.com/ginjaninja78/irs527-splitter/internal/sink"
	"github.com/ginjaninja78/irs527-splitter/internal/stats"
	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// expenditureWorker holds what a pool task needs to process one "B" record.
// All of its collaborators are safe for concurrent use.
type expenditureWorker struct {
	agg         *stats.Aggregator
	matcher     *fuzzy.Matcher
	exceptions  *sink.ExceptionLog
	writer      *sink.BatchWriter
	delimiter   string
	noMatchFill string
	logger      *slog.Logger
}

// process scores, tallies and enqueues one expenditure.
//
// An unparseable amount is logged as an exception and kept out of every
// monetary total, but the recipient is still scored and the record is still
// written.
func (w *expenditureWorker) process(ctx context.Context, rec types.Record) error {
	raw := rec.Field(types.AmountIndex)
	purpose := strings.ToLower(rec.Field(types.PurposeIndex))
	recipient := strings.ToLower(rec.Field(types.RecipientNameIndex))

	amount, err := record.ParseAmount(raw)
	parsed := err == nil
	if parsed {
		w.agg.RecordExpenditure(amount, purpose)
	} else {
		w.agg.RecordException(types.TypeExpenditure)
		w.logger.Debug("unparseable expenditure amount",
			slog.Int("line", rec.LineNumber),
			slog.String("amount", raw))
		if err := w.exceptions.Write(types.TypeExpenditure, raw, rec.Line); err != nil {
			return err
		}
	}

	score := w.noMatchFill
	if recipient != "" {
		match := w.matcher.Match(recipient)
		w.agg.RecordHistogramBucket(match.Score)

		if match.Matched() {
			score = strconv.Itoa(match.Score)
			if parsed {
				w.agg.RecordTransferIfQualified(amount, purpose, match.Score)
			}
		}
	}
	rec.SetLast(score)

	return w.writer.Enqueue(ctx, rec.Join(w.delimiter))
}

// watch runs fn and logs a warning if it is still running after timeout. fn
// is never interrupted; the caller always gets its result.
func watch(timeout time.Duration, slow *atomic.Int64, logger *slog.Logger, line int, fn func() error) error {
	start := time.Now()
	timer := time.AfterFunc(timeout, func() {
		slow.Add(1)
		logger.Warn("expenditure task exceeded timeout, still waiting",
			slog.Int("line", line),
			slog.Duration("timeout", timeout))
	})

	err := fn()

	if !timer.Stop() {
		logger.Info("slow expenditure task finished",
			slog.Int("line", line),
			slog.Duration("elapsed", time.Since(start)))
	}
	return err
}
