// =============================================================================
// IRS 527 Splitter - Statistics Aggregator
// =============================================================================
//
// The aggregator accumulates the running totals that end up in the report.
// Every expenditure worker updates it concurrently, so all state is private
// and changed only through the Record* methods.
//
// LOCKING:
//   Each independent group of counters has its own mutex:
//   - contributions     total and count
//   - expenditures      total, count and both per-purpose maps
//   - transfers         PAC-to-PAC total and count
//   - histogram         score decile buckets
//   - exceptions        per record type counts
//
//   The per-purpose maps share the expenditure lock, so the sum of purpose
//   amounts always equals the expenditure total whenever no update is in
//   flight.
//
// =============================================================================

package stats

import (
	"strings"
	"sync"

	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// DefaultThreshold is the minimum match score for a transfer.
const DefaultThreshold = 60

// DefaultTransferKeywords are the purpose substrings that mark an expenditure
// as a possible transfer between committees.
var DefaultTransferKeywords = []string{
	"contribution",
	"donation",
	"transfer",
	"political contribution",
}

// histogramBuckets is the number of decile buckets: 0, 10, ..., 90 and 100.
const histogramBuckets = 11

// Options configures an Aggregator.
type Options struct {
	// Threshold is the minimum score, inclusive, for a transfer.
	Threshold int

	// TransferKeywords are matched case-insensitively against the purpose.
	TransferKeywords []string
}

// DefaultOptions returns the default transfer rules.
func DefaultOptions() Options {
	keywords := make([]string, len(DefaultTransferKeywords))
	copy(keywords, DefaultTransferKeywords)
	return Options{
		Threshold:        DefaultThreshold,
		TransferKeywords: keywords,
	}
}

// Aggregator accumulates run statistics. The zero value is not usable; call
// New.
type Aggregator struct {
	threshold int
	keywords  []string

	contributionsMu   sync.Mutex
	contributionTotal float64
	contributionCount int64

	expendituresMu   sync.Mutex
	expenditureTotal float64
	expenditureCount int64
	purposeAmounts   map[string]float64
	purposeCounts    map[string]int64

	transfersMu   sync.Mutex
	transferTotal float64
	transferCount int64

	histogramMu sync.Mutex
	histogram   [histogramBuckets]int64

	exceptionsMu sync.Mutex
	exceptions   map[types.RecordType]int64
}

// New creates an Aggregator with the given transfer rules. Keywords are
// lower-cased and empty keywords are ignored.
func New(opts Options) *Aggregator {
	keywords := make([]string, 0, len(opts.TransferKeywords))
	for _, k := range opts.TransferKeywords {
		k = strings.ToLower(k)
		if k != "" {
			keywords = append(keywords, k)
		}
	}

	return &Aggregator{
		threshold:      opts.Threshold,
		keywords:       keywords,
		purposeAmounts: make(map[string]float64),
		purposeCounts:  make(map[string]int64),
		exceptions:     make(map[types.RecordType]int64),
	}
}

// =============================================================================
// UPDATES
// =============================================================================

// RecordContribution adds one contribution.
func (a *Aggregator) RecordContribution(amount float64) {
	a.contributionsMu.Lock()
	a.contributionTotal += amount
	a.contributionCount++
	a.contributionsMu.Unlock()
}

// RecordExpenditure adds one expenditure and tallies it under purpose.
func (a *Aggregator) RecordExpenditure(amount float64, purpose string) {
	a.expendituresMu.Lock()
	a.expenditureTotal += amount
	a.expenditureCount++
	a.purposeAmounts[purpose] += amount
	a.purposeCounts[purpose]++
	a.expendituresMu.Unlock()
}

// Qualifies reports whether an expenditure with this purpose and match score
// counts as a transfer.
func (a *Aggregator) Qualifies(purpose string, score int) bool {
	if score < a.threshold {
		return false
	}

	purpose = strings.ToLower(purpose)
	for _, k := range a.keywords {
		if strings.Contains(purpose, k) {
			return true
		}
	}
	return false
}

// RecordTransferIfQualified adds amount to the transfer totals when Qualifies
// holds, and reports whether it did.
func (a *Aggregator) RecordTransferIfQualified(amount float64, purpose string, score int) bool {
	if !a.Qualifies(purpose, score) {
		return false
	}

	a.transfersMu.Lock()
	a.transferTotal += amount
	a.transferCount++
	a.transfersMu.Unlock()
	return true
}

// RecordException counts an unparseable amount for a record type.
func (a *Aggregator) RecordException(rt types.RecordType) {
	a.exceptionsMu.Lock()
	a.exceptions[rt]++
	a.exceptionsMu.Unlock()
}

// RecordHistogramBucket counts score in its decile bucket.
func (a *Aggregator) RecordHistogramBucket(score int) {
	i := Bucket(score) / 10

	a.histogramMu.Lock()
	a.histogram[i]++
	a.histogramMu.Unlock()
}

// Bucket returns the lower bound of the decile containing score. Scores are
// clamped to 0..100 and 100 has a bucket of its own.
func Bucket(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score / 10 * 10
}

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot copies the current state. Each group is read under its own lock,
// so a snapshot taken while workers are running is consistent per group only.
func (a *Aggregator) Snapshot() Summary {
	var s Summary

	a.contributionsMu.Lock()
	s.ContributionTotal = a.contributionTotal
	s.ContributionCount = a.contributionCount
	a.contributionsMu.Unlock()

	a.expendituresMu.Lock()
	s.ExpenditureTotal = a.expenditureTotal
	s.ExpenditureCount = a.expenditureCount
	s.Purposes = make([]PurposeTotal, 0, len(a.purposeAmounts))
	for purpose, amount := range a.purposeAmounts {
		s.Purposes = append(s.Purposes, PurposeTotal{
			Purpose: purpose,
			Amount:  amount,
			Count:   a.purposeCounts[purpose],
		})
	}
	a.expendituresMu.Unlock()
	sortPurposes(s.Purposes)

	a.transfersMu.Lock()
	s.TransferTotal = a.transferTotal
	s.TransferCount = a.transferCount
	a.transfersMu.Unlock()

	a.histogramMu.Lock()
	s.Histogram = a.histogram
	a.histogramMu.Unlock()

	a.exceptionsMu.Lock()
	s.Exceptions = make(map[types.RecordType]int64, len(a.exceptions))
	for rt, n := range a.exceptions {
		s.Exceptions[rt] = n
	}
	a.exceptionsMu.Unlock()

	return s
}
