package stats

import (
	"sort"

	"github.com/ginjaninja78/irs527-splitter/internal/types"
)

// PurposeTotal is the expenditure tally for one purpose.
type PurposeTotal struct {
	Purpose string
	Amount  float64
	Count   int64
}

// Average returns Amount / Count, or 0 when Count is zero.
func (p PurposeTotal) Average() float64 {
	if p.Count == 0 {
		return 0
	}
	return p.Amount / float64(p.Count)
}

// Summary is a point-in-time copy of an Aggregator.
type Summary struct {
	ContributionTotal float64
	ContributionCount int64

	ExpenditureTotal float64
	ExpenditureCount int64

	TransferTotal float64
	TransferCount int64

	// Purposes is sorted by Amount, largest first. Equal amounts are ordered
	// by purpose.
	Purposes []PurposeTotal

	// Histogram holds the count for bucket 10*i at index i.
	Histogram [histogramBuckets]int64

	Exceptions map[types.RecordType]int64
}

// Exception returns the exception count for a record type.
func (s Summary) Exception(rt types.RecordType) int64 {
	return s.Exceptions[rt]
}

// HistogramCount returns the count of the bucket that contains score.
func (s Summary) HistogramCount(score int) int64 {
	return s.Histogram[Bucket(score)/10]
}

// HistogramTotal returns the number of scored lookups.
func (s Summary) HistogramTotal() int64 {
	var total int64
	for _, n := range s.Histogram {
		total += n
	}
	return total
}

// PurposeAmountTotal sums the per-purpose amounts. It equals ExpenditureTotal
// up to floating point rounding.
func (s Summary) PurposeAmountTotal() float64 {
	var total float64
	for _, p := range s.Purposes {
		total += p.Amount
	}
	return total
}

// TopPurposes returns up to n purposes with the largest totals.
func (s Summary) TopPurposes(n int) []PurposeTotal {
	if n > len(s.Purposes) {
		n = len(s.Purposes)
	}
	return s.Purposes[:n]
}

// BottomPurposes returns the n purposes with the smallest totals, still in
// descending order. With fewer than n purposes, all of them are returned
// smallest first.
func (s Summary) BottomPurposes(n int) []PurposeTotal {
	if len(s.Purposes) >= n {
		return s.Purposes[len(s.Purposes)-n:]
	}

	out := make([]PurposeTotal, len(s.Purposes))
	for i, p := range s.Purposes {
		out[len(out)-1-i] = p
	}
	return out
}

func sortPurposes(p []PurposeTotal) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Amount != p[j].Amount {
			return p[i].Amount > p[j].Amount
		}
		return p[i].Purpose < p[j].Purpose
	})
}
