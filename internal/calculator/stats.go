package calculator

import (
	"math"
	"sort"

	"DeclineWatch/internal/model"
)

// AggregateStats computes count, mean, median, population standard deviation,
// min, max and the bucket histogram over the records' drawdowns. An empty input
// yields Count 0 with every statistic undefined.
func AggregateStats(records []model.DeclineRecord, buckets Buckets) model.MarketStats {
	labels := buckets.Labels()
	stats := model.MarketStats{
		Count:     len(records),
		Mean:      model.Undefined(),
		Median:    model.Undefined(),
		StdDev:    model.Undefined(),
		Min:       model.Undefined(),
		Max:       model.Undefined(),
		Histogram: make(map[string]int, len(labels)),
		Labels:    labels,
	}
	for _, l := range labels {
		stats.Histogram[l] = 0
	}
	if len(records) == 0 {
		return stats
	}

	values := make([]float64, len(records))
	for i, r := range records {
		values[i] = r.DrawdownPct
		stats.Histogram[buckets.Classify(r.DrawdownPct)]++
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := computeMean(values)
	stats.Mean = model.Defined(mean)
	stats.Median = model.Defined(computeMedian(sorted))
	stats.StdDev = model.Defined(computePopulationStddev(values, mean))
	stats.Min = model.Defined(sorted[0])
	stats.Max = model.Defined(sorted[len(sorted)-1])
	return stats
}

// AggregateByMarket runs AggregateStats separately for every market present.
func AggregateByMarket(records []model.DeclineRecord, buckets Buckets) map[model.Market]model.MarketStats {
	grouped := make(map[model.Market][]model.DeclineRecord)
	for _, r := range records {
		grouped[r.Stock.Market] = append(grouped[r.Stock.Market], r)
	}
	out := make(map[model.Market]model.MarketStats, len(grouped))
	for m, recs := range grouped {
		out[m] = AggregateStats(recs, buckets)
	}
	return out
}

func computeMean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeMedian expects sorted input.
func computeMedian(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// computePopulationStddev divides by n, not n-1.
func computePopulationStddev(values []float64, mean float64) float64 {
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}
