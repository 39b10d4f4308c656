package model

import "time"

// MarketSelection is the set of boards an analysis run covers.
type MarketSelection string

const (
	SelectKOSPI  MarketSelection = "kospi"
	SelectKOSDAQ MarketSelection = "kosdaq"
	SelectBoth   MarketSelection = "both"
)

// AnalysisResult is the outcome of one analysis run.
type AnalysisResult struct {
	RunID           string                 `json:"run_id"`
	StartedAt       time.Time              `json:"started_at"`
	FinishedAt      time.Time              `json:"finished_at"`
	Selection       MarketSelection        `json:"selection"`
	PeriodDays      int                    `json:"period_days"`
	Requested       int                    `json:"requested"`
	Records         []DeclineRecord        `json:"records"`
	Excluded        []Exclusion            `json:"excluded"`
	Stats           MarketStats            `json:"stats"`
	MarketBreakdown map[Market]MarketStats `json:"market_breakdown"`
	Top             []DeclineRecord        `json:"top"`
}

// RunSummary is the persisted headline of a past run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Selection  string    `json:"selection"`
	PeriodDays int       `json:"period_days"`
	Requested  int       `json:"requested"`
	Analyzed   int       `json:"analyzed"`
	Excluded   int       `json:"excluded"`
	Mean       StatValue `json:"mean"`
	Median     StatValue `json:"median"`
	StdDev     StatValue `json:"std_dev"`
	Min        StatValue `json:"min"`
	Max        StatValue `json:"max"`
}

// Summary extracts the headline figures of the run.
func (r *AnalysisResult) Summary() RunSummary {
	return RunSummary{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Selection:  string(r.Selection),
		PeriodDays: r.PeriodDays,
		Requested:  r.Requested,
		Analyzed:   len(r.Records),
		Excluded:   len(r.Excluded),
		Mean:       r.Stats.Mean,
		Median:     r.Stats.Median,
		StdDev:     r.Stats.StdDev,
		Min:        r.Stats.Min,
		Max:        r.Stats.Max,
	}
}
