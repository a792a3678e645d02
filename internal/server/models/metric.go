package models

import "time"

// CompanyMetric is one company's reported value for a metric in a period.
type CompanyMetric struct {
	CompanyID string
	MetricID  string
	Period    string // e.g. "2026-Q2"
	Value     float64
	UpdatedAt time.Time
}

// BenchmarkStat holds percentile breakpoints for a metric within a revenue
// range, against which company values are compared.
type BenchmarkStat struct {
	MetricID     string
	RevenueRange string // e.g. "1M-5M"
	P10          float64
	P25          float64
	P50          float64
	P75          float64
	P90          float64
	UpdatedAt    time.Time
}

// PercentileBracket names the band a company value falls into relative to a
// BenchmarkStat.
type PercentileBracket string

const (
	BracketBelowP10 PercentileBracket = "BELOW_P10"
	BracketP10ToP25 PercentileBracket = "P10_TO_P25"
	BracketP25ToP50 PercentileBracket = "P25_TO_P50"
	BracketP50ToP75 PercentileBracket = "P50_TO_P75"
	BracketP75ToP90 PercentileBracket = "P75_TO_P90"
	BracketAboveP90 PercentileBracket = "ABOVE_P90"
)
