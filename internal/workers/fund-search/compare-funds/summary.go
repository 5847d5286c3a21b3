package comparefunds

import "mf-search-workers/internal/models"

type summaryMetric struct {
	metric   models.Metric
	label    string
	maximize bool
}

var summaryMetrics = []summaryMetric{
	{models.MetricOneYearReturn, "Best 1-year return", true},
	{models.MetricThreeYearReturn, "Best 3-year return", true},
	{models.MetricFiveYearReturn, "Best 5-year return", true},
	{models.MetricAUM, "Largest AUM", true},
	{models.MetricExpenseRatio, "Lowest expense ratio", false},
}

// Summarize picks the winning fund per metric. Funds without the metric are
// skipped, a metric no fund has gets no row, and ties go to the fund listed
// first.
func Summarize(funds []ComparedFund) models.ComparisonSummary {
	var summary models.ComparisonSummary
	for _, m := range summaryMetrics {
		var (
			best  *ComparedFund
			value float64
		)
		for i := range funds {
			v, ok := funds[i].Record.Value(m.metric)
			if !ok {
				continue
			}
			if best == nil || (m.maximize && v > value) || (!m.maximize && v < value) {
				best, value = &funds[i], v
			}
		}
		if best == nil {
			continue
		}
		summary.Rows = append(summary.Rows, models.SummaryRow{
			Metric: m.metric,
			Label:  m.label,
			Fund:   best.Record.Name,
			Value:  value,
		})
	}
	return summary
}
