// internal/models/fund.go
package models

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Disclaimer closes every answer produced by the mode handlers.
const Disclaimer = "The fund metrics are synthetic and for illustrative purpose ONLY and should not be used to make financial decisions."

// WithDisclaimer returns answer ending with the Disclaimer sentence exactly
// once. A trailing paraphrase of the disclaimer, such as a different closing
// phrase or a missing period, is replaced by the canonical sentence.
func WithDisclaimer(answer string) string {
	answer = stripTrailingDisclaimer(strings.TrimSpace(answer))
	if answer == "" {
		return Disclaimer
	}
	return answer + "\n\n" + Disclaimer
}

// maxDisclaimerSlack bounds how much longer than the canonical sentence a
// trailing paraphrase may be.
const maxDisclaimerSlack = 24

func stripTrailingDisclaimer(answer string) string {
	idx := strings.LastIndex(strings.ToLower(answer), "the fund metrics")
	if idx < 0 {
		return answer
	}
	tail := normalizeSentence(answer[idx:])
	if len(tail) > len(normalizeSentence(Disclaimer))+maxDisclaimerSlack ||
		!strings.Contains(tail, "synthetic") ||
		!strings.Contains(tail, "illustrative") ||
		!strings.Contains(tail, "financial decision") {
		return answer
	}

	head := strings.TrimRight(answer[:idx], " \t\r\n*_>-")
	if strings.HasSuffix(strings.ToLower(head), "disclaimer:") {
		head = strings.TrimRight(head[:len(head)-len("disclaimer:")], " \t\r\n*_>-")
	}
	return head
}

// normalizeSentence lowercases s and reduces punctuation and whitespace
// runs to single spaces.
func normalizeSentence(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

// NotAvailable is rendered in prompts for metrics missing from a fund record.
const NotAvailable = "data not available"

// FundRecord is one fund as stored in the vector collection.
type FundRecord struct {
	Name            string   `json:"name"`
	OneYearReturn   *float64 `json:"one_year_return"`
	ThreeYearReturn *float64 `json:"three_year_return"`
	FiveYearReturn  *float64 `json:"five_year_return"`
	ExpenseRatio    *float64 `json:"expense_ratio"`
	AUM             *float64 `json:"aum"`
	Benchmark       *string  `json:"benchmark"`
	Category        *string  `json:"category,omitempty"`
	Document        string   `json:"document,omitempty"`
	Score           float64  `json:"score,omitempty"`
}

// Metric identifies a numeric fund field used for comparisons.
type Metric string

const (
	MetricOneYearReturn   Metric = "1yr_return"
	MetricThreeYearReturn Metric = "3yr_return"
	MetricFiveYearReturn  Metric = "5yr_return"
	MetricAUM             Metric = "aum"
	MetricExpenseRatio    Metric = "expense_ratio"
)

// Value returns the metric's value and whether it is present.
func (f *FundRecord) Value(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case MetricOneYearReturn:
		p = f.OneYearReturn
	case MetricThreeYearReturn:
		p = f.ThreeYearReturn
	case MetricFiveYearReturn:
		p = f.FiveYearReturn
	case MetricAUM:
		p = f.AUM
	case MetricExpenseRatio:
		p = f.ExpenseRatio
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// PromptFields renders the record for a prompt, spelling out absent metrics.
func (f *FundRecord) PromptFields() map[string]string {
	return map[string]string{
		"name":          f.Name,
		"1yr_return":    formatPercent(f.OneYearReturn),
		"3yr_return":    formatPercent(f.ThreeYearReturn),
		"5yr_return":    formatPercent(f.FiveYearReturn),
		"expense_ratio": formatPercent(f.ExpenseRatio),
		"aum":           formatCrore(f.AUM),
		"benchmark":     formatString(f.Benchmark),
	}
}

func formatPercent(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', 2, 64) + "%"
}

func formatCrore(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.2f Cr", *v)
}

func formatString(v *string) string {
	if v == nil || *v == "" {
		return NotAvailable
	}
	return *v
}

// SummaryRow is one line of a ComparisonSummary: the fund that wins a metric.
type SummaryRow struct {
	Metric Metric  `json:"metric"`
	Label  string  `json:"label"`
	Fund   string  `json:"fund"`
	Value  float64 `json:"value"`
}

// ComparisonSummary lists the winning fund per metric. Metrics absent for
// every compared fund have no row.
type ComparisonSummary struct {
	Rows []SummaryRow `json:"rows"`
}

func (s *ComparisonSummary) Row(m Metric) (SummaryRow, bool) {
	for _, r := range s.Rows {
		if r.Metric == m {
			return r, true
		}
	}
	return SummaryRow{}, false
}

// Float returns a pointer to v, for building records and filters.
func Float(v float64) *float64 { return &v }

// String returns a pointer to s.
func String(s string) *string { return &s }
