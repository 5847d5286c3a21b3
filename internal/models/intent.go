// internal/models/intent.go
package models

import "strings"

type Mode string

const (
	ModeSingle     Mode = "single"
	ModeComparison Mode = "comparison"
	ModeFiltered   Mode = "filtered"
)

// Normalize lower-cases and trims the mode so dispatch is case-insensitive.
func (m Mode) Normalize() Mode {
	return Mode(strings.ToLower(strings.TrimSpace(string(m))))
}

func (m Mode) Valid() bool {
	switch m.Normalize() {
	case ModeSingle, ModeComparison, ModeFiltered:
		return true
	}
	return false
}

// Intent is the classified structure describing what kind of search the user
// wants. Absent values stay nil; they are never defaulted to zero.
type Intent struct {
	Mode          Mode          `json:"mode"`
	Funds         []string      `json:"funds"`
	SemanticQuery *string       `json:"semantic_query"`
	Filters       IntentFilters `json:"filters"`
}

type IntentFilters struct {
	Min1YrReturn    *float64 `json:"min_1yr_return"`
	Min3YrReturn    *float64 `json:"min_3yr_return"`
	MaxExpenseRatio *float64 `json:"max_expense_ratio"`
	Category        *string  `json:"category"`
}

// Theme returns the semantic query, or "" when the classifier found none.
func (i *Intent) Theme() string {
	if i.SemanticQuery == nil {
		return ""
	}
	return strings.TrimSpace(*i.SemanticQuery)
}

// FirstFund returns the first requested fund name, or "" when none was listed.
func (i *Intent) FirstFund() string {
	for _, f := range i.Funds {
		if name := strings.TrimSpace(f); name != "" {
			return name
		}
	}
	return ""
}

// FundNames returns the non-blank fund names in request order.
func (i *Intent) FundNames() []string {
	var out []string
	for _, f := range i.Funds {
		if name := strings.TrimSpace(f); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func (f IntentFilters) Empty() bool {
	return f.Min1YrReturn == nil && f.Min3YrReturn == nil && f.MaxExpenseRatio == nil && f.Category == nil
}

// Admits reports whether r satisfies every numeric filter that is present.
// Bounds are strict and a missing metric never satisfies a present bound.
// Category is advisory and not checked here.
func (f IntentFilters) Admits(r *FundRecord) bool {
	if f.Min1YrReturn != nil {
		if r.OneYearReturn == nil || !(*r.OneYearReturn > *f.Min1YrReturn) {
			return false
		}
	}
	if f.Min3YrReturn != nil {
		if r.ThreeYearReturn == nil || !(*r.ThreeYearReturn > *f.Min3YrReturn) {
			return false
		}
	}
	if f.MaxExpenseRatio != nil {
		if r.ExpenseRatio == nil || !(*r.ExpenseRatio < *f.MaxExpenseRatio) {
			return false
		}
	}
	return true
}
