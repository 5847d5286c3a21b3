package filteredsearch

import (
	"fmt"
	"strings"

	"mf-search-workers/internal/models"
)

const systemPrompt = `You are a financial advisor recommending mutual funds that match a theme.

List every fund you are given, in the order given, by name. For each fund write one line explaining
why it fits, covering its 1-year return, expense ratio, AUM and benchmark.

Rules:
1. Use only the values provided. A value reading "` + models.NotAvailable + `" must be reported as not available.
2. Do not add funds that are not in the list.

End the answer with this sentence, exactly:
` + models.Disclaimer

func buildUserPrompt(query, theme string, filters models.IntentFilters, funds []models.FundRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User question: %s\n", query)
	fmt.Fprintf(&b, "Theme: %s\n", theme)
	if c := describeFilters(filters); c != "" {
		fmt.Fprintf(&b, "Filters applied: %s\n", c)
	}

	b.WriteString("\nFunds, best 1-year return first:\n")
	for i := range funds {
		f := funds[i].PromptFields()
		fmt.Fprintf(&b, "%d. %s | 1yr return: %s | expense ratio: %s | AUM: %s | benchmark: %s\n",
			i+1, f["name"], f["1yr_return"], f["expense_ratio"], f["aum"], f["benchmark"])
	}
	return b.String()
}

func describeFilters(f models.IntentFilters) string {
	var parts []string
	if f.Min1YrReturn != nil {
		parts = append(parts, fmt.Sprintf("1-year return above %.2f%%", *f.Min1YrReturn))
	}
	if f.Min3YrReturn != nil {
		parts = append(parts, fmt.Sprintf("3-year return above %.2f%%", *f.Min3YrReturn))
	}
	if f.MaxExpenseRatio != nil {
		parts = append(parts, fmt.Sprintf("expense ratio below %.2f%%", *f.MaxExpenseRatio))
	}
	if f.Category != nil && strings.TrimSpace(*f.Category) != "" {
		parts = append(parts, "category "+strings.TrimSpace(*f.Category))
	}
	return strings.Join(parts, ", ")
}

func noMatchAnswer(theme string) string {
	return fmt.Sprintf("No funds in our fund database matched %q with the requested filters.", theme)
}
