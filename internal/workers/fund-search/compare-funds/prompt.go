package comparefunds

import (
	"encoding/json"
	"fmt"
	"strings"

	"mf-search-workers/internal/models"
)

const systemPrompt = `You are a financial advisor comparing mutual funds for a user.

Always structure the answer in this order:
1. Overview: one short paragraph.
2. Fund-by-fund breakdown.
3. Final recommendation summary.

Rules:
1. Use only values from the fund data and the comparison summary.
2. Do not invent metrics. A value reading "` + models.NotAvailable + `" must be reported as not available.
3. Funds listed under "Funds not found" do not exist in the fund database; say so and do not describe them.
4. Keep the comparison to 3-4 paragraphs.

End the answer with this sentence, exactly:
` + models.Disclaimer

type promptFund struct {
	Requested string            `json:"requested"`
	Data      map[string]string `json:"data"`
}

func buildUserPrompt(query string, funds []ComparedFund, missing []string, summary models.ComparisonSummary) string {
	data := make([]promptFund, 0, len(funds))
	for _, f := range funds {
		data = append(data, promptFund{Requested: f.Requested, Data: f.Record.PromptFields()})
	}
	fundJSON, _ := json.MarshalIndent(data, "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "User question: %s\n\n", query)
	fmt.Fprintf(&b, "Fund data:\n%s\n\n", fundJSON)

	b.WriteString("Comparison summary:\n")
	if len(summary.Rows) == 0 {
		b.WriteString("- no metric is available for any fund\n")
	}
	for _, row := range summary.Rows {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", row.Label, row.Fund, formatValue(row))
	}

	if len(missing) > 0 {
		fmt.Fprintf(&b, "\nFunds not found: %s\n", strings.Join(missing, ", "))
	}
	return b.String()
}

func formatValue(row models.SummaryRow) string {
	if row.Metric == models.MetricAUM {
		return fmt.Sprintf("%.2f Cr", row.Value)
	}
	return fmt.Sprintf("%.2f%%", row.Value)
}

func noneFoundAnswer(names []string) string {
	return fmt.Sprintf("None of the requested funds (%s) exist in our fund database, so they cannot be compared.",
		strings.Join(names, ", "))
}
