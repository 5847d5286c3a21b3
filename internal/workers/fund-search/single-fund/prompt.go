package singlefund

import (
	"encoding/json"
	"fmt"
	"strings"

	"mf-search-workers/internal/models"
)

const systemPrompt = `You are a financial advisor answering a question about one mutual fund.
Use only the fund data you are given.

Rules:
1. For a general question about the fund, such as "how is fund X doing", give a 2-3 sentence summary of its performance from the fund data.
2. For a question about a specific metric, such as "is fund X's AUM above 2000 Cr", answer it directly from that metric.
3. If a value you need reads "` + models.NotAvailable + `", say that you do not have the required data. Never estimate or invent a value.
4. If the fund asked about and the name in the fund data are clearly different funds, for example a different fund house or a different category, answer only that the fund asked about does not exist in our fund database. Do not describe the other fund.
5. Otherwise do not mention or compare with any other fund.

End the answer with this sentence, exactly:
` + models.Disclaimer

func buildUserPrompt(query, requested string, fund *models.FundRecord) string {
	data, _ := json.MarshalIndent(fund.PromptFields(), "", "  ")

	var b strings.Builder
	fmt.Fprintf(&b, "User question: %s\n", query)
	fmt.Fprintf(&b, "Fund asked about: %s\n", requested)
	fmt.Fprintf(&b, "Fund found in the database: %s\n", fund.Name)
	fmt.Fprintf(&b, "Fund data:\n%s\n", data)
	return b.String()
}

func notFoundAnswer(name string) string {
	return fmt.Sprintf("The fund %q does not exist in our fund database, so there is no data to answer this question.", name)
}
