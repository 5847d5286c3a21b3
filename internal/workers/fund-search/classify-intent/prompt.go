package classifyintent

const systemPrompt = `You translate a user's mutual fund question into a JSON search request.

Steps:
1. Work out what the user wants.
2. Extract fund names only when the user names them. Never invent fund names.
3. When the user names more than one fund, put every one of them in "funds".
4. Any value you cannot determine MUST be JSON null. Never write "none", "n/a" or an empty string instead.
5. "semantic_query" holds only the investment theme or fund category the user asks about.

Valid semantic_query values look like:
- "large cap"
- "mid cap"
- "small cap"
- "momentum"
- "index fund"
- "bluechip"
- "ELSS"
- "international fund"

Set semantic_query to null for:
- descriptions such as "comparison of mutual funds"
- meta comments such as "market investment timing"
- generic words such as "performance", "returns" or "mutual fund"
- summaries of the question
- fund names, which belong in "funds" only

Mode selection:
- the user compares two or more named funds: mode "comparison", semantic_query null
- the user asks about one named fund: mode "single", semantic_query null
- the user asks for funds matching a theme, optionally with return or cost limits: mode "filtered", semantic_query set to the theme
- a vague or general financial question: semantic_query null

Filters are numbers in percent: "returns above 12%" is min_1yr_return 12. A limit not stated is null.

Reply with exactly one JSON object in this shape and nothing else:
{
  "mode": "single | comparison | filtered",
  "funds": ["HDFC Top 100", "ICICI Bluechip Fund"],
  "semantic_query": "large cap",
  "filters": {
    "min_1yr_return": 10,
    "min_3yr_return": null,
    "max_expense_ratio": 1.5,
    "category": "Mid Cap"
  }
}

When nothing fits a field, keep the shape and use null, for example:
{
  "mode": "single",
  "funds": ["Parag Parikh Flexi Cap"],
  "semantic_query": null,
  "filters": {
    "min_1yr_return": null,
    "min_3yr_return": null,
    "max_expense_ratio": null,
    "category": null
  }
}`

// intentSchema is applied to the reply after placeholder cleanup.
const intentSchema = `{
	"type": "object",
	"required": ["mode"],
	"properties": {
		"mode": {"type": "string", "enum": ["single", "comparison", "filtered"]},
		"funds": {
			"type": ["array", "null"],
			"items": {"type": "string"}
		},
		"semantic_query": {"type": ["string", "null"]},
		"filters": {
			"type": ["object", "null"],
			"properties": {
				"min_1yr_return": {"type": ["number", "null"]},
				"min_3yr_return": {"type": ["number", "null"]},
				"max_expense_ratio": {"type": ["number", "null"], "minimum": 0},
				"category": {"type": ["string", "null"]}
			}
		}
	}
}`

const inputSchema = `{
	"type": "object",
	"required": ["query"],
	"properties": {
		"requestId": {"type": "string"},
		"query": {"type": "string", "minLength": 1, "maxLength": 2000}
	}
}`
