package classifyintent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	apperrors "mf-search-workers/internal/common/errors"
	"mf-search-workers/internal/common/validation"
	"mf-search-workers/internal/models"
)

var replySchema = validation.MustCompile(intentSchema)

var placeholders = map[string]struct{}{
	"": {}, "null": {}, "none": {}, "nil": {}, "n/a": {}, "na": {}, "undefined": {},
}

var numericFilters = []string{"min_1yr_return", "min_3yr_return", "max_expense_ratio"}

// ParseIntent decodes a classifier reply. Placeholder words become absent
// values, and the mode decides which of funds and semantic_query survive.
func ParseIntent(reply string) (*models.Intent, error) {
	raw := stripCodeFence(reply)

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: reply is not a JSON object: %v", apperrors.ErrIntentParsingFailed, err)
	}

	normalizeReply(doc)

	if result := replySchema.Validate(doc); !result.Valid {
		if result.HasErrors("mode") {
			return nil, fmt.Errorf("%w: mode %v is not one of single, comparison, filtered", apperrors.ErrIntentParsingFailed, doc["mode"])
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrIntentParsingFailed, strings.Join(result.GetErrorMessages(), "; "))
	}

	clean, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIntentParsingFailed, err)
	}
	var intent models.Intent
	if err := json.Unmarshal(clean, &intent); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrIntentParsingFailed, err)
	}

	if intent.Mode == models.ModeFiltered {
		intent.Funds = nil
	} else {
		intent.SemanticQuery = nil
	}
	return &intent, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func normalizeReply(doc map[string]interface{}) {
	if m, ok := doc["mode"].(string); ok {
		doc["mode"] = string(models.Mode(m).Normalize())
	}

	if v, ok := doc["semantic_query"]; ok {
		doc["semantic_query"] = textOrNil(v)
	}

	switch funds := doc["funds"].(type) {
	case string:
		if textOrNil(funds) == nil {
			doc["funds"] = nil
		} else {
			doc["funds"] = []interface{}{strings.TrimSpace(funds)}
		}
	case []interface{}:
		var kept []interface{}
		for _, f := range funds {
			if name := textOrNil(f); name != nil {
				kept = append(kept, name)
			}
		}
		if len(kept) == 0 {
			doc["funds"] = nil
		} else {
			doc["funds"] = kept
		}
	}

	filters, ok := doc["filters"].(map[string]interface{})
	if !ok {
		return
	}
	for _, key := range numericFilters {
		if v, present := filters[key]; present {
			filters[key] = numberOrNil(v)
		}
	}
	if v, present := filters["category"]; present {
		filters["category"] = textOrNil(v)
	}
}

// textOrNil maps placeholder strings to nil and trims the rest. Non-strings
// pass through for the schema to reject.
func textOrNil(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if _, placeholder := placeholders[strings.ToLower(s)]; placeholder {
		return nil
	}
	return s
}

// numberOrNil accepts numbers and numeric strings such as "12%".
func numberOrNil(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if textOrNil(s) == nil {
		return nil
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64)
	if err != nil {
		return v
	}
	return n
}
