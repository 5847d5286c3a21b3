package fundstore

import (
	"strings"
	"unicode"
)

// minNameOverlap is the share of requested name tokens that must appear in
// the retrieved fund name for the match to count.
const minNameOverlap = 0.6

var nameStopwords = map[string]struct{}{
	"fund": {}, "funds": {}, "mutual": {}, "mf": {}, "scheme": {},
	"direct": {}, "regular": {}, "growth": {}, "plan": {}, "option": {},
	"idcw": {}, "dividend": {}, "the": {}, "of": {},
}

// categoryWords name a fund category rather than a fund. Many fund houses
// share them, so they never identify a fund on their own.
var categoryWords = map[string]struct{}{
	"large": {}, "mid": {}, "small": {}, "micro": {}, "cap": {},
	"largecap": {}, "midcap": {}, "smallcap": {}, "flexi": {}, "flexicap": {},
	"multi": {}, "multicap": {}, "bluechip": {}, "blue": {}, "chip": {},
	"index": {}, "nifty": {}, "sensex": {}, "equity": {}, "debt": {},
	"hybrid": {}, "balanced": {}, "advantage": {}, "liquid": {}, "gilt": {},
	"elss": {}, "tax": {}, "saver": {}, "value": {}, "focused": {},
	"contra": {}, "dynamic": {}, "arbitrage": {}, "gold": {}, "etf": {},
	"opportunities": {}, "asset": {}, "allocation": {},
}

// PadQuery appends " mutual fund" to names of shortWords words or fewer so
// short names embed closer to fund documents.
func PadQuery(name string, shortWords int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	if len(strings.Fields(name)) <= shortWords {
		return name + " mutual fund"
	}
	return name
}

// PlausibleMatch reports whether retrieved is a credible answer for a request
// naming requested. Nearest-neighbour search always returns something, so
// a fund that does not exist would otherwise resolve to an unrelated one.
//
// The leading distinctive token of the request, usually the fund house, must
// appear in the retrieved name, enough of the other distinctive tokens must
// match and every category word of the request must match. A request made
// only of category words matches only a retrieved name that is also made
// only of category words.
func PlausibleMatch(requested, retrieved string) bool {
	want := nameTokens(requested)
	have := newTokenSet(nameTokens(retrieved))
	if len(want) == 0 || len(have.tokens) == 0 {
		return false
	}

	wantKey := distinctive(want)
	if len(wantKey) == 0 {
		return len(distinctive(have.tokens)) == 0 && have.overlap(want) == 1
	}
	if !have.matches(wantKey[0]) {
		return false
	}
	if category := categoryTokens(want); len(category) > 0 && have.overlap(category) < 1 {
		return false
	}
	return have.overlap(wantKey) >= minNameOverlap
}

type tokenSet struct {
	tokens []string
	set    map[string]struct{}
	joined string
}

func newTokenSet(tokens []string) tokenSet {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return tokenSet{tokens: tokens, set: set, joined: strings.Join(tokens, "")}
}

// matches accepts exact tokens, joined spellings ("flexicap" against
// "flexi cap") and abbreviations ("pru" against "prudential").
func (s tokenSet) matches(tok string) bool {
	if _, ok := s.set[tok]; ok {
		return true
	}
	if len(tok) >= 4 && strings.Contains(s.joined, tok) {
		return true
	}
	if len(tok) >= 3 {
		for _, t := range s.tokens {
			if strings.HasPrefix(t, tok) {
				return true
			}
		}
	}
	return false
}

func (s tokenSet) overlap(tokens []string) float64 {
	matched := 0
	for _, tok := range tokens {
		if s.matches(tok) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

func distinctive(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if _, generic := categoryWords[t]; !generic {
			out = append(out, t)
		}
	}
	return out
}

func categoryTokens(tokens []string) []string {
	var out []string
	for _, t := range tokens {
		if _, generic := categoryWords[t]; generic {
			out = append(out, t)
		}
	}
	return out
}

func nameTokens(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := nameStopwords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}
