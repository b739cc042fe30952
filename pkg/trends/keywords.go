// Package trends implements the pure filtering, deduplication and
// market-matching logic. Everything here is deterministic and free of
// side effects; the scanner package wires it into the ingestion flow.
package trends

import "strings"

// PredictionKeywords is the curated inclusion list. A text is topically
// relevant when at least one of these is a case-insensitive substring.
// The entries are unique, so MatchedKeywords needs no dedup.
var PredictionKeywords = []string{
	// events & outcomes
	"election", "vote", "poll", "forecast", "prediction", "odds", "betting",
	"will happen", "will win", "will lose", "outcome", "result",

	// politics
	"trump", "biden", "desantis", "harris", "senate", "congress", "governor",
	"primary", "debate", "campaign", "policy", "executive order",

	// economics & finance
	"inflation", "recession", "fed rate", "stock market", "crash", "rally",
	"earnings", "ipo", "merger", "acquisition", "bankruptcy", "default",
	"bitcoin", "crypto", "ethereum", "sec approval",

	// sports
	"championship", "playoffs", "super bowl", "world series", "finals",
	"mvp", "trade", "draft pick", "injury report", "game 7",

	// tech & business
	"product launch", "apple event", "tesla", "spacex", "ai release",
	"layoffs", "ceo", "scandal", "investigation", "lawsuit",

	// entertainment & culture
	"oscars", "emmys", "grammys", "box office", "streaming numbers",
	"album release", "tour announcement", "controversy",

	// science & climate
	"breakthrough", "clinical trial", "fda approval", "climate summit",
	"emissions target", "vaccine", "pandemic", "outbreak",

	// geopolitics
	"war", "peace talks", "sanctions", "treaty", "alliance", "conflict",
	"summit", "diplomatic", "military action", "ceasefire",
}

// ExclusionKeywords disqualify a text outright, regardless of any
// inclusion matches.
var ExclusionKeywords = []string{
	"nsfw", "porn", "xxx", "onlyfans",
	"buy my", "check out my", "subscribe to",
	"upvote if", "karma", "cake day",
}

// KeywordFilter decides topical relevance of fetched text. The zero
// value is not usable; construct with NewKeywordFilter.
type KeywordFilter struct {
	include []string
	exclude []string
}

// NewKeywordFilter creates a filter with the given lists. Empty slices
// fall back to the compiled-in defaults.
func NewKeywordFilter(include, exclude []string) *KeywordFilter {
	if len(include) == 0 {
		include = PredictionKeywords
	}
	if len(exclude) == 0 {
		exclude = ExclusionKeywords
	}
	return &KeywordFilter{include: include, exclude: exclude}
}

// Relevant reports whether text matches at least one inclusion keyword
// and none of the exclusion keywords. Exclusion always wins.
func (f *KeywordFilter) Relevant(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range f.exclude {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, kw := range f.include {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Matched returns every inclusion keyword found in text, in list order.
// Exclusions are not consulted here.
func (f *KeywordFilter) Matched(text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range f.include {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

// CountMatches returns the number of inclusion keywords present in text,
// used for prioritization.
func (f *KeywordFilter) CountMatches(text string) int {
	return len(f.Matched(text))
}
