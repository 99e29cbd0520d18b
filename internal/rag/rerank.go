package rag

import (
	"sort"
	"strings"
	"unicode"
)

const (
	lexicalLengthScale = float32(10.0)
	maxLexicalScore    = float32(0.4)
	headingMatchBonus  = float32(0.1)
)

var lexicalStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

// lexicalScore computes a lightweight lexical relevance score for a text relative to a query.
// Matches in label (a title or record identifier) add a fixed bonus. The score is clamped to
// [0, maxLexicalScore].
func lexicalScore(query, text, label string) float32 {
	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 {
		return 0
	}

	chunkTokens := tokenize(text)
	if len(chunkTokens) == 0 {
		return 0
	}

	chunkFreq := make(map[string]int, len(chunkTokens))
	for _, token := range chunkTokens {
		chunkFreq[token]++
	}

	var rawMatches int
	for _, token := range queryTokens {
		rawMatches += chunkFreq[token]
	}

	score := (float32(rawMatches) / (1 + float32(len(chunkTokens)))) * lexicalLengthScale

	if label != "" {
		headingTokens := tokenize(label)
		if len(headingTokens) > 0 {
			headingSet := make(map[string]struct{}, len(headingTokens))
			for _, token := range headingTokens {
				headingSet[token] = struct{}{}
			}
			var headingMatches int
			for _, token := range queryTokens {
				if _, ok := headingSet[token]; ok {
					headingMatches++
				}
			}
			score += float32(headingMatches) * headingMatchBonus
		}
	}

	if score > maxLexicalScore {
		return maxLexicalScore
	}
	if score < 0 {
		return 0
	}
	return score
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	clean := builder.String()
	tokens := strings.Fields(clean)
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

func filterStopwords(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}

	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, isStop := lexicalStopwords[token]; isStop {
			continue
		}
		result = append(result, token)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

// SelectRecords returns up to limit records ranked by how many distinct question
// tokens they contain, then by lexicalScore, then by ID. Records sharing no
// query token are excluded.
func SelectRecords(question string, records []Record, limit int) []Record {
	if limit <= 0 || len(records) == 0 {
		return nil
	}
	queryTokens := filterStopwords(tokenize(question))
	if len(queryTokens) == 0 {
		return nil
	}

	type scored struct {
		record   Record
		coverage int
		lexical  float32
	}
	ranked := make([]scored, 0, len(records))
	for _, r := range records {
		present := tokenSet(r.Text + " " + r.ID)
		coverage := 0
		seen := make(map[string]struct{}, len(queryTokens))
		for _, t := range queryTokens {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if _, ok := present[t]; ok {
				coverage++
			}
		}
		if coverage == 0 {
			continue
		}
		ranked = append(ranked, scored{record: r, coverage: coverage, lexical: lexicalScore(question, r.Text, r.ID)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].coverage != ranked[j].coverage {
			return ranked[i].coverage > ranked[j].coverage
		}
		if ranked[i].lexical != ranked[j].lexical {
			return ranked[i].lexical > ranked[j].lexical
		}
		return ranked[i].record.ID < ranked[j].record.ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]Record, len(ranked))
	for i, s := range ranked {
		out[i] = s.record
	}
	return out
}
