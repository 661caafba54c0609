// Package match resolves a logical field name to a custom-value record
// via normalized search terms and an ordered list of matching
// strategies. Matching is a pure function of (records, query,
// vocabulary): no hidden state, identical inputs give identical results.
package match

import (
	"strings"

	"github.com/botpilote/ghlbridge/internal/ghl"
)

// Preview value truncation limits. Diagnostic lists cut at 50 runes, the
// full record index at 20, so large payloads never leak into logs or UI.
const (
	previewLimit = 50
	indexLimit   = 20
)

// Text-candidate heuristic bounds: a value whose length falls strictly
// inside (textMin, textMax) looks like a human-readable message body
// rather than a number or short token.
const (
	textMin = 15
	textMax = 500
)

// RecordPreview is a display-safe projection of a record.
type RecordPreview struct {
	Key          string  `json:"key"`
	Name         *string `json:"name"`
	ValuePreview *string `json:"valuePreview"`
}

// Result is the outcome of one match call.
type Result struct {
	Found            bool
	Record           *ghl.CustomValueRecord
	SearchTerms      []string
	CandidateMatches []RecordPreview
	TextCandidates   []RecordPreview
	AllRecords       []RecordPreview
}

// isWelcomeQuery reports whether the query semantically relates to a
// welcome/introduction/greeting concept.
func isWelcomeQuery(query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(q, "welcome") ||
		strings.Contains(q, "message") ||
		strings.Contains(q, "intro")
}

// SearchTerms generates the normalized term set for a query. Base terms
// come first, in a fixed order; for welcome-style queries the synonym
// vocabulary is unioned in afterwards, each absent synonym expanded into
// its custom_values. and {{ }}-wrapped forms.
func SearchTerms(query string, vocab Vocabulary) []string {
	lower := strings.ToLower(query)
	underscored := strings.ReplaceAll(lower, " ", "_")

	apiNorm := strings.Replace(lower, "api ", "api_", 1)
	apiNorm = strings.Replace(apiNorm, " api", "_api", 1)

	terms := []string{
		lower,
		apiNorm,
		underscored,
		"custom_values." + underscored,
		"{{ custom_values." + underscored + " }}",
		strings.TrimSpace(strings.NewReplacer("{", "", "}", "").Replace(lower)),
	}

	if isWelcomeQuery(query) {
		for _, term := range vocab.WelcomeTerms {
			if contains(terms, term) {
				continue
			}
			terms = append(terms,
				term,
				"custom_values."+term,
				"{{ custom_values."+term+" }}",
			)
		}
	}

	return terms
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// strategy reports whether a record satisfies one matching rule against
// the term set.
type strategy func(rec ghl.CustomValueRecord, terms []string) bool

// strategies in strict priority order: exact key, exact name, key
// substring, name substring. All comparisons are case-insensitive.
var strategies = []strategy{
	func(rec ghl.CustomValueRecord, terms []string) bool {
		key := strings.ToLower(rec.Key)
		for _, t := range terms {
			if key == t {
				return true
			}
		}
		return false
	},
	func(rec ghl.CustomValueRecord, terms []string) bool {
		if rec.Name == "" {
			return false
		}
		name := strings.ToLower(rec.Name)
		for _, t := range terms {
			if name == t {
				return true
			}
		}
		return false
	},
	func(rec ghl.CustomValueRecord, terms []string) bool {
		key := strings.ToLower(rec.Key)
		for _, t := range terms {
			if strings.Contains(key, t) {
				return true
			}
		}
		return false
	},
	func(rec ghl.CustomValueRecord, terms []string) bool {
		if rec.Name == "" {
			return false
		}
		name := strings.ToLower(rec.Name)
		for _, t := range terms {
			if strings.Contains(name, t) {
				return true
			}
		}
		return false
	},
}

// Match finds the best record for a query. The first record satisfying
// the first successful strategy wins; there is no scoring within a
// strategy, upstream array order decides ties.
func Match(records []ghl.CustomValueRecord, query string, vocab Vocabulary) Result {
	terms := SearchTerms(query, vocab)

	var found *ghl.CustomValueRecord
	for _, strat := range strategies {
		for i := range records {
			if strat(records[i], terms) {
				found = &records[i]
				break
			}
		}
		if found != nil {
			break
		}
	}

	lower := strings.ToLower(query)

	// API-credential override: an "openai" query matches any record
	// mentioning openai in its key or name, term list notwithstanding.
	if found == nil && strings.Contains(lower, "openai") {
		for i := range records {
			if strings.Contains(strings.ToLower(records[i].Key), "openai") ||
				strings.Contains(strings.ToLower(records[i].Name), "openai") {
				found = &records[i]
				break
			}
		}
	}

	// Welcome override: a broader second pass using only the synonym
	// vocabulary against key/name substrings.
	if found == nil && isWelcomeQuery(query) {
		for i := range records {
			if matchesVocabulary(records[i], vocab) {
				found = &records[i]
				break
			}
		}
	}

	result := Result{
		Found:            found != nil,
		Record:           found,
		SearchTerms:      terms,
		CandidateMatches: []RecordPreview{},
		TextCandidates:   []RecordPreview{},
		AllRecords:       make([]RecordPreview, 0, len(records)),
	}

	// Diagnostics are computed whether or not a primary match was found.
	for _, rec := range records {
		if matchesVocabulary(rec, vocab) {
			result.CandidateMatches = append(result.CandidateMatches, preview(rec, previewLimit))
		}
		if n := len(rec.Value); n > textMin && n < textMax {
			result.TextCandidates = append(result.TextCandidates, preview(rec, previewLimit))
		}
		result.AllRecords = append(result.AllRecords, preview(rec, indexLimit))
	}

	return result
}

// matchesVocabulary reports whether any vocabulary term is a substring
// of the record's key or name.
func matchesVocabulary(rec ghl.CustomValueRecord, vocab Vocabulary) bool {
	key := strings.ToLower(rec.Key)
	name := strings.ToLower(rec.Name)
	for _, term := range vocab.WelcomeTerms {
		if strings.Contains(key, term) {
			return true
		}
		if name != "" && strings.Contains(name, term) {
			return true
		}
	}
	return false
}

func preview(rec ghl.CustomValueRecord, limit int) RecordPreview {
	p := RecordPreview{Key: rec.Key}
	if rec.Name != "" {
		name := rec.Name
		p.Name = &name
	}
	if rec.Value != "" {
		v := Truncate(rec.Value, limit)
		p.ValuePreview = &v
	}
	return p
}

// Truncate cuts s to at most limit runes, appending an ellipsis marker
// when anything was removed.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
