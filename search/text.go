package search

import (
	"strings"
	"unicode"
)

// Words that never count towards a verbatim match.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "be": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "to": {}, "of": {}, "and": {}, "or": {}, "in": {}, "that": {},
	"has": {}, "have": {}, "it": {}, "for": {}, "not": {}, "on": {}, "with": {},
	"as": {}, "you": {}, "do": {}, "at": {}, "this": {}, "but": {}, "by": {},
	"from": {},
}

// terms lowercases text and splits it on anything that is not a letter or
// digit, so relation names like WORKS_AT yield "works" and "at".
func terms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; !stop {
			out = append(out, f)
		}
	}
	return out
}

// containsAllQueryWords reports whether every non-stop word of query occurs
// in document. A query made only of stop words never matches.
func containsAllQueryWords(document, query string) bool {
	want := terms(query)
	if len(want) == 0 {
		return false
	}
	have := make(map[string]struct{})
	for _, t := range terms(document) {
		have[t] = struct{}{}
	}
	for _, w := range want {
		if _, ok := have[w]; !ok {
			return false
		}
	}
	return true
}
