// Package textnorm provides the module's default tokenizer: a pure
// function from raw text to a multiset of stemmed tokens. Callers of the
// LSI index may supply their own TokenizeFunc instead.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TokenizeFunc maps text to a multiset of stem tokens (token → count).
type TokenizeFunc func(text string) map[string]int

// normalizer strips accents and folds case before tokenization: NFD
// decompose, drop combining marks, lowercase.
var normalizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Map(unicode.ToLower),
)

// Tokenize is the default TokenizeFunc: normalize, split on
// non-alphanumeric runs, drop stopwords and single-character tokens,
// stem what remains.
func Tokenize(text string) map[string]int {
	normalized, _, err := transform.String(normalizer, text)
	if err != nil {
		normalized = strings.ToLower(text)
	}

	counts := make(map[string]int)
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if len(word) >= 2 && !stopwords[word] {
			counts[stem(word)]++
		}
	}

	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return counts
}

// stemSuffixes is the suffix table, tried in order; each suffix comes
// before any shorter suffix it ends with. A suffix only strips when at
// least four letters of stem remain.
var stemSuffixes = []string{
	"tion", "sion", "ment", "ness", "able", "ible",
	"ful", "less", "ous", "ive", "ing", "ied", "ies",
	"ers", "est", "ely", "ed", "ly", "er", "es", "al", "en", "s",
}

// stem applies coarse English suffix stripping — enough to group related
// terms without pulling in a full stemming library.
func stem(word string) string {
	for _, suffix := range stemSuffixes {
		if len(word) > len(suffix)+3 && strings.HasSuffix(word, suffix) {
			return word[:len(word)-len(suffix)]
		}
	}
	return word
}

var stopwords = map[string]bool{
	"the": true, "be": true, "to": true, "of": true, "and": true,
	"in": true, "that": true, "have": true, "it": true, "for": true,
	"not": true, "on": true, "with": true, "he": true, "as": true,
	"you": true, "do": true, "at": true, "this": true, "but": true,
	"his": true, "by": true, "from": true, "they": true, "we": true,
	"say": true, "her": true, "she": true, "or": true, "an": true,
	"will": true, "my": true, "one": true, "all": true, "would": true,
	"there": true, "their": true, "what": true, "so": true, "up": true,
	"out": true, "if": true, "about": true, "who": true, "get": true,
	"which": true, "go": true, "me": true, "when": true, "make": true,
	"can": true, "like": true, "no": true, "just": true, "him": true,
	"know": true, "take": true, "come": true, "could": true, "than": true,
	"look": true, "use": true, "into": true, "some": true, "them": true,
	"see": true, "other": true, "then": true, "now": true, "only": true,
	"its": true, "also": true, "after": true, "way": true, "our": true,
	"how": true, "more": true, "been": true, "was": true, "were": true,
	"are": true, "is": true, "am": true, "has": true, "had": true,
	"did": true, "does": true, "let": true, "may": true, "should": true,
	"must": true, "shall": true, "very": true, "much": true, "too": true,
}
