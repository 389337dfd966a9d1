package qa

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	punctPattern      = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)

	// NFD then drop combining marks then recompose. "Café" becomes "cafe".
	diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// stopwords excluded from keyword extraction. French and English, since
// documents and questions arrive in both languages.
var stopwords = map[string]struct{}{
	// French
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {},
	"du": {}, "de": {}, "dans": {}, "est": {}, "sont": {}, "pour": {},
	"que": {}, "qui": {}, "quoi": {}, "quel": {}, "quelle": {}, "quels": {},
	"quelles": {}, "avec": {}, "sur": {}, "par": {}, "pas": {}, "son": {},
	"ses": {}, "aux": {}, "ont": {}, "nous": {}, "vous": {}, "ils": {},
	"elles": {}, "cette": {}, "ces": {}, "comment": {}, "combien": {},
	// English
	"the": {}, "and": {}, "for": {}, "are": {}, "was": {}, "what": {},
	"which": {}, "who": {}, "how": {}, "does": {}, "has": {}, "have": {},
	"this": {}, "that": {}, "with": {}, "from": {}, "its": {},
}

// Normalize lowercases, strips diacritics, replaces punctuation with spaces
// and collapses whitespace. It is idempotent: Normalize(Normalize(s)) ==
// Normalize(s). Every text comparison in the answer path goes through it.
func Normalize(text string) string {
	lowered := strings.ToLower(text)

	stripped, _, err := transform.String(diacriticStripper, lowered)
	if err != nil {
		stripped = lowered
	}

	depunct := punctPattern.ReplaceAllString(stripped, " ")
	collapsed := whitespacePattern.ReplaceAllString(depunct, " ")
	return strings.TrimSpace(collapsed)
}

// Keywords returns the normalized tokens longer than 2 runes that are not
// stopwords, in order of first appearance, deduplicated.
func Keywords(text string) []string {
	tokens := strings.Fields(Normalize(text))

	var keywords []string
	seen := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if len([]rune(token)) <= 2 {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
	}

	return keywords
}

// OverlapRatio measures how much of a's keyword set appears in b's. The
// ratio is asymmetric on purpose: it is the fraction of the QUESTION's
// keywords covered, so a short stored question fully contained in a long
// incoming one scores 1.0.
func OverlapRatio(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}

	bSet := make(map[string]struct{}, len(b))
	for _, kw := range b {
		bSet[kw] = struct{}{}
	}

	matched := 0
	for _, kw := range a {
		if _, ok := bSet[kw]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(a))
}

// ContainsEither reports whether either normalized string contains the
// other. Both arguments must already be normalized.
func ContainsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
