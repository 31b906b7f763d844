// Package text turns extracted page text into index terms.
package text

import (
	"iter"
	"strings"
)

// punctuation lists the characters Clean replaces with a space.
const punctuation = `."\/'-:;!?|()[]{}$=+*^~©,`

var punctuationReplacer = newPunctuationReplacer()

func newPunctuationReplacer() *strings.Replacer {
	var pairs []string
	for _, r := range punctuation {
		pairs = append(pairs, string(r), " ")
	}
	return strings.NewReplacer(pairs...)
}

// Clean replaces every punctuation or symbol character with a single space.
// Runs of spaces are left for Tokenize to collapse.
func Clean(s string) string {
	return punctuationReplacer.Replace(s)
}

// isPunctuation reports whether r is removed by Clean.
func isPunctuation(r rune) bool {
	return strings.ContainsRune(punctuation, r)
}

// Tokenize splits s on whitespace runs. Empty fragments are never yielded.
// No case folding, stemming or stop-word removal is applied.
func Tokenize(s string) iter.Seq[string] {
	return strings.FieldsSeq(s)
}

// Terms cleans s and collects its tokens.
//
// Example: "Hello, World!" → ["Hello", "World"]
func Terms(s string) []string {
	var out []string
	for tok := range Tokenize(Clean(s)) {
		out = append(out, tok)
	}
	return out
}

// Join renders terms the way they are stored in the index artifact.
func Join(terms []string) string {
	return strings.Join(terms, " ")
}
