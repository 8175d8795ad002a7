// Package tokenizer splits text into normalized word tokens for lexical scoring.
package tokenizer

import (
	"regexp"
	"strings"
)

// nonWord matches every character that is neither an ASCII word character nor whitespace.
var nonWord = regexp.MustCompile(`[^\w\s]`)

// Tokenize lowercases text, replaces punctuation with spaces and splits on whitespace.
// Empty tokens are dropped.
func Tokenize(text string) []string {
	return strings.Fields(nonWord.ReplaceAllString(strings.ToLower(text), " "))
}

// Document is a tokenized text with its term frequencies.
type Document struct {
	Tokens []string
	TF     map[string]int
}

// NewDocument tokenizes text and counts term frequencies.
func NewDocument(text string) Document {
	tokens := Tokenize(text)
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return Document{Tokens: tokens, TF: tf}
}

// Len returns the document length in tokens.
func (d *Document) Len() int { return len(d.Tokens) }

// Contains reports whether term occurs in the document.
func (d *Document) Contains(term string) bool { return d.TF[term] > 0 }
