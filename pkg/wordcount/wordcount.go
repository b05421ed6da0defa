// Package wordcount approximates model token usage by Unicode word counting.
//
// The session engine budgets conversation history in "tokens", but it does not
// ship a model tokenizer. Counts here are UAX#29 word segments, which tracks
// whitespace-delimited words closely enough for budget enforcement.
package wordcount

import (
	"github.com/clipperhouse/uax29/iterators/filter"
	"github.com/clipperhouse/uax29/words"
)

// Count returns the number of word-like segments in s.
// Punctuation and whitespace segments are not counted.
func Count(s string) int {
	if s == "" {
		return 0
	}

	seg := words.NewSegmenter([]byte(s))
	seg.Filter(filter.Wordlike)

	n := 0
	for seg.Next() {
		n++
	}
	return n
}
