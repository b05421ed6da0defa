package wordcount

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"single word", "hello", 1},
		{"sentence", "You are a helpful assistant.", 5},
		{"punctuation only", "... !!! ???", 0},
		{"extra whitespace", "  spaced   out  words  ", 3},
		{"hyphenated", "well-known fact", 3},
		{"unicode", "héllo wörld", 2},
		{"cjk ideographs count individually", "你好世界", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.in))
		})
	}
}
