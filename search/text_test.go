package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		name     string
		document string
		query    string
		want     bool
	}{
		{"all words present", "Alice works at Acme", "alice acme", true},
		{"stop words ignored", "Alice works at Acme", "the Alice of Acme", true},
		{"punctuation trimmed", "Alice, (engineer)!", "engineer?", true},
		{"missing word", "Alice works at Acme", "alice initech", false},
		{"only stop words", "Alice", "the a an", false},
		{"relation names split", "WORKS_AT Alice works at Acme", "works", true},
		{"case insensitive", "ACME Corp", "acme corp", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, containsAllQueryWords(tt.document, tt.query))
		})
	}
}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"alice", "works", "acme"}, terms("Alice WORKS_AT the Acme!"))
	assert.Empty(t, terms("the of and"))
}
