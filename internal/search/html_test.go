package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsHTML(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"plain text", false},
		{"# Markdown heading", false},
		{"a < b and c > d", false},
		{"<p>paragraph</p>", true},
		{"line<br/>break", true},
		{"<STRONG>loud</STRONG>", true},
		{`<a href="x">link</a>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, containsHTML(tt.input))
		})
	}
}

func TestNormalizeContent(t *testing.T) {
	assert.Equal(t, "", normalizeContent(""))
	assert.Equal(t, "**bold** already", normalizeContent("**bold** already"))
	assert.Equal(t, "Hello **world**", normalizeContent("<p>Hello <strong>world</strong></p>"))
}
