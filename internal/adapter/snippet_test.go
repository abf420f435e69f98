package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSnippets(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    []string
		offsets []int
	}{
		{
			name:    "complete file",
			doc:     "intro\n```go\npackage main\n\nfunc main() {}\n```\n",
			want:    []string{"package main\n\nfunc main() {}\n"},
			offsets: []int{2},
		},
		{
			name: "fragment is skipped",
			doc:  "```go\nx := 1\n```\n",
		},
		{
			name: "other languages are skipped",
			doc:  "```sh\npackage main\n```\n",
		},
		{
			name:    "leading comment before package",
			doc:     "```go\n// Example\npackage p\n```\n",
			want:    []string{"// Example\npackage p\n"},
			offsets: []int{1},
		},
		{
			name:    "several blocks",
			doc:     "```go\npackage a\n```\ntext\n```go\npackage b\n```\n",
			want:    []string{"package a\n", "package b\n"},
			offsets: []int{1, 5},
		},
		{
			name: "unterminated fence",
			doc:  "```go\npackage a\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snippets := ExtractSnippets([]byte(tt.doc))
			require.Len(t, snippets, len(tt.want))

			for i, snippet := range snippets {
				assert.Equal(t, tt.want[i], string(snippet.Src))
				assert.Equal(t, tt.offsets[i], snippet.LineOffset)
			}
		})
	}
}
