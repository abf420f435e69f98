package adapter

import (
	"bufio"
	"bytes"
	"strings"
)

const (
	fenceMarker   = "```"
	goFenceMarker = "```go"
)

// Snippet is a Go code block embedded in a Markdown document.
type Snippet struct {
	Src []byte
	// LineOffset is the document line of the opening fence; snippet line n is
	// document line LineOffset+n.
	LineOffset int
}

// ExtractSnippets returns the fenced go blocks of a Markdown document that
// form complete files, i.e. start with a package clause.
func ExtractSnippets(doc []byte) []Snippet {
	var (
		snippets []Snippet
		current  *bytes.Buffer
		fence    int
	)

	scanner := bufio.NewScanner(bytes.NewReader(doc))
	scanner.Buffer(make([]byte, 0, 64*1024), len(doc)+1)

	line := 0

	for scanner.Scan() {
		line++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)

		if current == nil {
			if trimmed == goFenceMarker || strings.HasPrefix(trimmed, goFenceMarker+" ") {
				current = &bytes.Buffer{}
				fence = line
			}

			continue
		}

		if trimmed == fenceMarker {
			if isCompleteFile(current.Bytes()) {
				snippets = append(snippets, Snippet{Src: current.Bytes(), LineOffset: fence})
			}

			current = nil

			continue
		}

		current.WriteString(text)
		current.WriteByte('\n')
	}

	return snippets
}

func isCompleteFile(src []byte) bool {
	for _, line := range strings.Split(string(src), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") {
			continue
		}

		return strings.HasPrefix(trimmed, "package ")
	}

	return false
}
