// Package extract pulls ticket notes out of HTML pages, such as a puzzle
// description whose examples sit in <pre> blocks.
package extract

import (
	"errors"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoNotes is returned when a page holds no block that looks like notes
var ErrNoNotes = errors.New("no ticket notes found in HTML")

// NotesExtractor finds ticket notes in HTML
type NotesExtractor struct{}

// NewNotesExtractor creates a new notes extractor
func NewNotesExtractor() *NotesExtractor {
	return &NotesExtractor{}
}

// PreBlocks returns the text of every <pre> element, in document order
func (e *NotesExtractor) PreBlocks(htmlContent string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	var blocks []string
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "pre" {
			var b strings.Builder
			collectText(n, &b)
			blocks = append(blocks, b.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return blocks, nil
}

// Extract returns the first <pre> block that declares a target ticket, the
// shape every set of notes has. With several examples on one page, index
// picks among the matching blocks.
func (e *NotesExtractor) Extract(htmlContent string, index int) (string, error) {
	blocks, err := e.PreBlocks(htmlContent)
	if err != nil {
		return "", err
	}

	seen := 0
	for _, block := range blocks {
		if !looksLikeNotes(block) {
			continue
		}
		if seen == index {
			return block, nil
		}
		seen++
	}
	return "", ErrNoNotes
}

// IsHTML reports whether a response body should be treated as HTML
func IsHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := strings.ToLower(strings.TrimSpace(string(body[:min(len(body), 512)])))
	return strings.HasPrefix(head, "<!doctype html") || strings.HasPrefix(head, "<html")
}

func looksLikeNotes(block string) bool {
	return strings.Contains(block, "your ticket:") && strings.Contains(block, "nearby tickets:")
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}
