// Package markdown provides a Normaliser for markdown earnings releases and
// filings. Formatting is removed; tables are kept one row per line.
package markdown

import (
	"context"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	frontMatter   = regexp.MustCompile("(?s)\\A---\n.*?\n---\n")
	htmlComment   = regexp.MustCompile(`(?s)<!--.*?-->`)
	codeFence     = regexp.MustCompile("(?m)^[ \t]*(```|~~~).*$")
	inlineCode    = regexp.MustCompile("`([^`\n]+)`")
	image         = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	link          = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLink       = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	linkDef       = regexp.MustCompile(`(?m)^[ \t]*\[[^\]]+\]:\s+\S+.*$`)
	heading       = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	setextRule    = regexp.MustCompile(`(?m)^(=+|-{3,}|\*{3,}|_{3,})[ \t]*$`)
	boldItalic    = regexp.MustCompile(`\*{1,3}([^*\n]+?)\*{1,3}`)
	underscoreEm  = regexp.MustCompile(`(^|[\s(])_{1,3}([^_\n]+?)_{1,3}([\s).,;:!?]|$)`)
	strike        = regexp.MustCompile(`~~([^~\n]+)~~`)
	blockquote    = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	listMarker    = regexp.MustCompile(`(?m)^([ \t]*)[-*+][ \t]+(\[[ xX]\][ \t]+)?`)
	tableDivider  = regexp.MustCompile(`(?m)^[ \t]*\|?[ \t]*:?-{3,}:?[ \t]*(\|[ \t]*:?-{3,}:?[ \t]*)*\|?[ \t]*$`)
	multiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Normaliser handles markdown documents.
type Normaliser struct{}

// New creates a new markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Normalise converts a markdown document to plain text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := strings.ToValidUTF8(string(raw.Content), "\uFFFD")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = frontMatter.ReplaceAllString(content, "")

	return &domain.Document{
		Kind:    domain.InputKindURL,
		URI:     raw.URI,
		Title:   extractTitle(content, raw.URI),
		Content: stripMarkdown(content),
	}, nil
}

// extractTitle returns the first H1 heading, or a title built from the URI.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(stripInline(strings.TrimPrefix(line, "# ")))
		}
	}

	p := uri
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		p = u.Path
	}
	filename := path.Base(p)
	if filename == "/" || filename == "." {
		return ""
	}
	filename = strings.TrimSuffix(filename, path.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	return strings.ReplaceAll(filename, "-", " ")
}

// stripMarkdown removes markdown syntax and keeps the text, including the
// contents of code blocks, which often hold tabular figures.
func stripMarkdown(content string) string {
	content = htmlComment.ReplaceAllString(content, "")
	content = codeFence.ReplaceAllString(content, "")
	content = linkDef.ReplaceAllString(content, "")
	content = tableDivider.ReplaceAllString(content, "")
	content = heading.ReplaceAllString(content, "")
	content = setextRule.ReplaceAllString(content, "")
	content = blockquote.ReplaceAllString(content, "")
	content = listMarker.ReplaceAllString(content, "$1")
	content = stripInline(content)

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = tableRow(line)
	}
	content = strings.Join(lines, "\n")

	content = multiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}

// stripInline removes inline formatting from text.
func stripInline(s string) string {
	s = image.ReplaceAllString(s, "")
	s = link.ReplaceAllString(s, "$1")
	s = refLink.ReplaceAllString(s, "$1")
	s = inlineCode.ReplaceAllString(s, "$1")
	s = boldItalic.ReplaceAllString(s, "$1")
	s = underscoreEm.ReplaceAllString(s, "$1$2$3")
	s = strike.ReplaceAllString(s, "$1")
	return s
}

// tableRow turns "| Revenue | $4.2B |" into "Revenue | $4.2B".
func tableRow(line string) string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "|") || strings.Count(trimmed, "|") < 2 {
		return line
	}

	trimmed = strings.TrimSuffix(strings.TrimPrefix(trimmed, "|"), "|")
	cells := strings.Split(trimmed, "|")
	out := cells[:0]
	for _, c := range cells {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return strings.Join(out, " | ")
}
