package html

import (
	"context"
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML pages such as filings and press releases.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Normalise converts an HTML page to a document whose Content is the
// readable text. Table cells are kept on one line separated by " | " so
// rows of figures stay together through chunking.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content := string(raw.Content)

	return &domain.Document{
		Kind:    domain.InputKindURL,
		URI:     raw.URI,
		Title:   extractHTMLTitle(content, raw.URI),
		Content: stripHTML(content),
	}, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag     = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	dropElements = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script(\s[^>]*)?>.*?</script>`),
		regexp.MustCompile(`(?is)<style(\s[^>]*)?>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript(\s[^>]*)?>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head(\s[^>]*)?>.*?</head>`),
		regexp.MustCompile(`(?is)<svg(\s[^>]*)?>.*?</svg>`),
		regexp.MustCompile(`(?is)<nav(\s[^>]*)?>.*?</nav>`),
		regexp.MustCompile(`(?is)<header(\s[^>]*)?>.*?</header>`),
		regexp.MustCompile(`(?is)<footer(\s[^>]*)?>.*?</footer>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}
	cellEnd           = regexp.MustCompile(`(?i)</t[dh]>`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|h[1-6]|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	lineBreaks        = regexp.MustCompile(`(?i)<(br|hr)\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t\x{00a0}]+`)
	trailingCell      = regexp.MustCompile(`(\s*\|\s*)+$`)
)

// extractHTMLTitle returns the <title> text, or a name derived from the URI.
func extractHTMLTitle(content, uri string) string {
	if matches := titleTag.FindStringSubmatch(content); len(matches) > 1 {
		title := strings.TrimSpace(html.UnescapeString(matches[1]))
		if title != "" {
			return multiSpaces.ReplaceAllString(title, " ")
		}
	}
	return titleFromURI(uri)
}

// titleFromURI turns ".../aapl-10q_2024.htm" into "aapl 10q 2024".
func titleFromURI(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Host != "" {
		p = u.Path
	}
	name := path.Base(p)
	if name == "/" || name == "." || name == "" {
		return ""
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// stripHTML removes markup and returns one line per block of text.
func stripHTML(content string) string {
	for _, re := range dropElements {
		content = re.ReplaceAllString(content, "")
	}

	content = cellEnd.ReplaceAllString(content, " | ")
	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = lineBreaks.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(trailingCell.ReplaceAllString(line, ""))
		if line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n")
}
