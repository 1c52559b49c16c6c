// Package docx provides a Normaliser for Word filings and shareholder
// letters served as Office Open XML. Paragraph text is kept in order and
// table rows become one line with cells joined by " | ".
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"

	// maxPartSize caps a decompressed XML part.
	maxPartSize = 64 << 20
)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Normalise extracts the body text of a DOCX document.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %w", domain.ErrInvalidInput, err)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, err
	}
	content, err := parseDocument(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidInput, documentPart, err)
	}

	return &domain.Document{
		Kind:    domain.InputKindURL,
		URI:     raw.URI,
		Title:   extractTitle(reader, raw.URI),
		Content: content,
	}, nil
}

var errPartMissing = errors.New("part missing")

// readPart returns the decompressed bytes of one archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, f := range reader.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %w", domain.ErrInvalidInput, name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", domain.ErrInvalidInput, name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s %w", domain.ErrInvalidInput, name, errPartMissing)
}

// parseDocument walks word/document.xml. Runs are concatenated into
// paragraphs, paragraphs inside a table cell are joined with a space and
// each table row becomes a single line.
func parseDocument(data []byte) (string, error) {
	var (
		lines  []string
		para   strings.Builder
		cell   strings.Builder
		row    []string
		inText bool
		inCell int
	)

	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte(' ')
			case "br", "cr":
				if inCell > 0 {
					para.WriteByte(' ')
				} else {
					para.WriteByte('\n')
				}
			case "tr":
				row = row[:0]
			case "tc":
				inCell++
				cell.Reset()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				text := strings.TrimSpace(para.String())
				para.Reset()
				if text == "" {
					continue
				}
				if inCell > 0 {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
				} else {
					lines = append(lines, text)
				}
			case "tc":
				if inCell > 0 {
					inCell--
				}
				if text := strings.TrimSpace(cell.String()); text != "" {
					row = append(row, text)
				}
				cell.Reset()
			case "tr":
				if len(row) > 0 {
					lines = append(lines, strings.Join(row, " | "))
				}
				row = row[:0]
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return strings.Join(lines, "\n"), nil
}

// coreProperties is the subset of docProps/core.xml we read.
type coreProperties struct {
	Title string `xml:"title"`
}

// extractTitle returns dc:title, or a title built from the URI.
func extractTitle(reader *zip.Reader, uri string) string {
	if data, err := readPart(reader, corePart); err == nil {
		var core coreProperties
		if err := xml.Unmarshal(data, &core); err == nil {
			if title := strings.TrimSpace(core.Title); title != "" {
				return title
			}
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
