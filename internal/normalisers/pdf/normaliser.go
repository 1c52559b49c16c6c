// Package pdf provides a Normaliser implementation for PDF documents.
// Text is extracted with the pdftotext tool from poppler, which must be
// installed separately.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// toolName is the external text extractor.
const toolName = "pdftotext"

// maxTitleLength bounds the first line accepted as a title.
const maxTitleLength = 200

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// execRunner runs commands with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr strings.Builder
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		return out, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// Normaliser extracts text from PDF bytes.
type Normaliser struct {
	runner   CommandRunner
	lookPath func(string) (string, error)
}

// New creates a PDF normaliser that runs pdftotext.
func New() *Normaliser {
	return NewWithRunner(execRunner{})
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner) *Normaliser {
	return &Normaliser{runner: runner, lookPath: exec.LookPath}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Available reports whether pdftotext can be found.
func (n *Normaliser) Available() bool {
	_, err := n.lookPath(toolName)
	return err == nil
}

// Normalise extracts the text of a PDF. Page layout is preserved so
// tables of figures keep their columns.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !n.Available() {
		return nil, fmt.Errorf("%w. %s", ErrPDFToolNotFound, InstallInstructions())
	}

	tmp, err := os.CreateTemp("", "finsight-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw.Content); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	out, err := n.runner.Run(ctx, toolName, "-layout", "-enc", "UTF-8", tmp.Name(), "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext failed: %w", err)
	}

	// pdftotext separates pages with form feeds.
	content := strings.ReplaceAll(string(out), "\f", "\n")

	return &domain.Document{
		Kind:    domain.InputKindPDF,
		URI:     raw.URI,
		Title:   extractTitle(content, raw.URI),
		Content: content,
	}, nil
}

// extractTitle returns the first short non-empty line, or a name derived
// from the file name.
func extractTitle(content, uri string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) <= maxTitleLength {
			return line
		}
	}

	name := filepath.Base(uri)
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// InstallInstructions explains how to install pdftotext.
func InstallInstructions() string {
	return `pdftotext is required to read PDF files. Install poppler:
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}
