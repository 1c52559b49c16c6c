package textsource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/core/ports/driven"
	"github.com/custodia-labs/finsight/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.TextSource = (*Source)(nil)

const (
	// DefaultURLTimeout bounds a web page fetch.
	DefaultURLTimeout = 30 * time.Second

	// DefaultPDFTimeout bounds a PDF download.
	DefaultPDFTimeout = 60 * time.Second

	// DefaultMaxBytes caps the size of a fetched or read document.
	DefaultMaxBytes int64 = 50 << 20

	// DefaultUserAgent is sent with every fetch. Some investor relations
	// sites refuse requests without a browser-like agent.
	DefaultUserAgent = "Mozilla/5.0 (compatible; finsight/1.0; +https://github.com/custodia-labs/finsight)"

	mimePDF       = "application/pdf"
	mimePlainText = "text/plain"
	mimeUnknown   = "application/octet-stream"
	mimeZip       = "application/zip"
	mimeDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// pdfMagic starts every PDF file.
var pdfMagic = []byte("%PDF-")

// Config tunes fetching.
type Config struct {
	URLTimeout        time.Duration
	PDFTimeout        time.Duration
	MaxBytes          int64
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// DefaultConfig returns the fetch settings used by the CLI.
func DefaultConfig() Config {
	return Config{
		URLTimeout:        DefaultURLTimeout,
		PDFTimeout:        DefaultPDFTimeout,
		MaxBytes:          DefaultMaxBytes,
		RequestsPerSecond: 2,
		Burst:             4,
		UserAgent:         DefaultUserAgent,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.URLTimeout <= 0 {
		c.URLTimeout = d.URLTimeout
	}
	if c.PDFTimeout <= 0 {
		c.PDFTimeout = d.PDFTimeout
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = d.MaxBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	return c
}

// Source extracts document text from text, url and pdf inputs.
type Source struct {
	cfg         Config
	client      *http.Client
	limiter     *RateLimiter
	normalisers map[string]driven.Normaliser
}

// New creates a text source. Each normaliser is registered for the MIME
// types it reports; a later normaliser wins on overlap.
func New(cfg Config, normalisers ...driven.Normaliser) *Source {
	cfg = cfg.withDefaults()
	s := &Source{
		cfg:         cfg,
		client:      &http.Client{},
		limiter:     NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		normalisers: make(map[string]driven.Normaliser),
	}
	for _, n := range normalisers {
		s.Register(n)
	}
	return s
}

// Register adds a normaliser for each MIME type it supports.
func (s *Source) Register(n driven.Normaliser) {
	for _, mt := range n.SupportedMIMETypes() {
		s.normalisers[mt] = n
	}
}

// Extract returns the document for one request input.
func (s *Source) Extract(ctx context.Context, kind domain.InputKind, payload string) (*domain.Document, error) {
	var (
		doc *domain.Document
		err error
	)

	switch kind {
	case domain.InputKindText:
		return &domain.Document{Kind: domain.InputKindText, Content: payload}, nil
	case domain.InputKindURL:
		doc, err = s.fromURL(ctx, strings.TrimSpace(payload))
	case domain.InputKindPDF:
		doc, err = s.fromPDF(ctx, strings.TrimSpace(payload))
	default:
		return nil, fmt.Errorf("%w: input type %q", domain.ErrUnsupportedType, kind)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}
	if strings.TrimSpace(doc.Content) == "" {
		return nil, fmt.Errorf("%w: no text could be extracted from %s", domain.ErrExtractionFailure, doc.URI)
	}

	doc.Kind = kind
	return doc, nil
}

func (s *Source) fromURL(ctx context.Context, target string) (*domain.Document, error) {
	if err := checkURL(target); err != nil {
		return nil, err
	}

	raw, err := s.fetch(ctx, target, s.cfg.URLTimeout)
	if err != nil {
		return nil, err
	}
	return s.normalise(ctx, raw)
}

func (s *Source) fromPDF(ctx context.Context, location string) (*domain.Document, error) {
	var (
		raw *domain.RawDocument
		err error
	)

	if isRemote(location) {
		if err := checkURL(location); err != nil {
			return nil, err
		}
		raw, err = s.fetch(ctx, location, s.cfg.PDFTimeout)
	} else {
		raw, err = s.readFile(location)
	}
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(raw.Content, pdfMagic) {
		return nil, fmt.Errorf("%s is not a PDF (content type %s)", location, raw.MIMEType)
	}
	raw.MIMEType = mimePDF
	return s.normalise(ctx, raw)
}

// fetch downloads target under the rate limiter and the given timeout.
func (s *Source) fetch(ctx context.Context, target string, timeout time.Duration) (*domain.RawDocument, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting to fetch %s: %w", target, err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf,text/plain;q=0.9,*/*;q=0.5")

	done := logger.Timed("fetch " + target)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := retryAfter(resp.Header)
		logger.Warn("Rate limited by %s, backing off", req.URL.Host)
		s.limiter.Backoff(wait)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching %s: unexpected status %s", target, resp.Status)
	}

	body, err := readLimited(resp.Body, s.cfg.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", target, err)
	}
	done()

	mediaType := detectMediaType(resp.Header.Get("Content-Type"), body)
	if mediaType == mimeZip && strings.HasSuffix(strings.ToLower(req.URL.Path), ".docx") {
		mediaType = mimeDOCX
	}
	logger.Debug("Fetched %d bytes of %s from %s", len(body), mediaType, target)

	return &domain.RawDocument{URI: target, MIMEType: mediaType, Content: body}, nil
}

func (s *Source) readFile(path string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > s.cfg.MaxBytes {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), s.cfg.MaxBytes)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &domain.RawDocument{URI: path, MIMEType: mimePDF, Content: content}, nil
}

// normalise hands raw to the normaliser for its MIME type. Unknown text
// types fall back to the plain text normaliser.
func (s *Source) normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	n, ok := s.normalisers[raw.MIMEType]
	if !ok && strings.HasPrefix(raw.MIMEType, "text/") {
		n, ok = s.normalisers[mimePlainText]
	}
	if !ok {
		return nil, fmt.Errorf("%w: content type %q", domain.ErrUnsupportedType, raw.MIMEType)
	}
	return n.Normalise(ctx, raw)
}

// errTooLarge is returned when a body exceeds the configured cap.
var errTooLarge = errors.New("document exceeds size limit")

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w of %d bytes", errTooLarge, limit)
	}
	return body, nil
}

// detectMediaType returns the bare media type from a Content-Type header,
// sniffing the body when the header is missing or generic.
func detectMediaType(header string, body []byte) string {
	if mt, _, err := mime.ParseMediaType(header); err == nil && mt != mimeUnknown {
		return mt
	}
	mt, _, err := mime.ParseMediaType(http.DetectContentType(body))
	if err != nil {
		return mimeUnknown
	}
	return mt
}

func isRemote(location string) bool {
	lower := strings.ToLower(location)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}
