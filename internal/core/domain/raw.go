package domain

// RawDocument represents opaque bytes fetched for a url or pdf input.
// It is the fetcher's output before normalisation.
type RawDocument struct {
	// URI is the original location.
	URI string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
