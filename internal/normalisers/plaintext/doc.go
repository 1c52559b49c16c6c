// Package plaintext provides a Normaliser implementation for text bodies
// such as text filings, CSV exports and JSON.
package plaintext
