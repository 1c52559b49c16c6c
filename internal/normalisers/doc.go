// Package normalisers provides implementations of the Normaliser interface
// for the document formats finsight can fetch. Each normaliser knows how to
// extract text content from a specific MIME type.
//
// Normalisers are registered with the text source at startup, which picks
// one by the Content-Type of each fetched document.
package normalisers
