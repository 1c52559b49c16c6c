// Package textsource implements driven.TextSource.
//
// Text inputs pass through unchanged. url inputs are fetched over HTTP and
// handed to the normaliser registered for the response Content-Type. A
// .docx URL answered as application/zip is treated as a Word document. pdf
// inputs are downloaded, or read from disk when the payload is a local
// path, and handed to the PDF normaliser.
//
// Fetches share a token-bucket rate limiter. A 429 response with a
// Retry-After header pauses every fetch until the server's window passes.
package textsource
