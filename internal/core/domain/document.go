package domain

// Document is the cleaned text of one input submitted for analysis.
type Document struct {
	// Kind is how the text was obtained.
	Kind InputKind

	// URI is the original location for url and pdf inputs.
	URI string

	// Title is the extracted title, when the source provides one.
	Title string

	// Content is the full text after cleaning, before chunking.
	Content string
}

// Chunk is one overlapping window of a document's text.
// Start and End are rune offsets into the cleaned text, End exclusive.
// Content is the window text with surrounding whitespace stripped.
type Chunk struct {
	// Position is the ordinal position within the document.
	Position int

	// Start is the rune offset where the window begins.
	Start int

	// End is the rune offset where the window ends.
	End int

	// Content is the stripped window text.
	Content string
}

// ChunkTexts returns the content of each chunk in order.
func ChunkTexts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return texts
}
