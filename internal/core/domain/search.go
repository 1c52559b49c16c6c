package domain

// RetrievedResult is one nearest-neighbour hit from the vector index.
type RetrievedResult struct {
	// Text is the chunk text stored alongside the vector.
	Text string `json:"text"`

	// Distance is the squared Euclidean distance to the query. Never negative.
	Distance float64 `json:"distance"`
}

// RetrievalOutcome is what the retrieval pipeline hands to generation.
type RetrievalOutcome struct {
	// Results are the retrieved chunks ordered by ascending distance.
	Results []RetrievedResult

	// ChunkCount is the number of chunks the document was split into.
	ChunkCount int
}

// Texts returns the retrieved chunk texts in rank order.
func (o RetrievalOutcome) Texts() []string {
	texts := make([]string, len(o.Results))
	for i, r := range o.Results {
		texts[i] = r.Text
	}
	return texts
}

// IndexStats describes the current vector index contents.
type IndexStats struct {
	TotalVectors int `json:"total_vectors"`
	Dimension    int `json:"dimension"`
	TotalTexts   int `json:"total_texts"`
}

// ChunkConfig reports the chunking parameters in use.
type ChunkConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

// PipelineStats is a snapshot of the analysis pipeline state.
type PipelineStats struct {
	VectorStore    IndexStats  `json:"vector_store"`
	EmbeddingModel string      `json:"embedding_model"`
	LLMModel       string      `json:"llm_model"`
	ChunkConfig    ChunkConfig `json:"chunk_config"`
	TopK           int         `json:"top_k"`
}
