package domain

// RetrievedChunk is a stored span of source text returned by vector search.
// Chunks are immutable once indexed; the vector itself stays inside the
// vector store and never crosses this boundary.
type RetrievedChunk struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}
