package models

import "time"

// Document is a knowledge-base source document (clinical guideline, leaflet,
// FAQ). Documents are chunked and embedded at ingest time.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Source    string    `json:"source"` // file path or URL the document came from
	Hash      string    `json:"hash"`   // content hash, used to skip unchanged re-ingests
	CreatedAt time.Time `json:"created_at"`
}

// Chunk is an embedded slice of a document, the unit of retrieval.
type Chunk struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Position   int       `json:"position"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// Fragment is a retrieved chunk with its similarity score. Fragments ground
// assistant answers and are never persisted by the chat pipeline.
type Fragment struct {
	ID      string  `json:"id"` // chunk id, recorded as source attribution
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"` // originating document title or path
}
