// Package knowledge provides ingestion and retrieval for the medical
// knowledge base backing assistant answers.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/seon-creator/SSG-EDU-Project/internal/db"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

// Searcher is the chunk search surface of the database client.
type Searcher interface {
	SearchChunks(ctx context.Context, embedding []float32, k int) ([]db.ChunkMatch, error)
	SearchChunksKeyword(ctx context.Context, query string, k int) ([]db.ChunkMatch, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
}

// Embedder generates embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever finds knowledge fragments relevant to a query. An empty or
// missing index is not an error; retrieval then returns no fragments and the
// assistant answers from the conversation alone.
type Retriever struct {
	store    Searcher
	embedder Embedder
	k        int
}

// NewRetriever creates a retriever. The embedder may be nil, in which case
// retrieval uses full-text search only.
func NewRetriever(store Searcher, embedder Embedder, k int) *Retriever {
	if k <= 0 {
		k = 3
	}
	return &Retriever{store: store, embedder: embedder, k: k}
}

// Retrieve returns up to k fragments ranked by relevance. Vector search is
// preferred; keyword search covers the no-embedder case and embedding
// failures.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]models.Fragment, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	var matches []db.ChunkMatch

	if r.embedder != nil {
		embedding, err := r.embedder.Embed(ctx, query)
		if err != nil {
			slog.Warn("query embedding failed, falling back to keyword search", "error", err)
		} else {
			matches, err = r.store.SearchChunks(ctx, embedding, r.k)
			if err != nil {
				return nil, fmt.Errorf("vector search: %w", err)
			}
		}
	}

	if len(matches) == 0 {
		var err error
		matches, err = r.store.SearchChunksKeyword(ctx, query, r.k)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
	}

	if len(matches) == 0 {
		return nil, nil
	}

	return r.toFragments(ctx, matches), nil
}

// toFragments resolves document attribution for each match. A failed lookup
// degrades to a fragment without a source rather than failing retrieval.
func (r *Retriever) toFragments(ctx context.Context, matches []db.ChunkMatch) []models.Fragment {
	titles := make(map[string]string, len(matches))

	fragments := make([]models.Fragment, 0, len(matches))
	for _, match := range matches {
		source, ok := titles[match.DocumentID]
		if !ok {
			doc, err := r.store.GetDocument(ctx, match.DocumentID)
			if err != nil {
				slog.Warn("document lookup failed", "document_id", match.DocumentID, "error", err)
			} else if doc != nil {
				source = doc.Title
				if source == "" {
					source = doc.Source
				}
			}
			titles[match.DocumentID] = source
		}

		fragments = append(fragments, models.Fragment{
			ID:      match.ID,
			Content: match.Content,
			Score:   match.Score,
			Source:  source,
		})
	}
	return fragments
}
