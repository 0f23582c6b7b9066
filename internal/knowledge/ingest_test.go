package knowledge

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seon-creator/SSG-EDU-Project/internal/models"
)

type fakeDocStore struct {
	mu     sync.Mutex
	docs   map[string]*models.Document // by source
	chunks []*models.Chunk
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: map[string]*models.Document{}}
}

func (f *fakeDocStore) GetDocumentBySource(ctx context.Context, source string) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[source], nil
}

func (f *fakeDocStore) UpsertDocument(ctx context.Context, doc *models.Document) (*models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *doc
	f.docs[doc.Source] = &copied

	// Replaces previous version, drop its chunks
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if c.DocumentID != doc.ID {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	return &copied, nil
}

func (f *fakeDocStore) CreateChunk(ctx context.Context, chunk *models.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunk)
	return nil
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const testDoc = `# Influenza Care

Influenza commonly presents with fever, cough and muscle aches.
Most healthy adults recover within a week without treatment.

## Hydration

Drink plenty of fluids and rest.
`

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	store := newFakeDocStore()
	ingestor := NewIngestor(store, &fakeEmbedder{})

	path := writeTestFile(t, t.TempDir(), "flu.md", testDoc)

	result, err := ingestor.IngestFile(ctx, path, IngestOptions{})
	require.NoError(t, err)
	assert.False(t, result.Skipped)
	assert.Equal(t, "Influenza Care", result.Doc.Title)
	assert.Greater(t, result.Chunks, 0)
	assert.Len(t, store.chunks, result.Chunks)
	for _, c := range store.chunks {
		assert.Equal(t, result.Doc.ID, c.DocumentID)
		assert.Len(t, c.Embedding, 384)
	}
}

func TestIngestFileSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	store := newFakeDocStore()
	ingestor := NewIngestor(store, &fakeEmbedder{})

	path := writeTestFile(t, t.TempDir(), "flu.md", testDoc)

	first, err := ingestor.IngestFile(ctx, path, IngestOptions{})
	require.NoError(t, err)
	require.False(t, first.Skipped)

	second, err := ingestor.IngestFile(ctx, path, IngestOptions{})
	require.NoError(t, err)
	assert.True(t, second.Skipped)
	assert.Equal(t, first.Doc.ID, second.Doc.ID)

	forced, err := ingestor.IngestFile(ctx, path, IngestOptions{Force: true})
	require.NoError(t, err)
	assert.False(t, forced.Skipped)
	// Re-ingest keeps the document id stable
	assert.Equal(t, first.Doc.ID, forced.Doc.ID)
}

func TestIngestFileEmptyContent(t *testing.T) {
	ctx := context.Background()
	ingestor := NewIngestor(newFakeDocStore(), &fakeEmbedder{})

	path := writeTestFile(t, t.TempDir(), "empty.md", "   \n\n")

	_, err := ingestor.IngestFile(ctx, path, IngestOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")
}

func TestIngestDirectory(t *testing.T) {
	ctx := context.Background()
	store := newFakeDocStore()
	ingestor := NewIngestor(store, &fakeEmbedder{})

	dir := t.TempDir()
	writeTestFile(t, dir, "a.md", "# A\n\nContent about colds.")
	writeTestFile(t, dir, "b.md", "# B\n\nContent about allergies.")
	writeTestFile(t, dir, "notes.txt", "ignored")

	result, err := ingestor.IngestDirectory(ctx, dir, IngestOptions{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.FilesProcessed)
	assert.Empty(t, result.Errors)
	assert.Len(t, store.docs, 2)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "manifest.yaml", `
paths:
  - docs/guidelines
  - docs/faq.md
recursive: true
concurrency: 2
`)

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/guidelines", "docs/faq.md"}, m.Paths)
	assert.True(t, m.Recursive)
	assert.Equal(t, 2, m.Concurrency)
}

func TestLoadManifestEmpty(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "manifest.yaml", "recursive: true\n")

	_, err := LoadManifest(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no paths")
}
