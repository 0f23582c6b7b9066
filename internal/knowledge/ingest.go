package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/seon-creator/SSG-EDU-Project/internal/llm"
	"github.com/seon-creator/SSG-EDU-Project/internal/models"
	"github.com/seon-creator/SSG-EDU-Project/internal/parser"
)

// DocumentStore is the ingestion surface of the database client.
type DocumentStore interface {
	GetDocumentBySource(ctx context.Context, source string) (*models.Document, error)
	UpsertDocument(ctx context.Context, doc *models.Document) (*models.Document, error)
	CreateChunk(ctx context.Context, chunk *models.Chunk) error
}

// Ingestor loads Markdown documents into the knowledge base.
type Ingestor struct {
	store    DocumentStore
	embedder Embedder
	chunking parser.ChunkConfig
}

// NewIngestor creates an ingestor with default chunking parameters.
func NewIngestor(store DocumentStore, embedder Embedder) *Ingestor {
	return &Ingestor{
		store:    store,
		embedder: embedder,
		chunking: parser.DefaultChunkConfig(),
	}
}

// IngestOptions configures directory and manifest ingestion.
type IngestOptions struct {
	// Recursive processes subdirectories
	Recursive bool
	// Concurrency sets number of parallel workers (default 4)
	Concurrency int
	// Force re-ingests files whose content hash is unchanged
	Force bool
}

// IngestResult summarizes an ingestion operation.
type IngestResult struct {
	FilesProcessed int
	FilesSkipped   int
	ChunksCreated  int
	Errors         []string
}

// FileResult is the outcome of ingesting one file.
type FileResult struct {
	Doc     *models.Document
	Chunks  int
	Skipped bool
}

// IngestFile ingests a single Markdown file. A file whose content hash
// matches the stored document is skipped unless Force is set.
func (s *Ingestor) IngestFile(ctx context.Context, filePath string, opts IngestOptions) (*FileResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.store.GetDocumentBySource(ctx, filePath)
	if err != nil {
		return nil, fmt.Errorf("check existing document: %w", err)
	}
	if existing != nil && existing.Hash == hash && !opts.Force {
		slog.Debug("skipping unchanged file", "file", filePath)
		return &FileResult{Doc: existing, Skipped: true}, nil
	}

	mdoc, err := parser.ParseMarkdown(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse markdown: %w", err)
	}

	title := mdoc.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}

	chunks := parser.ChunkMarkdown(mdoc, s.chunking)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no content to ingest in %s", filePath)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	docID := uuid.NewString()
	if existing != nil {
		// Re-ingest under the same id; UpsertDocument drops old chunks
		docID = existing.ID
	}

	doc, err := s.store.UpsertDocument(ctx, &models.Document{
		ID:     docID,
		Title:  title,
		Source: filePath,
		Hash:   hash,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert document: %w", err)
	}

	for i, c := range chunks {
		err := s.store.CreateChunk(ctx, &models.Chunk{
			ID:         uuid.NewString(),
			DocumentID: doc.ID,
			Position:   c.Position,
			Content:    c.Content,
			Embedding:  embeddings[i],
		})
		if err != nil {
			return nil, fmt.Errorf("create chunk %d: %w", i, err)
		}
	}

	slog.Info("ingested document", "file", filePath, "title", title, "chunks", len(chunks))
	return &FileResult{Doc: doc, Chunks: len(chunks)}, nil
}

// CollectFiles walks a directory and returns all Markdown files.
func (s *Ingestor) CollectFiles(dirPath string, recursive bool) ([]string, error) {
	var files []string
	walkFn := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && !recursive && path != dirPath {
			return filepath.SkipDir
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !d.IsDir() && (ext == ".md" || ext == ".markdown") {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dirPath, walkFn); err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}
	return files, nil
}

// IngestDirectory ingests all Markdown files from a directory.
func (s *Ingestor) IngestDirectory(ctx context.Context, dirPath string, opts IngestOptions) (*IngestResult, error) {
	files, err := s.CollectFiles(dirPath, opts.Recursive)
	if err != nil {
		return nil, err
	}
	return s.IngestFiles(ctx, files, opts)
}

// IngestFiles ingests a list of files with a worker pool. A fatal provider
// error (billing, auth) cancels the remaining work.
func (s *Ingestor) IngestFiles(ctx context.Context, files []string, opts IngestOptions) (*IngestResult, error) {
	if len(files) == 0 {
		return &IngestResult{}, nil
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	slog.Info("starting ingestion", "files", len(files), "concurrency", concurrency)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		filesProcessed atomic.Int32
		filesSkipped   atomic.Int32
		chunksCreated  atomic.Int32
		errorsMu       sync.Mutex
		errs           []string
	)

	fileChan := make(chan string, len(files))
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for file := range fileChan {
				if ctx.Err() != nil {
					return
				}

				slog.Info("processing file", "worker", workerID, "file", filepath.Base(file))

				result, err := s.IngestFile(ctx, file, opts)
				if err != nil {
					errorsMu.Lock()
					errs = append(errs, fmt.Sprintf("%s: %v", file, err))
					errorsMu.Unlock()

					if errors.Is(err, llm.ErrFatalAPI) {
						cancel()
						return
					}
					continue
				}
				if result.Skipped {
					filesSkipped.Add(1)
					continue
				}

				filesProcessed.Add(1)
				chunksCreated.Add(int32(result.Chunks))
			}
		}(i)
	}

	for _, file := range files {
		fileChan <- file
	}
	close(fileChan)

	wg.Wait()

	slog.Info("ingestion complete",
		"processed", filesProcessed.Load(),
		"skipped", filesSkipped.Load(),
		"errors", len(errs))

	return &IngestResult{
		FilesProcessed: int(filesProcessed.Load()),
		FilesSkipped:   int(filesSkipped.Load()),
		ChunksCreated:  int(chunksCreated.Load()),
		Errors:         errs,
	}, nil
}

// Manifest describes an ingestion run: which paths to load and how.
type Manifest struct {
	Paths       []string `yaml:"paths"`
	Recursive   bool     `yaml:"recursive"`
	Concurrency int      `yaml:"concurrency"`
}

// LoadManifest parses a YAML ingestion manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Paths) == 0 {
		return nil, fmt.Errorf("manifest lists no paths")
	}
	return &m, nil
}

// IngestManifest resolves and ingests every path in a manifest. Directories
// are expanded to their Markdown files, other paths are taken as-is.
func (s *Ingestor) IngestManifest(ctx context.Context, m *Manifest, opts IngestOptions) (*IngestResult, error) {
	opts.Recursive = m.Recursive
	if m.Concurrency > 0 {
		opts.Concurrency = m.Concurrency
	}

	var files []string
	for _, p := range m.Paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("invalid path %s: %w", p, err)
		}
		if info.IsDir() {
			dirFiles, err := s.CollectFiles(p, opts.Recursive)
			if err != nil {
				return nil, err
			}
			files = append(files, dirFiles...)
		} else {
			files = append(files, p)
		}
	}

	return s.IngestFiles(ctx, files, opts)
}
