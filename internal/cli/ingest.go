package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seon-creator/SSG-EDU-Project/internal/knowledge"
)

var (
	ingestRecursive   bool
	ingestConcurrency int
	ingestForce       bool
	ingestManifest    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Index Markdown documents into the medical knowledge base",
	Long: `Ingest Markdown files or directories into the knowledge index.

Each file is parsed, chunked, embedded, and stored. Files whose content is
unchanged since the last run are skipped unless --force is given.

A YAML manifest can describe a reusable ingestion set:

  paths:
    - /data/guidelines
    - /data/leaflets/fever.md
  recursive: true
  concurrency: 4

Examples:
  medichat ingest ./guidelines --recursive
  medichat ingest fever.md cough.md
  medichat ingest --manifest corpus.yaml`,
	Args: cobra.ArbitraryArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestRecursive, "recursive", "r", false, "descend into subdirectories")
	ingestCmd.Flags().IntVarP(&ingestConcurrency, "concurrency", "c", 4, "parallel workers")
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-ingest unchanged files")
	ingestCmd.Flags().StringVarP(&ingestManifest, "manifest", "m", "", "YAML manifest describing what to ingest")
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestManifest == "" && len(args) == 0 {
		return fmt.Errorf("provide at least one path or --manifest")
	}

	ctx := context.Background()
	emb, err := getEmbedder()
	if err != nil {
		return err
	}
	ingestor := knowledge.NewIngestor(dbClient, emb)

	opts := knowledge.IngestOptions{
		Recursive:   ingestRecursive,
		Concurrency: ingestConcurrency,
		Force:       ingestForce,
	}

	var result *knowledge.IngestResult
	if ingestManifest != "" {
		manifest, err := knowledge.LoadManifest(ingestManifest)
		if err != nil {
			return fmt.Errorf("load manifest: %w", err)
		}
		result, err = ingestor.IngestManifest(ctx, manifest, opts)
		if err != nil {
			return fmt.Errorf("ingest manifest: %w", err)
		}
	} else {
		result, err = ingestPaths(ctx, ingestor, args, opts)
		if err != nil {
			return err
		}
	}

	fmt.Printf("Files processed: %d\n", result.FilesProcessed)
	fmt.Printf("Files skipped:   %d\n", result.FilesSkipped)
	fmt.Printf("Chunks created:  %d\n", result.ChunksCreated)
	if len(result.Errors) > 0 {
		fmt.Printf("\nWarnings (%d):\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return nil
}

// ingestPaths ingests a mix of files and directories from the command line.
func ingestPaths(ctx context.Context, ingestor *knowledge.Ingestor, paths []string, opts knowledge.IngestOptions) (*knowledge.IngestResult, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			collected, err := ingestor.CollectFiles(path, opts.Recursive)
			if err != nil {
				return nil, fmt.Errorf("collect %s: %w", path, err)
			}
			files = append(files, collected...)
		} else {
			files = append(files, path)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no Markdown files found under the given paths")
	}

	return ingestor.IngestFiles(ctx, files, opts)
}
