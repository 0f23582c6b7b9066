package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seon-creator/SSG-EDU-Project/internal/knowledge"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base without LLM synthesis",
	Long: `Search the medical knowledge index directly.

Returns matching document fragments ranked by relevance, vector search
first with a keyword fallback. Use 'ask' for an LLM-synthesized answer.

Examples:
  medichat search "fever in infants"
  medichat search "paracetamol dosage" -n 5`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "max results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	emb, err := getEmbedder()
	if err != nil {
		return err
	}
	retriever := knowledge.NewRetriever(dbClient, emb, searchLimit)

	fragments, err := retriever.Retrieve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(fragments) == 0 {
		total, err := dbClient.CountChunks(ctx)
		if err != nil {
			return fmt.Errorf("count chunks: %w", err)
		}
		if total == 0 {
			fmt.Println("The knowledge base is empty. Run 'medichat ingest' to add documents.")
		} else {
			fmt.Printf("No results found across %d indexed chunks.\n", total)
		}
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(fragments))
	for i, frag := range fragments {
		fmt.Printf("%d. [%.3f] %s\n", i+1, frag.Score, frag.Source)
		content := frag.Content
		if !verbose && len(content) > 200 {
			content = content[:200] + "..."
		}
		fmt.Printf("   %s\n\n", content)
	}

	return nil
}
