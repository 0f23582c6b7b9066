// Package cli provides the medichat command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seon-creator/SSG-EDU-Project/internal/config"
	"github.com/seon-creator/SSG-EDU-Project/internal/db"
	"github.com/seon-creator/SSG-EDU-Project/internal/knowledge"
	"github.com/seon-creator/SSG-EDU-Project/internal/llm"
	"github.com/seon-creator/SSG-EDU-Project/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and db client
	cfg      config.Config
	dbClient *db.Client

	// Lazy-initialized LLM components
	embedder   *llm.Embedder
	chatModel  *llm.Model
	titleModel *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "medichat",
	Short: "Medical assistant chat backend tooling",
	Long: `Medichat is the operational CLI for the medical assistant chat backend.

It manages the medical knowledge index, runs retrieval-augmented questions
against it, and inspects chat sessions and daily clinical reports.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
	},
}

// getEmbedder lazily initializes the embedding client.
func getEmbedder() (*llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder, nil
}

// getModels lazily initializes the chat and title models.
func getModels(ctx context.Context) (*llm.Model, *llm.Model, error) {
	if chatModel == nil {
		var err error
		chatModel, err = llm.NewModel(ctx, cfg, cfg.ChatModel)
		if err != nil {
			return nil, nil, fmt.Errorf("init chat model: %w", err)
		}
		titleModel, err = llm.NewModel(ctx, cfg, cfg.TitleModel)
		if err != nil {
			return nil, nil, fmt.Errorf("init title model: %w", err)
		}
	}
	return chatModel, titleModel, nil
}

// getChatService wires the full chat stack, LLM included.
func getChatService(ctx context.Context) (*service.ChatService, error) {
	model, title, err := getModels(ctx)
	if err != nil {
		return nil, err
	}
	emb, err := getEmbedder()
	if err != nil {
		return nil, err
	}
	retriever := knowledge.NewRetriever(dbClient, emb, cfg.RetrieveK)
	return service.NewChatService(dbClient, retriever, model, title, cfg.GenerateTimeout, cfg.StreamTimeout), nil
}

// getReportService wires the report pipeline. Reports use the cheaper model.
func getReportService(ctx context.Context) (*service.ReportService, error) {
	_, title, err := getModels(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewReportService(dbClient, title, cfg.GenerateTimeout), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(reportsCmd)
}
