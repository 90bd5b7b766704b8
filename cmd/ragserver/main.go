package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/The-Feng/mastra-rag-chatbot/config"
	"github.com/The-Feng/mastra-rag-chatbot/internal/db"
	"github.com/The-Feng/mastra-rag-chatbot/internal/history"
	"github.com/The-Feng/mastra-rag-chatbot/internal/httpapi"
	"github.com/The-Feng/mastra-rag-chatbot/internal/ingest"
	"github.com/The-Feng/mastra-rag-chatbot/internal/openai"
	"github.com/The-Feng/mastra-rag-chatbot/internal/rag"
	"github.com/The-Feng/mastra-rag-chatbot/internal/storage"
)

func main() {
	// .env is optional; environment variables win either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("Error preparing database schema: %v", err)
	}
	log.Println("pgvector database table is ready")

	ai := openai.NewClient(openai.Options{
		BaseURL:        cfg.OpenAI.BaseURL,
		APIKey:         cfg.OpenAI.APIKey,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		ChatModel:      cfg.OpenAI.ChatModel,
		VisionModel:    cfg.OpenAI.VisionModel,
	})

	// The history backend is resolved once here: Redis when configured,
	// in-memory otherwise.
	historyStore, err := history.Open(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("Error opening history store: %v", err)
	}
	defer historyStore.Close()

	archiver, err := storage.NewLocalArchiver(cfg.Uploads.Dir)
	if err != nil {
		log.Fatalf("Error preparing upload archive: %v", err)
	}

	ingestor := ingest.New(database, ai)
	retriever := rag.NewRetriever(database, ai)
	generator := rag.NewGenerator(retriever, ai)

	server := httpapi.NewServer(
		httpapi.Config{Host: cfg.Server.Host, Port: cfg.Server.Port},
		ingestor,
		generator,
		ai,
		database,
		archiver,
		historyStore,
		database,
	)

	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
