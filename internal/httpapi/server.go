package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/The-Feng/mastra-rag-chatbot/internal/db"
	"github.com/The-Feng/mastra-rag-chatbot/internal/history"
	"github.com/The-Feng/mastra-rag-chatbot/internal/ingest"
	"github.com/The-Feng/mastra-rag-chatbot/internal/openai"
	"github.com/The-Feng/mastra-rag-chatbot/internal/storage"
)

// Uploads above this size are rejected before parsing.
const maxUploadBytes = 10 << 20

// DocumentService ingests uploaded files.
type DocumentService interface {
	IngestFile(ctx context.Context, data []byte, fileName, mimeType string) (ingest.Result, error)
}

// ChatService answers questions and summarizes the active document.
type ChatService interface {
	Answer(ctx context.Context, query string) (*openai.Stream, error)
	Summarize(ctx context.Context) (string, error)
}

// VisionService describes uploaded images.
type VisionService interface {
	DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// BatchAnnotator patches the cloud-storage back-reference into an upload
// batch after the fact.
type BatchAnnotator interface {
	AttachCloudStorage(ctx context.Context, batchID string, ref db.CloudStorageRef) error
}

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP surface of the application.
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux

	documents DocumentService
	chat      ChatService
	vision    VisionService
	annotator BatchAnnotator
	archiver  storage.Archiver
	history   history.Store
	db        Pinger
}

// Config holds server configuration
type Config struct {
	Host string
	Port int
}

// NewServer creates the HTTP server and wires its routes.
func NewServer(
	cfg Config,
	documents DocumentService,
	chat ChatService,
	vision VisionService,
	annotator BatchAnnotator,
	archiver storage.Archiver,
	historyStore history.Store,
	dbPing Pinger,
) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		documents: documents,
		chat:      chat,
		vision:    vision,
		annotator: annotator,
		archiver:  archiver,
		history:   historyStore,
		db:        dbPing,
	}

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
		// No WriteTimeout: chat responses stream for as long as the model
		// produces tokens.
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/health", s.handleHealth)
	s.router.HandleFunc("POST /api/chat", s.handleChat)
	s.router.HandleFunc("POST /api/upload", s.handleUpload)
	s.router.HandleFunc("POST /api/image", s.handleImage)
	s.router.HandleFunc("GET /api/history", s.handleHistory)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server running on http://%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
