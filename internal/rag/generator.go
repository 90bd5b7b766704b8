package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/The-Feng/mastra-rag-chatbot/internal/db"
	"github.com/The-Feng/mastra-rag-chatbot/internal/openai"
)

const (
	contextSeparator = "\n---\n"

	// Retrieval depth differs between the two operations: interactive answers
	// need sharp context, a summary needs coverage.
	answerTopK  = 3
	summaryTopK = 5

	summaryQuery = "Please summarize the main content of this document, including key points, important information, and key conclusions."

	// Returned instead of invoking the model when retrieval finds nothing.
	emptySummaryMessage = "Unable to find document content for summarization."
)

// ContextRetriever supplies ranked in-scope records for a query.
type ContextRetriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]db.Record, error)
}

// Completer produces a token stream for a prompt.
type Completer interface {
	StreamChat(ctx context.Context, prompt string) (*openai.Stream, error)
}

// Generator assembles prompts from retrieved context and invokes the
// completion model, streaming for answers and accumulating for summaries.
type Generator struct {
	retriever ContextRetriever
	completer Completer
}

// NewGenerator creates a generator
func NewGenerator(retriever ContextRetriever, completer Completer) *Generator {
	return &Generator{retriever: retriever, completer: completer}
}

// Answer retrieves context for the query and returns the model's token stream
// directly, unbuffered.
func (g *Generator) Answer(ctx context.Context, query string) (*openai.Stream, error) {
	records, err := g.retriever.Retrieve(ctx, query, answerTopK)
	if err != nil {
		return nil, err
	}

	prompt := qaPrompt(joinContext(records), query)
	stream, err := g.completer.StreamChat(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to start answer stream: %w", err)
	}
	return stream, nil
}

// Summarize retrieves context with a fixed internal query and returns the
// full summary text. Implemented over the streaming primitive but exposed
// synchronously: the stream is drained here. With nothing retrieved it
// returns a fixed message and never calls the model.
func (g *Generator) Summarize(ctx context.Context) (string, error) {
	records, err := g.retriever.Retrieve(ctx, summaryQuery, summaryTopK)
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return emptySummaryMessage, nil
	}

	prompt := summaryPrompt(joinContext(records))
	stream, err := g.completer.StreamChat(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to start summary stream: %w", err)
	}

	var full strings.Builder
	for token := range stream.Tokens() {
		full.WriteString(token)
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("summary stream failed: %w", err)
	}
	return full.String(), nil
}

// joinContext concatenates record texts with the fixed separator. Records are
// used as ranked, without deduplication.
func joinContext(records []db.Record) string {
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	return strings.Join(texts, contextSeparator)
}
