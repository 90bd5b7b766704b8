package httpapi

import (
	"net/http"
	"strings"

	"github.com/The-Feng/mastra-rag-chatbot/internal/openai"
)

// relayStream forwards each token of a completion stream to the response in
// arrival order, flushing after every write so the client sees tokens as they
// are produced. It returns the relayed text and the stream's terminal error.
//
// Failure semantics depend on whether output has started: before the first
// token the caller still owns the response and gets a structured error;
// afterwards the body is simply truncated, with no trailing error payload
// mixed into the text.
func relayStream(w http.ResponseWriter, stream *openai.Stream) (string, error) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	flusher, _ := w.(http.Flusher)

	var relayed strings.Builder
	for token := range stream.Tokens() {
		if _, err := w.Write([]byte(token)); err != nil {
			// The sink is gone; stop writing. The producer side is unwound
			// by the request context.
			return relayed.String(), err
		}
		relayed.WriteString(token)
		if flusher != nil {
			flusher.Flush()
		}
	}

	if err := stream.Err(); err != nil {
		if relayed.Len() == 0 {
			writeError(w, http.StatusInternalServerError, "Stream error")
		}
		return relayed.String(), err
	}
	return relayed.String(), nil
}
