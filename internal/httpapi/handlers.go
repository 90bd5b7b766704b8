package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/The-Feng/mastra-rag-chatbot/internal/db"
	"github.com/The-Feng/mastra-rag-chatbot/internal/history"
)

type chatRequest struct {
	Query string `json:"query"`
}

type uploadResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Summary string `json:"summary"`
	Message string `json:"message"`
}

type imageResponse struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "Invalid query")
		return
	}

	log.Printf("Received chat query: %s", req.Query)

	stream, err := s.chat.Answer(r.Context(), req.Query)
	if err != nil {
		log.Printf("Chat error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	answer, err := relayStream(w, stream)
	if err != nil {
		log.Printf("Stream error: %v", err)
		return
	}

	if s.history != nil {
		entry := history.Conversation{Query: req.Query, Answer: answer, At: time.Now()}
		if err := s.history.RecordConversation(r.Context(), entry); err != nil {
			log.Printf("Warning: failed to record conversation: %v", err)
		}
	}
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	data, fileName, mimeType, ok := s.readMultipartFile(w, r)
	if !ok {
		return
	}

	log.Printf("Processing file: %s, type: %s, size: %d bytes", fileName, mimeType, len(data))

	// Archiving the raw file is advisory: ingestion proceeds without it.
	var archived bool
	var ref db.CloudStorageRef
	if s.archiver != nil {
		saved, err := s.archiver.Save(r.Context(), data, fileName, mimeType)
		if err != nil {
			log.Printf("Warning: failed to archive upload: %v", err)
		} else {
			archived = true
			ref = db.CloudStorageRef{Key: saved.Key, URL: saved.URL, Provider: saved.Provider}
		}
	}

	result, err := s.documents.IngestFile(r.Context(), data, fileName, mimeType)
	if err != nil {
		log.Printf("Upload processing error: %v", err)
		writeErrorWithSuccess(w, http.StatusInternalServerError, err.Error())
		return
	}

	if archived {
		if err := s.annotator.AttachCloudStorage(r.Context(), result.BatchID, ref); err != nil {
			log.Printf("Warning: failed to attach storage reference: %v", err)
		}
	}

	summary, err := s.chat.Summarize(r.Context())
	if err != nil {
		log.Printf("Summary error: %v", err)
		writeErrorWithSuccess(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.history != nil {
		entry := history.Upload{Source: fileName, BatchID: result.BatchID, Count: result.Count, At: time.Now()}
		if err := s.history.RecordUpload(r.Context(), entry); err != nil {
			log.Printf("Warning: failed to record upload: %v", err)
		}
	}

	log.Printf("File processed successfully, imported %d chunks", result.Count)
	writeJSON(w, http.StatusOK, uploadResponse{
		Success: true,
		Count:   result.Count,
		Summary: summary,
		Message: fmt.Sprintf("Successfully imported %d document chunks", result.Count),
	})
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	data, fileName, mimeType, ok := s.readMultipartFile(w, r)
	if !ok {
		return
	}
	if !strings.HasPrefix(mimeType, "image/") {
		writeErrorWithSuccess(w, http.StatusBadRequest, "File is not an image")
		return
	}

	log.Printf("Processing image: %s, type: %s, size: %d bytes", fileName, mimeType, len(data))

	prompt := imageAnalysisPrompt(fileName)
	description, err := s.vision.DescribeImage(r.Context(), prompt, data, mimeType)
	if err != nil {
		log.Printf("Image analysis error: %v", err)
		writeErrorWithSuccess(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, imageResponse{
		Success:     true,
		Description: description,
		Message:     "Image analysis completed",
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"uploads": []history.Upload{}, "conversations": []history.Conversation{}})
		return
	}

	uploads, err := s.history.RecentUploads(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	conversations, err := s.history.RecentConversations(r.Context(), 20)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uploads":       uploads,
		"conversations": conversations,
	})
}

// readMultipartFile pulls the "file" part out of a multipart request, with
// the 10MB cap applied before parsing.
func (s *Server) readMultipartFile(w http.ResponseWriter, r *http.Request) ([]byte, string, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeErrorWithSuccess(w, http.StatusBadRequest, "Failed to parse form data")
		return nil, "", "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeErrorWithSuccess(w, http.StatusBadRequest, "No file uploaded")
		return nil, "", "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeErrorWithSuccess(w, http.StatusBadRequest, "Failed to read uploaded file")
		return nil, "", "", false
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return data, header.Filename, mimeType, true
}

func imageAnalysisPrompt(imageName string) string {
	return fmt.Sprintf(`Please analyze the image "%s" and provide a detailed description.

Include:
1. The overall scene and main subjects
2. Any visible text, labels or numbers
3. Notable details, colors and composition

Respond in the language most appropriate for the visible content; use Chinese (Simplified Chinese) if it cannot be determined.`, imageName)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErrorWithSuccess matches the upload/image response shape, which always
// carries a success flag.
func writeErrorWithSuccess(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message, "success": false})
}
