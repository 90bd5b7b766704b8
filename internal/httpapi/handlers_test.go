package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Feng/mastra-rag-chatbot/internal/db"
	"github.com/The-Feng/mastra-rag-chatbot/internal/history"
	"github.com/The-Feng/mastra-rag-chatbot/internal/ingest"
	"github.com/The-Feng/mastra-rag-chatbot/internal/openai"
	"github.com/The-Feng/mastra-rag-chatbot/internal/storage"
)

type stubDocuments struct {
	result ingest.Result
	err    error

	gotName string
	gotMime string
	gotData []byte
}

func (s *stubDocuments) IngestFile(ctx context.Context, data []byte, fileName, mimeType string) (ingest.Result, error) {
	s.gotData = data
	s.gotName = fileName
	s.gotMime = mimeType
	return s.result, s.err
}

type stubChat struct {
	tokens     []string
	answerErr  error
	summary    string
	summaryErr error
}

func (s *stubChat) Answer(ctx context.Context, query string) (*openai.Stream, error) {
	if s.answerErr != nil {
		return nil, s.answerErr
	}
	stream := openai.NewStream(len(s.tokens))
	for _, token := range s.tokens {
		if err := stream.Send(ctx, token); err != nil {
			return nil, err
		}
	}
	stream.Close()
	return stream, nil
}

func (s *stubChat) Summarize(ctx context.Context) (string, error) {
	return s.summary, s.summaryErr
}

type stubVision struct {
	description string
	err         error
}

func (s *stubVision) DescribeImage(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	return s.description, s.err
}

type stubAnnotator struct {
	gotBatch string
	gotRef   db.CloudStorageRef
}

func (s *stubAnnotator) AttachCloudStorage(ctx context.Context, batchID string, ref db.CloudStorageRef) error {
	s.gotBatch = batchID
	s.gotRef = ref
	return nil
}

type stubArchiver struct {
	ref Ref
	err error
}

// Ref aliases the storage type so test literals stay short.
type Ref = storage.Ref

func (s *stubArchiver) Save(ctx context.Context, data []byte, fileName, mimeType string) (storage.Ref, error) {
	return s.ref, s.err
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

type serverStubs struct {
	documents *stubDocuments
	chat      *stubChat
	vision    *stubVision
	annotator *stubAnnotator
	archiver  *stubArchiver
	history   history.Store
	pinger    stubPinger
}

func newTestServer(t *testing.T, stubs serverStubs) (*Server, serverStubs) {
	t.Helper()
	if stubs.documents == nil {
		stubs.documents = &stubDocuments{result: ingest.Result{Count: 1, BatchID: "1700000000000"}}
	}
	if stubs.chat == nil {
		stubs.chat = &stubChat{tokens: []string{"ok"}, summary: "a summary"}
	}
	if stubs.vision == nil {
		stubs.vision = &stubVision{description: "an image"}
	}
	if stubs.annotator == nil {
		stubs.annotator = &stubAnnotator{}
	}
	if stubs.archiver == nil {
		stubs.archiver = &stubArchiver{ref: Ref{Key: "uploads/1-doc.txt", URL: "file:///tmp/doc.txt", Provider: "local"}}
	}
	if stubs.history == nil {
		stubs.history = history.NewMemoryStore()
	}

	s := NewServer(Config{Host: "127.0.0.1", Port: 0},
		stubs.documents, stubs.chat, stubs.vision, stubs.annotator,
		stubs.archiver, stubs.history, stubs.pinger)
	return s, stubs
}

func multipartBody(t *testing.T, field, fileName, mimeType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name=%q; filename=%q`, field, fileName)}
	hdr["Content-Type"] = []string{mimeType}
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthOK(t *testing.T) {
	s, _ := newTestServer(t, serverStubs{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHealthDegradedWhenDatabaseUnreachable(t *testing.T) {
	s, _ := newTestServer(t, serverStubs{pinger: stubPinger{err: fmt.Errorf("no route")}})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestChatStreamsAnswer(t *testing.T) {
	s, stubs := newTestServer(t, serverStubs{chat: &stubChat{tokens: []string{"The sky ", "is blue."}}})

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"query":"What color is the sky?"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "The sky is blue.", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	conversations, err := stubs.history.RecentConversations(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, "What color is the sky?", conversations[0].Query)
	assert.Equal(t, "The sky is blue.", conversations[0].Answer)
}

func TestChatRejectsEmptyQuery(t *testing.T) {
	s, _ := newTestServer(t, serverStubs{})

	for _, body := range []string{`{}`, `{"query":"  "}`, `not json`} {
		req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
		assert.JSONEq(t, `{"error":"Invalid query"}`, rec.Body.String())
	}
}

func TestChatAnswerFailure(t *testing.T) {
	s, _ := newTestServer(t, serverStubs{chat: &stubChat{answerErr: fmt.Errorf("retrieval broke")}})

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"query":"hi"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "retrieval broke")
}

func TestUploadFlow(t *testing.T) {
	documents := &stubDocuments{result: ingest.Result{Count: 7, BatchID: "1700000000001"}}
	chat := &stubChat{summary: "Document covers revenue."}
	s, stubs := newTestServer(t, serverStubs{documents: documents, chat: chat})

	body, contentType := multipartBody(t, "file", "report.txt", "text/plain", []byte("quarterly report"))
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 7, resp.Count)
	assert.Equal(t, "Document covers revenue.", resp.Summary)
	assert.Equal(t, "Successfully imported 7 document chunks", resp.Message)

	assert.Equal(t, "report.txt", documents.gotName)
	assert.Equal(t, "text/plain", documents.gotMime)
	assert.Equal(t, []byte("quarterly report"), documents.gotData)

	// The archive back-reference was attached to the ingested batch.
	assert.Equal(t, "1700000000001", stubs.annotator.gotBatch)
	assert.Equal(t, "uploads/1-doc.txt", stubs.annotator.gotRef.Key)

	uploads, err := stubs.history.RecentUploads(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "report.txt", uploads[0].Source)
	assert.Equal(t, 7, uploads[0].Count)
}

func TestUploadWithoutFilePart(t *testing.T) {
	s, _ := newTestServer(t, serverStubs{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, "No file uploaded", resp["error"])
}

func TestUploadIngestionFailure(t *testing.T) {
	documents := &stubDocuments{err: fmt.Errorf("no extractable text content")}
	s, stubs := newTestServer(t, serverStubs{documents: documents})

	body, contentType := multipartBody(t, "file", "blank.txt", "text/plain", []byte("   "))
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])

	uploads, err := stubs.history.RecentUploads(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, uploads)
}

func TestUploadArchiveFailureIsAdvisory(t *testing.T) {
	s, stubs := newTestServer(t, serverStubs{archiver: &stubArchiver{err: fmt.Errorf("disk full")}})

	body, contentType := multipartBody(t, "file", "doc.txt", "text/plain", []byte("content"))
	req := httptest.NewRequest("POST", "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, stubs.annotator.gotBatch)
}

func TestImageDescription(t *testing.T) {
	s, _ := newTestServer(t, serverStubs{vision: &stubVision{description: "a red square"}})

	body, contentType := multipartBody(t, "file", "shape.png", "image/png", []byte{1, 2, 3})
	req := httptest.NewRequest("POST", "/api/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp imageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "a red square", resp.Description)
}

func TestImageRejectsNonImageType(t *testing.T) {
	s, _ := newTestServer(t, serverStubs{})

	body, contentType := multipartBody(t, "file", "doc.pdf", "application/pdf", []byte("%PDF"))
	req := httptest.NewRequest("POST", "/api/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "File is not an image")
}

func TestHistoryEndpoint(t *testing.T) {
	store := history.NewMemoryStore()
	require.NoError(t, store.RecordUpload(context.Background(), history.Upload{Source: "a.txt", BatchID: "1", Count: 2}))
	require.NoError(t, store.RecordConversation(context.Background(), history.Conversation{Query: "q", Answer: "a"}))
	s, _ := newTestServer(t, serverStubs{history: store})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Uploads       []history.Upload       `json:"uploads"`
		Conversations []history.Conversation `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Uploads, 1)
	assert.Equal(t, "a.txt", resp.Uploads[0].Source)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "q", resp.Conversations[0].Query)
}

func TestRoutesRejectWrongMethod(t *testing.T) {
	s, _ := newTestServer(t, serverStubs{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
