package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/api/booking"
	"github.com/liliang-cn/ragdesk/internal/api/chat"
	"github.com/liliang-cn/ragdesk/internal/api/documents"
	"github.com/liliang-cn/ragdesk/internal/api/health"
	"github.com/liliang-cn/ragdesk/internal/api/response"
	"github.com/liliang-cn/ragdesk/internal/config"
	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/llm"
	"github.com/liliang-cn/ragdesk/internal/repository"
	"github.com/liliang-cn/ragdesk/internal/service"
	"github.com/liliang-cn/ragdesk/internal/validator"
	"github.com/liliang-cn/ragdesk/internal/vectorstore"
	"go.uber.org/zap"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (e stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = e.Embed(ctx, texts[i])
	}
	return out, nil
}

type memStore struct {
	mu     sync.Mutex
	points []vectorstore.Point
}

func (m *memStore) Upsert(ctx context.Context, points []vectorstore.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = append(m.points, points...)
	return nil
}

func (m *memStore) Search(ctx context.Context, vector []float32, limit int, documentIDs []string) ([]vectorstore.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vectorstore.SearchResult
	for _, p := range m.points {
		if len(out) == limit {
			break
		}
		out = append(out, vectorstore.SearchResult{
			ID: p.ID, Score: 0.5, DocumentID: p.DocumentID, DocumentName: p.DocumentName,
			ChunkIndex: p.ChunkIndex, Text: p.Text,
		})
	}
	return out, nil
}

func (m *memStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.points[:0]
	for _, p := range m.points {
		if p.DocumentID != documentID {
			kept = append(kept, p)
		}
	}
	n := len(m.points) - len(kept)
	m.points = kept
	return n, nil
}

// stubLLM answers booking extraction prompts with bookingReply and
// everything else with a fixed answer
type stubLLM struct {
	bookingReply string
}

func (s *stubLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if strings.Contains(messages[0].Content, "booking information extraction") {
		return s.bookingReply, nil
	}
	return "We are open nine to five.", nil
}

func (s *stubLLM) Stream(ctx context.Context, messages []llm.Message, opts llm.Options, onDelta func(string) error) (string, error) {
	answer, _ := s.Complete(ctx, messages, opts)
	for _, part := range strings.SplitAfter(answer, " ") {
		if err := onDelta(part); err != nil {
			return "", err
		}
	}
	return answer, nil
}

type testServer struct {
	router *gin.Engine
	llm    *stubLLM
}

func newTestServer(t *testing.T, apiKey string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server: config.ServerConfig{APIVersion: "v1"},
		Storage: config.StorageConfig{
			UploadDir:        t.TempDir(),
			MaxFileSizeMB:    1,
			AllowedFileTypes: []string{"pdf", "txt"},
		},
		Chunking: config.ChunkingConfig{Size: 80, Overlap: 10, DefaultStrategy: domain.ChunkingRecursive},
		RAG:      config.RAGConfig{TopK: 3, HistoryWindow: 10, PromptHistory: 5},
		LLM:      config.LLMConfig{Temperature: 0.7, MaxTokens: 1000},
		Booking:  config.BookingConfig{OpenHour: 9, CloseHour: 17},
	}

	db, err := repository.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	store := &memStore{}
	stub := &stubLLM{}

	memory := service.NewMemoryService(repository.NewConversationRepository(db), nil, cfg.RAG.HistoryWindow, logger)
	ingestSvc := service.NewIngestService(cfg, repository.NewDocumentRepository(db), stubEmbedder{}, store, logger)
	chatSvc := service.NewChatService(cfg, memory, stubEmbedder{}, store, stub, logger)
	bookingSvc := service.NewBookingService(repository.NewBookingRepository(db), stub,
		validator.NewBookingValidator(cfg.Booking.OpenHour, cfg.Booking.CloseHour), logger)

	router := SetupRouter(Handlers{
		Documents: documents.NewHandler(ingestSvc, cfg.Storage.MaxFileSize()),
		Chat:      chat.NewHandler(chatSvc, memory),
		Booking:   booking.NewHandler(bookingSvc),
		Health:    health.NewHandler("ragdesk", map[string]health.Probe{"sqlite": db.Ping}),
	}, RouterConfig{
		APIPrefix:    cfg.APIPrefix(),
		APIKey:       apiKey,
		AllowOrigins: []string{"*"},
	}, logger)

	return &testServer{router: router, llm: stub}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, filename string, content []byte, strategy string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		part.Write(content)
	}
	if strategy != "" {
		mw.WriteField("chunking_strategy", strategy)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, name string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d: %s", w.Code, status, w.Body.String())
	}
	body := decode[response.ErrorBody](t, w)
	if body.Error != name || body.Message == "" || body.Path == "" || body.Timestamp.IsZero() {
		t.Errorf("error body = %+v, want error %s", body, name)
	}
}

const notes = `Opening hours are Monday to Friday, nine in the morning to five in the afternoon.

Refunds are processed within fourteen days of the request being approved by support.`

func TestDocumentLifecycle(t *testing.T) {
	s := newTestServer(t, "")

	w := s.upload(t, "notes.txt", []byte(notes), "fixed")
	if w.Code != http.StatusOK {
		t.Fatalf("upload status = %d: %s", w.Code, w.Body.String())
	}
	ingested := decode[domain.IngestResponse](t, w)
	if ingested.ChunksCreated == 0 || ingested.StrategyUsed != domain.ChunkingFixed || ingested.Filename != "notes.txt" {
		t.Errorf("ingest response = %+v", ingested)
	}

	list := decode[domain.DocumentListResponse](t, s.do(t, http.MethodGet, "/api/v1/documents", nil))
	if list.Total != 1 || list.Limit != 100 || list.Documents[0].ID != ingested.DocumentID {
		t.Errorf("list = %+v", list)
	}

	w = s.do(t, http.MethodGet, "/api/v1/documents/"+ingested.DocumentID, nil)
	if w.Code != http.StatusOK || strings.Contains(w.Body.String(), "file_path") {
		t.Errorf("get document = %d %s", w.Code, w.Body.String())
	}

	chunks := decode[domain.DocumentChunksResponse](t, s.do(t, http.MethodGet, "/api/v1/documents/"+ingested.DocumentID+"/chunks", nil))
	if chunks.TotalChunks != ingested.ChunksCreated || chunks.Chunks[0].ChunkIndex != 0 {
		t.Errorf("chunks = %+v", chunks)
	}

	w = s.do(t, http.MethodDelete, "/api/v1/documents/"+ingested.DocumentID, nil)
	if deleted := decode[domain.SuccessResponse](t, w); w.Code != http.StatusOK || !deleted.Success {
		t.Errorf("delete = %d %s", w.Code, w.Body.String())
	}

	expectError(t, s.do(t, http.MethodGet, "/api/v1/documents/"+ingested.DocumentID, nil), http.StatusNotFound, "NotFound")
	expectError(t, s.do(t, http.MethodDelete, "/api/v1/documents/"+ingested.DocumentID, nil), http.StatusNotFound, "NotFound")
}

func TestUploadRejects(t *testing.T) {
	s := newTestServer(t, "")

	expectError(t, s.upload(t, "", nil, ""), http.StatusBadRequest, "InvalidRequest")
	expectError(t, s.upload(t, "tool.exe", []byte("MZ"), ""), http.StatusBadRequest, "InvalidFileType")
	expectError(t, s.upload(t, "notes.txt", []byte(notes), "semantic"), http.StatusBadRequest, "InvalidRequest")
	expectError(t, s.upload(t, "big.txt", bytes.Repeat([]byte("a"), 1<<20+1), ""), http.StatusRequestEntityTooLarge, "FileTooLarge")
	expectError(t, s.upload(t, "blank.txt", []byte("  \n\n  "), ""), http.StatusInternalServerError, "TextExtractionError")
	expectError(t, s.do(t, http.MethodGet, "/api/v1/documents?limit=0", nil), http.StatusBadRequest, "InvalidRequest")
}

func TestChat(t *testing.T) {
	s := newTestServer(t, "")
	if w := s.upload(t, "notes.txt", []byte(notes), ""); w.Code != http.StatusOK {
		t.Fatalf("upload = %d: %s", w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodPost, "/api/v1/chat", domain.ChatRequest{Question: "When are you open?", SessionID: "s1"})
	if w.Code != http.StatusOK {
		t.Fatalf("chat = %d: %s", w.Code, w.Body.String())
	}
	answer := decode[domain.ChatResponse](t, w)
	if answer.Answer == "" || len(answer.Sources) == 0 || answer.SessionID != "s1" {
		t.Errorf("chat response = %+v", answer)
	}
	if src := answer.Sources[0]; src.DocumentName != "notes.txt" || src.SimilarityScore != 0.5 {
		t.Errorf("source = %+v", src)
	}

	expectError(t, s.do(t, http.MethodPost, "/api/v1/chat", map[string]string{"session_id": "s1"}), http.StatusBadRequest, "InvalidRequest")
	expectError(t, s.do(t, http.MethodPost, "/api/v1/chat", domain.ChatRequest{Question: "q", SessionID: "s1", TopK: 50}), http.StatusBadRequest, "InvalidRequest")

	history := decode[domain.HistoryResponse](t, s.do(t, http.MethodGet, "/api/v1/chat/history/s1", nil))
	if history.Total != 2 || history.Messages[0].Role != domain.RoleUser {
		t.Errorf("history = %+v", history)
	}
	expectError(t, s.do(t, http.MethodGet, "/api/v1/chat/history/s1?limit=501", nil), http.StatusBadRequest, "InvalidRequest")

	sessions := decode[domain.SessionListResponse](t, s.do(t, http.MethodGet, "/api/v1/chat/sessions", nil))
	if sessions.Total != 1 || sessions.Sessions[0].MessageCount != 2 {
		t.Errorf("sessions = %+v", sessions)
	}

	cleared := decode[domain.SuccessResponse](t, s.do(t, http.MethodDelete, "/api/v1/chat/history/s1", nil))
	if cleared.Message != "Deleted 2 messages from session s1" {
		t.Errorf("clear = %+v", cleared)
	}
}

func TestChatStream(t *testing.T) {
	s := newTestServer(t, "")
	if w := s.upload(t, "notes.txt", []byte(notes), ""); w.Code != http.StatusOK {
		t.Fatalf("upload = %d: %s", w.Code, w.Body.String())
	}

	w := s.do(t, http.MethodPost, "/api/v1/chat/stream", domain.ChatRequest{Question: "Hours?", SessionID: "s1"})
	if w.Code != http.StatusOK {
		t.Fatalf("stream = %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := w.Body.String()
	sources := strings.Index(body, "event:sources")
	content := strings.Index(body, "event:content")
	done := strings.Index(body, "event:done")
	if sources < 0 || content < sources || done < content {
		t.Errorf("events out of order: %s", body)
	}
	if !strings.Contains(body, "notes.txt") {
		t.Errorf("stream lacks sources: %s", body)
	}
}

func TestBooking(t *testing.T) {
	s := newTestServer(t, "")
	date := time.Now().AddDate(0, 0, 2).Format(domain.BookingDateLayout)
	s.llm.bookingReply = fmt.Sprintf("```json\n{\"name\": \"Jane Doe\", \"email\": \"jane@example.com\", \"date\": %q, \"time\": \"10:30\"}\n```", date)

	w := s.do(t, http.MethodPost, "/api/v1/booking", domain.CreateBookingRequest{Message: "Jane Doe, jane@example.com, 10:30", SessionID: "s1"})
	if w.Code != http.StatusOK {
		t.Fatalf("create = %d: %s", w.Code, w.Body.String())
	}
	created := decode[domain.BookingResponse](t, w)
	if created.ID == "" || created.Status != domain.BookingStatusPending || created.Date != date || created.Message != "Booking created successfully" {
		t.Errorf("created = %+v", created)
	}

	got := decode[domain.BookingResponse](t, s.do(t, http.MethodGet, "/api/v1/booking/"+created.ID, nil))
	if got.ID != created.ID || got.Email != "jane@example.com" {
		t.Errorf("get = %+v", got)
	}

	w = s.do(t, http.MethodPatch, "/api/v1/booking/"+created.ID, map[string]string{"status": "confirmed"})
	if updated := decode[domain.BookingResponse](t, w); w.Code != http.StatusOK || updated.Status != domain.BookingStatusConfirmed {
		t.Errorf("patch = %d %s", w.Code, w.Body.String())
	}
	expectError(t, s.do(t, http.MethodPatch, "/api/v1/booking/"+created.ID, map[string]string{"status": "done"}), http.StatusBadRequest, "InvalidRequest")
	expectError(t, s.do(t, http.MethodPatch, "/api/v1/booking/missing", map[string]string{"status": "cancelled"}), http.StatusNotFound, "NotFound")

	list := decode[domain.BookingListResponse](t, s.do(t, http.MethodGet, "/api/v1/booking?status=confirmed", nil))
	if list.Total != 1 {
		t.Errorf("list = %+v", list)
	}
	expectError(t, s.do(t, http.MethodGet, "/api/v1/booking?status=archived", nil), http.StatusBadRequest, "InvalidRequest")

	session := decode[domain.BookingListResponse](t, s.do(t, http.MethodGet, "/api/v1/booking/session/s1", nil))
	if session.Total != 1 {
		t.Errorf("session bookings = %+v", session)
	}

	upcoming := decode[domain.BookingListResponse](t, s.do(t, http.MethodGet, "/api/v1/booking/upcoming?days=7", nil))
	if upcoming.Total != 1 {
		t.Errorf("upcoming = %+v", upcoming)
	}

	stats := decode[domain.BookingStats](t, s.do(t, http.MethodGet, "/api/v1/booking/stats", nil))
	if stats.Total != 1 || stats.Confirmed != 1 {
		t.Errorf("stats = %+v", stats)
	}

	w = s.do(t, http.MethodDelete, "/api/v1/booking/"+created.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}
	expectError(t, s.do(t, http.MethodDelete, "/api/v1/booking/"+created.ID, nil), http.StatusNotFound, "NotFound")
}

func TestBookingRejects(t *testing.T) {
	s := newTestServer(t, "")

	s.llm.bookingReply = `{"name": "Jane", "email": "not-an-email", "date": "2001-01-01", "time": "20:00"}`
	w := s.do(t, http.MethodPost, "/api/v1/booking", domain.CreateBookingRequest{Message: "book", SessionID: "s1"})
	expectError(t, w, http.StatusBadRequest, "BookingValidationError")
	body := decode[response.ErrorBody](t, w)
	for _, want := range []string{"Invalid email format", "Date must be in the future", "business hours"} {
		if !strings.Contains(body.Message, want) {
			t.Errorf("message %q lacks %q", body.Message, want)
		}
	}

	s.llm.bookingReply = "no idea"
	expectError(t, s.do(t, http.MethodPost, "/api/v1/booking", domain.CreateBookingRequest{Message: "book", SessionID: "s1"}), http.StatusInternalServerError, "UpstreamError")

	expectError(t, s.do(t, http.MethodPost, "/api/v1/booking", map[string]string{"message": "book"}), http.StatusBadRequest, "InvalidRequest")
}

func TestAPIKey(t *testing.T) {
	s := newTestServer(t, "secret")

	expectError(t, s.do(t, http.MethodGet, "/api/v1/documents", nil), http.StatusUnauthorized, "Unauthorized")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("X-API-Key", "secret")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("with key = %d, want 200", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("with bearer = %d, want 200", w.Code)
	}

	if w := s.do(t, http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Errorf("health behind auth: %d", w.Code)
	}
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t, "")

	w := s.do(t, http.MethodGet, "/frontend", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Header().Get("Content-Type"), "text/html") {
		t.Errorf("frontend = %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	if w := s.do(t, http.MethodGet, "/health/ready", nil); w.Code != http.StatusOK {
		t.Errorf("ready = %d: %s", w.Code, w.Body.String())
	}

	expectError(t, s.do(t, http.MethodGet, "/nope", nil), http.StatusNotFound, "NotFound")

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("preflight = %d %v", w.Code, w.Header())
	}
}
