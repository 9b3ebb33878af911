package service

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/liliang-cn/ragdesk/internal/config"
	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/llm"
	"github.com/liliang-cn/ragdesk/internal/repository"
	"github.com/liliang-cn/ragdesk/internal/validator"
	"github.com/liliang-cn/ragdesk/internal/vectorstore"
	"go.uber.org/zap"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type fakeStore struct {
	mu        sync.Mutex
	points    []vectorstore.Point
	upsertErr error
	searchErr error
}

func (f *fakeStore) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, vector []float32, limit int, documentIDs []string) ([]vectorstore.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []vectorstore.SearchResult
	for _, p := range f.points {
		if len(documentIDs) > 0 && !contains(documentIDs, p.DocumentID) {
			continue
		}
		out = append(out, vectorstore.SearchResult{
			ID: p.ID, Score: 0.9, DocumentID: p.DocumentID, DocumentName: p.DocumentName,
			ChunkIndex: p.ChunkIndex, Text: p.Text,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.points[:0]
	removed := 0
	for _, p := range f.points {
		if p.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	f.points = kept
	return removed, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

type fakeLLM struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]llm.Message
	opts  []llm.Options
}

func (f *fakeLLM) record(messages []llm.Message, opts llm.Options) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, messages)
	f.opts = append(f.opts, opts)
}

func (f *fakeLLM) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	f.record(messages, opts)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Stream(ctx context.Context, messages []llm.Message, opts llm.Options, onDelta func(string) error) (string, error) {
	f.record(messages, opts)
	if f.err != nil {
		return "", f.err
	}
	for _, w := range strings.SplitAfter(f.reply, " ") {
		if err := onDelta(w); err != nil {
			return "", err
		}
	}
	return f.reply, nil
}

func (f *fakeLLM) lastCall() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

type fakeCache struct {
	data        map[string][]*domain.Message
	dirty       map[string]bool
	gets        int
	hits        int
	invalidated int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]*domain.Message{}, dirty: map[string]bool{}}
}

func (f *fakeCache) Get(ctx context.Context, sessionID string) ([]*domain.Message, bool, error) {
	f.gets++
	m, ok := f.data[sessionID]
	if ok {
		f.hits++
	}
	return m, ok, nil
}

func (f *fakeCache) Fill(ctx context.Context, sessionID string, messages []*domain.Message) error {
	if _, ok := f.data[sessionID]; ok || f.dirty[sessionID] {
		return nil
	}
	f.data[sessionID] = append([]*domain.Message{}, messages...)
	return nil
}

func (f *fakeCache) Append(ctx context.Context, sessionID string, msg *domain.Message, window int) error {
	m, ok := f.data[sessionID]
	if !ok {
		f.dirty[sessionID] = true
		return nil
	}
	m = append(append([]*domain.Message{}, m...), msg)
	if len(m) > window {
		m = m[len(m)-window:]
	}
	f.data[sessionID] = m
	return nil
}

func (f *fakeCache) Invalidate(ctx context.Context, sessionID string) error {
	f.invalidated++
	delete(f.data, sessionID)
	f.dirty[sessionID] = true
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type testEnv struct {
	cfg      *config.Config
	db       *repository.DB
	embedder *fakeEmbedder
	store    *fakeStore
	llm      *fakeLLM
	memory   *MemoryService
	ingest   *IngestService
	chat     *ChatService
	booking  *BookingService
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Storage: config.StorageConfig{
			UploadDir:        t.TempDir(),
			MaxFileSizeMB:    1,
			AllowedFileTypes: []string{"pdf", "txt"},
		},
		Chunking: config.ChunkingConfig{Size: 60, Overlap: 10, DefaultStrategy: domain.ChunkingRecursive},
		RAG:      config.RAGConfig{TopK: 3, HistoryWindow: 10, PromptHistory: 5},
		LLM:      config.LLMConfig{Temperature: 0.7, MaxTokens: 1000},
		Booking:  config.BookingConfig{OpenHour: 9, CloseHour: 17},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig(t)

	db, err := repository.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := zap.NewNop()
	env := &testEnv{
		cfg:      cfg,
		db:       db,
		embedder: &fakeEmbedder{},
		store:    &fakeStore{},
		llm:      &fakeLLM{reply: "The answer is 42."},
	}
	env.memory = NewMemoryService(repository.NewConversationRepository(db), nil, cfg.RAG.HistoryWindow, logger)
	env.ingest = NewIngestService(cfg, repository.NewDocumentRepository(db), env.embedder, env.store, logger)
	env.chat = NewChatService(cfg, env.memory, env.embedder, env.store, env.llm, logger)
	env.booking = NewBookingService(repository.NewBookingRepository(db), env.llm,
		validator.NewBookingValidator(cfg.Booking.OpenHour, cfg.Booking.CloseHour), logger)
	return env
}

func uploadDirEntries(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	return len(entries)
}
