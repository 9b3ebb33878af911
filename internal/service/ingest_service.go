package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/liliang-cn/ragdesk/internal/config"
	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/repository"
	"github.com/liliang-cn/ragdesk/internal/textproc"
	"github.com/liliang-cn/ragdesk/internal/vectorstore"
	"go.uber.org/zap"
)

// IngestService turns uploaded files into searchable chunks
type IngestService struct {
	cfg      *config.Config
	docs     *repository.DocumentRepository
	embedder Embedder
	store    VectorStore
	chunker  *textproc.Chunker
	logger   *zap.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(
	cfg *config.Config,
	docs *repository.DocumentRepository,
	embedder Embedder,
	store VectorStore,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		cfg:      cfg,
		docs:     docs,
		embedder: embedder,
		store:    store,
		chunker:  textproc.NewChunker(cfg.Chunking.Size, cfg.Chunking.Overlap),
		logger:   logger,
	}
}

// Upload is a file received from a client
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
	Strategy string
}

// Ingest stores, extracts, chunks, embeds and indexes an uploaded file.
// Nothing is left behind when a step fails.
func (s *IngestService) Ingest(ctx context.Context, up Upload) (*domain.IngestResponse, error) {
	filename := textproc.SanitizeFilename(up.Filename)

	// Detect file type
	fileType := textproc.DetectFileType(filename)
	if !textproc.IsAllowed(fileType, s.cfg.Storage.AllowedFileTypes) {
		return nil, fmt.Errorf("%w: file type '%s' not allowed. Allowed types: %s",
			domain.ErrUnsupportedFileType, fileType, strings.Join(s.cfg.Storage.AllowedFileTypes, ", "))
	}

	maxSize := s.cfg.Storage.MaxFileSize()
	if up.Size > maxSize {
		return nil, tooLarge(up.Size, maxSize)
	}

	strategy := strings.ToLower(strings.TrimSpace(up.Strategy))
	if strategy == "" {
		strategy = s.cfg.Chunking.DefaultStrategy
	}
	if !domain.ValidStrategy(strategy) {
		return nil, fmt.Errorf("%w: chunking_strategy must be fixed or recursive", domain.ErrInvalidRequest)
	}

	docID := uuid.New().String()
	storagePath, size, err := s.saveFile(docID, fileType, up.Content, maxSize)
	if err != nil {
		return nil, err
	}

	resp, err := s.process(ctx, docID, filename, fileType, storagePath, size, strategy)
	if err != nil {
		if rmErr := os.Remove(storagePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("Failed to remove upload", zap.String("path", storagePath), zap.Error(rmErr))
		}
		return nil, err
	}

	return resp, nil
}

// saveFile copies the upload to disk, enforcing the size limit while copying
func (s *IngestService) saveFile(docID, fileType string, src io.Reader, maxSize int64) (string, int64, error) {
	// Create storage directory
	if err := os.MkdirAll(s.cfg.Storage.UploadDir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create storage directory: %w", err)
	}

	storagePath := filepath.Join(s.cfg.Storage.UploadDir, docID+"."+fileType)
	dst, err := os.Create(storagePath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create storage file: %w", err)
	}

	written, err := io.Copy(dst, io.LimitReader(src, maxSize+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written > maxSize {
		err = tooLarge(written, maxSize)
	}
	if err != nil {
		os.Remove(storagePath)
		if errors.Is(err, domain.ErrFileTooLarge) {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("failed to save file: %w", err)
	}

	return storagePath, written, nil
}

func (s *IngestService) process(ctx context.Context, docID, filename, fileType, path string, size int64, strategy string) (*domain.IngestResponse, error) {
	text, err := textproc.ExtractFile(path, fileType)
	if err != nil {
		return nil, err
	}

	pieces, err := s.chunker.Split(text, strategy)
	if err != nil {
		return nil, err
	}
	if len(pieces) == 0 {
		return nil, fmt.Errorf("failed to chunk document: no chunks produced")
	}

	vectors, err := s.embedder.EmbedBatch(ctx, pieces)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:               docID,
		Filename:         filename,
		FilePath:         path,
		FileSize:         size,
		ChunkingStrategy: strategy,
		Status:           domain.DocumentStatusProcessing,
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	chunks := make([]*domain.Chunk, len(pieces))
	points := make([]vectorstore.Point, len(pieces))
	for i, text := range pieces {
		vectorID := uuid.New().String()
		chunks[i] = &domain.Chunk{DocumentID: docID, ChunkIndex: i, Text: text, VectorID: vectorID}
		points[i] = vectorstore.Point{
			ID:           vectorID,
			Vector:       vectors[i],
			DocumentID:   docID,
			DocumentName: filename,
			ChunkIndex:   i,
			Text:         text,
		}
	}

	err = s.docs.AddChunks(ctx, chunks)
	if err == nil {
		err = s.store.Upsert(ctx, points)
	}
	if err == nil {
		err = s.docs.UpdateStatus(ctx, docID, domain.DocumentStatusReady, len(chunks))
	}
	if err != nil {
		s.rollback(docID)
		return nil, err
	}

	s.logger.Info("Document ingested",
		zap.String("document_id", docID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
		zap.String("strategy", strategy),
	)

	return &domain.IngestResponse{
		DocumentID:    docID,
		Filename:      filename,
		ChunksCreated: len(chunks),
		StrategyUsed:  strategy,
		Message:       "Document processed successfully",
	}, nil
}

// rollback removes whatever was stored for a failed ingestion
func (s *IngestService) rollback(docID string) {
	ctx := context.Background()
	if _, err := s.store.DeleteByDocument(ctx, docID); err != nil {
		s.logger.Warn("Failed to remove vectors after failed ingestion", zap.String("document_id", docID), zap.Error(err))
	}
	if err := s.docs.Delete(ctx, docID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("Failed to remove document after failed ingestion", zap.String("document_id", docID), zap.Error(err))
	}
}

// ListDocuments lists documents newest first
func (s *IngestService) ListDocuments(ctx context.Context, skip, limit int) (*domain.DocumentListResponse, error) {
	docs, total, err := s.docs.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	return &domain.DocumentListResponse{Documents: docs, Total: total, Skip: skip, Limit: limit}, nil
}

// GetDocument retrieves a document
func (s *IngestService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document with ID '%s' not found", domain.ErrNotFound, id)
	}
	return doc, nil
}

// GetChunks returns the stored chunks of a document
func (s *IngestService) GetChunks(ctx context.Context, id string) (*domain.DocumentChunksResponse, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	chunks, err := s.docs.ListChunks(ctx, id)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ChunkView, len(chunks))
	for i, c := range chunks {
		views[i] = domain.ChunkView{ChunkIndex: c.ChunkIndex, ChunkText: c.Text, CreatedAt: c.CreatedAt}
	}

	return &domain.DocumentChunksResponse{
		DocumentID:  doc.ID,
		Filename:    doc.Filename,
		Chunks:      views,
		TotalChunks: len(views),
	}, nil
}

// DeleteDocument removes a document's vectors, rows and file
func (s *IngestService) DeleteDocument(ctx context.Context, id string) (*domain.SuccessResponse, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	removed, err := s.store.DeleteByDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	// chunks cascade
	if err := s.docs.Delete(ctx, id); err != nil {
		return nil, err
	}

	if err := os.Remove(doc.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove document file", zap.String("path", doc.FilePath), zap.Error(err))
	}

	s.logger.Info("Document deleted", zap.String("document_id", id), zap.Int("vectors", removed))

	return &domain.SuccessResponse{
		Message: fmt.Sprintf("Document %s deleted successfully", id),
		Success: true,
	}, nil
}

func tooLarge(size, limit int64) error {
	return fmt.Errorf("%w: file size %d bytes exceeds maximum allowed size of %d bytes", domain.ErrFileTooLarge, size, limit)
}
