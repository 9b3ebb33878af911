package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/liliang-cn/ragdesk/internal/domain"
)

// DocumentRepository handles document and chunk persistence
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create creates a new document
func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Status == "" {
		doc.Status = domain.DocumentStatusProcessing
	}
	doc.UploadedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO documents (id, filename, file_path, file_size, chunk_count, chunking_strategy, status, upload_timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Filename, doc.FilePath, doc.FileSize, doc.ChunkCount,
		doc.ChunkingStrategy, doc.Status, formatTime(doc.UploadedAt))

	return err
}

// AddChunks stores chunks for a document in one transaction
func (r *DocumentRepository) AddChunks(ctx context.Context, chunks []*domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO document_chunks (id, document_id, chunk_index, chunk_text, vector_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.ChunkIndex, c.Text, c.VectorID, formatTime(now)); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	return tx.Commit()
}

// UpdateStatus sets the status and chunk count of a document
func (r *DocumentRepository) UpdateStatus(ctx context.Context, id, status string, chunkCount int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, chunk_count = ? WHERE id = ?
	`, status, chunkCount, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

const documentColumns = `id, filename, file_path, file_size, chunk_count, chunking_strategy, status, upload_timestamp`

func scanDocument(s scanner) (*domain.Document, error) {
	doc := &domain.Document{}
	var uploaded string
	if err := s.Scan(&doc.ID, &doc.Filename, &doc.FilePath, &doc.FileSize, &doc.ChunkCount,
		&doc.ChunkingStrategy, &doc.Status, &uploaded); err != nil {
		return nil, err
	}
	t, err := parseTime(uploaded)
	if err != nil {
		return nil, err
	}
	doc.UploadedAt = t
	return doc, nil
}

// Get retrieves a document by ID
func (r *DocumentRepository) Get(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := scanDocument(r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return doc, nil
}

// List retrieves documents, newest first, with the total count
func (r *DocumentRepository) List(ctx context.Context, skip, limit int) ([]*domain.Document, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents
		ORDER BY upload_timestamp DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, limit, skip)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	documents := []*domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		documents = append(documents, doc)
	}

	return documents, total, rows.Err()
}

// Delete deletes a document; its chunks go with it
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListChunks returns the chunks of a document ordered by index
func (r *DocumentRepository) ListChunks(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, document_id, chunk_index, chunk_text, vector_id, created_at
		FROM document_chunks WHERE document_id = ?
		ORDER BY chunk_index ASC
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := []*domain.Chunk{}
	for rows.Next() {
		c := &domain.Chunk{}
		var created string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Text, &c.VectorID, &created); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

// CountChunks returns the number of stored chunks for a document
func (r *DocumentRepository) CountChunks(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_id = ?`, documentID).Scan(&count)
	return count, err
}
