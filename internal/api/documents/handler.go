// Package documents serves document upload and management.
package documents

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/ragdesk/internal/api/params"
	"github.com/liliang-cn/ragdesk/internal/api/response"
	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/liliang-cn/ragdesk/internal/service"
)

// Service is the document functionality the handler needs
type Service interface {
	Ingest(ctx context.Context, up service.Upload) (*domain.IngestResponse, error)
	ListDocuments(ctx context.Context, skip, limit int) (*domain.DocumentListResponse, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	GetChunks(ctx context.Context, id string) (*domain.DocumentChunksResponse, error)
	DeleteDocument(ctx context.Context, id string) (*domain.SuccessResponse, error)
}

// multipart framing allowance on top of the file size limit
const formOverhead = 1 << 20

// Handler handles document API requests
type Handler struct {
	svc       Service
	maxUpload int64
}

// NewHandler creates a new document handler. maxUpload is the file size limit in bytes.
func NewHandler(svc Service, maxUpload int64) *Handler {
	return &Handler{svc: svc, maxUpload: maxUpload}
}

// RegisterRoutes registers document routes
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/ingest", h.Upload)

	documents := r.Group("/documents")
	{
		documents.GET("", h.List)
		documents.GET("/:id", h.Get)
		documents.GET("/:id/chunks", h.Chunks)
		documents.DELETE("/:id", h.Delete)
	}
}

// Upload ingests a multipart file upload
func (h *Handler) Upload(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload+formOverhead)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Error(c, fmt.Errorf("%w: maximum allowed size is %d bytes", domain.ErrFileTooLarge, h.maxUpload))
			return
		}
		response.BadRequest(c, errors.New("file is required"))
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	// embedding a large file can outlast the server write timeout
	response.NoWriteDeadline(c)
	resp, err := h.svc.Ingest(c.Request.Context(), service.Upload{
		Filename: file.Filename,
		Size:     file.Size,
		Content:  f,
		Strategy: c.PostForm("chunking_strategy"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List lists documents, newest first
func (h *Handler) List(c *gin.Context) {
	skip, limit, err := params.Page(c, 100, 1000)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.svc.ListDocuments(c.Request.Context(), skip, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) Get(c *gin.Context) {
	doc, err := h.svc.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Chunks(c *gin.Context) {
	chunks, err := h.svc.GetChunks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, chunks)
}

func (h *Handler) Delete(c *gin.Context) {
	resp, err := h.svc.DeleteDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
