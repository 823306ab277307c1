package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AskRequest represents a one-shot question request
type AskRequest struct {
	Question  string           `json:"question" binding:"required"`
	Approach  string           `json:"approach"`
	Overrides domain.Overrides `json:"overrides"`
}

// ChatRequest represents a chat turn request
type ChatRequest struct {
	History   []domain.ChatTurn `json:"history" binding:"required"`
	Approach  string            `json:"approach"`
	Overrides domain.Overrides  `json:"overrides"`
}

// SearchRequest represents an index search request
type SearchRequest struct {
	Query string `json:"query"`
}

// DeleteDocumentRequest names the document to remove
type DeleteDocumentRequest struct {
	Filename string `json:"filename" binding:"required"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleAsk handles a one-shot question
func (s *Server) handleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	name := req.Approach
	if name == "" {
		name = "rtr"
	}
	ask, ok := s.registry.Ask(name)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "UNKNOWN_APPROACH",
				Message: fmt.Sprintf("unknown ask approach: %s", name),
			},
		})
		return
	}

	ctx, cancel := s.approachContext(c.Request.Context())
	defer cancel()

	start := time.Now()
	answer, err := ask.Run(ctx, req.Question, req.Overrides)
	if err != nil {
		s.metrics.RecordQuestion(name, "error", time.Since(start))
		s.logger.Error("ask failed", zap.String("approach", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "ASK_FAILED",
				Message: err.Error(),
			},
		})
		return
	}
	s.metrics.RecordQuestion(name, "ok", time.Since(start))

	c.JSON(http.StatusOK, answer)
}

// handleChat handles a chat turn
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	name := req.Approach
	if name == "" {
		name = "rrr"
	}
	chat, ok := s.registry.Chat(name)
	if !ok {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "UNKNOWN_APPROACH",
				Message: fmt.Sprintf("unknown chat approach: %s", name),
			},
		})
		return
	}

	ctx, cancel := s.approachContext(c.Request.Context())
	defer cancel()

	start := time.Now()
	answer, err := chat.Run(ctx, req.History, req.Overrides)
	if err != nil {
		s.metrics.RecordChatTurn(name, "error", time.Since(start))
		s.logger.Error("chat failed", zap.String("approach", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "CHAT_FAILED",
				Message: err.Error(),
			},
		})
		return
	}
	s.metrics.RecordChatTurn(name, "ok", time.Since(start))

	c.JSON(http.StatusOK, answer)
}

// handleContent serves a stored content file
func (s *Server) handleContent(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("name"), "/")
	if name == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "file name is required",
			},
		})
		return
	}

	blob, err := s.blobs.Download(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, ports.ErrBlobNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: ErrorDetail{
					Code:    "NOT_FOUND",
					Message: "file not found",
				},
			})
			return
		}
		s.logger.Error("content download failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "DOWNLOAD_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	contentType := blob.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
			contentType = byExt
		} else {
			contentType = "application/octet-stream"
		}
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", filepath.Base(name)))
	c.Data(http.StatusOK, contentType, blob.Data)
}

// handleUploadDocument stores an uploaded file and announces it on the bus
func (s *Server) handleUploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "multipart field 'file' is required",
			},
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	name := filepath.Base(file.Filename)
	blob := &domain.Blob{
		Name:        name,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	}
	if err := s.blobs.Upload(c.Request.Context(), blob); err != nil {
		s.logger.Error("upload failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "UPLOAD_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	event := domain.Event{
		ID:        uuid.NewString(),
		Type:      domain.EventTypeDocumentUploaded,
		Document:  name,
		Timestamp: time.Now().UTC(),
		Data: map[string]interface{}{
			"category": c.PostForm("category"),
		},
	}
	if err := s.bus.Publish(c.Request.Context(), domain.TopicIngest, event); err != nil {
		s.logger.Error("event publish failed", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "PUBLISH_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"name":   name,
		"size":   len(data),
		"status": "uploaded",
	})
}

// handleGetDocuments lists stored documents de-duplicated by base name,
// keeping the earliest upload per group
func (s *Server) handleGetDocuments(c *gin.Context) {
	infos, err := s.blobs.List(c.Request.Context(), "")
	if err != nil {
		s.logger.Error("document listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "LIST_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, groupDocuments(infos))
}

// handleGetSearch searches the index directly. An empty query returns
// every indexed section
func (s *Server) handleGetSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	start := time.Now()
	result, err := s.index.Search(c.Request.Context(), req.Query, ports.SearchOptions{})
	if err != nil {
		s.logger.Error("search failed", zap.String("query", req.Query), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "SEARCH_FAILED",
				Message: err.Error(),
			},
		})
		return
	}
	s.metrics.RecordSearch(time.Since(start), len(result.Sections))

	c.JSON(http.StatusOK, gin.H{
		"sections": result.Sections,
		"total":    result.Total,
	})
}

// handleDeleteAllDocuments removes every blob and every indexed section
func (s *Server) handleDeleteAllDocuments(c *gin.Context) {
	ctx := c.Request.Context()

	infos, err := s.blobs.List(ctx, "")
	if err != nil {
		s.logger.Error("document listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "LIST_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	var deletedBlobs int
	for _, info := range infos {
		if err := s.blobs.Delete(ctx, info.Name); err != nil {
			// Keep going, a missing blob is not fatal for a full wipe
			s.logger.Warn("blob delete failed", zap.String("name", info.Name), zap.Error(err))
			continue
		}
		deletedBlobs++
	}

	deletedSections, err := s.deleteIndexedSections(ctx, ports.SearchOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INDEX_DELETE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}
	s.updateIndexGauge()

	s.logger.Info("deleted all documents",
		zap.Int("blobs", deletedBlobs),
		zap.Int("sections", deletedSections))

	c.JSON(http.StatusOK, gin.H{
		"deleted_blobs":    deletedBlobs,
		"deleted_sections": deletedSections,
	})
}

// handleDeleteDocument removes one document's blobs and indexed sections
func (s *Server) handleDeleteDocument(c *gin.Context) {
	var req DeleteDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	ctx := c.Request.Context()
	prefix := basePrefix(req.Filename)

	infos, err := s.blobs.List(ctx, prefix)
	if err != nil {
		s.logger.Error("document listing failed", zap.String("prefix", prefix), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "LIST_FAILED",
				Message: err.Error(),
			},
		})
		return
	}

	var deletedBlobs int
	for _, info := range infos {
		if err := s.blobs.Delete(ctx, info.Name); err != nil {
			// A stale listing entry must not abort the index cleanup
			s.logger.Warn("blob delete failed", zap.String("name", info.Name), zap.Error(err))
			continue
		}
		deletedBlobs++
	}

	deletedSections, err := s.deleteIndexedSections(ctx, ports.SearchOptions{SourceFile: req.Filename})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INDEX_DELETE_FAILED",
				Message: err.Error(),
			},
		})
		return
	}
	s.updateIndexGauge()

	event := domain.Event{
		ID:        uuid.NewString(),
		Type:      domain.EventTypeDocumentDeleted,
		Document:  req.Filename,
		Timestamp: time.Now().UTC(),
	}
	if err := s.bus.Publish(ctx, domain.TopicIngest, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("name", req.Filename), zap.Error(err))
	}

	s.logger.Info("deleted document",
		zap.String("filename", req.Filename),
		zap.Int("blobs", deletedBlobs),
		zap.Int("sections", deletedSections))

	c.JSON(http.StatusOK, gin.H{
		"filename":         req.Filename,
		"deleted_blobs":    deletedBlobs,
		"deleted_sections": deletedSections,
	})
}

// handleConfig reports the feature flags the front end keys off
func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"showSemanticRankerOption":    true,
		"showFollowupQuestionsOption": true,
		"askApproaches":               s.registry.AskNames(),
		"chatApproaches":              s.registry.ChatNames(),
	})
}

// deleteIndexedSections removes every section matching opts, batch by
// batch until the index reports no more matches
func (s *Server) deleteIndexedSections(ctx context.Context, opts ports.SearchOptions) (int, error) {
	var deleted int
	for {
		result, err := s.index.Search(ctx, "", opts)
		if err != nil {
			return deleted, fmt.Errorf("index search failed: %w", err)
		}
		if len(result.Sections) == 0 {
			return deleted, nil
		}

		ids := make([]string, 0, len(result.Sections))
		for _, sec := range result.Sections {
			ids = append(ids, sec.ID)
		}

		removed, err := s.index.Delete(ctx, ids)
		if err != nil {
			return deleted, fmt.Errorf("index delete failed: %w", err)
		}
		deleted += removed
		if removed == 0 {
			// Matches we cannot remove would loop forever
			return deleted, nil
		}
	}
}

// updateIndexGauge refreshes the indexed sections gauge when the index
// exposes its size.
func (s *Server) updateIndexGauge() {
	if counter, ok := s.index.(interface{ Count() int }); ok {
		s.metrics.SetIndexedSections(counter.Count())
	}
}

// approachContext bounds an approach run when a timeout is configured.
func (s *Server) approachContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.approachTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.approachTimeout)
}

// groupDocuments collapses page blobs into documents. The base name is
// everything before the last hyphen, and the earliest upload of a group
// wins so re-uploads do not duplicate the listing.
func groupDocuments(infos []domain.BlobInfo) []domain.DocumentSummary {
	groups := make(map[string]domain.DocumentSummary)
	for _, info := range infos {
		base := info.Name
		if idx := strings.LastIndex(base, "-"); idx > 0 {
			base = base[:idx]
		}

		current, ok := groups[base]
		if !ok || info.LastModified.Before(current.LastModified) {
			groups[base] = domain.DocumentSummary{
				Name:         base,
				ETag:         info.ETag,
				LastModified: info.LastModified,
			}
		}
	}

	summaries := make([]domain.DocumentSummary, 0, len(groups))
	for _, summary := range groups {
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

// basePrefix strips the extension so page blobs of the same document are
// matched by listing prefix.
func basePrefix(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
