package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docrag/internal/domain"
	"docrag/internal/logger"
)

type ingestRequest struct {
	Path string `json:"path" binding:"required"`
}

type ingestResponse struct {
	IndexedChunks int `json:"indexed_chunks"`
}

type queryRequest struct {
	Question string            `json:"question" binding:"required"`
	TopK     int               `json:"top_k"`
	Filters  map[string]string `json:"filters"`
}

type queryResponse struct {
	Answer      string            `json:"answer"`
	Citations   []domain.Citation `json:"citations"`
	Unsupported bool              `json:"unsupported"`
}

type errorResponse struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			ErrorKind: "invalid_argument",
			Message:   err.Error(),
		})
		return
	}

	count, err := s.ingestor.Ingest(c.Request.Context(), req.Path, nil)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ingestResponse{IndexedChunks: count})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			ErrorKind: "invalid_argument",
			Message:   err.Error(),
		})
		return
	}

	answer, err := s.asker.Ask(c.Request.Context(), req.Question, req.TopK, req.Filters)
	if err != nil {
		writeError(c, err)
		return
	}

	citations := answer.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	c.JSON(http.StatusOK, queryResponse{
		Answer:      answer.Text,
		Citations:   citations,
		Unsupported: answer.Unsupported,
	})
}

func writeError(c *gin.Context, err error) {
	kind := domain.ErrorKind(err)
	status := statusForKind(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", err)
	}
	c.JSON(status, errorResponse{
		ErrorKind: kind,
		Message:   err.Error(),
	})
}

func statusForKind(kind string) int {
	switch kind {
	case "invalid_argument", "invalid_configuration", "empty_document", "dimension_mismatch":
		return http.StatusBadRequest
	case "collection_not_found":
		return http.StatusNotFound
	case "collection_exists":
		return http.StatusConflict
	case "embedding_provider_error", "generation_failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
