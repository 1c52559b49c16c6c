package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/finsight/internal/core/domain"
	"github.com/custodia-labs/finsight/internal/logger"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Detail string `json:"detail"`
}

// healthResponse reports liveness and the loaded models.
type healthResponse struct {
	Status         string `json:"status"`
	IndexLoaded    bool   `json:"index_loaded"`
	EmbeddingModel string `json:"embedding_model"`
	LLMModel       string `json:"llm_model"`
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "finsight financial document analysis API",
		"version": s.cfg.Version,
		"health":  "/api/health",
	})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	var req domain.AnalysisRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := s.analysis.Analyse(c.Request().Context(), req)
	if err != nil {
		return analysisError(err)
	}

	c.Response().Header().Set("X-Analysis-Id", rec.ID)
	return c.JSON(http.StatusOK, rec.Result)
}

func (s *Server) handleHealth(c echo.Context) error {
	stats := s.analysis.Stats()
	return c.JSON(http.StatusOK, healthResponse{
		Status:         "healthy",
		IndexLoaded:    stats.VectorStore.TotalVectors > 0,
		EmbeddingModel: stats.EmbeddingModel,
		LLMModel:       stats.LLMModel,
	})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.analysis.Stats())
}

func (s *Server) handleHistory(c echo.Context) error {
	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := s.analysis.Recent(c.Request().Context(), limit)
	if err != nil {
		logger.Error("Listing analyses: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list analyses")
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleHistoryItem(c echo.Context) error {
	rec, err := s.analysis.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		logger.Error("Getting analysis: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get analysis")
	}
	return c.JSON(http.StatusOK, rec)
}

// analysisError maps a pipeline error to its HTTP status.
func analysisError(err error) *echo.HTTPError {
	if domain.ClassifyError(err) == domain.ErrorCategoryClient {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	logger.Error("Analysis failed: %v", err)
	return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Analysis failed: %v", err))
}

// errorHandler renders every error as {"detail": "..."}.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(code)
		}
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(code)
	} else {
		writeErr = c.JSON(code, errorResponse{Detail: detail})
	}
	if writeErr != nil {
		logger.Warn("Writing error response: %v", writeErr)
	}
}
