package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"ppe-monitor-go/internal/logging"
	"ppe-monitor-go/internal/models"
)

const (
	defaultViolationLimit = 50
	maxViolationLimit     = 500
)

// ViolationQuerier reads the violation journal.
type ViolationQuerier interface {
	Recent(ctx context.Context, label string, limit int) ([]models.ViolationEntry, error)
	CountByLabel(ctx context.Context) (map[string]int, error)
}

type ErrorResponse struct {
	Error string `json:"error" example:"something went wrong"`
}

type ViolationHandler struct {
	journal ViolationQuerier
}

func NewViolationHandler(journal ViolationQuerier) *ViolationHandler {
	return &ViolationHandler{journal: journal}
}

type ViolationListResponse struct {
	Count      int                     `json:"count" example:"1"`
	Violations []models.ViolationEntry `json:"violations"`
}

type LabelCount struct {
	Label string `json:"label" example:"NO-Hardhat"`
	Count int    `json:"count" example:"12"`
}

type ViolationStatsResponse struct {
	Total   int          `json:"total" example:"20"`
	ByLabel []LabelCount `json:"by_label"`
}

// @Summary List journaled violations
// @Description Most recent violations, newest first
// @Tags violations
// @Produce json
// @Param label query string false "Filter by class label"
// @Param limit query int false "Maximum number of rows (default 50, max 500)"
// @Success 200 {object} ViolationListResponse
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /violations [get]
func (h *ViolationHandler) ListViolations(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "violation journal is disabled"})
		return
	}

	limit := defaultViolationLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer"})
			return
		}
		limit = min(n, maxViolationLimit)
	}

	entries, err := h.journal.Recent(c.Request.Context(), c.Query("label"), limit)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to query violations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to query violations"})
		return
	}

	c.JSON(http.StatusOK, ViolationListResponse{Count: len(entries), Violations: entries})
}

// @Summary Violation counts
// @Description Number of journaled violations per class label
// @Tags violations
// @Produce json
// @Success 200 {object} ViolationStatsResponse
// @Failure 503 {object} ErrorResponse
// @Router /violations/stats [get]
func (h *ViolationHandler) GetStats(c *gin.Context) {
	if h.journal == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "violation journal is disabled"})
		return
	}

	counts, err := h.journal.CountByLabel(c.Request.Context())
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to count violations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to count violations"})
		return
	}

	byLabel := lo.MapToSlice(counts, func(label string, n int) LabelCount {
		return LabelCount{Label: label, Count: n}
	})
	sortLabelCounts(byLabel)

	c.JSON(http.StatusOK, ViolationStatsResponse{
		Total:   lo.Sum(lo.Values(counts)),
		ByLabel: byLabel,
	})
}

// sortLabelCounts orders by count descending, then label.
func sortLabelCounts(counts []LabelCount) {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
}
