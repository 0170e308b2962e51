package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/importer"
	"github.com/stevedao0/newcm-sub000/pkg/metrics"
)

// Import accepts parsed spreadsheet rows and runs them through the
// reconciling importer.
type Import struct {
	runner  *importer.Runner
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewImport creates the import handler. metrics may be nil.
func NewImport(runner *importer.Runner, m *metrics.Metrics, logger *zap.Logger) *Import {
	return &Import{runner: runner, metrics: m, logger: logger.Named("apiserver.import")}
}

type importRequest struct {
	Rows []map[string]string `json:"rows" binding:"required"`
}

// HandleImport runs one import batch. Row-level errors come back inside
// the report with HTTP 200; only batch-level faults produce an error status.
func (h *Import) HandleImport(c *gin.Context) {
	flow := importer.Flow(c.Param("flow"))

	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body, expected {\"rows\": [...]}"})
		return
	}

	report, err := h.runner.Run(c.Request.Context(), flow, req.Rows)
	if err != nil {
		h.logger.Error("import run failed", zap.String("flow", string(flow)), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.metrics != nil {
		h.metrics.ImportRun(string(flow), string(report.Outcome))
		accepted := report.Inserted + report.Updated
		h.metrics.ImportRows(string(flow), accepted, len(report.Errors))
	}
	c.JSON(http.StatusOK, report)
}

// HandleImportState reports the lifecycle phase of the importer, for UIs
// polling a long-running import.
func (h *Import) HandleImportState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"state": string(h.runner.State())})
}
