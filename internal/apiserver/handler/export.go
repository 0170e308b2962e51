package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/storage"
)

// Export serves whole-collection downloads for backup and spreadsheet use.
type Export struct {
	svc    *storage.DataService
	logger *zap.Logger
}

func NewExport(svc *storage.DataService, logger *zap.Logger) *Export {
	return &Export{svc: svc, logger: logger.Named("apiserver.export")}
}

// HandleExport streams one collection as a JSON document with an export
// envelope so the file is self-describing when saved to disk.
func (h *Export) HandleExport(c *gin.Context) {
	name, ok := collection(c)
	if !ok {
		return
	}
	records, err := h.svc.GetAll(c.Request.Context(), name)
	if err != nil {
		h.logger.Error("export failed", zap.String("collection", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`.json"`)
	c.JSON(http.StatusOK, gin.H{
		"collection": name,
		"exportedAt": time.Now().UTC().Format(time.RFC3339),
		"count":      len(records),
		"records":    records,
	})
}
