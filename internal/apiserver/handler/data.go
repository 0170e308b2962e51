package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
	"github.com/stevedao0/newcm-sub000/internal/storage"
	"github.com/stevedao0/newcm-sub000/pkg/metrics"
)

// Data exposes collection CRUD over HTTP.
type Data struct {
	svc     *storage.DataService
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewData creates the collection data handler. metrics may be nil.
func NewData(svc *storage.DataService, m *metrics.Metrics, logger *zap.Logger) *Data {
	return &Data{svc: svc, metrics: m, logger: logger.Named("apiserver.data")}
}

func (h *Data) count(collection, op string, err error) {
	if h.metrics != nil {
		h.metrics.DataOp(collection, op, err)
	}
}

// collection validates the :collection path parameter. It writes the error
// response itself and reports whether the caller may proceed.
func collection(c *gin.Context) (string, bool) {
	name := c.Param("collection")
	if !cnst.IsCollection(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection: " + name})
		return "", false
	}
	return name, true
}

func (h *Data) HandleGetAll(c *gin.Context) {
	name, ok := collection(c)
	if !ok {
		return
	}
	records, err := h.svc.GetAll(c.Request.Context(), name)
	h.count(name, "getAll", err)
	if err != nil {
		h.logger.Error("get all failed", zap.String("collection", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []storage.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *Data) HandleGet(c *gin.Context) {
	name, ok := collection(c)
	if !ok {
		return
	}
	rec, err := h.svc.Get(c.Request.Context(), name, c.Param("id"))
	h.count(name, "get", err)
	if errors.Is(err, cnst.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Data) HandleCreate(c *gin.Context) {
	name, ok := collection(c)
	if !ok {
		return
	}
	var rec storage.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := h.svc.Create(c.Request.Context(), name, rec)
	h.count(name, "create", err)
	if err != nil {
		h.logger.Error("create failed", zap.String("collection", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Data) HandleUpdate(c *gin.Context) {
	name, ok := collection(c)
	if !ok {
		return
	}
	var partial storage.Record
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), name, c.Param("id"), partial)
	h.count(name, "update", err)
	if errors.Is(err, cnst.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Data) HandleDelete(c *gin.Context) {
	name, ok := collection(c)
	if !ok {
		return
	}
	deleted, err := h.svc.Delete(c.Request.Context(), name, c.Param("id"))
	h.count(name, "delete", err)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (h *Data) HandleBulkCreate(c *gin.Context) {
	name, ok := collection(c)
	if !ok {
		return
	}
	var batch []storage.Record
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	created, err := h.svc.BulkCreate(c.Request.Context(), name, batch)
	h.count(name, "bulkCreate", err)
	if err != nil {
		h.logger.Error("bulk create failed", zap.String("collection", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Data) HandleStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mode":   h.svc.Mode().String(),
		"counts": stats,
	})
}
