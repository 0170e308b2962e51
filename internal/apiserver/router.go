package apiserver

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/apiserver/handler"
	"github.com/stevedao0/newcm-sub000/internal/importer"
	"github.com/stevedao0/newcm-sub000/internal/storage"
	"github.com/stevedao0/newcm-sub000/pkg/metrics"
)

// NewRouter builds the HTTP surface of the data service. m may be nil when
// metrics are disabled.
func NewRouter(svc *storage.DataService, m *metrics.Metrics, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	data := handler.NewData(svc, m, logger)
	imp := handler.NewImport(importer.NewRunner(svc, logger), m, logger)
	export := handler.NewExport(svc, logger)
	info := handler.NewServiceInfoHandler()

	router.GET("/api/service-info", info.HandleServiceInfo)
	router.GET("/api/stats", data.HandleStats)

	api := router.Group("/api")
	{
		api.GET("/:collection", data.HandleGetAll)
		api.POST("/:collection", data.HandleCreate)
		api.POST("/:collection/bulk", data.HandleBulkCreate)
		api.GET("/:collection/:id", data.HandleGet)
		api.PUT("/:collection/:id", data.HandleUpdate)
		api.DELETE("/:collection/:id", data.HandleDelete)
	}

	router.POST("/api/import/:flow", imp.HandleImport)
	router.GET("/api/import-state", imp.HandleImportState)
	router.GET("/api/export/:collection", export.HandleExport)

	return router
}
