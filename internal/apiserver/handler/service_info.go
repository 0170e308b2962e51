package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stevedao0/newcm-sub000/pkg/version"
)

// ServiceInfoHandler represents the service information handler
type ServiceInfoHandler struct{}

// NewServiceInfoHandler creates a new service information handler
func NewServiceInfoHandler() *ServiceInfoHandler {
	return &ServiceInfoHandler{}
}

// ServiceInfo represents the service identity information
type ServiceInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Version      string   `json:"version"`
	Type         string   `json:"type"`
	Capabilities []string `json:"capabilities"`
}

// HandleServiceInfo serves service identity information as JSON
func (h *ServiceInfoHandler) HandleServiceInfo(c *gin.Context) {
	info := ServiceInfo{
		Name:        "newcm-data",
		Description: "Contract management data service with remote/local dual storage, change notification and spreadsheet import",
		Version:     version.Get(),
		Type:        "data-service",
		Capabilities: []string{
			"collection-crud",
			"bulk-operations",
			"local-fallback",
			"one-shot-migration",
			"change-notification",
			"spreadsheet-import",
			"collection-export",
		},
	}

	c.JSON(http.StatusOK, info)
}
