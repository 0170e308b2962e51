package apiserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stevedao0/newcm-sub000/internal/common/cnst"
	"github.com/stevedao0/newcm-sub000/internal/common/config"
	"github.com/stevedao0/newcm-sub000/internal/storage"
	"github.com/stevedao0/newcm-sub000/pkg/metrics"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	local, err := storage.NewLocalBackend(zap.NewNop(), t.TempDir())
	require.NoError(t, err)
	svc := storage.NewDataService(context.Background(), zap.NewNop(), nil, local)
	m := metrics.New(config.MetricsConfig{Namespace: "test"})
	return NewRouter(svc, m, zap.NewNop())
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouterUnknownCollection(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/invoices", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unknown collection")
}

func TestRouterCreateAndGet(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/contracts", storage.Record{
		"contractNo": "HD001",
		"category":   "Âm nhạc",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created storage.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID())

	w = doJSON(t, router, http.MethodGet, "/api/contracts/"+created.ID(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got storage.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "HD001", got["contractNo"])
}

func TestRouterGetMissingRecord(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/contracts/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouterUpdateAndDelete(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/works", storage.Record{"code": "TP01", "title": "Bài ca"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created storage.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, router, http.MethodPut, "/api/works/"+created.ID(), storage.Record{"title": "Bài ca mới"})
	require.Equal(t, http.StatusOK, w.Code)
	var updated storage.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Bài ca mới", updated["title"])

	w = doJSON(t, router, http.MethodDelete, "/api/works/"+created.ID(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":true`)

	w = doJSON(t, router, http.MethodDelete, "/api/works/"+created.ID(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":false`)
}

func TestRouterBulkCreateAndStats(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/partners/bulk", []storage.Record{
		{"tenDonVi": "Công ty A"},
		{"tenDonVi": "Công ty B"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats struct {
		Mode   string           `json:"mode"`
		Counts map[string]int64 `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, "local", stats.Mode)
	assert.Equal(t, int64(2), stats.Counts[cnst.CollectionPartners])
}

func TestRouterImportFlow(t *testing.T) {
	router := newTestRouter(t)

	body := map[string]any{
		"rows": []map[string]string{
			{
				"STT":         "1",
				"Phân loại":   "Âm nhạc",
				"Ngày ký":     "2024-03-01",
				"Số hợp đồng": "HD001",
				"Mã kênh":     "CH01",
			},
		},
	}
	w := doJSON(t, router, http.MethodPost, "/api/import/info", body)
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		Outcome  string `json:"outcome"`
		Inserted int    `json:"inserted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, "success", report.Outcome)
	assert.Equal(t, 1, report.Inserted)
}

func TestRouterImportUnknownFlow(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/import/summary", map[string]any{
		"rows": []map[string]string{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouterExport(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/channels", storage.Record{"channelID": "CH01", "name": "Kênh 1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/export/channels", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "channels.json")

	var payload struct {
		Collection string           `json:"collection"`
		Count      int              `json:"count"`
		Records    []storage.Record `json:"records"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, "channels", payload.Collection)
	assert.Equal(t, 1, payload.Count)
}

func TestRouterServiceInfo(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/service-info", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "newcm-data")
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodGet, "/api/contracts", nil)

	w := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
