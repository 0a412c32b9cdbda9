package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/models"
	"KEC-QUOTE/internal/services"
)

func newLogsRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db := setupTestDB(t)

	now := time.Now()
	entries := []models.ActivityLog{
		{Method: "POST", Path: "/api/v1/quotations/generate", RequestBody: `{"quote_no":["KEC012OC2026"]}`, StatusCode: 200},
		{Method: "PUT", Path: "/api/v1/inquiries/7/status", RequestBody: `{"status":"Lost"}`, StatusCode: 200},
		{Method: "GET", Path: "/api/v1/template", StatusCode: 200},
		{Method: "POST", Path: "/api/v1/invoices", RequestBody: "not json", StatusCode: 400},
	}
	for i := range entries {
		entries[i].ID = uuid.New().String()
		entries[i].CreatedAt = now.Add(time.Duration(i) * time.Second)
		entries[i].UpdatedAt = entries[i].CreatedAt
		require.NoError(t, db.Create(&entries[i]).Error)
	}

	h := NewLogsHandler(services.NewActivityLogService(db, logger.Nop()))
	r := gin.New()
	r.GET("/logs", h.GetAllLogs)
	r.GET("/logs/stats", h.GetLogStats)
	r.GET("/logs/history", h.GetHistory)
	r.GET("/logs/generations", h.GetGenerationLogs)
	return r
}

func getJSON(t *testing.T, r *gin.Engine, target string, out interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestLogsHandler_GetAllLogs(t *testing.T) {
	r := newLogsRouter(t)

	var resp struct {
		Logs       []models.ActivityLog `json:"logs"`
		Total      int64                `json:"total"`
		TotalPages int                  `json:"total_pages"`
	}
	getJSON(t, r, "/logs?limit=2", &resp)
	assert.Equal(t, int64(4), resp.Total)
	assert.Equal(t, 2, resp.TotalPages)
	require.Len(t, resp.Logs, 2)
	assert.Equal(t, "/api/v1/invoices", resp.Logs[0].Path)

	getJSON(t, r, "/logs?method=post", &resp)
	assert.Equal(t, int64(2), resp.Total)
}

func TestLogsHandler_Stats(t *testing.T) {
	r := newLogsRouter(t)

	var resp struct {
		TotalRequests int64          `json:"total_requests"`
		Methods       map[string]int `json:"methods"`
		StatusCodes   map[string]int `json:"status_codes"`
	}
	getJSON(t, r, "/logs/stats", &resp)
	assert.Equal(t, int64(4), resp.TotalRequests)
	assert.Equal(t, 2, resp.Methods["POST"])
	assert.Equal(t, 1, resp.StatusCodes["400"])
}

func TestLogsHandler_History(t *testing.T) {
	r := newLogsRouter(t)

	var resp struct {
		History []map[string]interface{} `json:"history"`
		Total   int                      `json:"total"`
	}
	getJSON(t, r, "/logs/history", &resp)
	require.Equal(t, 3, resp.Total)

	latest := resp.History[0]
	assert.Equal(t, "not json", latest["raw_body"])
	assert.Equal(t, map[string]interface{}{"type": "invoices"}, latest["resource"])

	inquiry := resp.History[1]
	assert.Equal(t, map[string]interface{}{"type": "inquiries", "id": "7"}, inquiry["resource"])
	assert.Equal(t, map[string]interface{}{"status": "Lost"}, inquiry["user_data"])
}

func TestLogsHandler_GenerationLogs(t *testing.T) {
	r := newLogsRouter(t)

	var resp struct {
		Data  []map[string]interface{} `json:"generation_data"`
		Total int64                    `json:"total"`
	}
	getJSON(t, r, "/logs/generations", &resp)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, map[string]interface{}{"quote_no": []interface{}{"KEC012OC2026"}}, resp.Data[0]["user_data"])
}

func TestResourceFromPath(t *testing.T) {
	assert.Equal(t, gin.H{"type": "quotations", "id": "abc"}, resourceFromPath("/api/v1/quotations/abc/finalize"))
	assert.Equal(t, gin.H{"type": "unknown"}, resourceFromPath("/healthz"))
}
