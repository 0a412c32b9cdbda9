package services

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityLogService_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := NewActivityLogService(setupServicesTestDB(t), nil)
	svc.async = false

	r := gin.New()
	r.Use(svc.LoggingMiddleware())
	r.POST("/api/v1/inquiries", func(c *gin.Context) {
		var body map[string]string
		require.NoError(t, c.ShouldBindJSON(&body))
		c.JSON(http.StatusCreated, body)
	})
	r.GET("/api/v1/quotations/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(`{"lead_description":"Jig"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, "the handler still sees the body")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quotations/abc?format=pdf", nil))

	logs, total, err := svc.GetAllLogs(10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, logs, 2)

	posts, total, err := svc.GetLogs(LogFilter{Method: "post"}, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.JSONEq(t, `{"lead_description":"Jig"}`, posts[0].RequestBody)

	gets, _, err := svc.GetLogs(LogFilter{Path: "quotations"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, gets, 1)
	assert.Equal(t, http.StatusNotFound, gets[0].StatusCode)
	assert.JSONEq(t, `{"format":"pdf"}`, gets[0].QueryParams)
}
