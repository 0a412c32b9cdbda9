package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"KEC-QUOTE/internal/models"
	"KEC-QUOTE/internal/services"

	"github.com/gin-gonic/gin"
)

type LogsHandler struct {
	activityLogService *services.ActivityLogService
}

func NewLogsHandler(activityLogService *services.ActivityLogService) *LogsHandler {
	return &LogsHandler{
		activityLogService: activityLogService,
	}
}

type LogsResponse struct {
	Logs       interface{} `json:"logs"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

func pagination(c *gin.Context) (limit, page, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	page, err = strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = 1
	}
	return limit, page, (page - 1) * limit
}

// GetAllLogs returns activity logs with pagination, optionally filtered by method and path.
func (h *LogsHandler) GetAllLogs(c *gin.Context) {
	limit, page, offset := pagination(c)
	filter := services.LogFilter{Method: c.Query("method"), Path: c.Query("path")}

	logs, total, err := h.activityLogService.GetLogs(filter, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	c.JSON(http.StatusOK, LogsResponse{
		Logs:       logs,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	})
}

// GetLogStats counts requests by method, path and status code.
func (h *LogsHandler) GetLogStats(c *gin.Context) {
	logs, total, err := h.activityLogService.GetAllLogs(0, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch log stats"})
		return
	}

	methodCounts := make(map[string]int)
	pathCounts := make(map[string]int)
	statusCounts := make(map[int]int)
	for _, log := range logs {
		methodCounts[log.Method]++
		pathCounts[log.Path]++
		statusCounts[log.StatusCode]++
	}

	c.JSON(http.StatusOK, gin.H{
		"total_requests": total,
		"methods":        methodCounts,
		"paths":          pathCounts,
		"status_codes":   statusCounts,
	})
}

// GetGenerationLogs lists the form data users sent to the quotation generator.
func (h *LogsHandler) GetGenerationLogs(c *gin.Context) {
	limit, page, offset := pagination(c)

	logs, total, err := h.activityLogService.GetLogs(services.LogFilter{Method: http.MethodPost, Path: "quotations/generate"}, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch generation logs"})
		return
	}

	data := make([]gin.H, 0, len(logs))
	for _, log := range logs {
		if entry := historyEntry(log); entry != nil {
			data = append(data, entry)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"generation_data": data,
		"total":           total,
		"page":            page,
		"limit":           limit,
		"total_pages":     int((total + int64(limit) - 1) / int64(limit)),
	})
}

// GetHistory returns the latest write requests that carried user data.
func (h *LogsHandler) GetHistory(c *gin.Context) {
	logs, _, err := h.activityLogService.GetAllLogs(100, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch logs"})
		return
	}

	history := make([]gin.H, 0)
	for _, log := range logs {
		if log.Method != http.MethodPost && log.Method != http.MethodPut {
			continue
		}
		if entry := historyEntry(log); entry != nil {
			history = append(history, entry)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"history": history,
		"total":   len(history),
	})
}

func historyEntry(log models.ActivityLog) gin.H {
	if len(log.RequestBody) == 0 {
		return nil
	}
	entry := gin.H{
		"timestamp":     log.CreatedAt,
		"method":        log.Method,
		"path":          log.Path,
		"resource":      resourceFromPath(log.Path),
		"ip_address":    log.IPAddress,
		"user_agent":    log.UserAgent,
		"status_code":   log.StatusCode,
		"response_time": log.ResponseTime,
	}
	var userData interface{}
	if err := json.Unmarshal([]byte(log.RequestBody), &userData); err == nil {
		entry["user_data"] = userData
	} else {
		entry["raw_body"] = log.RequestBody
	}
	return entry
}

// resourceFromPath extracts the resource and id from paths like "/api/v1/quotations/123/finalize".
func resourceFromPath(path string) gin.H {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		switch part {
		case "quotations", "inquiries", "invoices", "template":
			res := gin.H{"type": part}
			if i+1 < len(parts) {
				res["id"] = parts[i+1]
			}
			return res
		}
	}
	return gin.H{"type": "unknown"}
}
