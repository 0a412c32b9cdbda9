package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const maxLoggedBody = 10000

type ActivityLogService struct {
	db    *gorm.DB
	log   *logger.Logger
	async bool
}

func NewActivityLogService(db *gorm.DB, log *logger.Logger) *ActivityLogService {
	if log == nil {
		log = logger.Nop()
	}
	return &ActivityLogService{db: db, log: log.With("component", "activity_log"), async: true}
}

func (s *ActivityLogService) LogRequest(c *gin.Context, statusCode int, responseTime time.Duration) {
	clientIP := c.ClientIP()
	if clientIP == "" {
		clientIP = c.Request.RemoteAddr
	}

	queryParams := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			queryParams[key] = values[0]
		}
	}
	queryParamsJSON, _ := json.Marshal(queryParams)

	var requestBody string
	if body, exists := c.Get("request_body"); exists {
		if bodyStr, ok := body.(string); ok {
			requestBody = bodyStr
		}
	}
	// Multipart forms are logged by field value; uploaded files are left out.
	if requestBody == "" && c.Request.MultipartForm != nil {
		if data, err := json.Marshal(c.Request.MultipartForm.Value); err == nil {
			requestBody = truncateBody(data)
		}
	}

	now := time.Now()
	activityLog := &models.ActivityLog{
		ID:           uuid.New().String(),
		Method:       c.Request.Method,
		Path:         c.Request.URL.Path,
		UserAgent:    c.Request.UserAgent(),
		IPAddress:    clientIP,
		RequestBody:  requestBody,
		QueryParams:  string(queryParamsJSON),
		StatusCode:   statusCode,
		ResponseTime: responseTime.Milliseconds(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if !s.async {
		s.save(activityLog)
		return
	}
	// Never block the request on the log write.
	go s.save(activityLog)
}

func (s *ActivityLogService) save(entry *models.ActivityLog) {
	if err := s.db.Create(entry).Error; err != nil {
		s.log.Error("failed to save activity log", "path", entry.Path, "error", err)
	}
}

func truncateBody(body []byte) string {
	if len(body) > maxLoggedBody {
		return fmt.Sprintf("[Large body: %d bytes] %s...", len(body), string(body[:100]))
	}
	return string(body)
}

// LogFilter narrows a log listing. Empty fields match everything.
type LogFilter struct {
	Method string
	Path   string
}

func (s *ActivityLogService) GetLogs(filter LogFilter, limit int, offset int) ([]models.ActivityLog, int64, error) {
	var logs []models.ActivityLog
	var total int64

	query := s.db.Model(&models.ActivityLog{})
	if filter.Method != "" {
		query = query.Where("method = ?", strings.ToUpper(filter.Method))
	}
	if filter.Path != "" {
		query = query.Where("path LIKE ?", "%"+filter.Path+"%")
	}
	query = query.Session(&gorm.Session{})

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count logs: %w", err)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch logs: %w", err)
	}

	return logs, total, nil
}

func (s *ActivityLogService) GetAllLogs(limit int, offset int) ([]models.ActivityLog, int64, error) {
	return s.GetLogs(LogFilter{}, limit, offset)
}

// LoggingMiddleware records every request once it has been handled. JSON bodies are kept
// as sent; multipart bodies are not buffered since they carry fixture images.
func (s *ActivityLogService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		if c.Request.Body != nil && strings.HasPrefix(c.ContentType(), "application/json") {
			bodyBytes, err := io.ReadAll(c.Request.Body)
			if err == nil {
				c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
				if len(bodyBytes) > 0 {
					c.Set("request_body", truncateBody(bodyBytes))
				}
			}
		}

		c.Next()

		s.LogRequest(c, c.Writer.Status(), time.Since(start))
	}
}
