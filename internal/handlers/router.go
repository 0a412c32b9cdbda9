package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/metrics"
	"KEC-QUOTE/internal/middleware"
	"KEC-QUOTE/internal/services"
)

// RouterDeps carries everything the HTTP layer talks to. PDF may be nil.
type RouterDeps struct {
	Generator      *services.QuotationGenerator
	Quotations     *services.QuotationService
	Templates      *services.TemplateService
	Inquiries      *services.InquiryService
	Invoices       *services.InvoiceService
	ActivityLogs   *services.ActivityLogService
	PDF            services.PDFConverter
	Metrics        *metrics.Metrics
	AllowOrigins   []string
	MaxUploadBytes int64
	Log            *logger.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(deps.AllowOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	quotationHandler := NewQuotationHandler(deps.Generator, deps.Quotations, deps.PDF, deps.MaxUploadBytes, log)
	templateHandler := NewTemplateHandler(deps.Templates)
	inquiryHandler := NewInquiryHandler(deps.Inquiries)
	invoiceHandler := NewInvoiceHandler(deps.Invoices)

	v1 := r.Group("/api/v1")
	if deps.ActivityLogs != nil {
		v1.Use(deps.ActivityLogs.LoggingMiddleware())
	}
	{
		// Quotations
		v1.POST("/quotations/generate", quotationHandler.Generate)
		v1.POST("/quotations", quotationHandler.Save)
		v1.GET("/quotations/:id", quotationHandler.Get)
		v1.GET("/quotations/:id/download", quotationHandler.Download)
		v1.POST("/quotations/:id/finalize", quotationHandler.Finalize)

		// Template management
		v1.GET("/template", templateHandler.GetTemplate)
		v1.PUT("/template", templateHandler.UploadTemplate)

		// Inquiries and invoices
		v1.POST("/inquiries", inquiryHandler.Create)
		v1.PUT("/inquiries/:id/status", inquiryHandler.UpdateStatus)
		v1.POST("/invoices/number", invoiceHandler.NextNumber)
		v1.POST("/invoices", invoiceHandler.Create)

		if deps.ActivityLogs != nil {
			logsHandler := NewLogsHandler(deps.ActivityLogs)
			v1.GET("/logs", logsHandler.GetAllLogs)
			v1.GET("/logs/stats", logsHandler.GetLogStats)
			v1.GET("/logs/history", logsHandler.GetHistory)
			v1.GET("/logs/generations", logsHandler.GetGenerationLogs)
		}
	}

	return r
}
