package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"KEC-QUOTE/internal"
	"KEC-QUOTE/internal/config"
	"KEC-QUOTE/internal/handlers"
	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/metrics"
	"KEC-QUOTE/internal/processor"
	"KEC-QUOTE/internal/services"
	"KEC-QUOTE/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Server.Environment)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := internal.InitDB(cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize database", "error", err)
	}
	defer internal.CloseDB(db)

	ctx := context.Background()
	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage", "backend", cfg.Storage.Backend, "error", err)
	}
	defer store.Close()

	profile, err := services.LoadProfile(cfg.Template.ProfilePath)
	if err != nil {
		log.Fatal("Failed to load template profile", "error", err)
	}
	templatePath := profile.TemplatePath
	if cfg.Template.Path != "" {
		templatePath = cfg.Template.Path
	}
	templates, err := services.NewTemplateService(ctx, store, profile, templatePath, log)
	if err != nil {
		log.Fatal("Failed to load quotation template", "path", templatePath, "error", err)
	}

	images := processor.UnsupportedImages()
	if cfg.Images.Enabled {
		images = processor.NewImageProcessor(cfg.Images.MaxWidth, cfg.Images.JPEGQuality)
	}
	engine := processor.NewEngine(images, processor.XMLRowCloner())

	m := metrics.New()
	generator := services.NewQuotationGenerator(templates, engine, m, log)
	quotations := services.NewQuotationService(db, store, generator, log)

	var pdf services.PDFConverter
	if cfg.Gotenberg.URL != "" {
		pdfService, err := services.NewPDFService(cfg.Gotenberg.URL, cfg.Gotenberg.Timeout, cfg.Gotenberg.MaxRetries, m, log)
		if err != nil {
			log.Warn("PDF conversion disabled", "error", err)
		} else {
			pdf = pdfService
		}
	}

	cleanup := handlers.NewCleanupService(quotations, cfg.Cleanup.Schedule, cfg.Cleanup.DraftMaxAge, log)
	if err := cleanup.Start(); err != nil {
		log.Fatal("Failed to schedule draft cleanup", "error", err)
	}
	defer cleanup.Stop()

	r := handlers.NewRouter(handlers.RouterDeps{
		Generator:      generator,
		Quotations:     quotations,
		Templates:      templates,
		Inquiries:      services.NewInquiryService(db, log),
		Invoices:       services.NewInvoiceService(db, log),
		ActivityLogs:   services.NewActivityLogService(db, log),
		PDF:            pdf,
		Metrics:        m,
		AllowOrigins:   cfg.Server.AllowOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment, "template", templates.Source())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.Storage.Backend == "gcs" {
		gcs := cfg.Storage.GCS
		return storage.NewGCSClient(ctx, gcs.BucketName, gcs.ProjectID, gcs.CredentialsPath)
	}
	return storage.NewLocalStore(cfg.Storage.LocalDir)
}
