package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/processor"
	"KEC-QUOTE/internal/storage"
)

// activeTemplateObject holds the object name of the last uploaded template so that an
// upload outlives a restart.
const activeTemplateObject = "templates/ACTIVE"

// TemplateService owns the quotation template. The raw bytes are kept in memory and every
// generation parses its own copy, so concurrent requests never share a document tree.
type TemplateService struct {
	store   storage.BlobStore
	profile *TemplateProfile
	log     *logger.Logger

	mu         sync.RWMutex
	data       []byte
	source     string
	report     *processor.TemplateReport
	objectName string
}

// NewTemplateService loads the last uploaded template from the blob store when there is one,
// otherwise the template named by path (or the profile's path when empty) from disk, falling
// back to the blob store under the same name. The template contract is checked before the
// service is returned.
func NewTemplateService(ctx context.Context, store storage.BlobStore, profile *TemplateProfile, path string, log *logger.Logger) (*TemplateService, error) {
	if log == nil {
		log = logger.Nop()
	}
	if path == "" {
		path = profile.TemplatePath
	}
	s := &TemplateService{
		store:   store,
		profile: profile,
		log:     log.With("component", "template_service"),
	}

	if s.loadActive(ctx) {
		return s, nil
	}

	data, source, err := s.fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.install(data, source); err != nil {
		return nil, err
	}
	return s, nil
}

// loadActive installs the uploaded template recorded in the store. A missing record means no
// upload happened; an unreadable or invalid upload is logged and the configured path is used.
func (s *TemplateService) loadActive(ctx context.Context) bool {
	if s.store == nil {
		return false
	}
	ref, err := storage.ReadAll(ctx, s.store, activeTemplateObject)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			s.log.Warn("failed to read active template record", "error", err)
		}
		return false
	}
	objectName := strings.TrimSpace(string(ref))
	if objectName == "" {
		return false
	}

	data, err := storage.ReadAll(ctx, s.store, objectName)
	if err != nil {
		s.log.Warn("uploaded template unavailable, using configured template", "object", objectName, "error", err)
		return false
	}
	if err := s.install(data, "storage:"+objectName); err != nil {
		s.log.Warn("uploaded template rejected, using configured template", "object", objectName, "error", err)
		return false
	}
	s.mu.Lock()
	s.objectName = objectName
	s.mu.Unlock()
	return true
}

// NewTemplateServiceFromBytes wraps an already loaded template.
func NewTemplateServiceFromBytes(data []byte, profile *TemplateProfile, log *logger.Logger) (*TemplateService, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &TemplateService{profile: profile, log: log.With("component", "template_service")}
	if err := s.install(data, "memory"); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TemplateService) fetch(ctx context.Context, path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return data, path, nil
	}
	if !errors.Is(err, os.ErrNotExist) || s.store == nil {
		return nil, "", fmt.Errorf("failed to read template %s: %w", path, err)
	}

	s.log.Info("template not on disk, reading from storage", "object", path)
	data, err = storage.ReadAll(ctx, s.store, path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read template %s from storage: %w", path, err)
	}
	return data, "storage:" + path, nil
}

// install validates data and makes it the active template.
func (s *TemplateService) install(data []byte, source string) error {
	doc, err := processor.Open(data)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	report, err := processor.InspectTemplate(doc, s.profile.Tags.All())
	if err != nil {
		return fmt.Errorf("template %s rejected: %w", source, err)
	}
	for _, w := range report.Warnings {
		s.log.Warn("template contract", "source", source, "detail", w)
	}

	s.mu.Lock()
	s.data = data
	s.source = source
	s.report = report
	s.mu.Unlock()

	s.log.Info("template loaded", "source", source, "fixture_rows", report.FixtureRows, "tables", report.Tables)
	return nil
}

// Open parses a private copy of the active template.
func (s *TemplateService) Open() (*processor.Document, error) {
	s.mu.RLock()
	data := s.data
	s.mu.RUnlock()
	return processor.Open(data)
}

func (s *TemplateService) Report() *processor.TemplateReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

func (s *TemplateService) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *TemplateService) Profile() *TemplateProfile {
	return s.profile
}

// Replace validates an uploaded template, stores it and makes it active. A template that
// breaks the contract is rejected and the current one stays in place.
func (s *TemplateService) Replace(ctx context.Context, data []byte, filename string) (*processor.TemplateReport, error) {
	doc, err := processor.Open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if report, err := processor.InspectTemplate(doc, s.profile.Tags.All()); err != nil {
		return report, fmt.Errorf("template rejected: %w", err)
	}

	source := "upload:" + filename
	if s.store != nil {
		objectName := storage.GenerateTemplateObjectName(filename)
		if _, err := s.store.UploadFile(ctx, bytes.NewReader(data), objectName, DocxContentType); err != nil {
			return nil, fmt.Errorf("failed to store template: %w", err)
		}
		source = "storage:" + objectName

		if _, err := s.store.UploadFile(ctx, strings.NewReader(objectName), activeTemplateObject, "text/plain"); err != nil {
			s.deleteObject(ctx, objectName)
			return nil, fmt.Errorf("failed to record active template: %w", err)
		}

		s.mu.RLock()
		previous := s.objectName
		s.mu.RUnlock()
		if previous != "" && previous != objectName {
			s.deleteObject(ctx, previous)
		}
		s.mu.Lock()
		s.objectName = objectName
		s.mu.Unlock()
	}

	if err := s.install(data, source); err != nil {
		return nil, err
	}
	return s.Report(), nil
}

func (s *TemplateService) deleteObject(ctx context.Context, objectName string) {
	if err := s.store.DeleteFile(ctx, objectName); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Warn("failed to delete template object", "object", objectName, "error", err)
	}
}
