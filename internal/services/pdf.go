package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/metrics"

	"github.com/sony/gobreaker/v2"
	"github.com/starwalkn/gotenberg-go-client/v8"
	"github.com/starwalkn/gotenberg-go-client/v8/document"
)

var ErrPDFUnavailable = errors.New("pdf conversion is unavailable")

// PDFConverter turns a DOCX into a PDF.
type PDFConverter interface {
	Convert(ctx context.Context, docx []byte, filename string, landscape bool) ([]byte, error)
}

type PDFService struct {
	client     *gotenberg.Client
	timeout    time.Duration
	maxRetries int
	breaker    *gobreaker.CircuitBreaker[[]byte]
	metrics    *metrics.Metrics
	log        *logger.Logger
}

func NewPDFService(gotenbergURL string, timeoutStr string, maxRetries int, m *metrics.Metrics, log *logger.Logger) (*PDFService, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("component", "pdf_service")

	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		timeout = 30 * time.Second
		log.Warn("invalid gotenberg timeout, using default", "value", timeoutStr, "default", timeout, "error", err)
	}
	if maxRetries < 1 {
		maxRetries = 1
	}

	httpClient := &http.Client{
		Timeout: timeout,
	}

	client, err := gotenberg.NewClient(gotenbergURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gotenberg client: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "gotenberg",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &PDFService{
		client:     client,
		timeout:    timeout,
		maxRetries: maxRetries,
		breaker:    breaker,
		metrics:    m,
		log:        log,
	}, nil
}

// Convert sends docx to Gotenberg's LibreOffice route. While the breaker is open requests
// fail fast with ErrPDFUnavailable.
func (s *PDFService) Convert(ctx context.Context, docx []byte, filename string, landscape bool) ([]byte, error) {
	pdf, err := s.breaker.Execute(func() ([]byte, error) {
		return s.convertWithRetry(ctx, docx, filename, landscape)
	})
	s.metrics.RecordPDFConversion(err == nil)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrPDFUnavailable, err)
	}
	return pdf, err
}

func (s *PDFService) convertWithRetry(ctx context.Context, docx []byte, filename string, landscape bool) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		pdf, err := s.convertOnce(ctx, docx, filename, landscape)
		if err == nil {
			return pdf, nil
		}

		lastErr = err
		s.log.Warn("pdf conversion attempt failed", "attempt", attempt, "max", s.maxRetries, "error", err)

		if attempt < s.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	return nil, fmt.Errorf("failed to convert document after %d attempts: %w", s.maxRetries, lastErr)
}

func (s *PDFService) convertOnce(ctx context.Context, docx []byte, filename string, landscape bool) ([]byte, error) {
	convertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	doc, err := document.FromReader(filename, bytes.NewReader(docx))
	if err != nil {
		return nil, fmt.Errorf("failed to create document from reader: %w", err)
	}

	req := gotenberg.NewLibreOfficeRequest(doc)
	if landscape {
		req.Landscape()
	}

	resp, err := s.client.Send(convertCtx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gotenberg returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
