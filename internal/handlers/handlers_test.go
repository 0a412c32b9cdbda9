package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"KEC-QUOTE/internal"
	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/metrics"
	"KEC-QUOTE/internal/middleware"
	"KEC-QUOTE/internal/processor"
	"KEC-QUOTE/internal/processor/processortest"
	"KEC-QUOTE/internal/services"
	"KEC-QUOTE/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakePDF struct {
	calls     int
	landscape bool
}

func (f *fakePDF) Convert(_ context.Context, _ []byte, _ string, landscape bool) ([]byte, error) {
	f.calls++
	f.landscape = landscape
	return []byte("%PDF-1.7 fake"), nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, internal.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestRouter(t *testing.T, pdf services.PDFConverter) *gin.Engine {
	t.Helper()
	db := setupTestDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	templates, err := services.NewTemplateServiceFromBytes(processortest.QuotationTemplate(), services.DefaultProfile(), logger.Nop())
	require.NoError(t, err)
	engine := processor.NewEngine(processor.NewImageProcessor(800, 85), processor.XMLRowCloner())
	m := metrics.New()
	generator := services.NewQuotationGenerator(templates, engine, m, logger.Nop())

	return NewRouter(RouterDeps{
		Generator:  generator,
		Quotations: services.NewQuotationService(db, store, generator, logger.Nop()),
		Templates:  templates,
		Inquiries:  services.NewInquiryService(db, logger.Nop()),
		Invoices:   services.NewInvoiceService(db, logger.Nop()),
		PDF:        pdf,
		Metrics:    m,
	})
}

// quotationRequest builds the multipart form the quotation page posts.
func quotationRequest(t *testing.T, target string, fields map[string]string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("fixtures[0][image]", "clamp.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func quotationFields() map[string]string {
	return map[string]string{
		"quote_no":           "KEC012OC2026",
		"revision":           "Rev B",
		"to_person":          "Ms. Anita Rao",
		"fixtures[0][name]":  "Clamp",
		"fixtures[0][qty]":   "2",
		"fixtures[0][price]": "1500",
		"fixtures[0][spec]":  "Aluminium base",
		"fixtures[1][name]":  "Gauge",
		"fixtures[1][qty]":   "1",
		"fixtures[1][price]": "2500",
	}
}

func TestGenerate_ReturnsDocx(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, quotationRequest(t, "/api/v1/quotations/generate", quotationFields(), processortest.PNG(40, 20)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, services.DocxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Updated_Quotation_KEC012OC2026.docx")
	assert.Equal(t, "0", w.Header().Get(middleware.ImageFailuresHeader))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	doc, err := processor.Open(w.Body.Bytes())
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ParagraphsContaining("Ms. Anita Rao"))
	assert.Empty(t, doc.ParagraphsContaining("[SPECIFICATIONS]"))
}

func TestGenerate_PDF(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		r := newTestRouter(t, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, quotationRequest(t, "/api/v1/quotations/generate?format=pdf", quotationFields(), nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("converted", func(t *testing.T) {
		pdf := &fakePDF{}
		r := newTestRouter(t, pdf)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, quotationRequest(t, "/api/v1/quotations/generate?format=pdf", quotationFields(), nil))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "Updated_Quotation_KEC012OC2026.pdf")
		assert.Equal(t, 1, pdf.calls)
		assert.False(t, pdf.landscape)
	})
}

func TestQuotation_SaveGetDownload(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, quotationRequest(t, "/api/v1/quotations", quotationFields(), processortest.PNG(40, 20)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var saved struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Images []struct {
			FixtureIndex int `json:"fixture_index"`
		} `json:"images"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, "draft", saved.Status)
	require.Len(t, saved.Images, 1)
	assert.Equal(t, 0, saved.Images[0].FixtureIndex)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quotations/"+saved.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "KEC012OC2026")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/quotations/"+saved.ID+"/download", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, services.DocxContentType, w.Header().Get("Content-Type"))

	fields := quotationFields()
	fields["id"] = saved.ID
	fields["revision"] = "Rev C"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, quotationRequest(t, "/api/v1/quotations", fields, nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Rev C")
}

func TestQuotation_NotFound(t *testing.T) {
	r := newTestRouter(t, nil)

	for _, target := range []string{"/api/v1/quotations/missing", "/api/v1/quotations/missing/download"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quotations/missing/finalize", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplate_GetAndRejectUpload(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/template", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"memory"`)

	upload := func(filename string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("template", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPut, "/api/v1/template", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, upload("quote.pdf", []byte("%PDF")).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, upload("quote.docx", []byte("not a zip")).Code)

	noTable := processortest.Build(processortest.Template{Body: processortest.P("Quotation")})
	assert.Equal(t, http.StatusUnprocessableEntity, upload("quote.docx", noTable).Code)
}

func TestInquiry_CreateAndUpdateStatus(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/inquiries", strings.NewReader(`{"lead_description":"Welding fixture","company_name":"Acme"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var inquiry struct {
		ID       uint   `json:"id"`
		CreateID string `json:"create_id"`
		QuoteNo  string `json:"quote_no"`
		Status   string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &inquiry))
	assert.True(t, strings.HasPrefix(inquiry.CreateID, "KEC"))
	assert.Equal(t, inquiry.CreateID, inquiry.QuoteNo)
	assert.Equal(t, "Inputs", inquiry.Status)

	put := func(target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	path := "/api/v1/inquiries/" + jsonNumber(inquiry.ID) + "/status"
	w = put(path, `{"status":"Quotation"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"Quotation"`)

	w = put(path, `{"status":"Shipped"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "valid_statuses")

	assert.Equal(t, http.StatusNotFound, put("/api/v1/inquiries/999/status", `{"status":"Lost"}`).Code)
	assert.Equal(t, http.StatusBadRequest, put("/api/v1/inquiries/abc/status", `{"status":"Lost"}`).Code)
}

func TestInvoice_NumberAndCreate(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/invoices/number", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"invoice_number":"KEC/001/`)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, post(`{"company_name":"Acme"}`).Code)

	w = post(`{"invoice_date":"2026-10-19T00:00:00Z","grn_date":"2026-10-20T00:00:00Z","payment_terms":"Net 30"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"invoice_number":"KEC/001/2627"`)
	assert.Contains(t, w.Body.String(), `"payment_due_date":"2026-11-19T00:00:00Z"`)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/healthz",status="200"} 1`)
}

func jsonNumber(n uint) string {
	b, _ := json.Marshal(n)
	return string(b)
}
