package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/middleware"
	"KEC-QUOTE/internal/services"
)

const pdfContentType = "application/pdf"

type QuotationHandler struct {
	generator      *services.QuotationGenerator
	quotations     *services.QuotationService
	pdf            services.PDFConverter
	maxUploadBytes int64
	log            *logger.Logger
}

func NewQuotationHandler(generator *services.QuotationGenerator, quotations *services.QuotationService, pdf services.PDFConverter, maxUploadBytes int64, log *logger.Logger) *QuotationHandler {
	if log == nil {
		log = logger.Nop()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 32 << 20
	}
	return &QuotationHandler{
		generator:      generator,
		quotations:     quotations,
		pdf:            pdf,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Generate fills the template with the submitted form and returns the document. Nothing is
// stored. format=pdf converts the result before sending it.
func (h *QuotationHandler) Generate(c *gin.Context) {
	form, err := h.parseForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	out, err := h.generator.Generate(c.Request.Context(), form)
	if err != nil {
		h.fail(c, err, "Failed to generate quotation")
		return
	}
	h.send(c, out)
}

// Save stores the form as a draft or final quotation. Passing an id updates that quotation.
func (h *QuotationHandler) Save(c *gin.Context) {
	form, err := h.parseForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.PostForm("id")
	q, err := h.quotations.Save(c.Request.Context(), id, form)
	if err != nil {
		h.fail(c, err, "Failed to save quotation")
		return
	}

	status := http.StatusCreated
	if id != "" {
		status = http.StatusOK
	}
	c.JSON(status, q)
}

func (h *QuotationHandler) Get(c *gin.Context) {
	q, err := h.quotations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to load quotation")
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *QuotationHandler) Download(c *gin.Context) {
	out, err := h.quotations.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to generate quotation")
		return
	}
	h.send(c, out)
}

// Finalize marks a draft as final and returns its last rendering with images.
func (h *QuotationHandler) Finalize(c *gin.Context) {
	out, err := h.quotations.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to finalize quotation")
		return
	}
	h.send(c, out)
}

func (h *QuotationHandler) send(c *gin.Context, out *services.GeneratedQuotation) {
	data, filename, contentType := out.Data, out.Filename, services.DocxContentType

	if strings.EqualFold(c.Query("format"), "pdf") {
		if h.pdf == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PDF conversion is not configured"})
			return
		}
		pdf, err := h.pdf.Convert(c.Request.Context(), out.Data, out.Filename, out.Landscape)
		if err != nil {
			h.fail(c, err, "Failed to convert quotation to PDF")
			return
		}
		data, contentType = pdf, pdfContentType
		filename = strings.TrimSuffix(filename, ".docx") + ".pdf"
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Transfer-Encoding", "binary")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if out.Report != nil {
		c.Header(middleware.ImageFailuresHeader, strconv.Itoa(out.Report.ImageFailures()))
	}
	c.Data(http.StatusOK, contentType, data)
}

func (h *QuotationHandler) fail(c *gin.Context, err error, message string) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, services.ErrQuotationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Quotation not found"})
	case errors.Is(err, services.ErrEmptyQuotation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrPDFUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PDF conversion is temporarily unavailable"})
	default:
		h.log.Error(message, "error", err, "request_id", middleware.GetRequestID(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": message, "details": err.Error()})
	}
}

// parseForm reads the quotation form. Fixtures are sent as fixtures[i][field] for i = 0, 1, …
// and stop at the first index without a name field.
func (h *QuotationHandler) parseForm(c *gin.Context) (*services.QuotationForm, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	if err := c.Request.ParseMultipartForm(h.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil, fmt.Errorf("invalid form: %w", err)
	}
	values := c.Request.PostForm

	form := &services.QuotationForm{
		QuoteNo:          values.Get("quote_no"),
		Revision:         values.Get("revision"),
		Date:             values.Get("date"),
		ToPerson:         values.Get("to_person"),
		Firm:             values.Get("firm"),
		Address:          values.Get("address"),
		PaymentTerms:     values.Get("payment_terms"),
		DeliveryTerms:    values.Get("delivery_terms"),
		ScopeDescription: values.Get("scope_desc"),
		Scope1:           values.Get("scope_1"),
		Scope2:           values.Get("scope_2"),
		Status:           values.Get("status"),
	}

	for i := 0; ; i++ {
		key := func(field string) string { return fmt.Sprintf("fixtures[%d][%s]", i, field) }
		if _, ok := values[key("name")]; !ok {
			break
		}
		f := services.FixtureInput{
			Name:          values.Get(key("name")),
			Description:   values.Get(key("desc")),
			HSNCode:       values.Get(key("hsn")),
			Quantity:      values.Get(key("qty")),
			Unit:          values.Get(key("unit")),
			Price:         values.Get(key("price")),
			Total:         values.Get(key("total")),
			Words:         values.Get(key("words")),
			Inclusions:    values.Get(key("inclusions")),
			Scope:         values.Get(key("scope")),
			Specification: values.Get(key("spec")),
		}
		if c.Request.MultipartForm != nil {
			if files := c.Request.MultipartForm.File[key("image")]; len(files) > 0 {
				data, err := readUpload(files[0])
				if err != nil {
					return nil, fmt.Errorf("fixture %d image: %w", i+1, err)
				}
				f.Image = data
				f.ImageName = files[0].Filename
				f.ImageContentType = files[0].Header.Get("Content-Type")
				if f.ImageContentType == "" || f.ImageContentType == "application/octet-stream" {
					f.ImageContentType = http.DetectContentType(data)
				}
			}
		}
		form.Fixtures = append(form.Fixtures, f)
	}
	return form, nil
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
