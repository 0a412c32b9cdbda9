package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"KEC-QUOTE/internal/processor"
	"KEC-QUOTE/internal/services"
)

type TemplateHandler struct {
	templates *services.TemplateService
}

func NewTemplateHandler(templates *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// GetTemplate reports which template is active and how it matches the expected layout.
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"source": h.templates.Source(),
		"report": h.templates.Report(),
	})
}

// UploadTemplate replaces the active template. A template without a pricing table is refused.
func (h *TemplateHandler) UploadTemplate(c *gin.Context) {
	file, header, err := c.Request.FormFile("template")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".docx") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .docx files are supported"})
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	report, err := h.templates.Replace(c.Request.Context(), data, header.Filename)
	switch {
	case errors.Is(err, processor.ErrPricingTableMissing), errors.Is(err, processor.ErrNotDocx):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "report": report})
		return
	case err != nil:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to replace template"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Template uploaded successfully",
		"source":  h.templates.Source(),
		"report":  report,
	})
}
