package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"KEC-QUOTE/internal/services"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
}

func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// NextNumber previews the number the next invoice will get.
func (h *InvoiceHandler) NextNumber(c *gin.Context) {
	number, err := h.invoices.NextNumber(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate invoice number"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoice_number": number})
}

func (h *InvoiceHandler) Create(c *gin.Context) {
	var req services.InvoiceInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	invoice, err := h.invoices.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invoice"})
		return
	}
	c.JSON(http.StatusCreated, invoice)
}
