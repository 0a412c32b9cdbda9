package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"KEC-QUOTE/internal/services"
)

type InquiryHandler struct {
	inquiries *services.InquiryService
}

func NewInquiryHandler(inquiries *services.InquiryService) *InquiryHandler {
	return &InquiryHandler{inquiries: inquiries}
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *InquiryHandler) Create(c *gin.Context) {
	var req services.InquiryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	inquiry, err := h.inquiries.Create(c.Request.Context(), req)
	if err != nil {
		inquiryError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inquiry)
}

func (h *InquiryHandler) UpdateStatus(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid inquiry ID"})
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	inquiry, err := h.inquiries.UpdateStatus(c.Request.Context(), uint(id), req.Status)
	if err != nil {
		inquiryError(c, err)
		return
	}
	c.JSON(http.StatusOK, inquiry)
}

func inquiryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "valid_statuses": services.InquiryStatuses})
	case errors.Is(err, services.ErrInquiryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Inquiry not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save inquiry"})
	}
}
