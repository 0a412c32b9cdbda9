package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/models"

	"gorm.io/gorm"
)

var (
	ErrInvalidStatus   = errors.New("invalid inquiry status")
	ErrInquiryNotFound = errors.New("inquiry not found")
)

type InquiryInput struct {
	LeadDescription string     `json:"lead_description" binding:"required"`
	CompanyName     string     `json:"company_name"`
	CustomerName    string     `json:"customer_name"`
	Status          string     `json:"status"`
	NextDate        *time.Time `json:"next_date"`
	Remarks         string     `json:"remarks"`
}

type InquiryService struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewInquiryService(db *gorm.DB, log *logger.Logger) *InquiryService {
	if log == nil {
		log = logger.Nop()
	}
	return &InquiryService{db: db, log: log.With("component", "inquiry_service"), now: time.Now}
}

// Create stores a new inquiry. Its create id is allocated in the same transaction and also
// becomes the quote number.
func (s *InquiryService) Create(ctx context.Context, in InquiryInput) (*models.Inquiry, error) {
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = "Inputs"
	}
	if !IsInquiryStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	now := s.now()
	inquiry := &models.Inquiry{
		Status:          status,
		LeadDescription: in.LeadDescription,
		CompanyName:     in.CompanyName,
		CustomerName:    in.CustomerName,
		DateOfQuote:     now,
		NextDate:        in.NextDate,
		Remarks:         in.Remarks,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := NextCreateID(tx, now)
		if err != nil {
			return err
		}
		inquiry.CreateID = id
		inquiry.QuoteNo = id
		inquiry.OpportunityID = OpportunityID(status, id)
		return tx.Create(inquiry).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create inquiry: %w", err)
	}

	s.log.Info("inquiry created", "create_id", inquiry.CreateID, "status", status)
	return inquiry, nil
}

// UpdateStatus moves an inquiry to status and recomputes its opportunity id.
func (s *InquiryService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Inquiry, error) {
	if !IsInquiryStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var inquiry models.Inquiry
	if err := s.db.WithContext(ctx).First(&inquiry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInquiryNotFound
		}
		return nil, fmt.Errorf("failed to load inquiry: %w", err)
	}

	inquiry.Status = status
	inquiry.OpportunityID = OpportunityID(status, inquiry.CreateID)
	if err := s.db.WithContext(ctx).Model(&inquiry).
		Updates(map[string]interface{}{"status": inquiry.Status, "opportunity_id": inquiry.OpportunityID}).Error; err != nil {
		return nil, fmt.Errorf("failed to update inquiry: %w", err)
	}

	s.log.Info("inquiry status updated", "create_id", inquiry.CreateID, "status", status)
	return &inquiry, nil
}
