package services

import (
	"context"
	"fmt"
	"time"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/models"

	"gorm.io/gorm"
)

// defaultPaymentDays applies when the payment terms name no usable credit period.
const defaultPaymentDays = 15

type InvoiceInput struct {
	InvoiceDate  time.Time `json:"invoice_date"`
	CompanyName  string    `json:"company_name"`
	CustomerName string    `json:"customer_name"`
	PONumber     string    `json:"po_number"`
	OrderValue   float64   `json:"order_value"`
	PaymentTerms string    `json:"payment_terms"`
	GRNDate      time.Time `json:"grn_date" binding:"required"`
	Remarks      string    `json:"remarks"`
}

type InvoiceService struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewInvoiceService(db *gorm.DB, log *logger.Logger) *InvoiceService {
	if log == nil {
		log = logger.Nop()
	}
	return &InvoiceService{db: db, log: log.With("component", "invoice_service"), now: time.Now}
}

// NextNumber previews the number the next invoice would get.
func (s *InvoiceService) NextNumber(ctx context.Context) (string, error) {
	return NextInvoiceNumber(s.db.WithContext(ctx), s.now())
}

// Create numbers and stores an invoice. The payment due date is the GRN date plus the
// credit period found in the payment terms.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	now := s.now()
	invoiceDate := in.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = now
	}
	days, ok := ExtractPaymentDays(in.PaymentTerms)
	if !ok {
		days = defaultPaymentDays
	}

	invoice := &models.Invoice{
		InvoiceDate:    invoiceDate,
		CompanyName:    in.CompanyName,
		CustomerName:   in.CustomerName,
		PONumber:       in.PONumber,
		OrderValue:     in.OrderValue,
		PaymentTerms:   in.PaymentTerms,
		GRNDate:        in.GRNDate,
		PaymentDueDate: in.GRNDate.AddDate(0, 0, days),
		Remarks:        in.Remarks,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, err := NextInvoiceNumber(tx, invoiceDate)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		return tx.Create(invoice).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.log.Info("invoice created", "invoice_number", invoice.InvoiceNumber, "payment_days", days)
	return invoice, nil
}
