package models

import (
	"time"

	"gorm.io/gorm"
)

type Invoice struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	InvoiceNumber  string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"invoice_number"`
	InvoiceDate    time.Time      `json:"invoice_date"`
	CompanyName    string         `gorm:"type:varchar(255)" json:"company_name"`
	CustomerName   string         `gorm:"type:varchar(200)" json:"customer_name"`
	PONumber       string         `gorm:"type:varchar(100)" json:"po_number"`
	OrderValue     float64        `json:"order_value"`
	PaymentTerms   string         `gorm:"type:text" json:"payment_terms"`
	GRNDate        time.Time      `json:"grn_date"`
	PaymentDueDate time.Time      `json:"payment_due_date"`
	Remarks        string         `gorm:"type:text" json:"remarks"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Invoice) TableName() string {
	return "invoices"
}

// DueDays counts whole days from today until the payment due date; negative when overdue.
func (i *Invoice) DueDays(now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	due := time.Date(i.PaymentDueDate.Year(), i.PaymentDueDate.Month(), i.PaymentDueDate.Day(), 0, 0, 0, 0, time.UTC)
	return int(due.Sub(today).Hours() / 24)
}
