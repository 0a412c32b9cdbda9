package models

import (
	"time"

	"gorm.io/gorm"
)

// Inquiry is a sales lead. CreateID doubles as the quote number of its quotation.
type Inquiry struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreateID        string         `gorm:"type:varchar(15);uniqueIndex;not null" json:"create_id"`
	Status          string         `gorm:"type:varchar(20);not null;default:'Inputs'" json:"status"`
	OpportunityID   string         `gorm:"type:varchar(20)" json:"opportunity_id"`
	LeadDescription string         `gorm:"type:text;not null" json:"lead_description"`
	CompanyName     string         `gorm:"type:varchar(255)" json:"company_name"`
	CustomerName    string         `gorm:"type:varchar(200)" json:"customer_name"`
	QuoteNo         string         `gorm:"type:varchar(15)" json:"quote_no"`
	DateOfQuote     time.Time      `json:"date_of_quote"`
	NextDate        *time.Time     `json:"next_date,omitempty"`
	Remarks         string         `gorm:"type:text" json:"remarks"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Inquiry) TableName() string {
	return "inquiries"
}
