package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	QuotationStatusDraft = "draft"
	QuotationStatusFinal = "final"
)

type Quotation struct {
	ID               string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	QuoteNo          string         `gorm:"type:varchar(32);index" json:"quote_no"`
	Revision         string         `gorm:"type:varchar(32)" json:"revision"`
	QuoteDate        string         `gorm:"type:varchar(64)" json:"quote_date"`
	ToPerson         string         `gorm:"type:varchar(200)" json:"to_person"`
	Firm             string         `gorm:"type:varchar(255)" json:"firm"`
	Address          string         `gorm:"type:text" json:"address"`
	PaymentTerms     string         `gorm:"type:text" json:"payment_terms"`
	DeliveryTerms    string         `gorm:"type:text" json:"delivery_terms"`
	ScopeDescription string         `gorm:"type:text" json:"scope_description"`
	Scope1           string         `gorm:"type:text" json:"scope_1"`
	Scope2           string         `gorm:"type:text" json:"scope_2"`
	Status           string         `gorm:"type:varchar(16);not null;default:'draft';index" json:"status"`
	Fixtures         datatypes.JSON `gorm:"type:json" json:"fixtures"` // []FixtureRecord, never image bytes
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Images []QuotationImage `gorm:"foreignKey:QuotationID" json:"images,omitempty"`
	Items  []QuotationItem  `gorm:"foreignKey:QuotationID" json:"items,omitempty"`
}

func (Quotation) TableName() string {
	return "quotations"
}

func (q *Quotation) IsDraft() bool {
	return q.Status == QuotationStatusDraft
}

// FixtureRecord is the stored form of a fixture line.
type FixtureRecord struct {
	Name          string `json:"name"`
	Description   string `json:"desc"`
	HSNCode       string `json:"hsn"`
	Quantity      string `json:"qty"`
	Unit          string `json:"unit"`
	Price         string `json:"price"`
	Total         string `json:"total"`
	Words         string `json:"words"`
	Inclusions    string `json:"inclusions,omitempty"`
	Scope         string `json:"scope,omitempty"`
	Specification string `json:"spec,omitempty"`
	ImageName     string `json:"image_name,omitempty"`
}

// QuotationImage points at a draft fixture image held in blob storage.
type QuotationImage struct {
	ID           string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	QuotationID  string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_quotation_fixture" json:"quotation_id"`
	FixtureIndex int       `gorm:"not null;uniqueIndex:idx_quotation_fixture" json:"fixture_index"`
	ObjectName   string    `gorm:"type:varchar(512);not null" json:"object_name"`
	Filename     string    `gorm:"type:varchar(255)" json:"filename"`
	ContentType  string    `gorm:"type:varchar(100)" json:"content_type"`
	Size         int64     `json:"size"`
	URL          string    `gorm:"-" json:"url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (QuotationImage) TableName() string {
	return "quotation_images"
}

// QuotationItem is the priced line persisted for reporting. Amount is Quantity × Price.
type QuotationItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	QuotationID string    `gorm:"type:varchar(36);not null;index" json:"quotation_id"`
	Position    int       `gorm:"not null" json:"position"`
	ItemName    string    `gorm:"type:varchar(200);not null" json:"item_name"`
	Quantity    float64   `gorm:"not null" json:"quantity"`
	Price       float64   `gorm:"not null" json:"price"`
	Amount      float64   `gorm:"not null" json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (QuotationItem) TableName() string {
	return "quotation_items"
}

func (i *QuotationItem) BeforeSave(tx *gorm.DB) error {
	i.Amount = i.Quantity * i.Price
	return nil
}
