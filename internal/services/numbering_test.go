package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KEC-QUOTE/internal/models"
)

func TestMonthCode(t *testing.T) {
	var codes []string
	for m := time.January; m <= time.December; m++ {
		codes = append(codes, MonthCode(m))
	}
	assert.Equal(t, []string{"JA", "FE", "MR", "AP", "MY", "JN", "JY", "AU", "SE", "OC", "NO", "DE"}, codes)
}

func TestNextCreateID(t *testing.T) {
	db := setupServicesTestDB(t)
	july := time.Date(2025, time.July, 3, 10, 0, 0, 0, time.UTC)

	id, err := NextCreateID(db, july)
	require.NoError(t, err)
	assert.Equal(t, "KEC001JY2025", id)

	for _, existing := range []string{"KEC009JY2025", "KEC100JY2025", "KEC020JN2025", "KEC500JY2024"} {
		require.NoError(t, db.Create(&models.Inquiry{CreateID: existing, LeadDescription: "x"}).Error)
	}

	id, err = NextCreateID(db, july)
	require.NoError(t, err)
	assert.Equal(t, "KEC101JY2025", id, "the max is numeric, not lexical")

	id, err = NextCreateID(db, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "KEC021JN2025", id)
}

func TestOpportunityID(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{"Inputs", "eKEC020JY2025"},
		{"Negotiation", "eKEC020JY2025"},
		{"PO-Confirm", "oKEC020JY2025"},
		{"Manufacturing", "oKEC020JY2025"},
		{"GRN", "iKEC020JY2025"},
		{"Lost", "LOST"},
		{"PO Hold", "HOLD"},
		{"Design", "DESIGN"},
		{"Material Receive", "MATERIAL"},
		{"Approval", "APPROVAL"},
		{"Something else", "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OpportunityID(tt.status, "KEC020JY2025"), tt.status)
	}
	assert.Empty(t, OpportunityID("Inputs", ""))
}

func TestInquiryStatusesAllResolve(t *testing.T) {
	require.Len(t, InquiryStatuses, 19)
	for _, s := range InquiryStatuses {
		assert.True(t, IsInquiryStatus(s))
		assert.NotEqual(t, "UNKNOWN", OpportunityID(s, "KEC001JA2026"), s)
	}
	assert.False(t, IsInquiryStatus("inputs"))
}

func TestFiscalYear(t *testing.T) {
	assert.Equal(t, "2526", FiscalYear(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2526", FiscalYear(time.Date(2026, time.March, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "9900", FiscalYear(time.Date(2000, time.January, 5, 0, 0, 0, 0, time.UTC)))
}

func TestNextInvoiceNumber(t *testing.T) {
	db := setupServicesTestDB(t)
	now := time.Date(2025, time.November, 12, 0, 0, 0, 0, time.UTC)

	number, err := NextInvoiceNumber(db, now)
	require.NoError(t, err)
	assert.Equal(t, "KEC/001/2526", number)

	for _, existing := range []string{"KEC/050/2526", "KEC/999/2425", "KEC/7/2526", "OTHER/900/2526"} {
		require.NoError(t, db.Create(&models.Invoice{InvoiceNumber: existing}).Error)
	}
	number, err = NextInvoiceNumber(db, now)
	require.NoError(t, err)
	assert.Equal(t, "KEC/051/2526", number)
}

func TestExtractPaymentDays(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Payment: 45 Days from delivery (Being an MSME)", 45, true},
		{"NET 30", 30, true},
		{"Payment within 60", 60, true},
		{"1 day", 1, true},
		{"500 days or 90", 0, false},
		{"advance", 0, false},
		{"", 0, false},
		{"0 days", 0, false},
	}
	for _, tt := range tests {
		got, ok := ExtractPaymentDays(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
