package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"KEC-QUOTE/internal/models"

	"gorm.io/gorm"
)

const idPrefix = "KEC"

var monthCodes = [...]string{"JA", "FE", "MR", "AP", "MY", "JN", "JY", "AU", "SE", "OC", "NO", "DE"}

// MonthCode returns the two-letter month code used in create ids (JN for June, JY for July).
func MonthCode(m time.Month) string {
	return monthCodes[m-1]
}

// NextCreateID returns the next inquiry id for now's month, e.g. KEC020JY2025. It must run
// inside tx so that the max lookup and the later insert see the same rows.
func NextCreateID(tx *gorm.DB, now time.Time) (string, error) {
	suffix := fmt.Sprintf("%s%d", MonthCode(now.Month()), now.Year())

	var ids []string
	if err := tx.Unscoped().Model(&models.Inquiry{}).
		Where("create_id LIKE ?", idPrefix+"%"+suffix).
		Pluck("create_id", &ids).Error; err != nil {
		return "", fmt.Errorf("failed to read create ids: %w", err)
	}

	serial := 0
	for _, id := range ids {
		middle := strings.TrimSuffix(strings.TrimPrefix(id, idPrefix), suffix)
		if n, err := strconv.Atoi(middle); err == nil && n > serial {
			serial = n
		}
	}

	for {
		serial++
		id := fmt.Sprintf("%s%03d%s", idPrefix, serial, suffix)
		exists, err := rowExists(tx, &models.Inquiry{}, "create_id = ?", id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
}

var opportunityPrefixes = map[string]string{
	"Enquiry Hold":  "o",
	"PO-Confirm":    "o",
	"Design Review": "o",
	"Manufacturing": "o",

	"Inputs":      "e",
	"Pending":     "e",
	"Inspection":  "e",
	"Enquiry":     "e",
	"Quotation":   "e",
	"Negotiation": "e",

	"Stage-Inspection": "i",
	"Dispatch":         "i",
	"GRN":              "i",
	"Project Closed":   "i",
}

var opportunityTokens = map[string]string{
	"Lost":             "LOST",
	"PO Hold":          "HOLD",
	"Design":           "DESIGN",
	"Material Receive": "MATERIAL",
	"Approval":         "APPROVAL",
}

// InquiryStatuses lists every status an inquiry can be in, in pipeline order.
var InquiryStatuses = []string{
	"Enquiry", "Inputs", "Inspection", "Enquiry Hold", "Pending", "Quotation", "Negotiation",
	"PO-Confirm", "PO Hold", "Design", "Design Review", "Material Receive", "Manufacturing",
	"Stage-Inspection", "Approval", "Dispatch", "GRN", "Project Closed", "Lost",
}

func IsInquiryStatus(status string) bool {
	for _, s := range InquiryStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// OpportunityID derives the pipeline id of an inquiry: a stage letter plus the create id, or
// a fixed token for statuses outside the e/o/i stages.
func OpportunityID(status, createID string) string {
	if createID == "" {
		return ""
	}
	if prefix, ok := opportunityPrefixes[status]; ok {
		return prefix + createID
	}
	if token, ok := opportunityTokens[status]; ok {
		return token
	}
	return "UNKNOWN"
}

// FiscalYear formats the April to March year containing t, e.g. 2526 for 2025-26.
func FiscalYear(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%02d%02d", start%100, (start+1)%100)
}

// NextInvoiceNumber returns the next invoice number of now's fiscal year, e.g. KEC/051/2526.
func NextInvoiceNumber(tx *gorm.DB, now time.Time) (string, error) {
	fy := FiscalYear(now)

	var numbers []string
	if err := tx.Unscoped().Model(&models.Invoice{}).
		Where("invoice_number LIKE ?", idPrefix+"/%/"+fy).
		Pluck("invoice_number", &numbers).Error; err != nil {
		return "", fmt.Errorf("failed to read invoice numbers: %w", err)
	}

	seq := 0
	for _, number := range numbers {
		parts := strings.Split(number, "/")
		if len(parts) != 3 || parts[0] != idPrefix || parts[2] != fy {
			continue
		}
		if n, err := strconv.Atoi(parts[1]); err == nil && n > seq {
			seq = n
		}
	}

	for {
		seq++
		number := fmt.Sprintf("%s/%03d/%s", idPrefix, seq, fy)
		exists, err := rowExists(tx, &models.Invoice{}, "invoice_number = ?", number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}
}

func rowExists(tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var count int64
	if err := tx.Unscoped().Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check existing ids: %w", err)
	}
	return count > 0, nil
}

var paymentDayPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*days?`),
	regexp.MustCompile(`(?i)net\s*(\d+)`),
	regexp.MustCompile(`(?i)within\s*(\d+)`),
	regexp.MustCompile(`(\d+)`),
}

// ExtractPaymentDays finds the credit period in free-form payment terms ("45 Days from
// delivery", "Net 30"). Only values between 1 and 365 are accepted.
func ExtractPaymentDays(terms string) (int, bool) {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return 0, false
	}
	for _, re := range paymentDayPatterns {
		match := re.FindStringSubmatch(terms)
		if match == nil {
			continue
		}
		days, err := strconv.Atoi(match[1])
		if err != nil || days < 1 || days > 365 {
			continue
		}
		return days, true
	}
	return 0, false
}
