package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"KEC-QUOTE/internal"
	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/metrics"
	"KEC-QUOTE/internal/processor"
	"KEC-QUOTE/internal/processor/processortest"
	"KEC-QUOTE/internal/storage"
)

func setupServicesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, internal.AutoMigrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func setupLocalStore(t *testing.T) *storage.LocalStore {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func newTestGenerator(t *testing.T) *QuotationGenerator {
	t.Helper()
	templates, err := NewTemplateServiceFromBytes(processortest.QuotationTemplate(), DefaultProfile(), logger.Nop())
	require.NoError(t, err)
	engine := processor.NewEngine(processor.NewImageProcessor(800, 85), processor.XMLRowCloner())
	return NewQuotationGenerator(templates, engine, metrics.New(), logger.Nop())
}

func sampleForm(fixtures int) *QuotationForm {
	form := &QuotationForm{
		QuoteNo:      "KEC012OC2026",
		Revision:     "Rev B",
		Date:         "Monday, October 19, 2026",
		ToPerson:     "Ms. Anita Rao",
		Firm:         "Acme Controls Pvt Ltd",
		PaymentTerms: "Payment: 30 Days from delivery",
	}
	for i := 0; i < fixtures; i++ {
		form.Fixtures = append(form.Fixtures, FixtureInput{
			Name:          []string{"Clamp", "Gauge", "Jig", "Nest"}[i%4],
			Description:   "for housing assembly",
			HSNCode:       "84790000",
			Quantity:      "2",
			Unit:          "Each",
			Price:         "1500",
			Inclusions:    "Design and drawings",
			Specification: "Aluminium base",
		})
	}
	return form
}
