package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"KEC-QUOTE/internal/logger"
	"KEC-QUOTE/internal/models"
	"KEC-QUOTE/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrQuotationNotFound = errors.New("quotation not found")

const (
	signedURLExpiry   = 15 * time.Minute
	imageLoadParallel = 4
)

// QuotationService persists quotations. Fixture images are stored only while a quotation is
// a draft; finalizing drops them, so later downloads of a final quotation show placeholders.
type QuotationService struct {
	db        *gorm.DB
	store     storage.BlobStore
	generator *QuotationGenerator
	log       *logger.Logger
	now       func() time.Time
}

func NewQuotationService(db *gorm.DB, store storage.BlobStore, generator *QuotationGenerator, log *logger.Logger) *QuotationService {
	if log == nil {
		log = logger.Nop()
	}
	return &QuotationService{
		db:        db,
		store:     store,
		generator: generator,
		log:       log.With("component", "quotation_service"),
		now:       time.Now,
	}
}

func normalizeStatus(status string) string {
	if strings.EqualFold(strings.TrimSpace(status), models.QuotationStatusFinal) {
		return models.QuotationStatusFinal
	}
	return models.QuotationStatusDraft
}

// Save creates a quotation, or overwrites the one with id when id is not empty.
func (s *QuotationService) Save(ctx context.Context, id string, form *QuotationForm) (*models.Quotation, error) {
	records := make([]models.FixtureRecord, 0, len(form.Fixtures))
	for _, f := range form.Fixtures {
		records = append(records, f.record())
	}
	fixturesJSON, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fixtures: %w", err)
	}

	q := &models.Quotation{}
	isNew := id == ""
	if !isNew {
		if err := s.db.WithContext(ctx).First(q, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrQuotationNotFound
			}
			return nil, fmt.Errorf("failed to load quotation: %w", err)
		}
	} else {
		q.ID = uuid.New().String()
	}

	q.QuoteNo = form.QuoteNo
	q.Revision = form.Revision
	q.QuoteDate = form.Date
	q.ToPerson = form.ToPerson
	q.Firm = form.Firm
	q.Address = form.Address
	q.PaymentTerms = form.PaymentTerms
	q.DeliveryTerms = form.DeliveryTerms
	q.ScopeDescription = form.ScopeDescription
	q.Scope1 = form.Scope1
	q.Scope2 = form.Scope2
	q.Status = normalizeStatus(form.Status)
	q.Fixtures = datatypes.JSON(fixturesJSON)

	items := buildItems(q.ID, form.Fixtures)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		save := tx.Save
		if isNew {
			save = tx.Create
		}
		if err := save(q).Error; err != nil {
			return err
		}
		if err := tx.Where("quotation_id = ?", q.ID).Delete(&models.QuotationItem{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save quotation: %w", err)
	}

	if q.IsDraft() {
		if err := s.storeImages(ctx, q.ID, form.Fixtures); err != nil {
			return nil, err
		}
	} else {
		s.dropImages(ctx, q.ID)
	}

	s.log.Info("quotation saved", "id", q.ID, "quote_no", q.QuoteNo, "status", q.Status, "items", len(items))
	return s.Get(ctx, q.ID)
}

// buildItems keeps the fixtures that have a name and a numeric quantity and price.
func buildItems(quotationID string, fixtures []FixtureInput) []models.QuotationItem {
	var items []models.QuotationItem
	for i, f := range fixtures {
		name := strings.TrimSpace(f.Name)
		qty, okQty := ParseAmount(f.Quantity)
		price, okPrice := ParseAmount(f.Price)
		if name == "" || !okQty || !okPrice {
			continue
		}
		items = append(items, models.QuotationItem{
			QuotationID: quotationID,
			Position:    i + 1,
			ItemName:    name,
			Quantity:    qty,
			Price:       price,
		})
	}
	return items
}

func (s *QuotationService) storeImages(ctx context.Context, quotationID string, fixtures []FixtureInput) error {
	if s.store == nil {
		return nil
	}
	for i, f := range fixtures {
		if !f.HasImage() {
			continue
		}
		filename := f.ImageName
		if filename == "" {
			filename = fmt.Sprintf("fixture_%d", i+1)
		}
		objectName := storage.GenerateFixtureImageObjectName(quotationID, i, filename)

		var existing models.QuotationImage
		isNew := false
		err := s.db.WithContext(ctx).Where("quotation_id = ? AND fixture_index = ?", quotationID, i).First(&existing).Error
		switch {
		case err == nil:
			if existing.ObjectName != objectName {
				s.deleteObject(ctx, existing.ObjectName)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = models.QuotationImage{ID: uuid.New().String(), QuotationID: quotationID, FixtureIndex: i}
			isNew = true
		default:
			return fmt.Errorf("failed to load fixture image: %w", err)
		}

		result, err := s.store.UploadFile(ctx, bytes.NewReader(f.Image), objectName, f.ImageContentType)
		if err != nil {
			return fmt.Errorf("failed to upload fixture %d image: %w", i+1, err)
		}

		existing.ObjectName = objectName
		existing.Filename = filename
		existing.ContentType = f.ImageContentType
		existing.Size = result.Size
		save := s.db.WithContext(ctx).Save
		if isNew {
			save = s.db.WithContext(ctx).Create
		}
		if err := save(&existing).Error; err != nil {
			s.deleteObject(ctx, objectName)
			return fmt.Errorf("failed to record fixture %d image: %w", i+1, err)
		}
	}
	return nil
}

// dropImages removes every stored image of a quotation. Failures are logged only.
func (s *QuotationService) dropImages(ctx context.Context, quotationID string) int {
	var images []models.QuotationImage
	if err := s.db.WithContext(ctx).Where("quotation_id = ?", quotationID).Find(&images).Error; err != nil {
		s.log.Error("failed to list fixture images", "id", quotationID, "error", err)
		return 0
	}
	for _, img := range images {
		s.deleteObject(ctx, img.ObjectName)
	}
	if len(images) > 0 {
		if err := s.db.WithContext(ctx).Where("quotation_id = ?", quotationID).Delete(&models.QuotationImage{}).Error; err != nil {
			s.log.Error("failed to delete fixture image records", "id", quotationID, "error", err)
		}
	}
	return len(images)
}

func (s *QuotationService) deleteObject(ctx context.Context, objectName string) {
	if s.store == nil {
		return
	}
	if err := s.store.DeleteFile(ctx, objectName); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Warn("failed to delete stored image", "object", objectName, "error", err)
	}
}

// Get loads a quotation with its items and images. Images get signed URLs when the store
// can produce them.
func (s *QuotationService) Get(ctx context.Context, id string) (*models.Quotation, error) {
	var q models.Quotation
	err := s.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("fixture_index") }).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&q, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("failed to load quotation: %w", err)
	}

	if signer, ok := s.store.(storage.URLSigner); ok {
		for i := range q.Images {
			url, err := signer.GetSignedURL(q.Images[i].ObjectName, signedURLExpiry)
			if err != nil {
				s.log.Warn("failed to sign image url", "object", q.Images[i].ObjectName, "error", err)
				continue
			}
			q.Images[i].URL = url
		}
	}
	return &q, nil
}

// Form rebuilds the generation form of a stored quotation, reading draft images back from
// storage in parallel. An image that cannot be read is left out and renders as a placeholder.
func (s *QuotationService) Form(ctx context.Context, q *models.Quotation) (*QuotationForm, error) {
	var records []models.FixtureRecord
	if len(q.Fixtures) > 0 {
		if err := json.Unmarshal(q.Fixtures, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fixtures: %w", err)
		}
	}

	form := &QuotationForm{
		QuoteNo:          q.QuoteNo,
		Revision:         q.Revision,
		Date:             q.QuoteDate,
		ToPerson:         q.ToPerson,
		Firm:             q.Firm,
		Address:          q.Address,
		PaymentTerms:     q.PaymentTerms,
		DeliveryTerms:    q.DeliveryTerms,
		ScopeDescription: q.ScopeDescription,
		Scope1:           q.Scope1,
		Scope2:           q.Scope2,
		Status:           q.Status,
		Fixtures:         make([]FixtureInput, len(records)),
	}
	for i, r := range records {
		form.Fixtures[i] = fixtureFromRecord(r)
	}

	if s.store == nil || len(q.Images) == 0 {
		return form, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageLoadParallel)
	for _, img := range q.Images {
		img := img
		if img.FixtureIndex < 0 || img.FixtureIndex >= len(form.Fixtures) {
			continue
		}
		g.Go(func() error {
			data, err := storage.ReadAll(gctx, s.store, img.ObjectName)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.log.Warn("failed to read fixture image", "object", img.ObjectName, "error", err)
				return nil
			}
			// Each goroutine owns a distinct fixture index.
			f := &form.Fixtures[img.FixtureIndex]
			f.Image = data
			f.ImageContentType = img.ContentType
			if f.ImageName == "" {
				f.ImageName = img.Filename
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load fixture images: %w", err)
	}
	return form, nil
}

// Download regenerates the document of a stored quotation.
func (s *QuotationService) Download(ctx context.Context, id string) (*GeneratedQuotation, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	form, err := s.Form(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.generator.Generate(ctx, form)
}

// Finalize renders the quotation one last time with its draft images, then marks it final
// and deletes the images.
func (s *QuotationService) Finalize(ctx context.Context, id string) (*GeneratedQuotation, error) {
	out, err := s.Download(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Quotation{}).Where("id = ?", id).
		Update("status", models.QuotationStatusFinal).Error; err != nil {
		return nil, fmt.Errorf("failed to finalize quotation: %w", err)
	}
	dropped := s.dropImages(ctx, id)
	s.log.Info("quotation finalized", "id", id, "images_dropped", dropped)
	return out, nil
}

// CleanupStaleDrafts drops the stored images of drafts untouched for longer than maxAge.
// The drafts themselves are kept.
func (s *QuotationService) CleanupStaleDrafts(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Quotation{}).
		Where("status = ? AND updated_at < ?", models.QuotationStatusDraft, cutoff).
		Where("id IN (?)", s.db.Model(&models.QuotationImage{}).Select("quotation_id")).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find stale drafts: %w", err)
	}

	removed := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		removed += s.dropImages(ctx, id)
	}
	if removed > 0 {
		s.log.Info("stale draft images removed", "drafts", len(ids), "images", removed)
	}
	return removed, nil
}
