package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KEC-QUOTE/internal/models"
	"KEC-QUOTE/internal/processor"
	"KEC-QUOTE/internal/processor/processortest"
	"KEC-QUOTE/internal/storage"
)

func newTestQuotationService(t *testing.T) (*QuotationService, *storage.LocalStore) {
	t.Helper()
	store := setupLocalStore(t)
	return NewQuotationService(setupServicesTestDB(t), store, newTestGenerator(t), nil), store
}

func TestQuotationService_SaveDraft(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestQuotationService(t)

	form := sampleForm(3)
	form.Fixtures[1].Image = processortest.PNG(20, 20)
	form.Fixtures[1].ImageName = "gauge photo.png"
	form.Fixtures[1].ImageContentType = "image/png"
	form.Fixtures[2].Quantity = "as required"

	q, err := svc.Save(ctx, "", form)
	require.NoError(t, err)

	assert.Equal(t, models.QuotationStatusDraft, q.Status)
	assert.Equal(t, "KEC012OC2026", q.QuoteNo)
	require.Len(t, q.Items, 2, "only fixtures with numeric qty and price become items")
	assert.Equal(t, 3000.0, q.Items[0].Amount)
	assert.Equal(t, 2, q.Items[1].Position)

	require.Len(t, q.Images, 1)
	img := q.Images[0]
	assert.Equal(t, 1, img.FixtureIndex)
	assert.Equal(t, "quotations/"+q.ID+"/fixtures/1/gauge_photo.png", img.ObjectName)
	assert.Equal(t, "image/png", img.ContentType)

	data, err := storage.ReadAll(ctx, store, img.ObjectName)
	require.NoError(t, err)
	assert.Equal(t, form.Fixtures[1].Image, data)

	var records []models.FixtureRecord
	require.NoError(t, json.Unmarshal(q.Fixtures, &records))
	require.Len(t, records, 3)
	assert.Equal(t, "gauge photo.png", records[1].ImageName)
}

func TestQuotationService_UpdateReplacesItems(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQuotationService(t)

	q, err := svc.Save(ctx, "", sampleForm(3))
	require.NoError(t, err)
	require.Len(t, q.Items, 3)

	updated, err := svc.Save(ctx, q.ID, sampleForm(1))
	require.NoError(t, err)
	assert.Equal(t, q.ID, updated.ID)
	assert.Len(t, updated.Items, 1)

	_, err = svc.Save(ctx, "missing", sampleForm(1))
	assert.ErrorIs(t, err, ErrQuotationNotFound)
}

func TestQuotationService_SaveFinalStoresNoImages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQuotationService(t)

	form := sampleForm(1)
	form.Status = "Final"
	form.Fixtures[0].Image = processortest.PNG(10, 10)

	q, err := svc.Save(ctx, "", form)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationStatusFinal, q.Status)
	assert.Empty(t, q.Images)
}

func TestQuotationService_Get(t *testing.T) {
	svc, _ := newTestQuotationService(t)
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrQuotationNotFound)
}

func TestQuotationService_FormLoadsImages(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestQuotationService(t)

	form := sampleForm(3)
	for i := range form.Fixtures {
		form.Fixtures[i].Image = processortest.PNG(10+i, 10)
		form.Fixtures[i].ImageName = []string{"a.png", "b.png", "c.png"}[i]
	}
	q, err := svc.Save(ctx, "", form)
	require.NoError(t, err)
	require.Len(t, q.Images, 3)

	// a lost object degrades to a missing image
	require.NoError(t, store.DeleteFile(ctx, q.Images[2].ObjectName))

	rebuilt, err := svc.Form(ctx, q)
	require.NoError(t, err)
	require.Len(t, rebuilt.Fixtures, 3)
	assert.Equal(t, form.Fixtures[0].Image, rebuilt.Fixtures[0].Image)
	assert.Equal(t, form.Fixtures[1].Image, rebuilt.Fixtures[1].Image)
	assert.False(t, rebuilt.Fixtures[2].HasImage())
	assert.Equal(t, "KEC012OC2026", rebuilt.QuoteNo)
	assert.Equal(t, "Ms. Anita Rao", rebuilt.ToPerson)
}

func TestQuotationService_DownloadAndFinalize(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestQuotationService(t)

	form := sampleForm(2)
	form.Fixtures[0].Image = processortest.PNG(30, 30)
	form.Fixtures[0].ImageName = "clamp.png"
	q, err := svc.Save(ctx, "", form)
	require.NoError(t, err)
	objectName := q.Images[0].ObjectName

	out, err := svc.Download(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Report.Table.ImagesEmbedded)

	out, err = svc.Finalize(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Report.Table.ImagesEmbedded, "the final render still has the draft image")

	final, err := svc.Get(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QuotationStatusFinal, final.Status)
	assert.Empty(t, final.Images)
	_, err = store.ReadFile(ctx, objectName)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)

	out, err = svc.Download(ctx, q.ID)
	require.NoError(t, err)
	assert.Zero(t, out.Report.Table.ImagesEmbedded)
	doc, err := processor.Open(out.Data)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.ParagraphsContaining("[Image: Clamp]"))
}

func TestQuotationService_CleanupStaleDrafts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestQuotationService(t)

	withImage := sampleForm(1)
	withImage.Fixtures[0].Image = processortest.PNG(5, 5)

	stale, err := svc.Save(ctx, "", withImage)
	require.NoError(t, err)
	fresh, err := svc.Save(ctx, "", withImage)
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, svc.db.Model(&models.Quotation{}).Where("id = ?", stale.ID).UpdateColumn("updated_at", old).Error)

	removed, err := svc.CleanupStaleDrafts(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	got, err := svc.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Images)
	assert.True(t, got.IsDraft(), "the draft itself is kept")

	got, err = svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Len(t, got.Images, 1)
}
