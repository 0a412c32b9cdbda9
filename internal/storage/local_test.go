package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	name := GenerateFixtureImageObjectName("q-1", 2, "front view.png")
	assert.Equal(t, "quotations/q-1/fixtures/2/front_view.png", name)

	res, err := store.UploadFile(ctx, strings.NewReader("pixels"), name, "image/png")
	require.NoError(t, err)
	assert.Equal(t, int64(6), res.Size)

	data, err := ReadAll(ctx, store, name)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	require.NoError(t, store.DeleteFile(ctx, name))
	_, err = store.ReadFile(ctx, name)
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.ErrorIs(t, store.DeleteFile(ctx, name), ErrObjectNotFound)
}

func TestLocalStore_RejectsEscapes(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.UploadFile(context.Background(), strings.NewReader("x"), "../outside.txt", "")
	assert.Error(t, err)
}

func TestSafeFilename(t *testing.T) {
	assert.Equal(t, "passwd", SafeFilename("../../etc/passwd"))
	assert.Equal(t, "a_b.jpg", SafeFilename(`C:\photos\a b.jpg`))
	assert.Equal(t, "file", SafeFilename(".."))
	assert.True(t, strings.HasPrefix(GenerateTemplateObjectName("Quote RevA.docx"), "templates/"))
}
