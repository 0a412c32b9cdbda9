package processor

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"KEC-QUOTE/internal/processor/processortest"
)

func TestImageProcessor_ScalesWideImages(t *testing.T) {
	img, err := NewImageProcessor(800, 85).Normalize(processortest.PNG(1600, 400))
	require.NoError(t, err)

	assert.Equal(t, "jpeg", img.Ext)
	assert.Equal(t, 800, img.Width)
	assert.Equal(t, 200, img.Height)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(img.Data))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
}

func TestImageProcessor_KeepsSmallImages(t *testing.T) {
	img, err := NewImageProcessor(0, 0).Normalize(processortest.PNG(64, 32))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 32, img.Height)
}

func TestImageProcessor_FlattensTransparency(t *testing.T) {
	img, err := NewImageProcessor(0, 0).Normalize(processortest.PNG(8, 8))
	require.NoError(t, err)

	decoded, err := jpeg.Decode(bytes.NewReader(img.Data))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(4, 4).RGBA()
	// half-transparent red over white is a light red, not a dark one
	assert.Greater(t, r>>8, uint32(200))
	assert.Greater(t, g>>8, uint32(120))
	assert.Greater(t, b>>8, uint32(120))
}

func TestImageProcessor_RejectsGarbage(t *testing.T) {
	p := NewImageProcessor(0, 0)
	_, err := p.Normalize(nil)
	assert.Error(t, err)
	_, err = p.Normalize([]byte("GIF89a but not really"))
	assert.Error(t, err)
}

func TestImageProcessor_RejectsOversizedImages(t *testing.T) {
	_, err := NewImageProcessor(0, 0).Normalize(processortest.PNGHeader(60000, 60000))
	assert.ErrorIs(t, err, ErrImageTooLarge)

	doc := openTemplate(t)
	table := doc.Tables()[PricingTableIndex]
	fixtures := sampleFixtures(2)
	fixtures[0].Image = processortest.PNGHeader(10000, 5000)

	result := NewTablePopulator(NewEmbedder(NewImageProcessor(0, 0)), nil).Populate(doc, table, fixtures)
	assert.Equal(t, 1, result.ImageFailures)
	assert.Equal(t, "[Image: Fixture 1]", table.Rows()[1].Cells()[2].Text())
}

func TestUnsupportedImages(t *testing.T) {
	_, err := UnsupportedImages().Normalize(processortest.PNG(4, 4))
	assert.ErrorIs(t, err, ErrImagesUnsupported)

	doc := openTemplate(t)
	table := doc.Tables()[PricingTableIndex]
	fixtures := sampleFixtures(2)
	fixtures[1].Image = processortest.PNG(10, 10)

	var got error
	embedder := NewEmbedder(UnsupportedImages())
	embedder.OnFailure(func(err error) { got = err })
	result := NewTablePopulator(embedder, nil).Populate(doc, table, fixtures)

	assert.ErrorIs(t, got, ErrImagesUnsupported)
	assert.Equal(t, 1, result.ImageFailures)
	assert.Equal(t, "[Image: Fixture 2]", table.Rows()[3].Cells()[2].Text())
}

func TestEmbedInline(t *testing.T) {
	doc := openBody(t, processortest.P("Layout: [[IMAGE:1]] as agreed"))
	p := doc.Paragraphs()[0]

	ok := NewEmbedder(NewImageProcessor(0, 0)).EmbedInline(doc, p, "[[IMAGE:1]]", processortest.PNG(200, 100))
	require.True(t, ok)

	runs := p.Runs()
	require.Len(t, runs, 3)
	assert.Equal(t, "Layout: ", runs[0].Text())
	assert.True(t, runs[1].HasDrawing())
	assert.Equal(t, " as agreed", runs[2].Text())

	extent := runs[1].el.FindElement(".//wp:extent")
	require.NotNil(t, extent)
	assert.Equal(t, "1260000", extent.SelectAttrValue("cx", ""))
	assert.Equal(t, "630000", extent.SelectAttrValue("cy", ""))
}

func TestEmbedInline_DrawingIDsAreUnique(t *testing.T) {
	doc := openBody(t, processortest.P("[[IMAGE:1]]")+processortest.P("[[IMAGE:2]]"))
	embedder := NewEmbedder(NewImageProcessor(0, 0))
	paras := doc.Paragraphs()

	require.True(t, embedder.EmbedInline(doc, paras[0], "[[IMAGE:1]]", processortest.PNG(10, 10)))
	require.True(t, embedder.EmbedInline(doc, paras[1], "[[IMAGE:2]]", processortest.PNG(10, 10)))

	ids := map[string]bool{}
	for _, el := range doc.body.FindElements(".//wp:docPr") {
		ids[el.SelectAttrValue("id", "")] = true
	}
	assert.Len(t, ids, 2)
}

func TestEmbedInline_DrawingIDsSkipHeaderPictures(t *testing.T) {
	logo := `<w:p><w:r><w:drawing><wp:inline><wp:extent cx="10" cy="10"/>` +
		`<wp:docPr id="7" name="Logo"/></wp:inline></w:drawing></w:r></w:p>`
	doc, err := Open(processortest.Build(processortest.Template{
		Body:   processortest.P("[[IMAGE:1]]"),
		Header: logo,
		Footer: `<w:p><w:r><w:drawing><wp:inline><wp:docPr id="3" name="Seal"/></wp:inline></w:drawing></w:r></w:p>`,
	}))
	require.NoError(t, err)

	require.True(t, NewEmbedder(NewImageProcessor(0, 0)).EmbedInline(doc, doc.Paragraphs()[0], "[[IMAGE:1]]", processortest.PNG(10, 10)))

	el := doc.body.FindElement(".//wp:docPr")
	require.NotNil(t, el)
	assert.Equal(t, "8", el.SelectAttrValue("id", ""))
}
