package processor

import (
	"strconv"

	"github.com/beevik/etree"
)

type DocumentLayout struct {
	PageWidth    float64 // Page width in points
	PageHeight   float64 // Page height in points
	LeftMargin   float64 // Left margin in points
	RightMargin  float64 // Right margin in points
	TopMargin    float64 // Top margin in points
	BottomMargin float64 // Bottom margin in points
	Landscape    bool
}

// Default layout: US Letter with one inch margins.
func defaultLayout() DocumentLayout {
	return DocumentLayout{
		PageWidth:    612,
		PageHeight:   792,
		LeftMargin:   72,
		RightMargin:  72,
		TopMargin:    72,
		BottomMargin: 72,
	}
}

// Layout reads page size, margins and orientation from the body's final w:sectPr.
func (d *Document) Layout() DocumentLayout {
	layout := defaultLayout()

	sect := d.body.SelectElement("w:sectPr")
	if sect == nil {
		return layout
	}

	explicit := false
	if pgSz := sect.SelectElement("w:pgSz"); pgSz != nil {
		if v := twipsAttr(pgSz, "w:w"); v > 0 {
			layout.PageWidth = v
		}
		if v := twipsAttr(pgSz, "w:h"); v > 0 {
			layout.PageHeight = v
		}
		if orient := pgSz.SelectAttrValue("w:orient", ""); orient != "" {
			explicit = true
			layout.Landscape = orient == "landscape"
		}
	}

	if pgMar := sect.SelectElement("w:pgMar"); pgMar != nil {
		margins := map[string]*float64{
			"w:left":   &layout.LeftMargin,
			"w:right":  &layout.RightMargin,
			"w:top":    &layout.TopMargin,
			"w:bottom": &layout.BottomMargin,
		}
		for attr, ptr := range margins {
			if v := twipsAttr(pgMar, attr); v > 0 {
				*ptr = v
			}
		}
	}

	// Without an explicit w:orient the page shape decides.
	if !explicit {
		layout.Landscape = layout.PageWidth > layout.PageHeight
	}
	return layout
}

func (d *Document) DetectOrientation() bool {
	return d.Layout().Landscape
}

// twipsAttr converts a twentieths-of-a-point attribute to points.
func twipsAttr(el *etree.Element, key string) float64 {
	v, err := strconv.ParseFloat(el.SelectAttrValue(key, ""), 64)
	if err != nil {
		return 0
	}
	return v / 20.0
}
