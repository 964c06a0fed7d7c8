package report

import (
	"github.com/JeetDutta-Bursana/Web-Scrapper/pkg/imagefetcher"
	"github.com/JeetDutta-Bursana/Web-Scrapper/pkg/storefront"
	"github.com/samber/lo"
)

// ImageState says what the report states about a product's image.
type ImageState int

const (
	// ImageNone marks a product without an image in the catalog.
	ImageNone ImageState = iota
	// ImageSaved marks a downloaded image. Location holds the file path.
	ImageSaved
	// ImageFailed marks a failed download. Location holds the source URL.
	ImageFailed
	// ImageLink marks link-only runs. Location holds the source URL.
	ImageLink
)

// Entry is one report block, one per product, in fetch order.
type Entry struct {
	Title    string
	Price    string
	URL      string
	Image    ImageState
	Location string
}

// Build joins products with download outcomes, one entry per product in the
// given order. Pure: no I/O, same inputs produce deeply equal output. A
// product with an image but no outcome is reported as failed, never
// invented as saved.
func Build(products []storefront.Product, outcomes map[int64]imagefetcher.Outcome) []Entry {
	return lo.Map(products, func(p storefront.Product, _ int) Entry {
		e := Entry{Title: p.Title, Price: p.Price, URL: p.URL}
		if p.ImageURL == "" {
			return e
		}

		if oc, ok := outcomes[p.ID]; ok && oc.OK {
			e.Image = ImageSaved
			e.Location = oc.Location
			return e
		}

		e.Image = ImageFailed
		e.Location = p.ImageURL
		return e
	})
}

// BuildLinks aggregates for runs with downloads disabled: image urls are
// reported as links instead of files.
func BuildLinks(products []storefront.Product) []Entry {
	return lo.Map(products, func(p storefront.Product, _ int) Entry {
		e := Entry{Title: p.Title, Price: p.Price, URL: p.URL}
		if p.ImageURL != "" {
			e.Image = ImageLink
			e.Location = p.ImageURL
		}

		return e
	})
}
