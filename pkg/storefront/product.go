package storefront

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Product is one normalized catalog entry. Immutable once built, lives for
// the duration of a single run.
type Product struct {
	ID       int64
	Title    string
	Price    string
	ImageURL string // empty when the source entry has no images
	URL      string
}

type productsPayload struct {
	Products []rawProduct `json:"products"`
}

type rawProduct struct {
	ID       int64        `json:"id"`
	Title    string       `json:"title"`
	Handle   string       `json:"handle"`
	Images   []rawImage   `json:"images"`
	Variants []rawVariant `json:"variants"`
}

type rawImage struct {
	Src string `json:"src"`
}

type rawVariant struct {
	Price string `json:"price"`
}

// newProduct normalizes one raw entry. Price comes from the first variant;
// an entry without variants is malformed and rejected. A missing image is
// not an error, the field stays empty.
func newProduct(baseURL string, raw rawProduct) (Product, error) {
	if len(raw.Variants) == 0 {
		return Product{}, errors.Errorf("product %d has no variants", raw.ID)
	}

	p := Product{
		ID:    raw.ID,
		Title: raw.Title,
		Price: raw.Variants[0].Price,
		URL:   fmt.Sprintf("%s/products/%s", strings.TrimSuffix(baseURL, "/"), raw.Handle),
	}
	if len(raw.Images) > 0 {
		p.ImageURL = raw.Images[0].Src
	}

	return p, nil
}
