package imagefetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type extTest struct {
	url    string
	output string
}

var extTests = []extTest{
	{"https://cdn.test/products/saree.jpg", ".jpg"},
	{"https://cdn.test/products/saree.png?width=800&v=2", ".png"},
	{"https://cdn.test/products/saree.jpeg?v=1", ".jpeg"},
	{"https://cdn.test/products/saree", ".jpg"},
	{"https://cdn.test/", ".jpg"},
	{"://not-a-url", ".jpg"},
}

func TestExtensionFromURL(t *testing.T) {
	for _, v := range extTests {
		assert.Equal(t, v.output, extensionFromURL(v.url), v.url)
	}
}
