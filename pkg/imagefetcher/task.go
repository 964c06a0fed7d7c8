package imagefetcher

import (
	"net/url"
	"path"
)

const defaultExtension = ".jpg"

// Task is one image to download. ID keys the outcome, DestStem is the
// destination path without extension.
type Task struct {
	ID       int64
	URL      string
	DestStem string
}

// Outcome reports one finished task. Location holds the resolved file path
// when OK and the original source URL otherwise. Every submitted Task gets
// exactly one Outcome.
type Outcome struct {
	ID       int64
	Location string
	OK       bool
}

// extensionFromURL derives the artifact extension from the URL path, query
// string excluded. Unparseable URLs and extension-less paths fall back to
// the generic image extension.
func extensionFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultExtension
	}
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}

	return defaultExtension
}
