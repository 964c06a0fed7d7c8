package storefront

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"strings"

	util_http "github.com/JeetDutta-Bursana/Web-Scrapper/pkg/util/http"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/flagext"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Config struct {
	URL         string                 `yaml:"url"`
	Collections flagext.StringSliceCSV `yaml:"collections"`
	PageLimit   int                    `yaml:"page_limit"`
}

func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.URL, prefix+"url", "", "Base storefront URL, e.g. https://suta.in.")
	c.Collections = flagext.StringSliceCSV{"gift-box"}
	f.Var(&c.Collections, prefix+"collections", "Comma-separated collections to scrape, in order.")
	f.IntVar(&c.PageLimit, prefix+"page-limit", 250, "Products requested per catalog page.")
}

func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("storefront url is required")
	}
	if len(c.Collections) == 0 {
		return errors.New("at least one storefront collection is required")
	}
	if c.PageLimit <= 0 {
		return errors.New("storefront page limit must be positive")
	}

	return nil
}

// Client walks a storefront's paginated products.json catalog. The HTTP
// client is injected: retries, pooling and the identifying header all live
// there, shared with the rest of the run.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        gklog.Logger

	pagesFetched    prometheus.Counter
	pageErrors      prometheus.Counter
	productsFetched prometheus.Counter
	productsSkipped prometheus.Counter
}

func NewClient(cfg Config, httpClient *http.Client, reg prometheus.Registerer, log gklog.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		log:        gklog.With(log, "service", "storefront"),

		pagesFetched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "pages_fetched_total",
			Help: "Catalog pages fetched successfully.",
		}),
		pageErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "page_errors_total",
			Help: "Catalog page requests that failed and stopped pagination.",
		}),
		productsFetched: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "products_fetched_total",
			Help: "Products normalized from catalog pages.",
		}),
		productsSkipped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "products_skipped_total",
			Help: "Malformed catalog entries skipped during normalization.",
		}),
	}
}

// FetchProducts requests a collection's catalog pages in order, starting at
// page 1, until a page comes back empty or a request fails. It never
// returns an error: a failed page ends pagination and the records collected
// up to that point are the result.
func (c *Client) FetchProducts(ctx context.Context, collection string) []Product {
	products := make([]Product, 0)

	for page := 1; ; page++ {
		level.Info(c.log).Log("msg", "fetching catalog page", "collection", collection, "page", page)

		entries, err := c.fetchPage(ctx, c.pageURL(collection, page))
		if err != nil {
			c.pageErrors.Inc()
			level.Error(c.log).Log("msg", "catalog page fetch failed", "collection", collection, "page", page, "err", err)
			return products
		}
		if len(entries) == 0 {
			level.Info(c.log).Log("msg", "reached end of collection", "collection", collection, "products", len(products))
			return products
		}
		c.pagesFetched.Inc()

		added := 0
		for _, raw := range entries {
			p, err := newProduct(c.cfg.URL, raw)
			if err != nil {
				c.productsSkipped.Inc()
				level.Warn(c.log).Log("msg", "skipping malformed product", "collection", collection, "page", page, "err", err)
				continue
			}
			products = append(products, p)
			added++
		}
		c.productsFetched.Add(float64(added))

		level.Info(c.log).Log("msg", "catalog page fetched", "collection", collection, "page", page, "products", added)
	}
}

func (c *Client) fetchPage(ctx context.Context, url string) ([]rawProduct, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "storefront create page request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "storefront get page")
	}
	defer resp.Body.Close()

	if err := util_http.EnsureSuccessStatusCode(resp); err != nil {
		return nil, errors.Wrap(err, "storefront get page")
	}

	var payload productsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "storefront decode page")
	}

	return payload.Products, nil
}

func (c *Client) pageURL(collection string, page int) string {
	return fmt.Sprintf("%s/collections/%s/products.json?limit=%d&page=%d",
		strings.TrimSuffix(c.cfg.URL, "/"), collection, c.cfg.PageLimit, page)
}
