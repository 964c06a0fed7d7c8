package scraper

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"github.com/JeetDutta-Bursana/Web-Scrapper/pkg/httpclient"
	"github.com/JeetDutta-Bursana/Web-Scrapper/pkg/imagefetcher"
	"github.com/JeetDutta-Bursana/Web-Scrapper/pkg/report"
	"github.com/JeetDutta-Bursana/Web-Scrapper/pkg/storefront"
	util_log "github.com/JeetDutta-Bursana/Web-Scrapper/pkg/util/log"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
)

const imagesSubdir = "images"

type Config struct {
	DownloadImages bool `yaml:"download_images"`

	Storefront   storefront.Config   `yaml:"storefront"`
	HTTPClient   httpclient.Config   `yaml:"http_client"`
	ImageFetcher imagefetcher.Config `yaml:"image_fetcher"`
	Output       OutputConfig        `yaml:"output"`
	Metrics      MetricsConfig       `yaml:"metrics"`
	Log          util_log.Config     `yaml:"log"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.BoolVar(&c.DownloadImages, "download-images", true, "Download product images. When disabled the report lists image URLs instead.")
	c.Storefront.RegisterFlagsWithPrefix("storefront.", f)
	c.HTTPClient.RegisterFlagsWithPrefix("http.", f)
	c.ImageFetcher.RegisterFlagsWithPrefix("images.", f)
	c.Output.RegisterFlagsWithPrefix("output.", f)
	c.Metrics.RegisterFlagsWithPrefix("metrics.", f)
	c.Log.RegisterFlags(f)
}

func (c *Config) Validate() error {
	if err := c.Storefront.Validate(); err != nil {
		return err
	}
	if err := c.ImageFetcher.Validate(); err != nil {
		return err
	}

	return c.Output.Validate()
}

type OutputConfig struct {
	Dir        string              `yaml:"dir"`
	ReportFile string              `yaml:"report_file"`
	Writer     report.WriterConfig `yaml:"writer"`
}

func (c *OutputConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.Dir, prefix+"dir", "scraper_output", "Directory for the report and downloaded images.")
	f.StringVar(&c.ReportFile, prefix+"report-file", "products.txt", "Report file name inside the output directory.")
	c.Writer.RegisterFlagsWithPrefix(prefix, f)
}

func (c *OutputConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("output dir is required")
	}
	if c.ReportFile == "" {
		return errors.New("output report file is required")
	}

	return nil
}

func (c *OutputConfig) ImagesDir() string {
	return filepath.Join(c.Dir, imagesSubdir)
}

func (c *OutputConfig) ReportPath() string {
	return filepath.Join(c.Dir, c.ReportFile)
}

type MetricsConfig struct {
	PushGateway string `yaml:"push_gateway"`
	JobName     string `yaml:"job_name"`
}

func (c *MetricsConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.PushGateway, prefix+"push-gateway", "", "Pushgateway base URL to deliver run metrics to. Empty disables the push.")
	f.StringVar(&c.JobName, prefix+"job-name", "web_scrapper", "Job name for the metrics push.")
}

// Scraper drives one fetch, download, aggregate, write pass as a
// run-to-completion service.
type Scraper struct {
	services.Service

	cfg Config
	log gklog.Logger

	catalog *storefront.Client
	images  *imagefetcher.ImageFetcher
	writer  *report.Writer
}

// New validates cfg and wires the pipeline around one shared HTTP client.
// All component metrics land on reg under the web_scrapper_ prefix.
func New(cfg Config, reg prometheus.Registerer, log gklog.Logger) (*Scraper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "scraper config")
	}

	log = gklog.With(log, "run_id", uuid.NewString())
	reg = prometheus.WrapRegistererWithPrefix("web_scrapper_", reg)

	httpClient := httpclient.New(cfg.HTTPClient, log)

	s := &Scraper{
		cfg:     cfg,
		log:     gklog.With(log, "service", "scraper"),
		catalog: storefront.NewClient(cfg.Storefront, httpClient, reg, log),
		images:  imagefetcher.NewClient(cfg.ImageFetcher, httpClient, reg, log),
		writer:  report.NewWriter(cfg.Output.Writer, log),
	}
	s.Service = services.NewBasicService(nil, s.run, nil)

	return s, nil
}

func (s *Scraper) run(ctx context.Context) error {
	level.Info(s.log).Log("msg", "starting catalog scrape",
		"storefront", s.cfg.Storefront.URL,
		"collections", s.cfg.Storefront.Collections.String(),
		"download_images", s.cfg.DownloadImages)

	products := make([]storefront.Product, 0)
	for _, collection := range s.cfg.Storefront.Collections {
		products = append(products, s.catalog.FetchProducts(ctx, collection)...)
	}
	level.Info(s.log).Log("msg", "catalog fetched", "products", len(products))

	var entries []report.Entry
	if s.cfg.DownloadImages {
		outcomes := s.images.DownloadAll(ctx, s.imageTasks(products))
		entries = report.Build(products, outcomes)
	} else {
		entries = report.BuildLinks(products)
	}

	if err := s.writer.Write(s.cfg.Output.ReportPath(), entries); err != nil {
		return errors.Wrap(err, "scraper write report")
	}

	level.Info(s.log).Log("msg", "scrape complete", "products", len(products), "report", s.cfg.Output.ReportPath())
	return nil
}

// imageTasks derives one download task per distinct product with an image.
// The report still lists duplicates, only the transfers are deduplicated.
func (s *Scraper) imageTasks(products []storefront.Product) []imagefetcher.Task {
	withImages := lo.Filter(products, func(p storefront.Product, _ int) bool {
		return p.ImageURL != ""
	})
	distinct := lo.UniqBy(withImages, func(p storefront.Product) int64 {
		return p.ID
	})

	return lo.Map(distinct, func(p storefront.Product, _ int) imagefetcher.Task {
		return imagefetcher.Task{
			ID:       p.ID,
			URL:      p.ImageURL,
			DestStem: filepath.Join(s.cfg.Output.ImagesDir(), fmt.Sprintf("product_%d", p.ID)),
		}
	})
}
