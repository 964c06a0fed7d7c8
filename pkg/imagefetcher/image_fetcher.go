package imagefetcher

import (
	"context"
	"flag"
	"net/http"
	"time"

	"github.com/cavaliergopher/grab/v3"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sourcegraph/conc/pool"
)

type Config struct {
	Workers     int           `yaml:"workers"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	BufferSize  int           `yaml:"buffer_size"`
}

func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.Workers, prefix+"workers", 10, "Concurrent image downloads.")
	f.DurationVar(&c.WaitTimeout, prefix+"wait-timeout", 60*time.Second, "Wall clock bound for one download batch. Tasks unfinished at the deadline are reported as failed.")
	f.IntVar(&c.BufferSize, prefix+"buffer-size", 8192, "Copy buffer size for streaming downloads, in bytes.")
}

func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return errors.New("image fetcher workers must be positive")
	}
	if c.WaitTimeout <= 0 {
		return errors.New("image fetcher wait timeout must be positive")
	}

	return nil
}

// ImageFetcher streams product images to disk under a bounded worker pool.
// Downloads are best effort: a failed task never fails the batch.
type ImageFetcher struct {
	grabClient *grab.Client
	cfg        Config
	log        gklog.Logger

	downloads     *prometheus.CounterVec
	downloadBytes prometheus.Counter
	batchTimeouts prometheus.Counter
}

type result struct {
	outcome Outcome
	written int64
}

func NewClient(cfg Config, httpClient *http.Client, reg prometheus.Registerer, log gklog.Logger) *ImageFetcher {
	c := grab.NewClient()
	c.HTTPClient = httpClient
	c.BufferSize = cfg.BufferSize
	// The identifying header comes from the shared client's transport.
	c.UserAgent = ""

	return &ImageFetcher{
		grabClient: c,
		cfg:        cfg,
		log:        gklog.With(log, "service", "imagefetcher"),

		downloads: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "image_downloads_total",
			Help: "Image download tasks by result.",
		}, []string{"result"}),
		downloadBytes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "image_download_bytes_total",
			Help: "Bytes written by successful image downloads.",
		}),
		batchTimeouts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "download_batch_timeouts_total",
			Help: "Download batches that hit the wait timeout.",
		}),
	}
}

// DownloadAll runs every task under the worker cap and returns exactly one
// Outcome per task, keyed by ID, regardless of individual failures. When
// the batch wait expires the remaining transfers are canceled and reported
// as failed with their source URL, so lookups never miss.
func (f *ImageFetcher) DownloadAll(ctx context.Context, tasks []Task) map[int64]Outcome {
	outcomes := make(map[int64]Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered to len(tasks) so workers finishing after the deadline can
	// still deliver and exit without a receiver.
	results := make(chan result, len(tasks))

	workers := pool.New().WithMaxGoroutines(f.cfg.Workers)
	go func() {
		for _, task := range tasks {
			task := task
			workers.Go(func() {
				results <- f.download(batchCtx, task)
			})
		}
		workers.Wait()
	}()

	timeout := time.NewTimer(f.cfg.WaitTimeout)
	defer timeout.Stop()

	succeeded := 0
	written := int64(0)
	for received := 0; received < len(tasks); received++ {
		select {
		case res := <-results:
			outcomes[res.outcome.ID] = res.outcome
			if res.outcome.OK {
				succeeded++
				written += res.written
			}
		case <-timeout.C:
			f.batchTimeouts.Inc()
			cancel()

			unfinished := 0
			for _, task := range tasks {
				if _, ok := outcomes[task.ID]; !ok {
					outcomes[task.ID] = Outcome{ID: task.ID, Location: task.URL}
					unfinished++
				}
			}
			level.Warn(f.log).Log("msg", "download batch timed out", "unfinished", unfinished, "succeeded", succeeded)
			return outcomes
		}
	}

	level.Info(f.log).Log("msg", "download batch complete",
		"tasks", len(tasks), "succeeded", succeeded, "failed", len(tasks)-succeeded, "bytes", written)
	return outcomes
}

func (f *ImageFetcher) download(ctx context.Context, task Task) result {
	req, err := grab.NewRequest(task.DestStem+extensionFromURL(task.URL), task.URL)
	if err != nil {
		return result{outcome: f.fail(task, err)}
	}
	req = req.WithContext(ctx)
	// A stem left behind by an earlier failed run must not be resumed into.
	req.NoResume = true

	resp := f.grabClient.Do(req)
	<-resp.Done
	if err := resp.Err(); err != nil {
		return result{outcome: f.fail(task, err)}
	}

	f.downloads.WithLabelValues("success").Inc()
	f.downloadBytes.Add(float64(resp.BytesComplete()))

	return result{
		outcome: Outcome{ID: task.ID, Location: resp.Filename, OK: true},
		written: resp.BytesComplete(),
	}
}

func (f *ImageFetcher) fail(task Task, err error) Outcome {
	f.downloads.WithLabelValues("failure").Inc()
	level.Warn(f.log).Log("msg", "image download failed", "url", task.URL, "err", err)

	return Outcome{ID: task.ID, Location: task.URL}
}
