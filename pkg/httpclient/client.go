package httpclient

import (
	"context"
	"flag"
	"net"
	"net/http"
	"time"

	util_http "github.com/JeetDutta-Bursana/Web-Scrapper/pkg/util/http"
	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/hashicorp/go-retryablehttp"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type Config struct {
	UserAgent           string        `yaml:"user_agent"`
	Timeout             time.Duration `yaml:"timeout"`
	RetryMax            int           `yaml:"retry_max"`
	RetryWaitMin        time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax        time.Duration `yaml:"retry_wait_max"`
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
}

func (c *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.UserAgent, prefix+"user-agent", DefaultUserAgent, "User-Agent header sent with every outgoing request.")
	f.DurationVar(&c.Timeout, prefix+"timeout", 10*time.Second, "Timeout applied to each request attempt, including body read.")
	f.IntVar(&c.RetryMax, prefix+"retry-max", 3, "Maximum number of retries for transient failures.")
	f.DurationVar(&c.RetryWaitMin, prefix+"retry-wait-min", 1*time.Second, "Base wait between retries. Backoff doubles it per attempt.")
	f.DurationVar(&c.RetryWaitMax, prefix+"retry-wait-max", 10*time.Second, "Upper bound on the wait between retries.")
	f.IntVar(&c.MaxIdleConns, prefix+"max-idle-conns", 100, "Total idle connections kept in the pool.")
	f.IntVar(&c.MaxIdleConnsPerHost, prefix+"max-idle-conns-per-host", 50, "Idle connections kept per host.")
}

// New builds the one *http.Client shared by the whole run. Retries for
// transient failures happen transparently below it, each attempt bounded by
// cfg.Timeout, so callers see a plain client with pooling, an identifying
// User-Agent and a retry policy already applied.
func New(cfg Config, logger gklog.Logger) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	c := retryablehttp.NewClient()
	c.HTTPClient = &http.Client{
		Transport: newUserAgentTransport(cfg.UserAgent, transport),
		Timeout:   cfg.Timeout,
	}
	c.RetryMax = cfg.RetryMax
	c.RetryWaitMin = cfg.RetryWaitMin
	c.RetryWaitMax = cfg.RetryWaitMax
	c.CheckRetry = checkRetry
	c.Logger = leveledLogger{log: logger}

	return c.StandardClient()
}

// checkRetry retries transport level errors and the fixed transient status
// set. Unlike retryablehttp's default policy it never retries other 5xx
// codes, so e.g. 501 surfaces immediately.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp == nil {
		return true, nil
	}

	return util_http.IsRetryableStatusCode(resp.StatusCode), nil
}

type userAgentTransport struct {
	userAgent string
	next      http.RoundTripper
}

func newUserAgentTransport(userAgent string, next http.RoundTripper) *userAgentTransport {
	return &userAgentTransport{
		userAgent: userAgent,
		next:      next,
	}
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent == "" || req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}

	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(req)
}

// leveledLogger feeds retryablehttp's internal logging into go-kit instead
// of the stdlib logger it would otherwise create.
type leveledLogger struct {
	log gklog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	level.Error(l.log).Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	level.Info(l.log).Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	level.Debug(l.log).Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	level.Warn(l.log).Log(append([]interface{}{"msg", msg}, keysAndValues...)...)
}
