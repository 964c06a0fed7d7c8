package log

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/weaveworks/common/logging"
)

var (
	Logger = log.NewNopLogger()
)

type Config struct {
	Format logging.Format `yaml:"format"`
	Level  logging.Level  `yaml:"level"`
}

func (c *Config) RegisterFlags(f *flag.FlagSet) {
	c.Format.RegisterFlags(f)
	c.Level.RegisterFlags(f)
}

// InitLogger replaces the package level Logger with one built from cfg
// and returns it. Call once from main before anything logs.
func InitLogger(cfg *Config) log.Logger {
	logger := log.With(newBasicLogger(cfg.Format), "caller", log.Caller(5))
	Logger = level.NewFilter(logger, cfg.Level.Gokit)

	return Logger
}

func newBasicLogger(format logging.Format) log.Logger {
	var logger log.Logger
	if format.String() == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(os.Stderr))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	}

	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

func CheckFatal(location string, err error) {
	if err != nil {
		logger := level.Error(Logger)
		if location != "" {
			logger = log.With(logger, "msg", "error "+location)
		}

		_ = logger.Log("err", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}
