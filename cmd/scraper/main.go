package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/JeetDutta-Bursana/Web-Scrapper/pkg/scraper"
	util_log "github.com/JeetDutta-Bursana/Web-Scrapper/pkg/util/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"gopkg.in/yaml.v2"
)

func main() {
	var (
		cfg        scraper.Config
		configFile string
	)

	flag.StringVar(&configFile, "config.file", "", "YAML configuration file. Values from the file override flag values.")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			fmt.Println(err.Error())
			os.Exit(1)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			fmt.Println(err.Error())
			os.Exit(1)
		}
	}

	logger := util_log.InitLogger(&cfg.Log)

	util_log.CheckFatal("validating config", cfg.Validate())
	util_log.CheckFatal("creating output directories", os.MkdirAll(cfg.Output.ImagesDir(), 0o755))

	reg := prometheus.NewPedanticRegistry()
	s, err := scraper.New(cfg, reg, logger)
	util_log.CheckFatal("initializing scraper", err)

	ctx := context.Background()
	util_log.CheckFatal("starting scraper", s.StartAsync(ctx))
	util_log.CheckFatal("running scraper", s.AwaitTerminated(ctx))

	if cfg.Metrics.PushGateway != "" {
		if err := push.New(cfg.Metrics.PushGateway, cfg.Metrics.JobName).Gatherer(reg).Push(); err != nil {
			level.Warn(logger).Log("msg", "failed to push run metrics", "err", err)
		}
	}
}
