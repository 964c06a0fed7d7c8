package report

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	gklog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

const separator = "----------------------------------------"

type WriterConfig struct {
	CurrencyPrefix string `yaml:"currency_prefix"`
}

func (c *WriterConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.CurrencyPrefix, prefix+"currency-prefix", "₹", "Symbol printed before prices in the report.")
}

// Writer renders entries into the flat text artifact.
type Writer struct {
	cfg WriterConfig
	log gklog.Logger
}

func NewWriter(cfg WriterConfig, log gklog.Logger) *Writer {
	return &Writer{
		cfg: cfg,
		log: gklog.With(log, "service", "report"),
	}
}

// Write persists entries to path, one block per product in the given order.
func (w *Writer) Write(path string, entries []Entry) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "report create file")
	}

	// bufio errors are sticky, Flush reports the first one.
	buf := bufio.NewWriter(file)
	for _, e := range entries {
		w.writeEntry(buf, e)
	}

	if err := buf.Flush(); err != nil {
		file.Close()
		return errors.Wrap(err, "report write")
	}
	if err := file.Close(); err != nil {
		return errors.Wrap(err, "report close file")
	}

	level.Info(w.log).Log("msg", "report written", "path", path, "entries", len(entries))
	return nil
}

func (w *Writer) writeEntry(buf *bufio.Writer, e Entry) {
	fmt.Fprintf(buf, "Name: %s\n", e.Title)
	fmt.Fprintf(buf, "Price: %s%s\n", w.cfg.CurrencyPrefix, e.Price)
	fmt.Fprintf(buf, "URL: %s\n", e.URL)

	switch e.Image {
	case ImageSaved:
		fmt.Fprintf(buf, "Image saved: %s\n", e.Location)
	case ImageFailed:
		fmt.Fprintln(buf, "Image download failed")
	case ImageLink:
		fmt.Fprintf(buf, "Image URL: %s\n", e.Location)
	default:
		fmt.Fprintln(buf, "No image available")
	}

	fmt.Fprintln(buf, separator)
}
