package imagefetcher

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	gklog "github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{Workers: 4, WaitTimeout: 10 * time.Second, BufferSize: 8192}
}

func newTestFetcher(cfg Config) *ImageFetcher {
	return NewClient(cfg, &http.Client{}, prometheus.NewPedanticRegistry(), gklog.NewNopLogger())
}

func serveImage(payload []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "", time.Time{}, bytes.NewReader(payload))
	}
}

func TestDownloadAllMixedResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/img/one.jpg", serveImage([]byte("one-image-bytes")))
	mux.Handle("/img/two.png", serveImage([]byte("two-image-bytes")))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	tasks := []Task{
		{ID: 11, URL: srv.URL + "/img/one.jpg", DestStem: filepath.Join(dir, "product_11")},
		{ID: 12, URL: srv.URL + "/img/two.png?width=800", DestStem: filepath.Join(dir, "product_12")},
		{ID: 13, URL: srv.URL + "/img/missing.jpg", DestStem: filepath.Join(dir, "product_13")},
	}

	outcomes := newTestFetcher(testConfig()).DownloadAll(context.Background(), tasks)

	require.Len(t, outcomes, 3, "one outcome per task, failures included")

	one := outcomes[11]
	assert.True(t, one.OK)
	assert.Equal(t, filepath.Join(dir, "product_11.jpg"), one.Location)
	content, err := os.ReadFile(one.Location)
	require.NoError(t, err)
	assert.Equal(t, []byte("one-image-bytes"), content)

	two := outcomes[12]
	assert.True(t, two.OK)
	assert.Equal(t, filepath.Join(dir, "product_12.png"), two.Location, "extension comes from the url path, query dropped")

	missing := outcomes[13]
	assert.False(t, missing.OK)
	assert.Equal(t, srv.URL+"/img/missing.jpg", missing.Location, "failed outcome carries the source url")
}

func TestDownloadAllMoreTasksThanWorkers(t *testing.T) {
	srv := httptest.NewServer(serveImage([]byte("shared-image")))
	defer srv.Close()

	dir := t.TempDir()
	tasks := make([]Task, 0, 6)
	for i := int64(1); i <= 6; i++ {
		tasks = append(tasks, Task{
			ID:       i,
			URL:      fmt.Sprintf("%s/img/%d.jpg", srv.URL, i),
			DestStem: filepath.Join(dir, fmt.Sprintf("product_%d", i)),
		})
	}

	cfg := testConfig()
	cfg.Workers = 2
	outcomes := newTestFetcher(cfg).DownloadAll(context.Background(), tasks)

	require.Len(t, outcomes, 6)
	for _, task := range tasks {
		assert.True(t, outcomes[task.ID].OK, "task %d", task.ID)
	}
}

func TestDownloadAllEmptyTasks(t *testing.T) {
	outcomes := newTestFetcher(testConfig()).DownloadAll(context.Background(), nil)
	assert.Empty(t, outcomes)
}

func TestDownloadAllBatchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	tasks := []Task{
		{ID: 21, URL: srv.URL + "/img/a.jpg", DestStem: filepath.Join(dir, "product_21")},
		{ID: 22, URL: srv.URL + "/img/b.jpg", DestStem: filepath.Join(dir, "product_22")},
		{ID: 23, URL: srv.URL + "/img/c.jpg", DestStem: filepath.Join(dir, "product_23")},
	}

	cfg := testConfig()
	cfg.Workers = 2
	cfg.WaitTimeout = 50 * time.Millisecond

	start := time.Now()
	outcomes := newTestFetcher(cfg).DownloadAll(context.Background(), tasks)
	elapsed := time.Since(start)

	require.Len(t, outcomes, 3, "abandoned tasks still get outcomes")
	for _, task := range tasks {
		oc := outcomes[task.ID]
		assert.False(t, oc.OK, "task %d", task.ID)
		assert.Equal(t, task.URL, oc.Location, "task %d", task.ID)
	}
	assert.Less(t, elapsed, 2*time.Second, "the batch must give up at the wait timeout")
}

func TestDownloadReplacesExistingFile(t *testing.T) {
	srv := httptest.NewServer(serveImage([]byte("fresh-image-bytes")))
	defer srv.Close()

	dir := t.TempDir()
	stale := filepath.Join(dir, "product_31.jpg")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	tasks := []Task{{ID: 31, URL: srv.URL + "/img/a.jpg", DestStem: filepath.Join(dir, "product_31")}}
	outcomes := newTestFetcher(testConfig()).DownloadAll(context.Background(), tasks)

	oc := outcomes[31]
	require.True(t, oc.OK)
	content, err := os.ReadFile(oc.Location)
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh-image-bytes"), content, "leftovers from earlier runs are overwritten, not resumed")
}
