package download

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/homework-board/internal/models"
)

type memorySink struct {
	names []string
	data  map[string][]byte
}

func (s *memorySink) Put(name string, r io.Reader) error {
	if s.data == nil {
		s.data = map[string][]byte{}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.names = append(s.names, name)
	s.data[name] = b
	return nil
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("img:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadAllSkipsFailedItems(t *testing.T) {
	srv := imageServer(t)
	var sleeps []time.Duration
	d := New(WithHTTPClient(srv.Client()))
	d.sleep = func(_ context.Context, delay time.Duration) error {
		sleeps = append(sleeps, delay)
		return nil
	}

	rec := &models.Homework{ID: "hw1", Images: []string{
		srv.URL + "/a.jpg",
		srv.URL + "/missing.jpg",
		srv.URL + "/c.jpg",
	}}
	sink := &memorySink{}

	res, err := d.DownloadAll(context.Background(), rec, sink)
	require.NoError(t, err)

	assert.Equal(t, []string{"homework-hw1-1.jpg", "homework-hw1-3.jpg"}, res.Saved)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.Equal(t, "img:/c.jpg", string(sink.data["homework-hw1-3.jpg"]))
	assert.Equal(t, []time.Duration{DefaultItemDelay, DefaultItemDelay}, sleeps)
}

func TestDownloadAllStopsOnCancel(t *testing.T) {
	srv := imageServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	d := New(WithHTTPClient(srv.Client()))
	d.sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	rec := &models.Homework{ID: "x", Images: []string{srv.URL + "/a.jpg", srv.URL + "/b.jpg"}}
	res, err := d.DownloadAll(ctx, rec, &memorySink{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"homework-x-1.jpg"}, res.Saved)
}

func TestZipSinkWritesEntries(t *testing.T) {
	srv := imageServer(t)
	var buf bytes.Buffer
	sink := NewZipSink(&buf)

	d := New(WithHTTPClient(srv.Client()), WithDelay(0))
	rec := &models.Homework{ID: "z", Images: []string{srv.URL + "/a.jpg", srv.URL + "/b.jpg"}}
	_, err := d.DownloadAll(context.Background(), rec, sink)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 2)
	assert.Equal(t, "homework-z-1.jpg", zr.File[0].Name)
	assert.Equal(t, "homework-z-2.jpg", zr.File[1].Name)
}

func TestDownloadAllNilRecord(t *testing.T) {
	res, err := New().DownloadAll(context.Background(), nil, &memorySink{})
	require.NoError(t, err)
	assert.Empty(t, res.Saved)
}
