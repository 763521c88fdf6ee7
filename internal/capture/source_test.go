package capture

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSourcePicksNewestImage(t *testing.T) {
	dir := t.TempDir()
	src := DirSource{Dir: dir}

	_, err := src.Capture(context.Background())
	assert.ErrorIs(t, err, ErrNoFrame)

	old := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o600))
	require.NoError(t, os.Chtimes(old, time.Now().Add(-time.Hour), time.Now().Add(-time.Hour)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.PNG"), []byte("new"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o600))

	frame, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new", string(frame))
}

func TestHTTPSource(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte("jpeg"))
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	frame, err := src.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(frame))

	status = http.StatusNoContent
	_, err = src.Capture(context.Background())
	assert.ErrorIs(t, err, ErrNoFrame)

	status = http.StatusBadGateway
	_, err = src.Capture(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFrame)
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource("http://cam-1/snapshot.jpg")
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	src, err = ParseSource("dir:/var/frames")
	require.NoError(t, err)
	assert.Equal(t, DirSource{Dir: "/var/frames"}, src)

	_, err = ParseSource(" ")
	assert.Error(t, err)
}
