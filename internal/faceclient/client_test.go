package faceclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		img, _ := base64.StdEncoding.DecodeString(in["image"])

		switch string(img) {
		case "face":
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2}, "score": 0.9, "faces_detected": 1})
		case "wall":
			_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{}, "faces_detected": 0})
		case "blurry":
			w.WriteHeader(http.StatusUnprocessableEntity)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/", false)
	ctx := context.Background()

	emb, err := c.Embed(ctx, []byte("face"))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, emb)

	_, err = c.Embed(ctx, []byte("wall"))
	assert.ErrorIs(t, err, ErrNoFace)

	_, err = c.Embed(ctx, []byte("blurry"))
	assert.ErrorIs(t, err, ErrNoFace)

	_, err = c.Embed(ctx, []byte("other"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoFace)

	_, err = c.Embed(ctx, nil)
	assert.Error(t, err)

	emb, err = c.EmbedBase64(ctx, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte("face")))
	require.NoError(t, err)
	assert.Len(t, emb, 2)
}

func TestSkipModeIsDeterministic(t *testing.T) {
	c := New("", true)
	a, err := c.Embed(context.Background(), []byte("alice.jpg"))
	require.NoError(t, err)
	b, err := c.Embed(context.Background(), []byte("alice.jpg"))
	require.NoError(t, err)
	other, err := c.Embed(context.Background(), []byte("bob.jpg"))
	require.NoError(t, err)

	assert.Len(t, a, skipDims)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, other)
	assert.NoError(t, c.Health(context.Background()))
}

func TestHealth(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, false)
	assert.NoError(t, c.Health(context.Background()))
	healthy = false
	assert.Error(t, c.Health(context.Background()))
}
