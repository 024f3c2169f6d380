package camera

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bridge struct {
	deletes atomic.Int32
	deny    bool
}

func (b *bridge) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/sessions", func(w http.ResponseWriter, r *http.Request) {
		if b.deny {
			http.Error(w, "permission denied", http.StatusForbidden)
			return
		}
		var res Resolution
		_ = json.NewDecoder(r.Body).Decode(&res)
		if res != DefaultResolution {
			http.Error(w, "bad resolution", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"session_id": "cam-1"})
	})
	mux.HandleFunc("/sessions/cam-1", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			b.deletes.Add(1)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/sessions/cam-1/frame", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		_ = jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3)), nil)
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(buf.Bytes())
	})
	return mux
}

func TestClientAcquireFrameAndReleaseOnce(t *testing.T) {
	b := &bridge{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.Health(context.Background()))

	s, err := c.Acquire(context.Background(), DefaultResolution)
	require.NoError(t, err)
	assert.Equal(t, SourceLive, s.Source())

	img, err := s.Frame(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.EqualValues(t, 1, b.deletes.Load())
}

func TestClientAcquireDenied(t *testing.T) {
	srv := httptest.NewServer((&bridge{deny: true}).handler())
	defer srv.Close()

	_, err := New(srv.URL).Acquire(context.Background(), DefaultResolution)
	require.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestClientAcquireUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Acquire(context.Background(), DefaultResolution)
	require.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.Acquire(context.Background(), DefaultResolution)
	require.ErrorIs(t, err, ErrDeviceUnavailable)
}

func TestSyntheticFrame(t *testing.T) {
	s := NewSynthetic(Resolution{})
	assert.Equal(t, SourceSynthetic, s.Source())

	img, err := s.Frame(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 640, 480), img.Bounds())

	margin := 640 / 12
	r, g, bl, _ := img.At(margin, margin).RGBA()
	assert.Equal(t, [3]uint32{0x8B, 0x5C, 0xF6}, [3]uint32{r >> 8, g >> 8, bl >> 8}, "corner bracket colour")
}

type countingStream struct {
	Synthetic
	closes int
}

func (c *countingStream) Close() error {
	c.closes++
	return nil
}

func TestOnceClosesUnderlyingOnce(t *testing.T) {
	inner := &countingStream{}
	s := Once(inner)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, 1, inner.closes)
	assert.Same(t, s, Once(s))
	assert.Nil(t, Once(nil))
}
