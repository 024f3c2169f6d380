package camera

import (
	"context"
	"errors"
	"image"
	"sync"
)

// ErrDeviceUnavailable is returned when no camera can be opened.
var ErrDeviceUnavailable = errors.New("camera unavailable")

// Resolution is the preferred capture size.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DefaultResolution is the 640x480 preference used by the scanner.
var DefaultResolution = Resolution{Width: 640, Height: 480}

// Source tells live feeds from the synthetic placeholder.
type Source string

const (
	SourceNone      Source = "none"
	SourceLive      Source = "live"
	SourceSynthetic Source = "synthetic"
)

// Stream is an acquired feed. Close releases the underlying device.
type Stream interface {
	Source() Source
	Frame(ctx context.Context, scans int) (image.Image, error)
	Close() error
}

// Device opens streams.
type Device interface {
	Acquire(ctx context.Context, res Resolution) (Stream, error)
}

// Unavailable is a Device with no camera attached.
type Unavailable struct{}

func (Unavailable) Acquire(context.Context, Resolution) (Stream, error) {
	return nil, ErrDeviceUnavailable
}

// Once wraps a stream so the underlying Close runs at most once.
func Once(s Stream) Stream {
	if s == nil {
		return nil
	}
	if o, ok := s.(*onceStream); ok {
		return o
	}
	return &onceStream{Stream: s}
}

type onceStream struct {
	Stream
	once sync.Once
	err  error
}

func (o *onceStream) Close() error {
	o.once.Do(func() { o.err = o.Stream.Close() })
	return o.err
}
