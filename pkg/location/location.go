// Package location provides positioning sources for the HUD. A source that
// is unavailable reports a single error and then stays silent; it never
// fabricates a position.
package location

import (
	"context"
	"fmt"
	"time"

	"github.com/unklstewy/loc-v2/pkg/geo"
)

// Reading is one event from a Provider: either a sample or an error.
type Reading struct {
	Sample geo.LocationSample
	Err    error
}

// Provider streams position readings until ctx is cancelled. The returned
// channel is closed when the provider stops.
type Provider interface {
	Watch(ctx context.Context) <-chan Reading
}

// Source names a provider implementation.
type Source string

const (
	SourceGPSD   Source = "gpsd"
	SourceReplay Source = "replay"
	SourceStatic Source = "static"
	SourceNone   Source = "none"
)

// Options selects and configures a provider.
type Options struct {
	Source Source

	// GPSDAddr is host:port of the gpsd daemon
	GPSDAddr string

	// ReplayFile is a GPX track to play back
	ReplayFile string

	// ReplayInterval is the delay between replayed points
	ReplayInterval time.Duration

	// ReplayLoop restarts the track when it ends
	ReplayLoop bool

	// Static is the fixed position for the static source
	Static geo.Coordinate
}

// New builds the provider named by opts.Source. SourceNone returns nil,
// meaning location is disabled.
func New(opts Options) (Provider, error) {
	switch opts.Source {
	case SourceGPSD:
		return NewGPSD(opts.GPSDAddr), nil
	case SourceReplay:
		r, err := NewReplayFile(opts.ReplayFile, opts.ReplayInterval, opts.ReplayLoop)
		if err != nil {
			return nil, err
		}
		return r, nil
	case SourceStatic:
		return NewStatic(opts.Static), nil
	case SourceNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown location source %q", opts.Source)
	}
}

// send delivers r unless ctx is done. Returns false when the caller should stop.
func send(ctx context.Context, out chan<- Reading, r Reading) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}
