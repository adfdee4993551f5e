package location

import (
	"context"
	"time"

	"github.com/unklstewy/loc-v2/pkg/geo"
)

// Static reports one fixed position, for desks without a receiver.
type Static struct {
	coord geo.Coordinate
}

// NewStatic creates a static provider.
func NewStatic(c geo.Coordinate) *Static {
	return &Static{coord: c}
}

// Watch emits a single sample and closes when ctx is done.
func (s *Static) Watch(ctx context.Context) <-chan Reading {
	out := make(chan Reading, 1)
	go func() {
		defer close(out)
		if !send(ctx, out, Reading{Sample: geo.LocationSample{Coordinate: s.coord, Time: time.Now()}}) {
			return
		}
		<-ctx.Done()
	}()
	return out
}
