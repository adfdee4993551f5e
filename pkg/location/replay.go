package location

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/unklstewy/loc-v2/pkg/geo"
)

// TrackPoint is a GPX trkpt.
type TrackPoint struct {
	Lat  float64   `xml:"lat,attr"`
	Lon  float64   `xml:"lon,attr"`
	Time time.Time `xml:"time"`
}

type gpxFile struct {
	Tracks []struct {
		Segments []struct {
			Points []TrackPoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

// ParseGPX reads every track point in document order.
func ParseGPX(r io.Reader) ([]TrackPoint, error) {
	var doc gpxFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	var points []TrackPoint
	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			points = append(points, seg.Points...)
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("GPX contains no track points")
	}
	return points, nil
}

// Replay plays a recorded track back as live samples.
type Replay struct {
	points   []TrackPoint
	interval time.Duration
	loop     bool
}

// NewReplay creates a replay provider over points.
func NewReplay(points []TrackPoint, interval time.Duration, loop bool) *Replay {
	if interval <= 0 {
		interval = time.Second
	}
	return &Replay{points: points, interval: interval, loop: loop}
}

// NewReplayFile loads a GPX file.
func NewReplayFile(path string, interval time.Duration, loop bool) (*Replay, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file: %w", err)
	}
	defer f.Close()

	points, err := ParseGPX(f)
	if err != nil {
		return nil, err
	}
	return NewReplay(points, interval, loop), nil
}

// Watch emits one sample per interval. GPX has no course, so heading is
// the bearing from the previous point; the first point has none.
func (r *Replay) Watch(ctx context.Context) <-chan Reading {
	out := make(chan Reading)
	go func() {
		defer close(out)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			var prev *geo.Coordinate
			for _, p := range r.points {
				c := geo.Coordinate{Lat: p.Lat, Lng: p.Lon}
				s := geo.LocationSample{Coordinate: c, Time: time.Now()}
				if prev != nil && *prev != c {
					h := geo.Bearing(*prev, c)
					s.Heading = &h
				}
				prev = &c

				if !send(ctx, out, Reading{Sample: s}) {
					return
				}

				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}
			if !r.loop {
				return
			}
		}
	}()
	return out
}
