package location

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/upstream"
)

// DefaultGPSDAddr is gpsd's standard listen address.
const DefaultGPSDAddr = "localhost:2947"

const watchCommand = `?WATCH={"enable":true,"json":true}` + "\n"

// GPSD streams fixes from a gpsd daemon over its JSON protocol.
type GPSD struct {
	addr  string
	retry upstream.RetryConfig
	dial  func(ctx context.Context, addr string) (net.Conn, error)

	// reconnectDelay separates connection cycles whose retries all failed
	reconnectDelay time.Duration
}

// NewGPSD creates a gpsd provider.
func NewGPSD(addr string) *GPSD {
	if addr == "" {
		addr = DefaultGPSDAddr
	}
	d := &net.Dialer{Timeout: 5 * time.Second}
	return &GPSD{
		addr: addr,
		retry: upstream.RetryConfig{
			MaxRetries:   3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		},
		reconnectDelay: 30 * time.Second,
	}
}

// tpvReport is gpsd's time-position-velocity report. Pointer fields are
// absent when the receiver does not know them.
type tpvReport struct {
	Class string   `json:"class"`
	Mode  int      `json:"mode"`
	Time  string   `json:"time"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Track *float64 `json:"track"`
	Eph   *float64 `json:"eph"`
}

// Watch forwards 2D/3D fixes until ctx is cancelled. Each dropped stream or
// failed connection cycle is reported as one error reading, after which the
// watcher redials.
func (g *GPSD) Watch(ctx context.Context) <-chan Reading {
	out := make(chan Reading, 4)
	go func() {
		defer close(out)
		for {
			connected, err := g.session(ctx, out)
			if err == nil || ctx.Err() != nil {
				return
			}
			if !send(ctx, out, Reading{Err: err}) {
				return
			}
			if connected {
				// the daemon was up a moment ago; redial right away
				continue
			}
			timer := time.NewTimer(g.reconnectDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	return out
}

// session runs one connection. connected reports whether the dial
// succeeded. A nil error means ctx ended the session.
func (g *GPSD) session(ctx context.Context, out chan<- Reading) (connected bool, err error) {
	conn, err := upstream.RetryWithBackoffResult(ctx, g.retry, func() (net.Conn, error) {
		return g.dial(ctx, g.addr)
	})
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to connect to gpsd at %s: %w", g.addr, err)
	}
	defer conn.Close()

	// unblock the scanner on cancellation
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if _, err := conn.Write([]byte(watchCommand)); err != nil {
		return true, fmt.Errorf("failed to start gpsd watch: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		sample, ok := parseTPV(scanner.Bytes())
		if !ok {
			continue
		}
		if !send(ctx, out, Reading{Sample: sample}) {
			return true, nil
		}
	}

	if ctx.Err() != nil {
		return true, nil
	}
	err = scanner.Err()
	if err == nil {
		err = fmt.Errorf("connection closed")
	}
	return true, fmt.Errorf("gpsd stream ended: %w", err)
}

// parseTPV extracts a sample from one gpsd line. Non-TPV classes and
// reports without a 2D fix are skipped.
func parseTPV(line []byte) (geo.LocationSample, bool) {
	var r tpvReport
	if err := json.Unmarshal(line, &r); err != nil {
		return geo.LocationSample{}, false
	}
	if r.Class != "TPV" || r.Mode < 2 || r.Lat == nil || r.Lon == nil {
		return geo.LocationSample{}, false
	}

	s := geo.LocationSample{
		Coordinate: geo.Coordinate{Lat: *r.Lat, Lng: *r.Lon},
		Time:       time.Now(),
	}
	if r.Track != nil {
		h := geo.NormalizeHeading(*r.Track)
		s.Heading = &h
	}
	if r.Eph != nil {
		s.Accuracy = *r.Eph
	}
	if t, err := time.Parse(time.RFC3339Nano, r.Time); err == nil {
		s.Time = t
	}
	return s, true
}
