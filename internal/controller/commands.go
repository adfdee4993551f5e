package controller

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/unklstewy/loc-v2/pkg/geo"
	"github.com/unklstewy/loc-v2/pkg/lookup"
)

// Commands run off the event loop. They may read deps, opts and ctx, which
// never change after New, but must not touch c.state.

func (c *Controller) after(d time.Duration, msg tea.Msg) tea.Cmd {
	return c.deps.Tick(d, func(time.Time) tea.Msg { return msg })
}

func (c *Controller) clockTick() tea.Cmd {
	return c.deps.Tick(c.opts.ClockInterval, func(t time.Time) tea.Msg { return clockTickMsg(t) })
}

// guard turns a panic inside fn into the message built by onPanic.
func (c *Controller) guard(kind string, fn func() tea.Msg, onPanic func(error) tea.Msg) tea.Cmd {
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("%s command panicked: %v", kind, r)
				c.log.Errorw("recovered from panic", "kind", kind, "panic", r)
				msg = onPanic(err)
			}
		}()
		return fn()
	}
}

func (c *Controller) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.ctx, c.opts.RequestTimeout)
}

func (c *Controller) routeCmd(gen uint64, start, end geo.Coordinate, offline bool) tea.Cmd {
	return c.guard("route", func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()

		res, err := c.deps.Router.Route(ctx, start, end, offline)
		if err == nil && len(res.Coordinates) < 2 {
			err = fmt.Errorf("route has %d points", len(res.Coordinates))
		}
		return routeResolvedMsg{gen: gen, result: res, err: err}
	}, func(err error) tea.Msg {
		return routeResolvedMsg{gen: gen, err: err}
	})
}

func (c *Controller) searchCmd(seq uint64, query string) tea.Cmd {
	origin := c.origin()
	offline := c.state.Settings.Offline
	return c.guard("search", func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		return suggestionsMsg{seq: seq, results: c.deps.Lookup.Search(ctx, query, origin, offline)}
	}, func(error) tea.Msg {
		return suggestionsMsg{seq: seq}
	})
}

// planCmd resolves the destination, and the origin when it is a place name.
func (c *Controller) planCmd(gen uint64, start, end string) tea.Cmd {
	origin := c.origin()
	offline := c.state.Settings.Offline
	return c.guard("plan", func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()

		var from *geo.Coordinate
		if start != "" {
			if hits := c.deps.Lookup.Search(ctx, start, origin, offline); len(hits) > 0 {
				coord := hits[0].Coordinate()
				from = &coord
			}
		}

		near := origin
		if from != nil {
			near = *from
		}
		return planResolvedMsg{gen: gen, origin: from, results: c.deps.Lookup.Search(ctx, end, near, offline)}
	}, func(error) tea.Msg {
		return planResolvedMsg{gen: gen, results: []lookup.SearchResult{}}
	})
}

func (c *Controller) weatherCmd(at geo.Coordinate) tea.Cmd {
	return c.guard("weather", func() tea.Msg {
		ctx, cancel := c.requestContext()
		defer cancel()
		snap, err := c.deps.Weather.Current(ctx, at)
		return weatherMsg{snap: snap, err: err}
	}, func(err error) tea.Msg {
		return weatherMsg{err: err}
	})
}

func (c *Controller) waitForReading() tea.Cmd {
	ch := c.readings
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return locationMsg{closed: true}
		}
		return locationMsg{reading: r}
	}
}
