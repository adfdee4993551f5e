// Package console is the operator dashboard of the asset cache service.
package console

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/loc-v2/internal/assetcache"
)

// Operator is the part of the asset cache the console drives.
type Operator interface {
	Status(ctx context.Context) (assetcache.Status, error)
	Install(ctx context.Context, urls []string) assetcache.InstallReport
	Activate(ctx context.Context) ([]string, error)
}

// Options configure a Console.
type Options struct {
	Precache []string
	Addr     string
	Store    string

	// PollInterval is the status refresh period
	PollInterval time.Duration
}

// Console is a tview dashboard with status, controls and log panels.
type Console struct {
	op   Operator
	opts Options
	logs *LogManager

	tviewApp *tview.Application
	status   *tview.TextView
	controls *tview.TextView

	mu       sync.Mutex
	last     assetcache.Status
	lastErr  error
	busy     string
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

// New builds the console. logs should be the writer the service logs to.
func New(op Operator, logs *LogManager, opts Options) *Console {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	c := &Console{
		op:   op,
		opts: opts,
		logs: logs,
	}
	c.setupUI()
	return c
}

func (c *Console) setupUI() {
	c.tviewApp = tview.NewApplication()

	c.status = tview.NewTextView().SetDynamicColors(true)
	c.status.SetBorder(true).SetTitle(" Asset Cache ")

	c.controls = tview.NewTextView().SetDynamicColors(true)
	c.controls.SetBorder(true).SetTitle(" Controls ")
	c.controls.SetText(`[yellow]ACTIONS[-]
  [white]i[-]  Install precache list
  [white]a[-]  Activate (drop old generations)
  [white]r[-]  Refresh status

[yellow]CONTROL[-]
  [white]q[-]  Quit`)

	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.status, 0, 3, false).
		AddItem(c.controls, 0, 2, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(c.logs.View(), 0, 7, true).
		AddItem(sidebar, 0, 3, false)

	c.tviewApp.SetRoot(root, true)
	c.tviewApp.SetInputCapture(c.handleKeyboard)

	app := c.tviewApp
	c.logs.onChange = func() {
		go app.QueueUpdateDraw(func() {})
	}
	c.renderStatus()
}

// Run blocks until the user quits or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	defer c.cancel()

	go func() {
		<-c.ctx.Done()
		c.Stop()
	}()
	go c.pollLoop()

	return c.tviewApp.Run()
}

func (c *Console) pollLoop() {
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	c.refresh()
	for {
		select {
		case <-ticker.C:
			c.refresh()
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Console) refresh() {
	st, err := c.op.Status(c.ctx)
	c.mu.Lock()
	c.last, c.lastErr = st, err
	c.mu.Unlock()
	c.tviewApp.QueueUpdateDraw(c.renderStatus)
}

func (c *Console) renderStatus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.SetText(formatStatus(c.last, c.lastErr, c.opts, c.busy))
}

// formatStatus renders the status panel text.
func formatStatus(st assetcache.Status, err error, opts Options, busy string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]SERVER:[-] [white]%s[-]\n", opts.Addr)
	fmt.Fprintf(&b, "[gray]Store:[-]   [white]%s[-]\n", opts.Store)
	fmt.Fprintf(&b, "[gray]Version:[-] [white]%s[-]\n", st.Version)
	fmt.Fprintf(&b, "[gray]Entries:[-] [white]%d / %d[-]\n", st.Entries, len(opts.Precache))
	b.WriteString("\n[yellow]GENERATIONS:[-]\n")
	if len(st.Generations) == 0 {
		b.WriteString("  [gray]none[-]\n")
	}
	for _, g := range st.Generations {
		color := "gray"
		if g == st.Version {
			color = "green"
		}
		fmt.Fprintf(&b, "  [%s]%s[-]\n", color, g)
	}
	if len(st.Backend) > 0 {
		b.WriteString("\n[yellow]BACKEND:[-]\n")
		keys := make([]string, 0, len(st.Backend))
		for k := range st.Backend {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "  [gray]%s:[-] [white]%v[-]\n", k, st.Backend[k])
		}
	}
	if busy != "" {
		fmt.Fprintf(&b, "\n[yellow]%s...[-]\n", busy)
	}
	if err != nil {
		fmt.Fprintf(&b, "\n[red]%s[-]\n", tview.Escape(err.Error()))
	}
	return b.String()
}

// handleKeyboard handles keyboard input
func (c *Console) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyEscape || event.Rune() == 'q':
		c.Stop()
		return nil
	case event.Rune() == 'i':
		c.runAction("installing", func(ctx context.Context) {
			r := c.op.Install(ctx, c.opts.Precache)
			c.logs.Info("install: %d stored, %d failed", len(r.Stored), len(r.Failed))
		})
		return nil
	case event.Rune() == 'a':
		c.runAction("activating", func(ctx context.Context) {
			removed, err := c.op.Activate(ctx)
			if err != nil {
				c.logs.Error("activate failed: %v", err)
				return
			}
			c.logs.Info("activate: removed %d generation(s)", len(removed))
		})
		return nil
	case event.Rune() == 'r':
		go c.refresh()
		return nil
	}
	return event
}

// runAction runs fn in the background unless another action is running.
func (c *Console) runAction(name string, fn func(ctx context.Context)) {
	c.mu.Lock()
	if c.busy != "" {
		c.mu.Unlock()
		c.logs.Warn("%s in progress", c.busy)
		return
	}
	c.busy = name
	c.mu.Unlock()

	go func() {
		fn(c.ctx)
		c.mu.Lock()
		c.busy = ""
		c.mu.Unlock()
		c.refresh()
	}()
}

// Stop stops the application
func (c *Console) Stop() {
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.tviewApp.Stop()
	})
}
