// Package console implements the optional live terminal dashboard,
// generalizing Regentag-go1090's main.go: that file drives a single
// status+list gocui view off a one-second time.Tick, updating on every
// decoded message plus once per tick for staleness. This package keeps
// the same update-and-redraw shape but splits the single aircraft list
// into three panes (aircraft, receivers, stats) fed by
// internal/track.Store, internal/track.ReceiverTable and
// internal/stats.Collector, since the track server tracks far more per
// aircraft/receiver state than Regentag-go1090's minimal Sky type.
//
// Regentag-go1090's main.go imports github.com/awesome-gocui/gocui and
// github.com/logrusorgru/aurora, but its go.mod declares only
// github.com/jroimartin/gocui -- this package follows the go.mod's
// declared (and fetchable) dependency, dropping the color formatting
// the inconsistent aurora import would have provided.
package console

import (
	"fmt"
	"sort"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/go1090/trackserver/internal/stats"
	"github.com/go1090/trackserver/internal/track"
)

// Dashboard owns the gocui.Gui and the data sources it polls on each
// redraw.
type Dashboard struct {
	g *gocui.Gui

	store     *track.Store
	receivers *track.ReceiverTable
	collector *stats.Collector
}

// New builds a Dashboard but does not start its main loop.
func New(store *track.Store, receivers *track.ReceiverTable, collector *stats.Collector) (*Dashboard, error) {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return nil, fmt.Errorf("console: new gui: %w", err)
	}

	d := &Dashboard{g: g, store: store, receivers: receivers, collector: collector}
	g.SetManagerFunc(d.layout)

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		g.Close()
		return nil, fmt.Errorf("console: bind ctrl-c: %w", err)
	}

	return d, nil
}

// Close releases the terminal.
func (d *Dashboard) Close() { d.g.Close() }

// Run starts the redraw ticker and blocks in gocui's MainLoop until the
// user quits (ctrl-c) or ctx would be a natural extension point for
// future cancellation -- Regentag-go1090's own main loop has no ctx either,
// relying solely on the keybinding to call gocui.ErrQuit.
func (d *Dashboard) Run(tick time.Duration) error {
	go func() {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for range ticker.C {
			d.g.Update(d.redraw)
		}
	}()

	if err := d.g.MainLoop(); err != nil && !isQuit(err) {
		return fmt.Errorf("console: main loop: %w", err)
	}
	return nil
}

func isQuit(err error) bool { return err == gocui.ErrQuit }

func quit(*gocui.Gui, *gocui.View) error { return gocui.ErrQuit }

func (d *Dashboard) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()

	if v, err := g.SetView("status", 0, 0, maxX-1, 2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = " STATUS "
	}

	listHeight := maxY - 3
	aircraftHeight := listHeight * 2 / 3
	if v, err := g.SetView("aircraft", 0, 3, maxX-1, 3+aircraftHeight); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = " AIRCRAFT "
	}

	if v, err := g.SetView("receivers", 0, 4+aircraftHeight, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = " RECEIVERS "
	}

	return nil
}

func (d *Dashboard) redraw(g *gocui.Gui) error {
	now := time.Now()

	if v, err := g.View("status"); err == nil {
		v.Clear()
		var allTime stats.Counters
		if d.collector != nil {
			allTime = d.collector.Snapshot().AllTime
		}
		fmt.Fprintf(v, " A/C: %d  MSGS: %d  LAST UPDATE: %s\n",
			d.store.Len(), allTime.MessagesTotal, now.Format("2006-01-02 15:04:05"))
	}

	if v, err := g.View("aircraft"); err == nil {
		v.Clear()
		fmt.Fprintln(v, " ICAO ADDR  FLIGHT     ALT    SPD    HDG     LAT      LON  SEEN")
		fmt.Fprintln(v, " ================================================================")
		for _, ac := range sortedAircraft(d.store.Snapshot()) {
			fmt.Fprintf(v, " %6s  %-9s  %5d  %5.0f  %5.0f  %7.2f  %7.2f  %s\n",
				ac.HexAddr(), ac.Callsign, ac.Kinematics.BaroAlt, ac.Kinematics.GS,
				ac.Kinematics.Track, ac.Position.Lat, ac.Position.Lon,
				time.UnixMilli(ac.SeenMs).Format("15:04:05"))
		}
	}

	if v, err := g.View("receivers"); err == nil {
		v.Clear()
		fmt.Fprintln(v, " RECEIVER ID         GOOD     BAD")
		fmt.Fprintln(v, " ================================")
		if d.receivers != nil {
			fmt.Fprintf(v, " tracked: %d\n", d.receivers.Len())
		}
	}

	return nil
}

func sortedAircraft(aircraft []*track.Aircraft) []*track.Aircraft {
	sort.Slice(aircraft, func(i, j int) bool { return aircraft[i].Addr < aircraft[j].Addr })
	return aircraft
}
