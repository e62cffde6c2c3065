// Package monitor implements a terminal live view of the running PLC:
// scan statistics, a watched-address table and start/stop control.
package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/service"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// TUI represents the terminal monitor
type TUI struct {
	Controller *service.Controller
	App        *tview.Application

	// View panels
	StatusView *tview.TextView
	WatchView  *tview.Table
	HelpView   *tview.TextView
	WatchInput *tview.InputField

	// State
	watch      []string
	refresh    time.Duration
	runOptions vm.RunOptions
}

// NewTUI creates a monitor over a controller. watch lists the
// addresses shown initially; refreshMS is the redraw cadence.
func NewTUI(controller *service.Controller, watch []string, refreshMS int, runOptions vm.RunOptions) *TUI {
	if refreshMS <= 0 {
		refreshMS = 250
	}
	tui := &TUI{
		Controller: controller,
		App:        tview.NewApplication(),
		watch:      normalizeWatch(watch),
		refresh:    time.Duration(refreshMS) * time.Millisecond,
		runOptions: runOptions,
	}
	tui.initializeViews()
	tui.setupKeyBindings()
	return tui
}

func normalizeWatch(addrs []string) []string {
	clean := []string{}
	for _, addr := range addrs {
		addr = strings.ToUpper(strings.TrimSpace(addr))
		if addr != "" && datatable.ValidAddress(addr) {
			clean = append(clean, addr)
		}
	}
	return clean
}

// initializeViews creates the panels
func (t *TUI) initializeViews() {
	t.StatusView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.StatusView.SetBorder(true).SetTitle(" Scan ")

	t.WatchView = tview.NewTable().
		SetBorders(false).
		SetFixed(1, 0)
	t.WatchView.SetBorder(true).SetTitle(" Data Table ")

	t.HelpView = tview.NewTextView().
		SetDynamicColors(true)
	t.HelpView.SetText("[yellow]s[white] start/stop  [yellow]n[white] single scan  [yellow]w[white] watch address  [yellow]q[white] quit")

	t.WatchInput = tview.NewInputField().
		SetLabel("watch> ").
		SetFieldWidth(0)
	t.WatchInput.SetDoneFunc(t.handleWatchInput)
}

// layout assembles the main flex container
func (t *TUI) layout(withInput bool) *tview.Flex {
	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.StatusView, 5, 0, false).
		AddItem(t.WatchView, 0, 1, true)
	if withInput {
		flex.AddItem(t.WatchInput, 1, 0, true)
	}
	flex.AddItem(t.HelpView, 1, 0, false)
	return flex
}

// setupKeyBindings installs the global key handler
func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if t.App.GetFocus() == t.WatchInput {
			return event
		}
		switch event.Rune() {
		case 'q':
			t.Controller.Stop()
			t.App.Stop()
			return nil
		case 's':
			t.toggleRun()
			return nil
		case 'n':
			_, _ = t.Controller.StepScan()
			t.redraw()
			return nil
		case 'w':
			t.App.SetRoot(t.layout(true), true)
			t.App.SetFocus(t.WatchInput)
			return nil
		}
		return event
	})
}

// handleWatchInput adds an address to the watch list
func (t *TUI) handleWatchInput(key tcell.Key) {
	if key == tcell.KeyEnter {
		addr := strings.ToUpper(strings.TrimSpace(t.WatchInput.GetText()))
		if addr != "" && datatable.ValidAddress(addr) {
			t.watch = append(t.watch, addr)
		}
		t.WatchInput.SetText("")
	}
	t.App.SetRoot(t.layout(false), true)
	t.App.SetFocus(t.WatchView)
	t.redraw()
}

// toggleRun starts or stops continuous execution
func (t *TUI) toggleRun() {
	if t.Controller.Status().Running {
		t.Controller.Stop()
	} else {
		_ = t.Controller.Start(t.runOptions)
	}
	t.redraw()
}

// redraw refreshes both panels from a snapshot
func (t *TUI) redraw() {
	status := t.Controller.Status()

	state := "[red]stopped"
	if status.Running {
		state = "[green]running"
	}
	exit := string(t.Controller.ExitCode())
	if exit == "" {
		exit = "-"
	}
	t.StatusView.SetText(fmt.Sprintf(
		" State: %s[white]   Exit: %s\n Scans: %d   Errors: %d\n Last: %.2f ms   Avg: %.2f ms",
		state, exit, status.Scan, status.Errors, status.LastScanMS, status.AvgScanMS))

	t.WatchView.Clear()
	for col, header := range []string{"Address", "Value"} {
		t.WatchView.SetCell(0, col,
			tview.NewTableCell(header).
				SetTextColor(tcell.ColorYellow).
				SetSelectable(false))
	}

	snapshot := t.Controller.Snapshot()
	for i, addr := range t.watch {
		value, err := snapshot.GetValue(addr)
		text := "?"
		if err == nil {
			text = fmt.Sprintf("%v", value)
		}
		t.WatchView.SetCell(i+1, 0, tview.NewTableCell(addr))
		t.WatchView.SetCell(i+1, 1, tview.NewTableCell(text))
	}
}

// Run starts the monitor and blocks until quit
func (t *TUI) Run() error {
	events, cancel := t.Controller.Subscribe()
	defer cancel()

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		ticker := time.NewTicker(t.refresh)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-events:
			case <-ticker.C:
			}
			t.App.QueueUpdateDraw(t.redraw)
		}
	}()

	t.redraw()
	return t.App.SetRoot(t.layout(false), true).Run()
}
