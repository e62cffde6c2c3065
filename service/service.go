// Package service owns the program lifecycle: parse, compile, run,
// stop. It is the seam between the runtime and its observers (the HTTP
// API and the terminal monitor).
package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/lookbusy1344/plc-emulator/compiler"
	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/ladder"
	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// Diagnostics summarizes the outcome of loading a program
type Diagnostics struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Networks int      `json:"networks"`
	Subrs    int      `json:"subroutines"`
}

// ScanEvent is published to subscribers after scans complete
type ScanEvent struct {
	Scan       uint64  `json:"scan"`
	LastScanMS float64 `json:"lastScanMs"`
	AvgScanMS  float64 `json:"avgScanMs"`
	Errors     uint64  `json:"errors"`
	Running    bool    `json:"running"`
}

// Controller manages one loaded program and its interpreter. All
// methods are safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	source  string
	program *parser.Program
	plan    *vm.Plan
	interp  *vm.Interpreter
	table   *datatable.DataTable

	runDone chan struct{}

	subMu       sync.Mutex
	subscribers []chan ScanEvent

	// EventIntervalMS is the scan-event publication cadence; default 100
	EventIntervalMS int
	// FixedIntervalMS forwards to the interpreter for simulated time
	FixedIntervalMS float64
}

// NewController creates an empty controller with a fresh data table
func NewController() *Controller {
	return &Controller{
		table:           datatable.New(),
		EventIntervalMS: 100,
	}
}

// Load parses and compiles IL source, replacing any loaded program. A
// running program is stopped first. The data table is preserved across
// loads.
func (c *Controller) Load(source, filename string) (*Diagnostics, error) {
	c.Stop()

	c.mu.Lock()
	defer c.mu.Unlock()

	prog := parser.Parse(source, filename)
	diags := &Diagnostics{
		Errors:   []string{},
		Warnings: []string{},
		Networks: len(prog.MainNetworks),
		Subrs:    len(prog.Subroutines),
	}
	for _, e := range prog.Errors() {
		diags.Errors = append(diags.Errors, e.Error())
	}
	for _, w := range prog.Warnings() {
		diags.Warnings = append(diags.Warnings, w.String())
	}

	if prog.HasErrors() {
		return diags, fmt.Errorf("program has %d parse error(s)", len(prog.Errors()))
	}

	plan, err := compiler.Compile(prog)
	if err != nil {
		if el, ok := err.(*compiler.ErrorList); ok {
			for _, ce := range el.Errors {
				diags.Errors = append(diags.Errors, ce.Error())
			}
		}
		return diags, err
	}

	c.source = source
	c.program = prog
	c.plan = plan
	c.interp = vm.NewInterpreter(plan, vm.Options{
		Table:           c.table,
		FixedIntervalMS: c.FixedIntervalMS,
	})
	return diags, nil
}

// Loaded reports whether a program is ready to run
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interp != nil
}

// Source returns the currently loaded IL text
func (c *Controller) Source() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.source
}

// Start begins continuous execution on its own goroutine
func (c *Controller) Start(opts vm.RunOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interp == nil {
		return fmt.Errorf("no program loaded")
	}
	if c.runDone != nil {
		select {
		case <-c.runDone:
			// previous run finished
		default:
			return fmt.Errorf("already running")
		}
	}

	interp := c.interp
	done := make(chan struct{})
	c.runDone = done

	go func() {
		defer close(done)
		stop := make(chan struct{})
		go c.publishLoop(interp, stop)
		interp.RunContinuous(opts)
		close(stop)
		c.publish(interp)
	}()
	return nil
}

// publishLoop publishes scan events on a fixed cadence while the
// interpreter runs; the scan loop itself never blocks on observers.
func (c *Controller) publishLoop(interp *vm.Interpreter, stop <-chan struct{}) {
	interval := c.EventIntervalMS
	if interval <= 0 {
		interval = 100
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.publish(interp)
		}
	}
}

// StepScan executes a single scan when not running continuously
func (c *Controller) StepScan() (float64, error) {
	c.mu.Lock()
	interp := c.interp
	c.mu.Unlock()

	if interp == nil {
		return 0, fmt.Errorf("no program loaded")
	}
	if interp.Running() {
		return 0, fmt.Errorf("cannot single-step while running")
	}
	ms := interp.RunScan()
	c.publish(interp)
	return ms, nil
}

// Wait blocks until the current continuous run finishes
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.runDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stop requests cooperative termination and waits for the run
// goroutine to drain.
func (c *Controller) Stop() {
	c.mu.Lock()
	interp := c.interp
	done := c.runDone
	c.mu.Unlock()

	if interp != nil {
		interp.Stop()
	}
	if done != nil {
		<-done
	}
}

// Status returns the current scan event view of the interpreter
func (c *Controller) Status() ScanEvent {
	c.mu.Lock()
	interp := c.interp
	c.mu.Unlock()

	if interp == nil {
		return ScanEvent{}
	}
	stats := interp.Stats()
	return ScanEvent{
		Scan:       interp.ScanCount(),
		LastScanMS: stats.LastScanMS,
		AvgScanMS:  stats.AverageMS(),
		Errors:     stats.ErrorCount,
		Running:    interp.Running(),
	}
}

// ExitCode reports why the last continuous run ended
func (c *Controller) ExitCode() vm.ExitCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interp == nil {
		return vm.ExitNone
	}
	return c.interp.ExitCode()
}

// Snapshot returns a consistent copy of the data table
func (c *Controller) Snapshot() *datatable.Snapshot {
	return c.table.Snapshot()
}

// Table exposes the live data table for writes from the host surface
func (c *Controller) Table() *datatable.DataTable {
	return c.table
}

// Ladder renders the loaded program as ladder diagrams
func (c *Controller) Ladder() ([]*ladder.Diagram, []string, error) {
	c.mu.Lock()
	prog := c.program
	c.mu.Unlock()

	if prog == nil {
		return nil, nil, fmt.Errorf("no program loaded")
	}
	diagrams, warns := ladder.Build(prog)
	return diagrams, warns, nil
}

// Subscribe registers a scan-event channel. The returned cancel
// function unregisters it.
func (c *Controller) Subscribe() (<-chan ScanEvent, func()) {
	ch := make(chan ScanEvent, 16)
	c.subMu.Lock()
	c.subscribers = append(c.subscribers, ch)
	c.subMu.Unlock()

	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, sub := range c.subscribers {
			if sub == ch {
				c.subscribers = append(c.subscribers[:i], c.subscribers[i+1:]...)
				break
			}
		}
	}
	return ch, cancel
}

// publish fans a scan event out to subscribers, dropping when a
// subscriber's buffer is full.
func (c *Controller) publish(interp *vm.Interpreter) {
	stats := interp.Stats()
	event := ScanEvent{
		Scan:       interp.ScanCount(),
		LastScanMS: stats.LastScanMS,
		AvgScanMS:  stats.AverageMS(),
		Errors:     stats.ErrorCount,
		Running:    interp.Running(),
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, sub := range c.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}
