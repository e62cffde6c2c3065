package vm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lookbusy1344/plc-emulator/datatable"
)

// ExitCode reports why continuous execution stopped
type ExitCode string

const (
	ExitNone     ExitCode = ""
	ExitEnd      ExitCode = "end"
	ExitMaxScans ExitCode = "max-scans-reached"
	ExitStopped  ExitCode = "stopped"
)

// ScanError is passed to the user error hook when an operation fails.
// The hook must not itself panic; a panicking hook is swallowed.
type ScanError struct {
	Scan    uint64
	Network int
	Cause   error
}

func (e ScanError) Error() string {
	return fmt.Sprintf("scan %d network %d: %v", e.Scan, e.Network, e.Cause)
}

// Options configures a new interpreter
type Options struct {
	// Table is an existing data table to execute against; nil creates
	// a fresh one.
	Table *datatable.DataTable
	// ErrorHook receives runtime errors; the scan continues regardless.
	ErrorHook func(ScanError)
	// FixedIntervalMS, when positive, advances timers by a fixed
	// amount per scan instead of measured wall time. Used for
	// deterministic simulation and tests.
	FixedIntervalMS float64
}

// RunOptions configures continuous execution
type RunOptions struct {
	// MaxScans stops execution after this many scans; zero is unlimited.
	MaxScans uint64
	// TargetScanTimeMS pads each scan to this duration when the logic
	// finishes faster; zero runs free.
	TargetScanTimeMS float64
}

// Interpreter executes a compiled plan cyclically over a data table.
// The scan loop is single threaded; Stop, ScanCount, Running, ExitCode
// and Snapshot are safe to call from other goroutines.
type Interpreter struct {
	plan  *Plan
	table *datatable.DataTable
	ctx   *Context

	scanCount atomic.Uint64 // completed scans
	running   atomic.Bool

	mu       sync.Mutex
	exitCode ExitCode
	stats    ScanStatistics

	firstScan     bool
	pulseRef      time.Time
	lastScanStart time.Time
	timerDelta    float64 // ms the timer engine advances this scan
	fixedInterval float64

	errorHook func(ScanError)
}

// NewInterpreter creates an interpreter for a compiled plan
func NewInterpreter(plan *Plan, opts Options) *Interpreter {
	table := opts.Table
	if table == nil {
		table = datatable.New()
	}

	ctx := NewContext(table)
	ctx.Subroutines = plan.Subroutines

	interp := &Interpreter{
		plan:          plan,
		table:         table,
		ctx:           ctx,
		firstScan:     true,
		fixedInterval: opts.FixedIntervalMS,
		errorHook:     opts.ErrorHook,
	}
	ctx.interp = interp
	return interp
}

// Table returns the interpreter's data table
func (in *Interpreter) Table() *datatable.DataTable {
	return in.table
}

// ScanCount returns the number of completed scans
func (in *Interpreter) ScanCount() uint64 {
	return in.scanCount.Load()
}

// Running reports whether continuous execution is active
func (in *Interpreter) Running() bool {
	return in.running.Load()
}

// ExitCode returns the exit code of the last continuous run
func (in *Interpreter) ExitCode() ExitCode {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.exitCode
}

// Stats returns a copy of the scan statistics
func (in *Interpreter) Stats() ScanStatistics {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.stats
}

// Snapshot returns a consistent read-only copy of the data table
func (in *Interpreter) Snapshot() *datatable.Snapshot {
	return in.table.Snapshot()
}

// Stop requests cooperative termination of continuous execution. The
// request is observed between scans, never within one.
func (in *Interpreter) Stop() {
	in.running.Store(false)
}

// RunScan executes one full scan cycle and returns its duration in
// milliseconds.
func (in *Interpreter) RunScan() float64 {
	t0 := time.Now()

	// Milliseconds the timers advance: fixed in simulation, otherwise
	// the wall time since the previous scan started (zero on the
	// first scan).
	if in.fixedInterval > 0 {
		in.timerDelta = in.fixedInterval
	} else if !in.lastScanStart.IsZero() {
		in.timerDelta = float64(t0.Sub(in.lastScanStart)) / float64(time.Millisecond)
	} else {
		in.timerDelta = 0
	}
	in.lastScanStart = t0

	in.updateSystemBits(t0)

	scanNum := in.scanCount.Load() + 1
	for i := range in.plan.MainNetworks {
		network := &in.plan.MainNetworks[i]
		sig := in.runNetwork(scanNum, network)
		if sig == SignalEnd {
			in.setExitCode(ExitEnd)
			break
		}
	}

	scanMS := float64(time.Since(t0)) / float64(time.Millisecond)
	in.mu.Lock()
	in.stats.Record(scanMS)
	in.mu.Unlock()
	in.scanCount.Add(1)

	// Scan complete marker
	in.table.PutBool("SC7", true)

	return scanMS
}

// runNetwork executes one network, recovering from any failure so a
// bad network never aborts the scan.
func (in *Interpreter) runNetwork(scanNum uint64, network *NetworkPlan) (signal Signal) {
	defer func() {
		if r := recover(); r != nil {
			in.reportError(scanNum, network.Number, fmt.Errorf("panic: %v", r))
			signal = SignalNone
		}
	}()

	for _, op := range network.Ops {
		sig, err := op(in.ctx)
		if err != nil {
			in.reportError(scanNum, network.Number, err)
			return SignalNone
		}
		switch sig {
		case SignalReturn:
			// RT outside a subroutine ends the network
			return SignalNone
		case SignalEnd:
			return SignalEnd
		}
	}
	return SignalNone
}

func (in *Interpreter) reportError(scanNum uint64, networkNum int, cause error) {
	in.mu.Lock()
	in.stats.RecordError()
	in.mu.Unlock()

	if in.errorHook != nil {
		scanErr := ScanError{Scan: scanNum, Network: networkNum, Cause: cause}
		func() {
			defer func() { _ = recover() }()
			in.errorHook(scanErr)
		}()
	}
}

// updateSystemBits publishes the SC/SD system addresses ahead of logic
// execution. SC1 is always on, SC2 always off, SC3 alternates, SC4 is
// the running flag, SC5 the first-scan flag, SC6 the one-second pulse
// and SC7 turns true only once the scan completes.
func (in *Interpreter) updateSystemBits(now time.Time) {
	scanNum := in.scanCount.Load() + 1

	in.table.PutBool("SC1", true)
	in.table.PutBool("SC2", false)
	in.table.PutBool("SC3", scanNum%2 == 1)
	in.table.PutBool("SC4", in.running.Load())
	in.table.PutBool("SC5", in.firstScan)

	if in.pulseRef.IsZero() {
		in.pulseRef = now
	}
	if now.Sub(in.pulseRef) >= time.Second {
		in.table.PutBool("SC6", true)
		in.pulseRef = now
	} else {
		in.table.PutBool("SC6", false)
	}

	in.table.PutBool("SC7", false)

	in.mu.Lock()
	last := in.stats.LastScanMS
	avg := in.stats.AverageMS()
	in.mu.Unlock()

	in.table.PutWord("SD1", int32(scanNum%65536))
	in.table.PutWord("SD2", int32(last))
	in.table.PutWord("SD3", int32(avg))

	in.firstScan = false
}

func (in *Interpreter) setExitCode(code ExitCode) {
	in.mu.Lock()
	in.exitCode = code
	in.mu.Unlock()
}

// RunContinuous loops RunScan until stopped, the scan limit is hit or
// an END instruction fires. Returns the exit code.
func (in *Interpreter) RunContinuous(opts RunOptions) ExitCode {
	in.setExitCode(ExitNone)
	in.running.Store(true)
	defer in.running.Store(false)

	for {
		if !in.running.Load() {
			in.setExitCode(ExitStopped)
			return ExitStopped
		}

		scanMS := in.RunScan()

		if code := in.ExitCode(); code != ExitNone {
			return code
		}
		if opts.MaxScans > 0 && in.scanCount.Load() >= opts.MaxScans {
			in.setExitCode(ExitMaxScans)
			return ExitMaxScans
		}
		if opts.TargetScanTimeMS > 0 && scanMS < opts.TargetScanTimeMS {
			time.Sleep(time.Duration((opts.TargetScanTimeMS - scanMS) * float64(time.Millisecond)))
		}
	}
}
