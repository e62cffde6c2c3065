package compiler

import (
	"fmt"
	"strconv"

	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// maxForIterations bounds a runaway FOR regardless of its count source
const maxForIterations = 65535

// compileControl lowers CALL/RT/RTC/END/ENDC. FOR and NEXT are folded
// by the network lowering before reaching here.
func compileControl(inst *parser.Instruction) (vm.Operation, error) {
	switch inst.Opcode {
	case "CALL":
		if len(inst.Params) < 1 {
			return nil, fmt.Errorf("CALL requires a subroutine name")
		}
		name := inst.Params[0]
		return func(ctx *vm.Context) (vm.Signal, error) {
			return ctx.CallSubroutine(name)
		}, nil

	case "RT":
		return func(*vm.Context) (vm.Signal, error) {
			return vm.SignalReturn, nil
		}, nil

	case "RTC":
		return func(ctx *vm.Context) (vm.Signal, error) {
			if ctx.Top() {
				return vm.SignalReturn, nil
			}
			return vm.SignalNone, nil
		}, nil

	case "END":
		return func(*vm.Context) (vm.Signal, error) {
			return vm.SignalEnd, nil
		}, nil

	case "ENDC":
		// ENDC terminates the whole scan even inside a subroutine;
		// the subroutine-local conditional return is RTC.
		return func(ctx *vm.Context) (vm.Signal, error) {
			if ctx.Top() {
				return vm.SignalEnd, nil
			}
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled control opcode %s", inst.Opcode)
}

// compileFor builds the loop operation for a FOR/NEXT range. A literal
// count is validated here; an address count is read and clamped each
// scan.
func compileFor(inst *parser.Instruction, body []vm.Operation) (vm.Operation, error) {
	if len(inst.Params) < 1 {
		return nil, fmt.Errorf("FOR requires an iteration count")
	}

	if n, err := strconv.Atoi(inst.Params[0]); err == nil {
		if n < 0 {
			return nil, fmt.Errorf("negative FOR count %d", n)
		}
		if n > maxForIterations {
			return nil, fmt.Errorf("FOR count %d exceeds the limit of %d", n, maxForIterations)
		}
	}

	count, err := numericOperand(inst.Params[0])
	if err != nil {
		return nil, err
	}

	return func(ctx *vm.Context) (vm.Signal, error) {
		n := int(count(ctx))
		if n < 0 {
			n = 0
		}
		if n > maxForIterations {
			n = maxForIterations
		}
		for i := 0; i < n; i++ {
			for _, op := range body {
				sig, err := op(ctx)
				if err != nil {
					return vm.SignalNone, err
				}
				if sig != vm.SignalNone {
					return sig, nil
				}
			}
		}
		return vm.SignalNone, nil
	}, nil
}
