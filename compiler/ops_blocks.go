package compiler

import (
	"fmt"

	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// timerBitAddr validates a T<n> timer bit address
func timerBitAddr(token string) (string, error) {
	addr, err := boolAddr(token)
	if err != nil {
		return "", err
	}
	prefix, _, _ := datatable.SplitAddress(addr)
	if prefix != "T" {
		return "", fmt.Errorf("%s is not a timer address", addr)
	}
	return addr, nil
}

// counterBitAddr validates a CT<n> counter bit address
func counterBitAddr(token string) (string, error) {
	addr, err := boolAddr(token)
	if err != nil {
		return "", err
	}
	prefix, _, _ := datatable.SplitAddress(addr)
	if prefix != "CT" {
		return "", fmt.Errorf("%s is not a counter address", addr)
	}
	return addr, nil
}

// compileTimer lowers TMR/TMRA/TMROFF. The enable (and, for TMRA, the
// reset) come from the logic stack; the preset is a literal or word
// address, scaled by the optional trailing time unit. The resulting
// timer bit replaces the stack top so following coils see it.
func compileTimer(inst *parser.Instruction) (vm.Operation, error) {
	if len(inst.Params) < 2 {
		return nil, fmt.Errorf("timer requires a bit address and a preset")
	}
	bitAddr, err := timerBitAddr(inst.Params[0])
	if err != nil {
		return nil, err
	}
	preset, err := numericOperand(inst.Params[1])
	if err != nil {
		return nil, err
	}

	scale := 1.0
	if len(inst.Params) >= 3 {
		s, ok := timeUnitScale[inst.Params[2]]
		if !ok {
			return nil, fmt.Errorf("unknown time unit %q", inst.Params[2])
		}
		scale = s
	}

	switch inst.Opcode {
	case "TMR":
		return func(ctx *vm.Context) (vm.Signal, error) {
			bit := ctx.TimerOnDelay(bitAddr, preset(ctx)*scale, ctx.Top())
			ctx.ReplaceTop(bit)
			return vm.SignalNone, nil
		}, nil
	case "TMRA":
		return func(ctx *vm.Context) (vm.Signal, error) {
			in := ctx.Inputs(2)
			bit := ctx.TimerRetentive(bitAddr, preset(ctx)*scale, in[0], in[1])
			ctx.ReplaceTop(bit)
			return vm.SignalNone, nil
		}, nil
	case "TMROFF":
		return func(ctx *vm.Context) (vm.Signal, error) {
			bit := ctx.TimerOffDelay(bitAddr, preset(ctx)*scale, ctx.Top())
			ctx.ReplaceTop(bit)
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled timer %s", inst.Opcode)
}

// compileCounter lowers CNTU/CNTD/UDC. Inputs come from the logic
// stack in declaration order (CNTU/CNTD: enable then reset; UDC: up,
// down, reset); the preset is a literal or word address. The counter
// bit replaces the stack top.
func compileCounter(inst *parser.Instruction) (vm.Operation, error) {
	if len(inst.Params) < 2 {
		return nil, fmt.Errorf("counter requires a bit address and a preset")
	}
	bitAddr, err := counterBitAddr(inst.Params[0])
	if err != nil {
		return nil, err
	}
	preset, err := numericOperand(inst.Params[1])
	if err != nil {
		return nil, err
	}

	switch inst.Opcode {
	case "CNTU":
		return func(ctx *vm.Context) (vm.Signal, error) {
			in := ctx.Inputs(2)
			bit := ctx.CounterUp(bitAddr, int32(preset(ctx)), in[0], in[1])
			ctx.ReplaceTop(bit)
			return vm.SignalNone, nil
		}, nil
	case "CNTD":
		return func(ctx *vm.Context) (vm.Signal, error) {
			in := ctx.Inputs(2)
			bit := ctx.CounterDown(bitAddr, int32(preset(ctx)), in[0], in[1])
			ctx.ReplaceTop(bit)
			return vm.SignalNone, nil
		}, nil
	case "UDC":
		return func(ctx *vm.Context) (vm.Signal, error) {
			in := ctx.Inputs(3)
			bit := ctx.CounterUpDown(bitAddr, int32(preset(ctx)), in[0], in[1], in[2])
			ctx.ReplaceTop(bit)
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled counter %s", inst.Opcode)
}
