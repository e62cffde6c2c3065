package compiler

import (
	"fmt"

	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// compileBoolIn lowers STR/STRN/AND/ANDN/OR/ORN
func compileBoolIn(inst *parser.Instruction) (vm.Operation, error) {
	if len(inst.Params) < 1 {
		return nil, fmt.Errorf("missing contact address")
	}
	addr, err := boolAddr(inst.Params[0])
	if err != nil {
		return nil, err
	}

	switch inst.Opcode {
	case "STR":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.Push(ctx.Table.Bool(addr))
			return vm.SignalNone, nil
		}, nil
	case "STRN":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.Push(!ctx.Table.Bool(addr))
			return vm.SignalNone, nil
		}, nil
	case "AND":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.ReplaceTop(ctx.Top() && ctx.Table.Bool(addr))
			return vm.SignalNone, nil
		}, nil
	case "ANDN":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.ReplaceTop(ctx.Top() && !ctx.Table.Bool(addr))
			return vm.SignalNone, nil
		}, nil
	case "OR":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.ReplaceTop(ctx.Top() || ctx.Table.Bool(addr))
			return vm.SignalNone, nil
		}, nil
	case "ORN":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.ReplaceTop(ctx.Top() || !ctx.Table.Bool(addr))
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled boolean input %s", inst.Opcode)
}

// compileStackOp lowers ANDSTR/ORSTR
func compileStackOp(inst *parser.Instruction) (vm.Operation, error) {
	switch inst.Opcode {
	case "ANDSTR":
		return func(ctx *vm.Context) (vm.Signal, error) {
			upper, lower := ctx.PopPair()
			ctx.Push(upper && lower)
			return vm.SignalNone, nil
		}, nil
	case "ORSTR":
		return func(ctx *vm.Context) (vm.Signal, error) {
			upper, lower := ctx.PopPair()
			ctx.Push(upper || lower)
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled stack opcode %s", inst.Opcode)
}

// compileBoolOut lowers OUT/SET/RST/PD coil lists
func compileBoolOut(inst *parser.Instruction) (vm.Operation, error) {
	if len(inst.Params) < 1 {
		return nil, fmt.Errorf("missing coil address")
	}
	addrs := make([]string, 0, len(inst.Params))
	for _, param := range inst.Params {
		addr, err := boolAddr(param)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}

	switch inst.Opcode {
	case "OUT":
		return func(ctx *vm.Context) (vm.Signal, error) {
			v := ctx.Top()
			for _, addr := range addrs {
				ctx.Table.PutBool(addr, v)
			}
			return vm.SignalNone, nil
		}, nil
	case "SET":
		return func(ctx *vm.Context) (vm.Signal, error) {
			if ctx.Top() {
				for _, addr := range addrs {
					ctx.Table.PutBool(addr, true)
				}
			}
			return vm.SignalNone, nil
		}, nil
	case "RST":
		return func(ctx *vm.Context) (vm.Signal, error) {
			if ctx.Top() {
				for _, addr := range addrs {
					ctx.Table.PutBool(addr, false)
				}
			}
			return vm.SignalNone, nil
		}, nil
	case "PD":
		return func(ctx *vm.Context) (vm.Signal, error) {
			v := ctx.Top()
			for _, addr := range addrs {
				st := ctx.State("PD", addr)
				switch {
				case v && !st.Prev:
					ctx.Table.PutBool(addr, true)
				case !v && st.Prev:
					ctx.Table.PutBool(addr, false)
				}
				st.Prev = v
			}
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled coil opcode %s", inst.Opcode)
}

// compileEdgeContact lowers STRPD/STRND/ANDPD/ANDND/ORPD/ORND. The
// edge refers to the operand address's value between scans, keyed by
// (opcode, address) in the edge-state table.
func compileEdgeContact(inst *parser.Instruction) (vm.Operation, error) {
	if len(inst.Params) < 1 {
		return nil, fmt.Errorf("missing contact address")
	}
	addr, err := boolAddr(inst.Params[0])
	if err != nil {
		return nil, err
	}

	opcode := inst.Opcode
	rising := opcode[len(opcode)-2:] == "PD"
	stem := opcode[:len(opcode)-2]

	edge := func(ctx *vm.Context) bool {
		current := ctx.Table.Bool(addr)
		if rising {
			return ctx.RisingEdge(opcode, addr, current)
		}
		return ctx.FallingEdge(opcode, addr, current)
	}

	switch stem {
	case "STR":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.Push(edge(ctx))
			return vm.SignalNone, nil
		}, nil
	case "AND":
		return func(ctx *vm.Context) (vm.Signal, error) {
			e := edge(ctx)
			ctx.ReplaceTop(ctx.Top() && e)
			return vm.SignalNone, nil
		}, nil
	case "OR":
		return func(ctx *vm.Context) (vm.Signal, error) {
			e := edge(ctx)
			ctx.ReplaceTop(ctx.Top() || e)
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled edge contact %s", inst.Opcode)
}
