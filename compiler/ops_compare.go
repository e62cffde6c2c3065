package compiler

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// comparePredicates keyed by opcode suffix
var comparePredicates = map[string]func(a, b float64) bool{
	"E":  func(a, b float64) bool { return a == b },
	"NE": func(a, b float64) bool { return a != b },
	"GT": func(a, b float64) bool { return a > b },
	"LT": func(a, b float64) bool { return a < b },
	"GE": func(a, b float64) bool { return a >= b },
	"LE": func(a, b float64) bool { return a <= b },
}

// splitCompareOpcode separates STRGE into stem STR and suffix GE
func splitCompareOpcode(opcode string) (stem, suffix string, ok bool) {
	for _, s := range []string{"STR", "AND", "OR"} {
		if strings.HasPrefix(opcode, s) {
			suffix = opcode[len(s):]
			if _, exists := comparePredicates[suffix]; exists {
				return s, suffix, true
			}
		}
	}
	return "", "", false
}

// compileCompare lowers the 18 comparison contacts. Operands are
// literals or word/float addresses; comparison is performed in float64,
// which represents every word value exactly.
func compileCompare(inst *parser.Instruction) (vm.Operation, error) {
	stem, suffix, ok := splitCompareOpcode(inst.Opcode)
	if !ok {
		return nil, fmt.Errorf("unhandled comparison %s", inst.Opcode)
	}
	if len(inst.Params) < 2 {
		return nil, fmt.Errorf("comparison requires two operands")
	}

	left, err := numericOperand(inst.Params[0])
	if err != nil {
		return nil, err
	}
	right, err := numericOperand(inst.Params[1])
	if err != nil {
		return nil, err
	}
	pred := comparePredicates[suffix]

	switch stem {
	case "STR":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.Push(pred(left(ctx), right(ctx)))
			return vm.SignalNone, nil
		}, nil
	case "AND":
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.ReplaceTop(ctx.Top() && pred(left(ctx), right(ctx)))
			return vm.SignalNone, nil
		}, nil
	default: // OR
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.ReplaceTop(ctx.Top() || pred(left(ctx), right(ctx)))
			return vm.SignalNone, nil
		}, nil
	}
}
