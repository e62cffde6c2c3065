package compiler

import (
	"fmt"

	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// compileMath lowers MATHDEC/MATHHEX/SUM
func compileMath(inst *parser.Instruction) (vm.Operation, error) {
	switch inst.Opcode {
	case "MATHDEC", "MATHHEX":
		if len(inst.Params) < 3 {
			return nil, fmt.Errorf("%s requires destination, flags and expression", inst.Opcode)
		}
		dst, err := anyAddr(inst.Params[0])
		if err != nil {
			return nil, err
		}
		domain, _ := datatable.AddressDomain(dst)
		if domain != datatable.DomainWord && domain != datatable.DomainFloat {
			return nil, fmt.Errorf("destination %s must be a word or float address", dst)
		}
		// The flags parameter (inst.Params[1]) is carried for source
		// compatibility and has no runtime effect.
		expr, err := CompileExpression(inst.Params[2], inst.Opcode == "MATHHEX")
		if err != nil {
			return nil, err
		}

		if domain == datatable.DomainWord {
			return func(ctx *vm.Context) (vm.Signal, error) {
				ctx.Table.PutWord(dst, int32(expr.Eval(ctx)))
				return vm.SignalNone, nil
			}, nil
		}
		return func(ctx *vm.Context) (vm.Signal, error) {
			ctx.Table.PutFloat(dst, expr.Eval(ctx))
			return vm.SignalNone, nil
		}, nil

	case "SUM":
		if len(inst.Params) < 3 {
			return nil, fmt.Errorf("SUM requires start, count and destination")
		}
		src, err := wordBlockStart(inst.Params[0])
		if err != nil {
			return nil, err
		}
		count, err := numericOperand(inst.Params[1])
		if err != nil {
			return nil, err
		}
		dst, err := wordAddr(inst.Params[2])
		if err != nil {
			return nil, err
		}
		return func(ctx *vm.Context) (vm.Signal, error) {
			n := int(count(ctx))
			if err := src.checkCount(n); err != nil {
				return vm.SignalNone, err
			}
			var total int32
			for i := 0; i < n; i++ {
				total += ctx.Table.Word(src.addr(i))
			}
			ctx.Table.PutWord(dst, total)
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled math opcode %s", inst.Opcode)
}
