// Package compiler lowers a parsed IL program to an executable plan:
// one operation per instruction, closed over the shared execution
// context.
package compiler

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// Error is a per-instruction compile error. It is fatal for the
// offending instruction only; the rest of the plan is still produced.
type Error struct {
	Pos     parser.Position
	Opcode  string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: compile error in %s: %s", e.Pos, e.Opcode, e.Message)
}

// ErrorList aggregates compile errors into one error value
type ErrorList struct {
	Errors []*Error
}

func (el *ErrorList) add(line int, opcode, format string, args ...any) {
	el.Errors = append(el.Errors, &Error{
		Pos:     parser.Position{Line: line},
		Opcode:  opcode,
		Message: fmt.Sprintf(format, args...),
	})
}

func (el *ErrorList) Error() string {
	var sb strings.Builder
	for _, err := range el.Errors {
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Compile lowers a parsed program into a plan. A program carrying
// parse errors does not compile. Per-instruction lowering failures are
// collected and returned alongside the plan: the plan is still usable,
// minus the failed instructions.
func Compile(prog *parser.Program) (*vm.Plan, error) {
	if prog.HasErrors() {
		return nil, fmt.Errorf("program has %d parse error(s)", len(prog.Errors()))
	}

	errs := &ErrorList{}
	plan := &vm.Plan{
		Subroutines: make(map[string][]vm.Operation),
	}

	for _, network := range prog.MainNetworks {
		plan.MainNetworks = append(plan.MainNetworks, vm.NetworkPlan{
			Number: network.Number,
			Ops:    compileNetwork(network, errs),
		})
	}

	for name, subr := range prog.Subroutines {
		var ops []vm.Operation
		for _, network := range subr.Networks {
			ops = append(ops, compileNetwork(network, errs)...)
		}
		plan.Subroutines[name] = ops
	}

	if len(errs.Errors) > 0 {
		return plan, errs
	}
	return plan, nil
}

// compileNetwork lowers one network: a stack reset followed by the
// instruction operations, with FOR/NEXT ranges folded into loop
// operations.
func compileNetwork(network *parser.Network, errs *ErrorList) []vm.Operation {
	ops := []vm.Operation{resetOp}
	ops = append(ops, compileSequence(network.Instructions, errs)...)
	return ops
}

// resetOp clears the logic stack and stack top at the head of a network
func resetOp(ctx *vm.Context) (vm.Signal, error) {
	ctx.ResetStack()
	return vm.SignalNone, nil
}

// compileSequence lowers a run of instructions, recursing into FOR
// bodies.
func compileSequence(instructions []*parser.Instruction, errs *ErrorList) []vm.Operation {
	var ops []vm.Operation

	for i := 0; i < len(instructions); i++ {
		inst := instructions[i]

		if inst.Opcode == "FOR" {
			end := matchingNext(instructions, i)
			if end < 0 {
				errs.add(inst.Line, inst.Opcode, "FOR without matching NEXT")
				continue
			}
			body := compileSequence(instructions[i+1:end], errs)
			op, err := compileFor(inst, body)
			if err != nil {
				errs.add(inst.Line, inst.Opcode, "%v", err)
			} else {
				ops = append(ops, op)
			}
			i = end
			continue
		}

		if inst.Opcode == "NEXT" {
			errs.add(inst.Line, inst.Opcode, "NEXT without matching FOR")
			continue
		}

		op, err := compileInstruction(inst)
		if err != nil {
			errs.add(inst.Line, inst.Opcode, "%v", err)
			continue
		}
		if op != nil {
			ops = append(ops, op)
		}
	}

	return ops
}

// matchingNext finds the NEXT closing the FOR at index start, honoring
// nesting; -1 when unmatched.
func matchingNext(instructions []*parser.Instruction, start int) int {
	depth := 0
	for i := start + 1; i < len(instructions); i++ {
		switch instructions[i].Opcode {
		case "FOR":
			depth++
		case "NEXT":
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// compileInstruction lowers a single non-structural instruction
func compileInstruction(inst *parser.Instruction) (vm.Operation, error) {
	info, ok := parser.Lookup(inst.Opcode)
	if !ok {
		// Unknown opcodes never reach the compiler; the parser drops them
		return nil, fmt.Errorf("unknown opcode")
	}

	switch info.Category {
	case parser.CatBoolIn:
		return compileBoolIn(inst)
	case parser.CatBoolOut:
		return compileBoolOut(inst)
	case parser.CatStack:
		return compileStackOp(inst)
	case parser.CatEdge:
		return compileEdgeContact(inst)
	case parser.CatCompare:
		return compileCompare(inst)
	case parser.CatTimer:
		return compileTimer(inst)
	case parser.CatCounter:
		return compileCounter(inst)
	case parser.CatDataMove:
		return compileDataMove(inst)
	case parser.CatDataPack:
		return compileDataPack(inst)
	case parser.CatMath:
		return compileMath(inst)
	case parser.CatSearch:
		return compileSearch(inst)
	case parser.CatControl:
		return compileControl(inst)
	case parser.CatNoop:
		return func(*vm.Context) (vm.Signal, error) { return vm.SignalNone, nil }, nil
	default:
		return nil, fmt.Errorf("opcode %s cannot appear inside a network", inst.Opcode)
	}
}
