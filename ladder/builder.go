package ladder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/parser"
)

// Build renders the main program and every subroutine as ladder
// diagrams, in declaration order. Warnings describe rungs that fell
// back to IL text.
func Build(prog *parser.Program) ([]*Diagram, []string) {
	var warns []string

	diagrams := []*Diagram{buildDiagram("main", prog.MainNetworks, &warns)}
	for _, name := range prog.SubrNames {
		subr := prog.Subroutines[name]
		diagrams = append(diagrams, buildDiagram(name, subr.Networks, &warns))
	}
	return diagrams, warns
}

func buildDiagram(name string, networks []*parser.Network, warns *[]string) *Diagram {
	diagram := &Diagram{Name: name, Addresses: []string{}}

	seen := make(map[string]bool)
	for _, network := range networks {
		rung := buildRung(network, warns)
		diagram.Rungs = append(diagram.Rungs, rung)
		for _, addr := range rung.Addrs {
			if !seen[addr] {
				seen[addr] = true
				diagram.Addresses = append(diagram.Addresses, addr)
			}
		}
	}
	sort.Strings(diagram.Addresses)
	return diagram
}

// addressParams filters an instruction's parameters down to valid
// data-table addresses.
func addressParams(params []string) []string {
	addrs := []string{}
	for _, param := range params {
		addr := strings.ToUpper(strings.TrimSpace(param))
		if datatable.ValidAddress(addr) {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// ilText reconstructs the instruction lines for the fallback rendering
func ilText(network *parser.Network) []string {
	lines := make([]string, 0, len(network.Instructions))
	for _, inst := range network.Instructions {
		line := inst.Opcode
		if len(inst.Params) > 0 {
			line += " " + strings.Join(inst.Params, " ")
		}
		lines = append(lines, line)
	}
	return lines
}

// inputInstruction reports whether an instruction sits on the contact
// side of the rung.
func inputInstruction(info *parser.OpcodeInfo) bool {
	switch info.Category {
	case parser.CatBoolIn, parser.CatEdge, parser.CatCompare, parser.CatStack:
		return true
	}
	return false
}

// buildRung renders one network. Input contacts build the branch
// matrix by replaying the IL stack semantics; outputs occupy a single
// column on the right rail.
func buildRung(network *parser.Network, warns *[]string) *Rung {
	rung := &Rung{Number: network.Number, Addrs: []string{}, Cells: []*Cell{}}
	if network.Comment != "" {
		rung.Comment = strPtr(network.Comment)
	}

	var inputs, outputs []*parser.Instruction
	for _, inst := range network.Instructions {
		info, ok := parser.Lookup(inst.Opcode)
		if !ok || info.Category == parser.CatSpecial || info.Category == parser.CatNoop {
			continue
		}
		if inputInstruction(info) {
			inputs = append(inputs, inst)
		} else {
			outputs = append(outputs, inst)
		}
	}

	input, ok := buildInputMatrix(inputs)
	if !ok {
		*warns = append(*warns,
			fmt.Sprintf("network %d: unbalanced logic stack, rendering as IL", network.Number))
		rung.IL = ilText(network)
	}

	flattenRung(rung, input, outputs)
	collectAddrs(rung)
	return rung
}

// buildInputMatrix replays the input instructions through the matrix
// stack machine. The boolean result reports whether the rung shape was
// recoverable.
func buildInputMatrix(inputs []*parser.Instruction) (matrix, bool) {
	if len(inputs) == 0 {
		return matrix{{}}, true
	}

	current := matrix{{}}
	var stack []matrix

	for _, inst := range inputs {
		info, _ := parser.Lookup(inst.Opcode)

		if info.Category == parser.CatStack {
			if len(stack) == 0 {
				continue // malformed; shape recovery below reports it
			}
			prev := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if inst.Opcode == "ORSTR" {
				current = closeBranch(mergeBelow(prev, current))
			} else {
				current = mergeRight(prev, current)
			}
			continue
		}

		cell := instructionCell(CellContact, inst, info)
		switch stemOf(inst.Opcode) {
		case "STR":
			stack = append(stack, current)
			current = singleCell(cell)
		case "AND":
			current = appendCell(current, cell)
		case "OR":
			current = closeBranch(mergeBelow(current, singleCell(cell)))
		}
	}

	// Rung-shape recovery: the remaining stack depth is the rung's
	// vertical multiplicity. Depth 1 is a single group (the pushed
	// initial empty matrix); 2 and 3 stack the pending groups above
	// the current one for multi-input blocks.
	switch len(stack) {
	case 1:
		return current, true
	case 2:
		return append(trimEmpty(stack[1]), current...), true
	case 3:
		m := append(trimEmpty(stack[1]), trimEmpty(stack[2])...)
		return append(m, current...), true
	default:
		return current, false
	}
}

// stemOf maps an input opcode to its stack behavior family
func stemOf(opcode string) string {
	switch {
	case strings.HasPrefix(opcode, "STR"):
		return "STR"
	case strings.HasPrefix(opcode, "AND"):
		return "AND"
	case strings.HasPrefix(opcode, "OR"):
		return "OR"
	}
	return ""
}

// trimEmpty drops the all-empty rows of a pushed initial matrix
func trimEmpty(m matrix) matrix {
	out := matrix{}
	for _, row := range m {
		if len(row) > 0 {
			out = append(out, row)
		}
	}
	return out
}

// flattenRung assigns coordinates: input cells first, nil positions
// wired through with horizontal bars where the current is carried, and
// the outputs in one column on the right rail.
func flattenRung(rung *Rung, input matrix, outputs []*parser.Instruction) {
	inputCols := input.width()

	for r, row := range input {
		for c, cell := range row {
			if cell == nil {
				// Wire through row 0 and any gap with a live cell
				// later in the row
				if r == 0 || laterCell(row, c) {
					cell = branchCell(symHBar)
				} else {
					continue
				}
			}
			cell.Row = r
			cell.Col = c
			rung.Cells = append(rung.Cells, cell)
		}
		// Row 0 always reaches the output column
		if r == 0 {
			for c := len(row); c < inputCols; c++ {
				bar := branchCell(symHBar)
				bar.Row = 0
				bar.Col = c
				rung.Cells = append(rung.Cells, bar)
			}
		}
	}

	outRow := 0
	for _, inst := range outputs {
		info, _ := parser.Lookup(inst.Opcode)
		switch info.Category {
		case parser.CatBoolOut:
			// One coil cell per address, stacked in declaration order
			for _, addr := range addressParams(inst.Params) {
				cell := coilCell(inst, info, addr)
				cell.Row = outRow
				cell.Col = inputCols
				rung.Cells = append(rung.Cells, cell)
				outRow++
			}
		default:
			// Timers, counters, data, math, search, control: one
			// block cell carrying every parameter address
			cell := instructionCell(CellBlock, inst, info)
			cell.Row = outRow
			cell.Col = inputCols
			rung.Cells = append(rung.Cells, cell)
			outRow++
		}
	}

	rows := len(input)
	if outRow > rows {
		rows = outRow
	}
	if rows == 0 {
		rows = 1
	}
	rung.Rows = rows
	rung.Cols = inputCols + 1
}

// laterCell reports whether the row holds a populated cell after col
func laterCell(row []*Cell, col int) bool {
	for i := col + 1; i < len(row); i++ {
		if row[i] != nil {
			return true
		}
	}
	return false
}

// collectAddrs gathers the sorted unique addresses of a rung
func collectAddrs(rung *Rung) {
	seen := make(map[string]bool)
	for _, cell := range rung.Cells {
		for _, addr := range cell.Addrs {
			if !seen[addr] {
				seen[addr] = true
				rung.Addrs = append(rung.Addrs, addr)
			}
		}
	}
	sort.Strings(rung.Addrs)
}
