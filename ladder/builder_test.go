package ladder_test

import (
	"encoding/json"
	"testing"

	"github.com/lookbusy1344/plc-emulator/ladder"
	"github.com/lookbusy1344/plc-emulator/parser"
)

func buildOne(t *testing.T, source string) *ladder.Rung {
	t.Helper()
	diagrams, warns := buildAll(t, source)
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	if len(diagrams[0].Rungs) != 1 {
		t.Fatalf("expected 1 rung, got %d", len(diagrams[0].Rungs))
	}
	return diagrams[0].Rungs[0]
}

func buildAll(t *testing.T, source string) ([]*ladder.Diagram, []string) {
	t.Helper()
	prog := parser.Parse(source, "test.il")
	if prog.HasErrors() {
		t.Fatalf("parse errors: %v", prog.Errors())
	}
	return ladder.Build(prog)
}

func cellAt(rung *ladder.Rung, row, col int) *ladder.Cell {
	for _, cell := range rung.Cells {
		if cell.Row == row && cell.Col == col {
			return cell
		}
	}
	return nil
}

func TestBuild_SeriesContactsAndCoil(t *testing.T) {
	rung := buildOne(t, "NETWORK 1\nSTR X1\nAND X2\nOUT Y1\n")

	if rung.Rows != 1 || rung.Cols != 3 {
		t.Fatalf("rows/cols = %d/%d, want 1/3", rung.Rows, rung.Cols)
	}

	c := cellAt(rung, 0, 0)
	if c == nil || c.Type != ladder.CellContact || c.Symbol != "noc" || *c.Addr != "X1" {
		t.Errorf("cell(0,0) = %+v, want noc contact X1", c)
	}
	c = cellAt(rung, 0, 1)
	if c == nil || *c.Addr != "X2" {
		t.Errorf("cell(0,1) should be the X2 contact")
	}
	c = cellAt(rung, 0, 2)
	if c == nil || c.Type != ladder.CellCoil || c.Symbol != "out" || *c.Addr != "Y1" {
		t.Errorf("cell(0,2) = %+v, want out coil Y1", c)
	}
}

func TestBuild_ParallelBranch(t *testing.T) {
	// Scenario S6: STR X1 / OR X2 / AND X3 / OUT Y1
	rung := buildOne(t, "NETWORK 1\nSTR X1\nOR X2\nAND X3\nOUT Y1\n")

	if rung.Rows != 2 || rung.Cols != 3 {
		t.Fatalf("rows/cols = %d/%d, want 2/3", rung.Rows, rung.Cols)
	}

	// Row 0: X1 then X3 contacts
	if c := cellAt(rung, 0, 0); c == nil || *c.Addr != "X1" {
		t.Error("cell(0,0) should be X1")
	}
	if c := cellAt(rung, 0, 1); c == nil || *c.Addr != "X3" {
		t.Error("cell(0,1) should be X3")
	}

	// Row 1: X2 then a branch connector
	if c := cellAt(rung, 1, 0); c == nil || *c.Addr != "X2" {
		t.Error("cell(1,0) should be X2")
	}
	if c := cellAt(rung, 1, 1); c == nil || c.Type != ladder.CellBranch {
		t.Error("cell(1,1) should be a branch connector")
	}

	// Output coil at row 0 in the output column
	if c := cellAt(rung, 0, 2); c == nil || c.Type != ladder.CellCoil || *c.Addr != "Y1" {
		t.Error("cell(0,2) should be the Y1 coil")
	}
}

func TestBuild_CellsInsideBounds(t *testing.T) {
	sources := []string{
		"NETWORK 1\nSTR X1\nOUT Y1\n",
		"NETWORK 1\nSTR X1\nOR X2\nOR X3\nAND X4\nOUT Y1\n",
		"NETWORK 1\nSTR X1\nOR X2\nSTR X3\nOR X4\nANDSTR\nOUT Y1\n",
		"NETWORK 1\nSTR X1\nAND X2\nSTR X3\nAND X4\nORSTR\nOUT Y1 Y2\n",
		"NETWORK 1\nSTR X1\nSTR X2\nSTR X3\nUDC CT1 5\n",
		"NETWORK 1\nEND\n",
	}
	for _, src := range sources {
		rung := buildOne(t, src)
		for _, cell := range rung.Cells {
			if cell.Row < 0 || cell.Row >= rung.Rows || cell.Col < 0 || cell.Col >= rung.Cols {
				t.Errorf("source %q: cell (%d,%d) outside %dx%d",
					src, cell.Row, cell.Col, rung.Rows, rung.Cols)
			}
		}
	}
}

func TestBuild_MultiAddressCoils(t *testing.T) {
	rung := buildOne(t, "NETWORK 1\nSTR X1\nOUT Y1 Y2 Y3\n")

	// One coil per address, stacked top to bottom in declaration order
	for i, addr := range []string{"Y1", "Y2", "Y3"} {
		c := cellAt(rung, i, 1)
		if c == nil || c.Type != ladder.CellCoil || *c.Addr != addr {
			t.Errorf("row %d should hold coil %s, got %+v", i, addr, c)
		}
	}
	if rung.Rows != 3 {
		t.Errorf("rows = %d, want 3", rung.Rows)
	}
}

func TestBuild_TimerBlock(t *testing.T) {
	rung := buildOne(t, "NETWORK 1\nSTR X1\nTMR T1 500\nOUT Y1\n")

	c := cellAt(rung, 0, 1)
	if c == nil || c.Type != ladder.CellBlock || c.Symbol != "tmr" {
		t.Fatalf("cell(0,1) = %+v, want tmr block", c)
	}
	if *c.Monitor != "timer" {
		t.Errorf("monitor = %q, want timer", *c.Monitor)
	}
	if len(c.Addrs) != 1 || c.Addrs[0] != "T1" {
		t.Errorf("block addrs = %v, want [T1]", c.Addrs)
	}
}

func TestBuild_ComparisonContact(t *testing.T) {
	rung := buildOne(t, "NETWORK 1\nSTRGT DS1 100\nOUT Y1\n")

	c := cellAt(rung, 0, 0)
	if c == nil || c.Type != ladder.CellContact || c.Symbol != "compgt" {
		t.Fatalf("cell(0,0) = %+v, want compgt contact", c)
	}
	if *c.Monitor != "word" {
		t.Errorf("monitor = %q, want word", *c.Monitor)
	}
	if len(c.Params) != 2 {
		t.Errorf("params = %v, want the two operands", c.Params)
	}
}

func TestBuild_ControlCells(t *testing.T) {
	diagrams, warns := buildAll(t, "NETWORK 1\nSTR X1\nENDC\nNETWORK 2\nEND\n")
	if len(warns) != 0 {
		t.Fatalf("unexpected warnings: %v", warns)
	}
	rungs := diagrams[0].Rungs
	if len(rungs) != 2 {
		t.Fatalf("expected 2 rungs, got %d", len(rungs))
	}
	if c := cellAt(rungs[0], 0, 1); c == nil || c.Symbol != "endc" {
		t.Error("rung 1 should end with an endc cell")
	}
	if c := cellAt(rungs[1], 0, 0); c == nil || c.Symbol != "end" {
		t.Error("rung 2 should hold an end cell")
	}
}

func TestBuild_SubroutineDiagrams(t *testing.T) {
	diagrams, _ := buildAll(t, `NETWORK 1
STR X1
CALL aux
SBR aux
NETWORK 1
STR C1
OUT Y9
`)
	if len(diagrams) != 2 {
		t.Fatalf("expected main + 1 subroutine, got %d", len(diagrams))
	}
	if diagrams[0].Name != "main" || diagrams[1].Name != "aux" {
		t.Errorf("diagram names = %s/%s", diagrams[0].Name, diagrams[1].Name)
	}
	if len(diagrams[1].Addresses) != 2 { // C1, Y9
		t.Errorf("aux addresses = %v", diagrams[1].Addresses)
	}
}

func TestBuild_MalformedStackFallsBack(t *testing.T) {
	// Four dangling STR groups exceed the recoverable multiplicity
	_, warns := buildAll(t, "NETWORK 1\nSTR X1\nSTR X2\nSTR X3\nSTR X4\nOUT Y1\n")
	if len(warns) != 1 {
		t.Fatalf("expected 1 warning, got %v", warns)
	}

	prog := parser.Parse("NETWORK 1\nSTR X1\nSTR X2\nSTR X3\nSTR X4\nOUT Y1\n", "test.il")
	diagrams, _ := ladder.Build(prog)
	rung := diagrams[0].Rungs[0]
	if len(rung.IL) == 0 {
		t.Error("malformed rung should carry its IL fallback text")
	}
}

func TestBuild_CommentAndAddrs(t *testing.T) {
	rung := buildOne(t, "// tank high limit\nNETWORK 1\nSTR X1\nAND C5\nOUT Y1\n")

	if rung.Comment == nil || *rung.Comment != "tank high limit" {
		t.Errorf("comment not carried: %v", rung.Comment)
	}
	want := []string{"C5", "X1", "Y1"}
	if len(rung.Addrs) != len(want) {
		t.Fatalf("addrs = %v, want %v", rung.Addrs, want)
	}
	for i := range want {
		if rung.Addrs[i] != want[i] {
			t.Errorf("addrs = %v, want sorted %v", rung.Addrs, want)
		}
	}
}

func TestBuild_JSONShape(t *testing.T) {
	diagrams, _ := buildAll(t, "NETWORK 1\nSTR X1\nOUT Y1\n")
	data, err := json.Marshal(diagrams[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"subrname", "addresses", "subrdata"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}

	subrdata := decoded["subrdata"].([]any)
	rung := subrdata[0].(map[string]any)
	for _, key := range []string{"rungnum", "rows", "cols", "comment", "addrs", "cells"} {
		if _, ok := rung[key]; !ok {
			t.Errorf("missing rung key %q", key)
		}
	}
	cells := rung["cells"].([]any)
	cell := cells[0].(map[string]any)
	for _, key := range []string{"type", "symbol", "addr", "addrs", "opcode", "params", "row", "col", "monitor"} {
		if _, ok := cell[key]; !ok {
			t.Errorf("missing cell key %q", key)
		}
	}
}
