package compiler_test

import (
	"testing"

	"github.com/lookbusy1344/plc-emulator/compiler"
	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/vm"
)

func evalDec(t *testing.T, input string, setup func(*datatable.DataTable)) float64 {
	t.Helper()
	return evalExpr(t, input, false, setup)
}

func evalHex(t *testing.T, input string, setup func(*datatable.DataTable)) float64 {
	t.Helper()
	return evalExpr(t, input, true, setup)
}

func evalExpr(t *testing.T, input string, hex bool, setup func(*datatable.DataTable)) float64 {
	t.Helper()
	expr, err := compiler.CompileExpression(input, hex)
	if err != nil {
		t.Fatalf("CompileExpression(%q): %v", input, err)
	}
	table := datatable.New()
	if setup != nil {
		setup(table)
	}
	return expr.Eval(vm.NewContext(table))
}

func TestExpr_Precedence(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 - 4 - 3", 3}, // left to right
		{"2 ^ 3", 8},
		{"2 ^ 3 ^ 2", 512}, // right-associative power
		{"-2 + 5", 3},
		{"10 % 3", 1},
		{"7 / 2", 3.5},
		{"1 / 0", 0}, // division by zero yields zero
		{"5 % 0", 0},
		{"3 == 3", 1},
		{"3 != 3", 0},
		{"2 <= 3", 1},
		{"2 >= 3", 0},
		{"1 + 2 == 3", 1},
	}
	for _, tt := range tests {
		if got := evalDec(t, tt.input, nil); got != tt.want {
			t.Errorf("eval(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExpr_Addresses(t *testing.T) {
	got := evalDec(t, "DS2 + DS3 * 2", func(dt *datatable.DataTable) {
		dt.PutWord("DS2", 3)
		dt.PutWord("DS3", 4)
	})
	if got != 11 {
		t.Errorf("DS2 + DS3 * 2 = %v, want 11", got)
	}

	got = evalDec(t, "DF1 * 2", func(dt *datatable.DataTable) {
		dt.PutFloat("DF1", 1.25)
	})
	if got != 2.5 {
		t.Errorf("DF1 * 2 = %v, want 2.5", got)
	}
}

func TestExpr_HexMode(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"0xFF & 0x0F", 15},
		{"0x01 | 0x10", 17},
		{"0xFF ^ 0x0F", 240},
		{"1 << 4", 16},
		{"0x100 >> 4", 16},
		{"0x10 + 0x10", 32},
		{"7 / 2", 3}, // integer division
		{"1 / 0", 0},
	}
	for _, tt := range tests {
		if got := evalHex(t, tt.input, nil); got != tt.want {
			t.Errorf("hex eval(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestExpr_Errors(t *testing.T) {
	bad := []string{"2 +", "(2 + 3", "2 + ZZZ9", "TXT1 + 1", "1 ? 2", "2..5 + 1"}
	for _, input := range bad {
		if _, err := compiler.CompileExpression(input, false); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}
