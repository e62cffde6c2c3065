package parser_test

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/plc-emulator/parser"
)

func TestTokenizeLine_Basic(t *testing.T) {
	tokens, _, hasComment := parser.TokenizeLine("STR X1")
	if hasComment {
		t.Error("unexpected comment")
	}
	if len(tokens) != 2 || tokens[0] != "STR" || tokens[1] != "X1" {
		t.Errorf("unexpected tokens: %v", tokens)
	}
}

func TestTokenizeLine_TabsAndComment(t *testing.T) {
	tokens, comment, hasComment := parser.TokenizeLine("\tAND\tX2  // motor interlock")
	if len(tokens) != 2 || tokens[0] != "AND" || tokens[1] != "X2" {
		t.Errorf("unexpected tokens: %v", tokens)
	}
	if !hasComment || comment != "motor interlock" {
		t.Errorf("unexpected comment: %q (has=%v)", comment, hasComment)
	}
}

func TestTokenizeLine_QuotedString(t *testing.T) {
	tokens, _, _ := parser.TokenizeLine(`COPY "hello  world" TXT1`)
	if len(tokens) != 3 {
		t.Fatalf("expected 3 tokens, got %v", tokens)
	}
	if tokens[1] != `"hello  world"` {
		t.Errorf("quoted token mangled: %q", tokens[1])
	}
}

func TestTokenizeLine_UnbalancedParens(t *testing.T) {
	// Inside an open paren group, whitespace stays within the token
	tokens, _, _ := parser.TokenizeLine("MATHDEC DS1 0 (DS2 + DS3) * 2")
	found := false
	for _, tok := range tokens {
		if tok == "(DS2 + DS3)" {
			found = true
		}
	}
	if !found {
		t.Errorf("parenthesized group split apart: %v", tokens)
	}
}

func TestParse_SimpleNetwork(t *testing.T) {
	src := "NETWORK 1\nSTR X1\nAND X2\nOUT Y1\n"
	prog := parser.Parse(src, "test.il")

	if prog.HasErrors() {
		t.Fatalf("unexpected errors: %v", prog.Errors())
	}
	if len(prog.MainNetworks) != 1 {
		t.Fatalf("expected 1 network, got %d", len(prog.MainNetworks))
	}

	net := prog.MainNetworks[0]
	if net.Number != 1 {
		t.Errorf("expected network number 1, got %d", net.Number)
	}
	if len(net.Instructions) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(net.Instructions))
	}
	if net.Instructions[0].Opcode != "STR" || net.Instructions[0].Params[0] != "X1" {
		t.Errorf("unexpected first instruction: %+v", net.Instructions[0])
	}
	if net.Instructions[2].Line != 4 {
		t.Errorf("expected line 4 for OUT, got %d", net.Instructions[2].Line)
	}
}

func TestParse_CRLFLineEndings(t *testing.T) {
	src := "NETWORK 1\r\nSTR X1\r\nOUT Y1\r\n"
	prog := parser.Parse(src, "test.il")
	if prog.HasErrors() {
		t.Fatalf("unexpected errors: %v", prog.Errors())
	}
	if len(prog.MainNetworks) != 1 || len(prog.MainNetworks[0].Instructions) != 2 {
		t.Error("CRLF program parsed incorrectly")
	}
}

func TestParse_Subroutines(t *testing.T) {
	src := `NETWORK 1
STR X1
CALL pump
NETWORK 2
STR X2
OUT Y2
SBR pump
NETWORK 1
STR C1
OUT Y5
SBR drain
NETWORK 1
STR C2
OUT Y6
`
	prog := parser.Parse(src, "test.il")
	if prog.HasErrors() {
		t.Fatalf("unexpected errors: %v", prog.Errors())
	}

	if len(prog.MainNetworks) != 2 {
		t.Errorf("expected 2 main networks, got %d", len(prog.MainNetworks))
	}
	if len(prog.Subroutines) != 2 {
		t.Fatalf("expected 2 subroutines, got %d", len(prog.Subroutines))
	}

	pump, ok := prog.Subroutines["pump"]
	if !ok {
		t.Fatal("subroutine pump missing")
	}
	if len(pump.Networks) != 1 || len(pump.Networks[0].Instructions) != 2 {
		t.Errorf("pump parsed incorrectly: %+v", pump)
	}

	if len(prog.SubrNames) != 2 || prog.SubrNames[0] != "pump" || prog.SubrNames[1] != "drain" {
		t.Errorf("subroutine order not preserved: %v", prog.SubrNames)
	}
}

func TestParse_UnknownOpcodeIsError(t *testing.T) {
	src := "NETWORK 1\nSTR X1\nFROB Y1\nOUT Y1\n"
	prog := parser.Parse(src, "test.il")

	if !prog.HasErrors() {
		t.Fatal("expected an error for unknown opcode")
	}
	if prog.Errors()[0].Pos.Line != 3 {
		t.Errorf("expected error on line 3, got %d", prog.Errors()[0].Pos.Line)
	}

	// The bad instruction is dropped; the rest of the network survives
	if len(prog.MainNetworks[0].Instructions) != 2 {
		t.Errorf("expected 2 surviving instructions, got %d", len(prog.MainNetworks[0].Instructions))
	}
}

func TestParse_WrongArityIsWarning(t *testing.T) {
	src := "NETWORK 1\nSTR X1 X2\nOUT Y1\n"
	prog := parser.Parse(src, "test.il")

	if prog.HasErrors() {
		t.Fatalf("arity problem must not be an error: %v", prog.Errors())
	}
	if len(prog.Warnings()) == 0 {
		t.Fatal("expected an arity warning")
	}
	// The instruction is kept
	if len(prog.MainNetworks[0].Instructions) != 2 {
		t.Errorf("expected instruction kept, got %d", len(prog.MainNetworks[0].Instructions))
	}
}

func TestParse_DuplicateNetworkNumberIsWarning(t *testing.T) {
	src := "NETWORK 1\nSTR X1\nOUT Y1\nNETWORK 1\nSTR X2\nOUT Y2\n"
	prog := parser.Parse(src, "test.il")

	if prog.HasErrors() {
		t.Fatalf("unexpected errors: %v", prog.Errors())
	}
	if len(prog.Warnings()) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(prog.Warnings()))
	}
	if !strings.Contains(prog.Warnings()[0].Message, "duplicate network number") {
		t.Errorf("unexpected warning: %s", prog.Warnings()[0].Message)
	}
	// Both networks are kept
	if len(prog.MainNetworks) != 2 {
		t.Errorf("expected both networks kept, got %d", len(prog.MainNetworks))
	}
}

func TestParse_ContentBeforeNetworkIsDiscarded(t *testing.T) {
	src := "STR X1\nNETWORK 1\nSTR X2\nOUT Y1\nSBR aux\nSTR X3\nNETWORK 1\nSTR X4\nOUT Y2\n"
	prog := parser.Parse(src, "test.il")

	if prog.HasErrors() {
		t.Fatalf("unexpected errors: %v", prog.Errors())
	}
	if len(prog.Warnings()) != 2 {
		t.Fatalf("expected 2 misplaced-content warnings, got %d: %s", len(prog.Warnings()), prog.Diagnostics.PrintWarnings())
	}
	if len(prog.MainNetworks[0].Instructions) != 2 {
		t.Errorf("misplaced instruction leaked into network 1")
	}
	if len(prog.Subroutines["aux"].Networks[0].Instructions) != 2 {
		t.Errorf("misplaced instruction leaked into subroutine aux")
	}
}

func TestParse_CommentsAttach(t *testing.T) {
	src := `// start conveyor when both sensors agree
NETWORK 1
// sensor pair
STR X1
AND X2
OUT Y1 // conveyor
`
	prog := parser.Parse(src, "test.il")
	if prog.HasErrors() {
		t.Fatalf("unexpected errors: %v", prog.Errors())
	}

	net := prog.MainNetworks[0]
	if net.Comment != "start conveyor when both sensors agree" {
		t.Errorf("network comment = %q", net.Comment)
	}
	if net.Instructions[0].Comment != "sensor pair" {
		t.Errorf("instruction comment = %q", net.Instructions[0].Comment)
	}
	if net.Instructions[2].Comment != "conveyor" {
		t.Errorf("trailing comment = %q", net.Instructions[2].Comment)
	}
}

func TestParse_MathExpressionJoined(t *testing.T) {
	src := "NETWORK 1\nMATHDEC DS1 0 DS2 + DS3 * 2\n"
	prog := parser.Parse(src, "test.il")
	if prog.HasErrors() {
		t.Fatalf("unexpected errors: %v", prog.Errors())
	}

	inst := prog.MainNetworks[0].Instructions[0]
	if len(inst.Params) != 3 {
		t.Fatalf("expected 3 params, got %v", inst.Params)
	}
	if inst.Params[2] != "DS2 + DS3 * 2" {
		t.Errorf("expression param = %q", inst.Params[2])
	}
}

func TestCatalog_AllOpcodesPresent(t *testing.T) {
	all := []string{
		"STR", "STRN", "AND", "ANDN", "OR", "ORN", "ANDSTR", "ORSTR",
		"OUT", "SET", "RST", "PD",
		"STRPD", "STRND", "ANDPD", "ANDND", "ORPD", "ORND",
		"STRE", "STRNE", "STRGT", "STRLT", "STRGE", "STRLE",
		"ANDE", "ANDNE", "ANDGT", "ANDLT", "ANDGE", "ANDLE",
		"ORE", "ORNE", "ORGT", "ORLT", "ORGE", "ORLE",
		"TMR", "TMRA", "TMROFF", "CNTU", "CNTD", "UDC",
		"COPY", "CPYBLK", "FILL", "PACK", "UNPACK",
		"MATHDEC", "MATHHEX", "SUM",
		"FINDEQ", "FINDNE", "FINDGT", "FINDLT", "FINDGE", "FINDLE",
		"FINDIEQ", "FINDINE", "FINDIGT", "FINDILT", "FINDIGE", "FINDILE",
		"CALL", "RT", "RTC", "END", "ENDC", "FOR", "NEXT",
		"NETWORK", "SBR", "SHFRG", "NOP",
	}
	for _, name := range all {
		if _, ok := parser.Lookup(name); !ok {
			t.Errorf("catalog missing opcode %s", name)
		}
	}

	// Case-insensitive lookup
	if _, ok := parser.Lookup("str"); !ok {
		t.Error("lookup should be case-insensitive")
	}
	if info, _ := parser.Lookup("tmr"); info.Symbol != "tmr" {
		t.Error("wrong entry for tmr")
	}
}
