package tools_test

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/plc-emulator/tools"
)

func TestFormat_Canonicalizes(t *testing.T) {
	source := "network 1\nstr x1\n\tand\tx2   // interlock\nout y1\n"
	formatted, err := tools.Format(source, "test.il", nil)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	lines := strings.Split(strings.TrimRight(formatted, "\n"), "\n")
	if lines[0] != "NETWORK 1" {
		t.Errorf("line 0 = %q, want NETWORK 1", lines[0])
	}
	if lines[1] != "    STR x1" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if !strings.Contains(lines[2], "AND x2") || !strings.Contains(lines[2], "// interlock") {
		t.Errorf("line 2 = %q, want aligned comment", lines[2])
	}
}

func TestFormat_SubroutinesAndSpacing(t *testing.T) {
	source := "NETWORK 1\nSTR X1\nOUT Y1\nNETWORK 2\nSTR X2\nOUT Y2\nSBR aux\nNETWORK 1\nSTR C1\nOUT Y3\n"
	formatted, err := tools.Format(source, "test.il", nil)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}

	if !strings.Contains(formatted, "\n\nNETWORK 2\n") {
		t.Error("expected a blank line between networks")
	}
	if !strings.Contains(formatted, "\nSBR aux\n") {
		t.Error("expected the subroutine header")
	}

	// Formatting is stable: a second pass changes nothing
	again, err := tools.Format(formatted, "test.il", nil)
	if err != nil {
		t.Fatalf("second Format: %v", err)
	}
	if again != formatted {
		t.Error("formatting is not idempotent")
	}
}

func TestFormat_RejectsBrokenPrograms(t *testing.T) {
	if _, err := tools.Format("NETWORK 1\nFROB X1\n", "test.il", nil); err == nil {
		t.Error("expected an error for a program with parse errors")
	}
}
