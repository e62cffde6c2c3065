package tools_test

import (
	"strings"
	"testing"

	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/tools"
)

const xrefSource = `NETWORK 1
STR X1
AND X2
OUT Y1
NETWORK 2
STR X1
TMR T1 500
OUT Y2
SBR aux
NETWORK 1
COPY DS1 DS2
`

func TestXRef_Generate(t *testing.T) {
	prog := parser.Parse(xrefSource, "test.il")
	if prog.HasErrors() {
		t.Fatalf("parse errors: %v", prog.Errors())
	}

	x := tools.Generate(prog)

	x1, ok := x.Entries["X1"]
	if !ok {
		t.Fatal("X1 missing from cross-reference")
	}
	if len(x1.References) != 2 {
		t.Errorf("X1 references = %d, want 2", len(x1.References))
	}
	for _, ref := range x1.References {
		if ref.Type != tools.RefRead {
			t.Errorf("X1 should only be read, got %s", ref.Type)
		}
	}

	y1 := x.Entries["Y1"]
	if y1 == nil || y1.References[0].Type != tools.RefWrite {
		t.Error("Y1 should be a write reference")
	}

	t1 := x.Entries["T1"]
	if t1 == nil || t1.References[0].Type != tools.RefWrite {
		t.Error("T1 timer bit should be a write reference")
	}

	ds1 := x.Entries["DS1"]
	ds2 := x.Entries["DS2"]
	if ds1 == nil || ds1.References[0].Type != tools.RefRead {
		t.Error("COPY source should be a read")
	}
	if ds2 == nil || ds2.References[0].Type != tools.RefWrite {
		t.Error("COPY destination should be a write")
	}
	if ds2.References[0].Scope != "aux" {
		t.Errorf("DS2 scope = %q, want aux", ds2.References[0].Scope)
	}

	if x.PrefixCounts["X"] != 3 { // X1 twice, X2 once
		t.Errorf("X prefix count = %d, want 3", x.PrefixCounts["X"])
	}
}

func TestXRef_Report(t *testing.T) {
	prog := parser.Parse(xrefSource, "test.il")
	report := tools.Generate(prog).Report()

	for _, want := range []string{"X1", "Y1", "network 1", "Usage by prefix"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestXRef_SearchWrites(t *testing.T) {
	prog := parser.Parse("NETWORK 1\nFINDIEQ DS1 10 5 DS100 DS101\n", "test.il")
	x := tools.Generate(prog)

	if x.Entries["DS100"].References[0].Type != tools.RefWrite {
		t.Error("FIND result address should be a write")
	}
	if x.Entries["DS101"].References[0].Type != tools.RefWrite {
		t.Error("FINDI index address should be a write")
	}
	if x.Entries["DS1"].References[0].Type != tools.RefRead {
		t.Error("FIND source should be a read")
	}
}
