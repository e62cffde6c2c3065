// Package ladder materializes parsed IL into two-dimensional ladder
// diagrams: a matrix of typed cells with explicit branch connectors,
// serialized to a stable JSON shape for a presentation layer.
package ladder

import "github.com/lookbusy1344/plc-emulator/parser"

// CellType classifies a ladder cell
type CellType string

const (
	CellContact CellType = "contact"
	CellCoil    CellType = "coil"
	CellBlock   CellType = "block"
	CellBranch  CellType = "branch"
	CellEmpty   CellType = "empty"
)

// Branch connector symbol ids
const (
	symHBar      = "hbar"      // horizontal wire
	symVBarL     = "vbarl"     // vertical wire, left side of a branch
	symVBarR     = "vbarr"     // vertical wire, right side of a branch
	symBranchTL  = "branchtl"  // top-left corner (branch close, top)
	symBranchTT  = "branchttl" // middle-left T (branch close, middle)
	symBranchL   = "branchl"   // bottom-left corner (branch close, bottom)
	symBranchTR  = "branchtr"  // top-right corner (branch open, top)
	symBranchTTR = "branchttr" // middle-right T (branch open, middle)
	symBranchR   = "branchr"   // bottom-right corner (branch open, bottom)
)

// Cell is one position of a ladder rung matrix
type Cell struct {
	Type    CellType `json:"type"`
	Symbol  string   `json:"symbol"`
	Addr    *string  `json:"addr"`
	Addrs   []string `json:"addrs"`
	Opcode  *string  `json:"opcode"`
	Params  []string `json:"params"`
	Row     int      `json:"row"`
	Col     int      `json:"col"`
	Monitor *string  `json:"monitor"`
}

// Rung is one rendered network
type Rung struct {
	Number  int      `json:"rungnum"`
	Rows    int      `json:"rows"`
	Cols    int      `json:"cols"`
	Comment *string  `json:"comment"`
	Addrs   []string `json:"addrs"`
	Cells   []*Cell  `json:"cells"`
	// IL carries the source instructions when the rung could not be
	// rendered as a matrix and the caller should fall back to text.
	IL []string `json:"il,omitempty"`
}

// Diagram is the ladder rendition of the main program or one subroutine
type Diagram struct {
	Name      string   `json:"subrname"`
	Addresses []string `json:"addresses"`
	Rungs     []*Rung  `json:"subrdata"`
}

func strPtr(s string) *string { return &s }

// branchCell builds a connector cell
func branchCell(symbol string) *Cell {
	return &Cell{Type: CellBranch, Symbol: symbol, Addrs: []string{}}
}

// isBranch reports whether a cell is a connector
func isBranch(c *Cell) bool { return c != nil && c.Type == CellBranch }

// isHBar reports whether a cell is a horizontal wire
func isHBar(c *Cell) bool { return isBranch(c) && c.Symbol == symHBar }

// instructionCell builds a cell for a contact, coil or block from a
// parsed instruction, collecting its address-shaped parameters.
func instructionCell(typ CellType, inst *parser.Instruction, info *parser.OpcodeInfo) *Cell {
	cell := &Cell{
		Type:   typ,
		Symbol: info.Symbol,
		Opcode: strPtr(inst.Opcode),
		Addrs:  addressParams(inst.Params),
		Params: inst.Params,
	}
	if len(cell.Addrs) > 0 {
		cell.Addr = strPtr(cell.Addrs[0])
	}
	if m := info.Monitor.String(); m != "" {
		cell.Monitor = strPtr(m)
	}
	return cell
}

// coilCell builds one coil cell for a single address of a coil list
func coilCell(inst *parser.Instruction, info *parser.OpcodeInfo, addr string) *Cell {
	cell := &Cell{
		Type:   CellCoil,
		Symbol: info.Symbol,
		Addr:   strPtr(addr),
		Addrs:  []string{addr},
		Opcode: strPtr(inst.Opcode),
		Params: inst.Params,
	}
	if m := info.Monitor.String(); m != "" {
		cell.Monitor = strPtr(m)
	}
	return cell
}
