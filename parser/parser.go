package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Instruction is one parsed IL instruction. Created by the parser and
// immutable thereafter.
type Instruction struct {
	Opcode  string
	Params  []string
	Line    int
	Comment string
}

// Network is a group of instructions forming one ladder rung
type Network struct {
	Number       int
	Instructions []*Instruction
	Comment      string
	Line         int
}

// Subroutine is a named collection of networks callable via CALL
type Subroutine struct {
	Name     string
	Networks []*Network
	Line     int
}

// Program is the parsed model of an IL source file. The main program is
// the list of top-level networks; subroutines are held separately.
type Program struct {
	MainNetworks []*Network
	Subroutines  map[string]*Subroutine
	SubrNames    []string // declaration order
	Diagnostics  *ErrorList
}

// Errors returns the collected parse errors
func (p *Program) Errors() []*Error { return p.Diagnostics.Errors }

// Warnings returns the collected parse warnings
func (p *Program) Warnings() []*Warning { return p.Diagnostics.Warnings }

// HasErrors reports whether parsing recorded any errors
func (p *Program) HasErrors() bool { return p.Diagnostics.HasErrors() }

// Parser parses IL source text
type Parser struct {
	input    string
	filename string
	errors   *ErrorList

	program *Program
	// Parser mode: nil while in the main program, otherwise the
	// subroutine currently being filled.
	currentSubr    *Subroutine
	currentNetwork *Network
	pendingComment []string
	seenNumbers    map[string]bool // "main/3" or "subrname/3"
}

// NewParser creates a new parser for the given source text
func NewParser(input, filename string) *Parser {
	return &Parser{
		input:    input,
		filename: filename,
		errors:   &ErrorList{},
		seenNumbers: make(map[string]bool),
	}
}

// Parse is a convenience wrapper around NewParser().Parse()
func Parse(source, filename string) *Program {
	return NewParser(source, filename).Parse()
}

// Parse parses the entire program. It never fails fatally: errors and
// warnings are collected on the returned program.
func (p *Parser) Parse() *Program {
	p.program = &Program{
		Subroutines: make(map[string]*Subroutine),
		Diagnostics: p.errors,
	}

	for i, line := range SplitLines(p.input) {
		p.parseLine(line, i+1)
	}

	return p.program
}

func (p *Parser) pos(line int) Position {
	return Position{Filename: p.filename, Line: line}
}

func (p *Parser) parseLine(line string, lineNum int) {
	tokens, comment, hasComment := TokenizeLine(line)

	// A comment-only line feeds the pending-comment accumulator
	if len(tokens) == 0 {
		if hasComment && comment != "" {
			p.pendingComment = append(p.pendingComment, comment)
		}
		return
	}

	opcode := strings.ToUpper(tokens[0])
	params := tokens[1:]

	switch opcode {
	case "NETWORK":
		p.startNetwork(params, lineNum)
		return
	case "SBR":
		p.startSubroutine(params, lineNum)
		return
	}

	info, known := Lookup(opcode)
	if !known {
		p.errors.AddError(NewError(p.pos(lineNum), ErrorUnknownOpcode,
			fmt.Sprintf("unknown opcode %q", tokens[0])))
		p.takePending() // drop comments that belonged to the bad instruction
		return
	}

	if p.currentNetwork == nil {
		where := "the main program"
		if p.currentSubr != nil {
			where = fmt.Sprintf("subroutine %s", p.currentSubr.Name)
		}
		p.errors.AddWarning(&Warning{Pos: p.pos(lineNum),
			Message: fmt.Sprintf("instruction %s before the first NETWORK in %s is ignored", opcode, where)})
		p.takePending()
		return
	}

	// MATHDEC/MATHHEX: destination and flags, then everything else is
	// one expression parameter.
	if opcode == "MATHDEC" || opcode == "MATHHEX" {
		if len(params) > 3 {
			expr := strings.Join(params[2:], " ")
			params = append(append([]string{}, params[0], params[1]), expr)
		}
	}

	if err := info.ValidateArity(params); err != nil {
		p.errors.AddWarning(&Warning{Pos: p.pos(lineNum), Message: err.Error()})
	}

	inst := &Instruction{
		Opcode:  info.Name,
		Params:  params,
		Line:    lineNum,
		Comment: p.takePending(),
	}
	if hasComment && comment != "" {
		if inst.Comment != "" {
			inst.Comment += "\n"
		}
		inst.Comment += comment
	}

	p.currentNetwork.Instructions = append(p.currentNetwork.Instructions, inst)
}

// startNetwork begins a new network in the current scope
func (p *Parser) startNetwork(params []string, lineNum int) {
	if len(params) != 1 {
		p.errors.AddWarning(&Warning{Pos: p.pos(lineNum),
			Message: "NETWORK requires a single network number"})
		if len(params) == 0 {
			return
		}
	}

	number, err := strconv.Atoi(params[0])
	if err != nil || number < 1 {
		p.errors.AddWarning(&Warning{Pos: p.pos(lineNum),
			Message: fmt.Sprintf("invalid network number %q", params[0])})
		return
	}

	scope := "main"
	if p.currentSubr != nil {
		scope = p.currentSubr.Name
	}
	key := fmt.Sprintf("%s/%d", scope, number)
	if p.seenNumbers[key] {
		p.errors.AddWarning(&Warning{Pos: p.pos(lineNum),
			Message: fmt.Sprintf("duplicate network number %d", number)})
	}
	p.seenNumbers[key] = true

	network := &Network{
		Number:  number,
		Line:    lineNum,
		Comment: p.takePending(),
	}
	p.currentNetwork = network

	if p.currentSubr != nil {
		p.currentSubr.Networks = append(p.currentSubr.Networks, network)
	} else {
		p.program.MainNetworks = append(p.program.MainNetworks, network)
	}
}

// startSubroutine begins a subroutine; a prior open subroutine closes
func (p *Parser) startSubroutine(params []string, lineNum int) {
	if len(params) != 1 {
		p.errors.AddWarning(&Warning{Pos: p.pos(lineNum),
			Message: "SBR requires a single subroutine name"})
		if len(params) == 0 {
			return
		}
	}
	name := params[0]

	if _, exists := p.program.Subroutines[name]; exists {
		p.errors.AddWarning(&Warning{Pos: p.pos(lineNum),
			Message: fmt.Sprintf("duplicate subroutine %q replaces the earlier definition", name)})
	} else {
		p.program.SubrNames = append(p.program.SubrNames, name)
	}

	subr := &Subroutine{Name: name, Line: lineNum}
	p.program.Subroutines[name] = subr
	p.currentSubr = subr
	p.currentNetwork = nil
	p.takePending()
}

// takePending drains the pending-comment accumulator
func (p *Parser) takePending() string {
	if len(p.pendingComment) == 0 {
		return ""
	}
	s := strings.Join(p.pendingComment, "\n")
	p.pendingComment = nil
	return s
}
