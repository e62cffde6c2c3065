package tools

import (
	"fmt"
	"strings"

	"github.com/lookbusy1344/plc-emulator/parser"
)

// FormatOptions controls formatter behavior
type FormatOptions struct {
	InstructionIndent int  // spaces before instructions (default: 4)
	CommentColumn     int  // column for trailing comments (default: 32)
	AlignComments     bool // align trailing comments in a column
	BlankBetweenNets  bool // blank line between networks
}

// DefaultFormatOptions returns default formatter options
func DefaultFormatOptions() *FormatOptions {
	return &FormatOptions{
		InstructionIndent: 4,
		CommentColumn:     32,
		AlignComments:     true,
		BlankBetweenNets:  true,
	}
}

// Format normalizes IL source: canonical opcode case, one instruction
// per line, indented bodies, aligned trailing comments and a blank
// line between networks. The source must parse without errors.
func Format(source, filename string, opts *FormatOptions) (string, error) {
	if opts == nil {
		opts = DefaultFormatOptions()
	}

	prog := parser.Parse(source, filename)
	if prog.HasErrors() {
		return "", fmt.Errorf("cannot format a program with errors: %s", prog.Diagnostics.Error())
	}

	var sb strings.Builder

	writeNetworks := func(networks []*parser.Network) {
		for i, network := range networks {
			if i > 0 && opts.BlankBetweenNets {
				sb.WriteString("\n")
			}
			writeComment(&sb, network.Comment, 0)
			sb.WriteString(fmt.Sprintf("NETWORK %d\n", network.Number))
			for _, inst := range network.Instructions {
				writeInstruction(&sb, inst, opts)
			}
		}
	}

	writeNetworks(prog.MainNetworks)

	for _, name := range prog.SubrNames {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("SBR %s\n", name))
		writeNetworks(prog.Subroutines[name].Networks)
	}

	return sb.String(), nil
}

// writeComment emits one comment block at the given indent
func writeComment(sb *strings.Builder, comment string, indent int) {
	if comment == "" {
		return
	}
	pad := strings.Repeat(" ", indent)
	for _, line := range strings.Split(comment, "\n") {
		sb.WriteString(fmt.Sprintf("%s// %s\n", pad, line))
	}
}

// writeInstruction emits one instruction line, folding a single-line
// pending comment into a trailing comment.
func writeInstruction(sb *strings.Builder, inst *parser.Instruction, opts *FormatOptions) {
	pad := strings.Repeat(" ", opts.InstructionIndent)

	line := pad + inst.Opcode
	if len(inst.Params) > 0 {
		line += " " + strings.Join(inst.Params, " ")
	}

	comment := inst.Comment
	if comment != "" && !strings.Contains(comment, "\n") && opts.AlignComments {
		for len(line) < opts.CommentColumn {
			line += " "
		}
		line += "// " + comment
	} else if comment != "" {
		writeComment(sb, comment, opts.InstructionIndent)
	}

	sb.WriteString(line + "\n")
}
