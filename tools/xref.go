// Package tools holds offline helpers for IL programs: the address
// cross-referencer and the source formatter.
package tools

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/parser"
)

// ReferenceType indicates how an address is used
type ReferenceType int

const (
	RefRead  ReferenceType = iota // contact, comparison or block input
	RefWrite                      // coil or block output
)

func (r ReferenceType) String() string {
	switch r {
	case RefRead:
		return "read"
	case RefWrite:
		return "write"
	default:
		return "unknown"
	}
}

// Reference represents a single use of an address
type Reference struct {
	Type    ReferenceType
	Scope   string // "main" or the subroutine name
	Network int
	Opcode  string
	Line    int
}

// AddressEntry collects every reference to one address
type AddressEntry struct {
	Address    string
	References []*Reference
}

// XRef is the cross-reference of a parsed program
type XRef struct {
	Entries map[string]*AddressEntry
	// PrefixCounts tallies uses per address prefix (X, Y, DS, ...)
	PrefixCounts map[string]int
}

// Generate builds the cross-reference for a parsed program
func Generate(prog *parser.Program) *XRef {
	x := &XRef{
		Entries:      make(map[string]*AddressEntry),
		PrefixCounts: make(map[string]int),
	}

	for _, network := range prog.MainNetworks {
		x.collectNetwork("main", network)
	}
	for _, name := range prog.SubrNames {
		for _, network := range prog.Subroutines[name].Networks {
			x.collectNetwork(name, network)
		}
	}
	return x
}

func (x *XRef) collectNetwork(scope string, network *parser.Network) {
	for _, inst := range network.Instructions {
		info, ok := parser.Lookup(inst.Opcode)
		if !ok {
			continue
		}
		for i, param := range inst.Params {
			addr := strings.ToUpper(strings.TrimSpace(param))
			if !datatable.ValidAddress(addr) {
				continue
			}
			x.record(addr, &Reference{
				Type:    referenceType(info, i),
				Scope:   scope,
				Network: network.Number,
				Opcode:  inst.Opcode,
				Line:    inst.Line,
			})
		}
	}
}

// referenceType classifies parameter position i of an opcode as a read
// or a write.
func referenceType(info *parser.OpcodeInfo, i int) ReferenceType {
	switch info.Category {
	case parser.CatBoolOut:
		return RefWrite
	case parser.CatTimer, parser.CatCounter:
		// The bit address is written; an address-valued preset is read
		if i == 0 {
			return RefWrite
		}
	case parser.CatDataMove:
		if info.Name == "COPY" && i == 1 {
			return RefWrite
		}
		if (info.Name == "CPYBLK" && i == 1) || (info.Name == "FILL" && i == 0) ||
			(info.Name == "SHFRG" && i == 0) {
			return RefWrite
		}
	case parser.CatDataPack:
		if (info.Name == "PACK" && i == 1) || (info.Name == "UNPACK" && i == 1) {
			return RefWrite
		}
	case parser.CatMath:
		if i == 0 && info.Name != "SUM" {
			return RefWrite
		}
		if info.Name == "SUM" && i == 2 {
			return RefWrite
		}
	case parser.CatSearch:
		if i >= 3 {
			// result and, for FINDI*, the index address
			return RefWrite
		}
	}
	return RefRead
}

func (x *XRef) record(addr string, ref *Reference) {
	entry, ok := x.Entries[addr]
	if !ok {
		entry = &AddressEntry{Address: addr}
		x.Entries[addr] = entry
	}
	entry.References = append(entry.References, ref)

	prefix, _, _ := datatable.SplitAddress(addr)
	x.PrefixCounts[prefix]++
}

// Addresses returns the referenced addresses in sorted order
func (x *XRef) Addresses() []string {
	addrs := make([]string, 0, len(x.Entries))
	for addr := range x.Entries {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// Report renders the cross-reference as text
func (x *XRef) Report() string {
	var sb strings.Builder
	sb.WriteString("Address Cross-Reference\n")
	sb.WriteString("=======================\n\n")

	for _, addr := range x.Addresses() {
		entry := x.Entries[addr]
		sb.WriteString(fmt.Sprintf("%s (%d reference(s))\n", addr, len(entry.References)))
		for _, ref := range entry.References {
			sb.WriteString(fmt.Sprintf("  %-5s %s network %d, %s, line %d\n",
				ref.Type, ref.Scope, ref.Network, ref.Opcode, ref.Line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Usage by prefix\n")
	prefixes := make([]string, 0, len(x.PrefixCounts))
	for prefix := range x.PrefixCounts {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		sb.WriteString(fmt.Sprintf("  %-4s %d\n", prefix, x.PrefixCounts[prefix]))
	}
	return sb.String()
}
