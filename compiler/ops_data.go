package compiler

import (
	"fmt"

	"github.com/lookbusy1344/plc-emulator/datatable"
	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// blockRange is a validated prefix+start for block operations
type blockRange struct {
	prefix string
	start  int
	limit  int // highest valid index for the prefix
}

func blockStart(token string) (blockRange, error) {
	addr, err := anyAddr(token)
	if err != nil {
		return blockRange{}, err
	}
	prefix, start, _ := datatable.SplitAddress(addr)
	limit, _ := datatable.PrefixSize(prefix)
	return blockRange{prefix: prefix, start: start, limit: limit}, nil
}

func boolBlockStart(token string) (blockRange, error) {
	br, err := blockStart(token)
	if err != nil {
		return blockRange{}, err
	}
	if domain, _ := datatable.PrefixDomain(br.prefix); domain != datatable.DomainBool {
		return blockRange{}, fmt.Errorf("%s%d is not a boolean address", br.prefix, br.start)
	}
	return br, nil
}

func wordBlockStart(token string) (blockRange, error) {
	br, err := blockStart(token)
	if err != nil {
		return blockRange{}, err
	}
	if domain, _ := datatable.PrefixDomain(br.prefix); domain != datatable.DomainWord {
		return blockRange{}, fmt.Errorf("%s%d is not a word address", br.prefix, br.start)
	}
	return br, nil
}

// checkCount bounds a runtime block length against the prefix range
func (br blockRange) checkCount(n int) error {
	if n < 0 {
		return fmt.Errorf("negative block count %d", n)
	}
	if br.start+n-1 > br.limit {
		return fmt.Errorf("block %s%d..%s%d exceeds the %s range",
			br.prefix, br.start, br.prefix, br.start+n-1, br.prefix)
	}
	return nil
}

func (br blockRange) addr(offset int) string {
	return datatable.AddressFor(br.prefix, br.start+offset)
}

// compileDataMove lowers COPY/CPYBLK/FILL/SHFRG
func compileDataMove(inst *parser.Instruction) (vm.Operation, error) {
	switch inst.Opcode {
	case "COPY":
		if len(inst.Params) < 2 {
			return nil, fmt.Errorf("COPY requires source and destination")
		}
		src, err := anyValueOperand(inst.Params[0])
		if err != nil {
			return nil, err
		}
		dst, err := anyAddr(inst.Params[1])
		if err != nil {
			return nil, err
		}
		return func(ctx *vm.Context) (vm.Signal, error) {
			return vm.SignalNone, ctx.Table.SetValue(dst, src(ctx))
		}, nil

	case "CPYBLK":
		if len(inst.Params) < 3 {
			return nil, fmt.Errorf("CPYBLK requires source, destination and count")
		}
		src, err := blockStart(inst.Params[0])
		if err != nil {
			return nil, err
		}
		dst, err := blockStart(inst.Params[1])
		if err != nil {
			return nil, err
		}
		count, err := numericOperand(inst.Params[2])
		if err != nil {
			return nil, err
		}
		return func(ctx *vm.Context) (vm.Signal, error) {
			n := int(count(ctx))
			if err := src.checkCount(n); err != nil {
				return vm.SignalNone, err
			}
			if err := dst.checkCount(n); err != nil {
				return vm.SignalNone, err
			}
			for i := 0; i < n; i++ {
				v, err := ctx.Table.GetValue(src.addr(i))
				if err != nil {
					return vm.SignalNone, err
				}
				if err := ctx.Table.SetValue(dst.addr(i), v); err != nil {
					return vm.SignalNone, err
				}
			}
			return vm.SignalNone, nil
		}, nil

	case "FILL":
		if len(inst.Params) < 3 {
			return nil, fmt.Errorf("FILL requires destination, count and value")
		}
		dst, err := blockStart(inst.Params[0])
		if err != nil {
			return nil, err
		}
		count, err := numericOperand(inst.Params[1])
		if err != nil {
			return nil, err
		}
		value, err := anyValueOperand(inst.Params[2])
		if err != nil {
			return nil, err
		}
		return func(ctx *vm.Context) (vm.Signal, error) {
			n := int(count(ctx))
			if err := dst.checkCount(n); err != nil {
				return vm.SignalNone, err
			}
			v := value(ctx)
			for i := 0; i < n; i++ {
				if err := ctx.Table.SetValue(dst.addr(i), v); err != nil {
					return vm.SignalNone, err
				}
			}
			return vm.SignalNone, nil
		}, nil

	case "SHFRG":
		if len(inst.Params) < 2 {
			return nil, fmt.Errorf("SHFRG requires a start address and count")
		}
		br, err := boolBlockStart(inst.Params[0])
		if err != nil {
			return nil, err
		}
		count, err := numericOperand(inst.Params[1])
		if err != nil {
			return nil, err
		}
		startAddr := br.addr(0)
		return func(ctx *vm.Context) (vm.Signal, error) {
			n := int(count(ctx))
			if err := br.checkCount(n); err != nil {
				return vm.SignalNone, err
			}
			in := ctx.Inputs(3)
			ctx.ShiftRegister(startAddr, int32(n), in[0], in[1], in[2])
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled data move %s", inst.Opcode)
}

// compileDataPack lowers PACK/UNPACK, moving 16 booleans to or from
// the bits of one word.
func compileDataPack(inst *parser.Instruction) (vm.Operation, error) {
	if len(inst.Params) < 2 {
		return nil, fmt.Errorf("%s requires two parameters", inst.Opcode)
	}

	switch inst.Opcode {
	case "PACK":
		src, err := boolBlockStart(inst.Params[0])
		if err != nil {
			return nil, err
		}
		if err := src.checkCount(16); err != nil {
			return nil, err
		}
		dst, err := wordAddr(inst.Params[1])
		if err != nil {
			return nil, err
		}
		return func(ctx *vm.Context) (vm.Signal, error) {
			var word int32
			for i := 0; i < 16; i++ {
				if ctx.Table.Bool(src.addr(i)) {
					word |= 1 << i
				}
			}
			ctx.Table.PutWord(dst, word)
			return vm.SignalNone, nil
		}, nil

	case "UNPACK":
		src, err := wordAddr(inst.Params[0])
		if err != nil {
			return nil, err
		}
		dst, err := boolBlockStart(inst.Params[1])
		if err != nil {
			return nil, err
		}
		if err := dst.checkCount(16); err != nil {
			return nil, err
		}
		return func(ctx *vm.Context) (vm.Signal, error) {
			word := ctx.Table.Word(src)
			for i := 0; i < 16; i++ {
				ctx.Table.PutBool(dst.addr(i), word&(1<<i) != 0)
			}
			return vm.SignalNone, nil
		}, nil
	}
	return nil, fmt.Errorf("unhandled pack opcode %s", inst.Opcode)
}

// compileSearch lowers FIND* and FINDI*. The linear scan runs over
// count words from the start address; the first matching 0-based
// offset (or -1) is written to the result address. Incremental
// variants resume from and advance a caller-supplied index address.
func compileSearch(inst *parser.Instruction) (vm.Operation, error) {
	incremental := len(inst.Opcode) > 4 && inst.Opcode[4] == 'I'
	suffix := inst.Opcode[4:]
	if incremental {
		suffix = inst.Opcode[5:]
	}
	if suffix == "EQ" {
		suffix = "E"
	}
	pred, ok := comparePredicates[suffix]
	if !ok {
		return nil, fmt.Errorf("unhandled search %s", inst.Opcode)
	}

	need := 4
	if incremental {
		need = 5
	}
	if len(inst.Params) < need {
		return nil, fmt.Errorf("%s requires %d parameters", inst.Opcode, need)
	}

	src, err := wordBlockStart(inst.Params[0])
	if err != nil {
		return nil, err
	}
	count, err := numericOperand(inst.Params[1])
	if err != nil {
		return nil, err
	}
	search, err := numericOperand(inst.Params[2])
	if err != nil {
		return nil, err
	}
	result, err := wordAddr(inst.Params[3])
	if err != nil {
		return nil, err
	}
	var index string
	if incremental {
		index, err = wordAddr(inst.Params[4])
		if err != nil {
			return nil, err
		}
	}

	return func(ctx *vm.Context) (vm.Signal, error) {
		n := int(count(ctx))
		if err := src.checkCount(n); err != nil {
			return vm.SignalNone, err
		}
		target := search(ctx)

		first := 0
		if incremental {
			first = int(ctx.Table.Word(index))
			if first < 0 {
				first = 0
			}
		}

		found := int32(-1)
		for i := first; i < n; i++ {
			if pred(float64(ctx.Table.Word(src.addr(i))), target) {
				found = int32(i)
				break
			}
		}

		ctx.Table.PutWord(result, found)
		if incremental {
			if found >= 0 {
				ctx.Table.PutWord(index, found+1)
			} else {
				// Wrap so the next scan restarts from the top
				ctx.Table.PutWord(index, 0)
			}
		}
		return vm.SignalNone, nil
	}, nil
}
