package vm

// UDC counts are clamped to this range
const (
	udcMin = 0
	udcMax = 65535
)

// writeCounter publishes a counter's bit and count
func (ctx *Context) writeCounter(bitAddr string, count int32, bit bool) {
	ctx.Table.PutBool(bitAddr, bit)
	ctx.Table.PutWord(accWordAddr(bitAddr), count)
}

// CounterUp advances a CNTU counter: increments on a rising enable
// edge, sets the bit at the preset and caps the count there. Reset
// clears count and bit.
func (ctx *Context) CounterUp(bitAddr string, preset int32, enable, reset bool) bool {
	st := ctx.State("CNTU", bitAddr)
	rising := enable && !st.Prev
	st.Prev = enable

	count := ctx.Table.Word(accWordAddr(bitAddr))
	if reset {
		count = 0
	} else if rising {
		count++
	}
	bit := false
	if !reset && count >= preset {
		count = preset
		bit = true
	}
	ctx.writeCounter(bitAddr, count, bit)
	return bit
}

// CounterDown advances a CNTD counter: decrements on a rising enable
// edge, sets the bit at zero, floors the count there. Reset loads the
// preset.
func (ctx *Context) CounterDown(bitAddr string, preset int32, enable, reset bool) bool {
	st := ctx.State("CNTD", bitAddr)
	rising := enable && !st.Prev
	st.Prev = enable

	count := ctx.Table.Word(accWordAddr(bitAddr))
	if reset {
		count = preset
	} else if rising {
		count--
	}
	if count < 0 {
		count = 0
	}
	bit := !reset && count <= 0
	ctx.writeCounter(bitAddr, count, bit)
	return bit
}

// CounterUpDown advances a UDC counter with independent rising-edge
// detection for the up and down inputs; up wins when both rise in the
// same scan. The count is clamped to [0, 65535] and the bit is true
// when the count equals the preset.
func (ctx *Context) CounterUpDown(bitAddr string, preset int32, up, down, reset bool) bool {
	st := ctx.State("UDC", bitAddr)
	upEdge := up && !st.Prev
	downEdge := down && !st.Prev2
	st.Prev = up
	st.Prev2 = down

	count := ctx.Table.Word(accWordAddr(bitAddr))
	switch {
	case reset:
		count = 0
	case upEdge:
		count++
	case downEdge:
		count--
	}
	if count < udcMin {
		count = udcMin
	}
	if count > udcMax {
		count = udcMax
	}
	bit := count == preset
	ctx.writeCounter(bitAddr, count, bit)
	return bit
}

// ShiftRegister advances a SHFRG block over count booleans starting at
// startAddr. On a rising clock edge every bit moves up one position and
// the data bit enters at the bottom; reset clears the whole range.
func (ctx *Context) ShiftRegister(startAddr string, count int32, data, clock, reset bool) {
	prefix, start, ok := splitRange(startAddr)
	if !ok || count <= 0 {
		return
	}

	if reset {
		for i := int32(0); i < count; i++ {
			ctx.Table.PutBool(addrAt(prefix, start+int(i)), false)
		}
		ctx.State("SHFRG", startAddr).Prev = clock
		return
	}

	if ctx.RisingEdge("SHFRG", startAddr, clock) {
		for i := count - 1; i > 0; i-- {
			v := ctx.Table.Bool(addrAt(prefix, start+int(i)-1))
			ctx.Table.PutBool(addrAt(prefix, start+int(i)), v)
		}
		ctx.Table.PutBool(addrAt(prefix, start), data)
	}
}
