package vm

import (
	"github.com/lookbusy1344/plc-emulator/datatable"
)

// accWordAddr derives the accumulator word address of a timer or
// counter bit: T12 -> TD12, CT7 -> CTD7.
func accWordAddr(bitAddr string) string {
	prefix, index, ok := datatable.SplitAddress(bitAddr)
	if !ok {
		return ""
	}
	return datatable.AddressFor(prefix+"D", index)
}

// writeTimer publishes a timer's bit and accumulated milliseconds
func (ctx *Context) writeTimer(bitAddr string, st *OpState, bit bool) {
	ctx.Table.PutBool(bitAddr, bit)
	ctx.Table.PutWord(accWordAddr(bitAddr), int32(st.Acc))
}

// TimerOnDelay advances a TMR timer. While enabled the accumulator
// gains this scan's elapsed time; at the preset it caps and the bit
// sets. Disabling resets both.
func (ctx *Context) TimerOnDelay(bitAddr string, presetMS float64, enable bool) bool {
	st := ctx.State("TMR", bitAddr)
	bit := false
	if enable {
		st.Acc += ctx.ScanTimeMS()
		if st.Acc >= presetMS {
			st.Acc = presetMS
			bit = true
		}
	} else {
		st.Acc = 0
	}
	ctx.writeTimer(bitAddr, st, bit)
	return bit
}

// TimerRetentive advances a TMRA timer: like TMR but the accumulator
// is retained while disabled. Reset clears accumulator and bit and has
// priority over enable.
func (ctx *Context) TimerRetentive(bitAddr string, presetMS float64, enable, reset bool) bool {
	st := ctx.State("TMRA", bitAddr)
	if reset {
		st.Acc = 0
		ctx.writeTimer(bitAddr, st, false)
		return false
	}
	if enable {
		st.Acc += ctx.ScanTimeMS()
		if st.Acc > presetMS {
			st.Acc = presetMS
		}
	}
	bit := st.Acc >= presetMS
	ctx.writeTimer(bitAddr, st, bit)
	return bit
}

// TimerOffDelay advances a TMROFF timer. Enabled: bit true and
// accumulator cleared. Disabled: accumulate; the bit holds true until
// the preset elapses.
func (ctx *Context) TimerOffDelay(bitAddr string, presetMS float64, enable bool) bool {
	st := ctx.State("TMROFF", bitAddr)
	var bit bool
	if enable {
		st.Acc = 0
		bit = true
	} else {
		st.Acc += ctx.ScanTimeMS()
		if st.Acc >= presetMS {
			st.Acc = presetMS
			bit = false
		} else {
			bit = true
		}
	}
	ctx.writeTimer(bitAddr, st, bit)
	return bit
}
