package vm

import "github.com/lookbusy1344/plc-emulator/datatable"

func splitRange(addr string) (string, int, bool) {
	return datatable.SplitAddress(addr)
}

func addrAt(prefix string, index int) string {
	return datatable.AddressFor(prefix, index)
}
