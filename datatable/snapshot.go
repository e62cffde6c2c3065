package datatable

// Snapshot is a consistent read-only copy of the data table, taken under
// the table lock. Observers read from it without further synchronization.
type Snapshot struct {
	bools   []bool
	words   []int32
	floats  []float64
	strings []string
}

// Snapshot copies every domain under the read lock
func (dt *DataTable) Snapshot() *Snapshot {
	dt.mu.RLock()
	defer dt.mu.RUnlock()

	s := &Snapshot{
		bools:   make([]bool, len(dt.bools)),
		words:   make([]int32, len(dt.words)),
		floats:  make([]float64, len(dt.floats)),
		strings: make([]string, len(dt.strings)),
	}
	copy(s.bools, dt.bools)
	copy(s.words, dt.words)
	copy(s.floats, dt.floats)
	copy(s.strings, dt.strings)
	return s
}

// GetValue reads any address from the snapshot, dispatching on its
// prefix domain.
func (s *Snapshot) GetValue(addr string) (any, error) {
	domain, idx, err := resolve(addr)
	if err != nil {
		return nil, err
	}
	switch domain {
	case DomainBool:
		return s.bools[idx], nil
	case DomainWord:
		return s.words[idx], nil
	case DomainFloat:
		return s.floats[idx], nil
	default:
		return s.strings[idx], nil
	}
}

// Bool reads a boolean address, returning false when invalid
func (s *Snapshot) Bool(addr string) bool {
	domain, idx, err := resolve(addr)
	if err != nil || domain != DomainBool {
		return false
	}
	return s.bools[idx]
}

// Word reads a word address, returning zero when invalid
func (s *Snapshot) Word(addr string) int32 {
	domain, idx, err := resolve(addr)
	if err != nil || domain != DomainWord {
		return 0
	}
	return s.words[idx]
}

// Float reads a float address, returning zero when invalid
func (s *Snapshot) Float(addr string) float64 {
	domain, idx, err := resolve(addr)
	if err != nil || domain != DomainFloat {
		return 0
	}
	return s.floats[idx]
}

// Str reads a string address, returning the empty string when invalid
func (s *Snapshot) Str(addr string) string {
	domain, idx, err := resolve(addr)
	if err != nil || domain != DomainString {
		return ""
	}
	return s.strings[idx]
}
