package vm

// ScanStatistics tracks scan-cycle timing. It is written only by the
// scan thread; observers read a copy through Interpreter.Stats.
type ScanStatistics struct {
	TotalScans  uint64
	TotalTimeMS float64
	MinScanMS   float64
	MaxScanMS   float64
	LastScanMS  float64
	ErrorCount  uint64
}

// Record folds one completed scan into the statistics
func (s *ScanStatistics) Record(scanMS float64) {
	s.TotalScans++
	s.TotalTimeMS += scanMS
	s.LastScanMS = scanMS
	if s.TotalScans == 1 || scanMS < s.MinScanMS {
		s.MinScanMS = scanMS
	}
	if scanMS > s.MaxScanMS {
		s.MaxScanMS = scanMS
	}
}

// RecordError counts one failed network execution
func (s *ScanStatistics) RecordError() {
	s.ErrorCount++
}

// AverageMS returns the mean scan time, zero before the first scan
func (s *ScanStatistics) AverageMS() float64 {
	if s.TotalScans == 0 {
		return 0
	}
	return s.TotalTimeMS / float64(s.TotalScans)
}
