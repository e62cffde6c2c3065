package api

import "github.com/lookbusy1344/plc-emulator/service"

// LoadRequest carries IL source to load
type LoadRequest struct {
	Source   string `json:"source"`
	Filename string `json:"filename,omitempty"`
}

// LoadResponse reports load diagnostics
type LoadResponse struct {
	OK          bool                 `json:"ok"`
	Diagnostics *service.Diagnostics `json:"diagnostics"`
}

// ControlRequest selects a runtime action
type ControlRequest struct {
	Action           string  `json:"action"` // start, stop, step
	MaxScans         uint64  `json:"maxScans,omitempty"`
	TargetScanTimeMS float64 `json:"targetScanTimeMs,omitempty"`
}

// ControlResponse acknowledges a control action
type ControlResponse struct {
	OK         bool    `json:"ok"`
	Error      string  `json:"error,omitempty"`
	ScanTimeMS float64 `json:"scanTimeMs,omitempty"`
}

// StatusResponse is the polling view of the runtime
type StatusResponse struct {
	Loaded   bool              `json:"loaded"`
	Running  bool              `json:"running"`
	ExitCode string            `json:"exitCode"`
	Status   service.ScanEvent `json:"status"`
}

// DataReadResponse maps requested addresses to their values
type DataReadResponse struct {
	Values map[string]any `json:"values"`
}

// DataWriteRequest maps addresses to values to store
type DataWriteRequest struct {
	Values map[string]any `json:"values"`
}

// ErrorResponse is the envelope for HTTP-level failures
type ErrorResponse struct {
	Error string `json:"error"`
}

// WatchRequest is the WebSocket subscription message: the client
// names the addresses it wants streamed alongside scan events.
type WatchRequest struct {
	Type      string   `json:"type"` // "watch"
	Addresses []string `json:"addresses"`
}

// WatchFrame is one WebSocket push
type WatchFrame struct {
	Type   string            `json:"type"` // "scan"
	Status service.ScanEvent `json:"status"`
	Values map[string]any    `json:"values,omitempty"`
}
