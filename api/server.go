// Package api exposes the runtime over HTTP and WebSocket for
// monitoring tools. It binds to localhost; remote exposure is the
// operator's concern.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/lookbusy1344/plc-emulator/service"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// maxProgramSize bounds uploaded IL source (1 MB)
const maxProgramSize = 1 << 20

// Server is the HTTP API server over one runtime controller
type Server struct {
	controller *service.Controller
	mux        *http.ServeMux
	server     *http.Server
	port       int
}

// NewServer creates an API server for the given controller
func NewServer(controller *service.Controller, port int) *Server {
	s := &Server{
		controller: controller,
		mux:        http.NewServeMux(),
		port:       port,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/program", s.handleProgram)
	s.mux.HandleFunc("/api/v1/control", s.handleControl)
	s.mux.HandleFunc("/api/v1/status", s.handleStatus)
	s.mux.HandleFunc("/api/v1/data", s.handleData)
	s.mux.HandleFunc("/api/v1/ladder", s.handleLadder)
	s.mux.HandleFunc("/api/v1/ws", s.handleWebSocket)
}

// Handler returns the HTTP handler with CORS middleware applied
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Start starts the HTTP server and blocks until shutdown
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	log.Printf("API server starting on http://127.0.0.1:%d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// corsMiddleware allows localhost and file:// origins, and requests
// without an Origin header
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isAllowedOrigin(origin string) bool {
	if origin == "" || strings.HasPrefix(origin, "file://") {
		return true
	}
	for _, prefix := range []string{
		"http://localhost", "https://localhost",
		"http://127.0.0.1", "https://127.0.0.1",
	} {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, ErrorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"loaded": s.controller.Loaded(),
	})
}

// handleProgram loads IL source (POST) or reports the loaded program
// (GET).
func (s *Server) handleProgram(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req LoadRequest
		body := io.LimitReader(r.Body, maxProgramSize)
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request: %v", err)
			return
		}
		filename := req.Filename
		if filename == "" {
			filename = "upload.il"
		}
		diags, err := s.controller.Load(req.Source, filename)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, LoadResponse{OK: false, Diagnostics: diags})
			return
		}
		writeJSON(w, http.StatusOK, LoadResponse{OK: true, Diagnostics: diags})

	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"loaded": s.controller.Loaded(),
			"source": s.controller.Source(),
		})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleControl starts, stops or single-steps the runtime
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request: %v", err)
		return
	}

	switch req.Action {
	case "start":
		err := s.controller.Start(vm.RunOptions{
			MaxScans:         req.MaxScans,
			TargetScanTimeMS: req.TargetScanTimeMS,
		})
		if err != nil {
			writeJSON(w, http.StatusConflict, ControlResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, ControlResponse{OK: true})

	case "stop":
		s.controller.Stop()
		writeJSON(w, http.StatusOK, ControlResponse{OK: true})

	case "step":
		ms, err := s.controller.StepScan()
		if err != nil {
			writeJSON(w, http.StatusConflict, ControlResponse{OK: false, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, ControlResponse{OK: true, ScanTimeMS: ms})

	default:
		writeError(w, http.StatusBadRequest, "unknown action %q", req.Action)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.controller.Status()
	writeJSON(w, http.StatusOK, StatusResponse{
		Loaded:   s.controller.Loaded(),
		Running:  status.Running,
		ExitCode: string(s.controller.ExitCode()),
		Status:   status,
	})
}

// handleData reads addresses from a snapshot (GET ?addrs=X1,DS5) or
// writes values into the table (POST).
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		param := r.URL.Query().Get("addrs")
		if param == "" {
			writeError(w, http.StatusBadRequest, "missing addrs parameter")
			return
		}
		snapshot := s.controller.Snapshot()
		values := make(map[string]any)
		for _, addr := range strings.Split(param, ",") {
			addr = strings.ToUpper(strings.TrimSpace(addr))
			if addr == "" {
				continue
			}
			v, err := snapshot.GetValue(addr)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid address %q", addr)
				return
			}
			values[addr] = v
		}
		writeJSON(w, http.StatusOK, DataReadResponse{Values: values})

	case http.MethodPost:
		var req DataWriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request: %v", err)
			return
		}
		table := s.controller.Table()
		for addr, value := range req.Values {
			if err := table.SetValue(addr, normalizeJSONValue(value)); err != nil {
				writeError(w, http.StatusBadRequest, "write %s: %v", addr, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// normalizeJSONValue passes a decoded JSON value through unchanged
func normalizeJSONValue(v any) any {
	// encoding/json decodes all numbers as float64; the table's
	// domain dispatch handles the rest
	return v
}

func (s *Server) handleLadder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	diagrams, warns, err := s.controller.Ladder()
	if err != nil {
		writeError(w, http.StatusConflict, "%v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"diagrams": diagrams,
		"warnings": warns,
	})
}
