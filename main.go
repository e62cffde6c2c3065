// plc-emulator runs IEC 61131-3 Instruction List programs with
// deterministic scan semantics, renders them as ladder diagrams and
// serves a monitoring API.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lookbusy1344/plc-emulator/api"
	"github.com/lookbusy1344/plc-emulator/config"
	"github.com/lookbusy1344/plc-emulator/monitor"
	"github.com/lookbusy1344/plc-emulator/parser"
	"github.com/lookbusy1344/plc-emulator/service"
	"github.com/lookbusy1344/plc-emulator/tools"
	"github.com/lookbusy1344/plc-emulator/vm"
)

// Version information - can be overridden at build time with:
// go build -ldflags "-X main.Version=v1.2.3"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version information")
		checkOnly   = flag.Bool("check", false, "Parse and compile only, reporting diagnostics")
		ladderOut   = flag.Bool("ladder", false, "Emit the ladder diagram JSON and exit")
		xrefOut     = flag.Bool("xref", false, "Emit the address cross-reference and exit")
		formatOut   = flag.Bool("format", false, "Emit the formatted source and exit")

		maxScans   = flag.Uint64("max-scans", 0, "Maximum scans before halt (overrides config when > 0)")
		scanTime   = flag.Float64("scan-time", -1, "Target scan time in ms (overrides config)")
		apiServer  = flag.Bool("api-server", false, "Start the HTTP API server")
		apiPort    = flag.Int("port", 0, "API server port (overrides config)")
		tuiMonitor = flag.Bool("monitor", false, "Run the terminal monitor")
		configPath = flag.String("config", "", "Config file path (default: platform location)")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("plc-emulator %s (%s, built %s)\n", Version, Commit, Date)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal("config: %v", err)
	}
	if *scanTime >= 0 {
		cfg.Runtime.TargetScanTimeMS = *scanTime
	}
	if *maxScans > 0 {
		cfg.Runtime.MaxScans = *maxScans
	}
	if *apiPort > 0 {
		cfg.API.Port = *apiPort
	}

	source, filename := readProgram(flag.Args(), *apiServer)

	switch {
	case *checkOnly:
		checkProgram(source, filename)
	case *ladderOut:
		emitLadder(source, filename)
	case *xrefOut:
		emitXref(source, filename)
	case *formatOut:
		emitFormat(source, filename)
	case *apiServer:
		runAPIServer(cfg, source, filename)
	case *tuiMonitor:
		runMonitor(cfg, source, filename)
	default:
		runProgram(cfg, source, filename)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] program.il\n\nOptions:\n", os.Args[0])
	flag.PrintDefaults()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// readProgram reads the program file argument. The API server may
// start without one and receive programs over HTTP.
func readProgram(args []string, optional bool) (string, string) {
	if len(args) == 0 {
		if optional {
			return "", ""
		}
		usage()
		os.Exit(2)
	}
	data, err := os.ReadFile(args[0]) // #nosec G304 -- user-supplied program path
	if err != nil {
		fatal("read program: %v", err)
	}
	return string(data), args[0]
}

// loadController parses, compiles and loads a program, printing
// diagnostics. Parse or compile failures exit.
func loadController(cfg *config.Config, source, filename string) *service.Controller {
	controller := service.NewController()
	controller.FixedIntervalMS = cfg.Runtime.FixedIntervalMS

	diags, err := controller.Load(source, filename)
	if diags != nil {
		printDiagnostics(diags)
	}
	if err != nil {
		fatal("load: %v", err)
	}
	return controller
}

func printDiagnostics(diags *service.Diagnostics) {
	for _, warn := range diags.Warnings {
		fmt.Fprintln(os.Stderr, warn)
	}
	for _, e := range diags.Errors {
		fmt.Fprintln(os.Stderr, e)
	}
}

func checkProgram(source, filename string) {
	controller := service.NewController()
	diags, err := controller.Load(source, filename)
	if diags != nil {
		printDiagnostics(diags)
		fmt.Printf("%d network(s), %d subroutine(s), %d error(s), %d warning(s)\n",
			diags.Networks, diags.Subrs, len(diags.Errors), len(diags.Warnings))
	}
	if err != nil {
		os.Exit(1)
	}
}

func emitLadder(source, filename string) {
	controller := service.NewController()
	if _, err := controller.Load(source, filename); err != nil {
		fatal("load: %v", err)
	}
	diagrams, warns, err := controller.Ladder()
	if err != nil {
		fatal("ladder: %v", err)
	}
	for _, warn := range warns {
		fmt.Fprintln(os.Stderr, "warning: "+warn)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(diagrams); err != nil {
		fatal("encode: %v", err)
	}
}

func emitXref(source, filename string) {
	prog := parser.Parse(source, filename)
	if prog.HasErrors() {
		fatal("%s", prog.Diagnostics.Error())
	}
	fmt.Print(tools.Generate(prog).Report())
}

func emitFormat(source, filename string) {
	formatted, err := tools.Format(source, filename, nil)
	if err != nil {
		fatal("format: %v", err)
	}
	fmt.Print(formatted)
}

func runOptions(cfg *config.Config) vm.RunOptions {
	return vm.RunOptions{
		MaxScans:         cfg.Runtime.MaxScans,
		TargetScanTimeMS: cfg.Runtime.TargetScanTimeMS,
	}
}

// runProgram executes continuously until the program ends or a signal
// arrives.
func runProgram(cfg *config.Config, source, filename string) {
	controller := loadController(cfg, source, filename)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		fmt.Fprintln(os.Stderr, "stopping...")
		controller.Stop()
	}()

	if err := controller.Start(runOptions(cfg)); err != nil {
		fatal("start: %v", err)
	}
	controller.Wait()

	status := controller.Status()
	fmt.Printf("exit: %s after %d scan(s), last %.2f ms, avg %.2f ms, %d error(s)\n",
		controller.ExitCode(), status.Scan, status.LastScanMS, status.AvgScanMS, status.Errors)
}

// runAPIServer serves the monitoring API; a program argument preloads
// the controller.
func runAPIServer(cfg *config.Config, source, filename string) {
	controller := service.NewController()
	controller.FixedIntervalMS = cfg.Runtime.FixedIntervalMS
	if source != "" {
		diags, err := controller.Load(source, filename)
		if diags != nil {
			printDiagnostics(diags)
		}
		if err != nil {
			fatal("load: %v", err)
		}
	}

	server := api.NewServer(controller, cfg.API.Port)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		controller.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("api server: %v", err)
	}
}

// runMonitor runs the terminal monitor over a loaded program
func runMonitor(cfg *config.Config, source, filename string) {
	controller := loadController(cfg, source, filename)
	tui := monitor.NewTUI(controller, cfg.Monitor.Watch, cfg.Monitor.RefreshMS, runOptions(cfg))
	if err := tui.Run(); err != nil {
		fatal("monitor: %v", err)
	}
	controller.Stop()
}
