// Command gcfflasher resets dresden elektronik RaspBee/ConBee radio
// coprocessors into their bootloader and flashes GCF firmware containers
// onto them.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"gcfflasher/internal/cli"
	"gcfflasher/internal/engine"
	"gcfflasher/internal/gcf"
	"gcfflasher/internal/ioserial"
	"gcfflasher/internal/logx"
	"gcfflasher/internal/progress"
)

// appVersion is overridden at build time via -ldflags "-X main.appVersion=...".
var appVersion = "v1.0.0-dev"

const baudRate = 38400

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	cfg, err := cli.Parse(argv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if cfg.ShowVersion {
		fmt.Printf("GCFFlasher %s\n", appVersion)
		return 0
	}
	if cfg.Task == engine.TaskHelp {
		fmt.Print(cli.Usage())
		return 0
	}

	log := logx.New(cfg.Debug)
	if cfg.Debug {
		log.SetLogFile("gcfflasher_debug.log")
	}

	devicePath := cfg.DevicePath
	devKind := engine.Unknown
	if devicePath == "" && cfg.Task != engine.TaskList {
		path, kind, trace := ioserial.AutoDetectPort()
		for _, line := range trace {
			log.Printf(logx.Debug, "%s\n", line)
		}
		if path == "" {
			log.Warningf("no device found, pass -d <device>\n")
			return 1
		}
		devicePath, devKind = path, kind
		log.Printf(logx.Info, "using device %s (%s)\n", devicePath, devKind)
	}

	var file *gcf.File
	if cfg.Task == engine.TaskProgram {
		file, err = gcf.Load(cfg.FirmwarePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, &engine.FileError{Path: cfg.FirmwarePath, Err: err})
			return 1
		}
		family := "unknown"
		switch {
		case file.IsR21Platform():
			family = "R21"
		case file.IsAVRPlatform():
			family = "AVR"
		}
		log.Printf(logx.Debug, "firmware version 0x%08X, platform %s\n", file.FWVersion, family)
	}

	transport := ioserial.New(baudRate, log)

	retrySeconds := cfg.RetrySeconds
	if !cfg.RetrySet && cfg.Task == engine.TaskProgram {
		retrySeconds = 10
	}
	retry := time.Duration(retrySeconds) * time.Second
	eng := engine.New(transport, cfg.Task, devicePath, file, retry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt)
	go func() {
		<-signals
		cancel()
	}()

	if cfg.Web {
		hub := progress.NewHub()
		eng.OnProgress(func(ev engine.ProgressEvent) {
			hub.Broadcast(progress.Message{State: ev.State, Message: ev.Message})
		})
		mux := http.NewServeMux()
		mux.Handle("/progress", progress.Handler(hub))
		server := &http.Server{Addr: "127.0.0.1:8080", Handler: mux}
		go func() { _ = server.ListenAndServe() }()
		go func() { <-ctx.Done(); _ = server.Close() }()
		log.Printf(logx.Info, "serving live progress on ws://127.0.0.1:8080/progress\n")
	}

	if cfg.Task == engine.TaskConnect {
		keys := cli.StartKeyEvents()
		go func() {
			for k := range keys {
				if k == 27 || k == 'q' {
					cancel()
					return
				}
			}
		}()
	}

	if err := eng.Run(ctx); err != nil && err != context.Canceled {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
