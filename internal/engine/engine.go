// Package engine implements the flashing tool's hierarchical, single-
// threaded, cooperative state machine: a device reset sequencer, a
// bootloader dialect prober, and the V1/V3 firmware-upload state handlers,
// all driven by a synchronous Event dispatch loop.
package engine

import (
	"context"
	"time"

	"gcfflasher/internal/frame"
	"gcfflasher/internal/gcf"
	"gcfflasher/internal/logx"
)

// stateFn is one state (or substate) handler. Handlers are plain functions,
// not methods on sub-types; a transition is just an assignment of the next
// handler.
type stateFn func(*Engine, Event)

// ProgressEvent is passed to the optional progress callback for each state
// transition, independent of the engine's own control flow.
type ProgressEvent struct {
	State   string
	Message string
}

// Engine holds the complete state of one flashing session.
type Engine struct {
	platform Platform

	state     stateFn
	stateName string
	substate  stateFn

	task    Task
	devPath string
	devKind DeviceKind

	file *gcf.File

	ascii   []byte
	decoder *frame.Decoder

	retry    int
	deadline time.Time

	progress func(ProgressEvent)

	events chan Event
	err    error
	done   bool
}

// New constructs an Engine for task against devPath, optionally carrying a
// firmware file (required for TaskProgram). maxRetry is the global retry
// deadline duration (the -t flag); zero means "no retry, fail on first
// error chain".
func New(platform Platform, task Task, devPath string, file *gcf.File, maxRetry time.Duration) *Engine {
	devKind := ClassifyPath(devPath)
	if file != nil {
		devKind = RefineWithFirmwareVersion(devKind, file.IsR21Platform())
	}
	e := &Engine{
		platform: platform,
		task:     task,
		devPath:  devPath,
		devKind:  devKind,
		file:     file,
		decoder:  frame.NewDecoder(),
		events:   make(chan Event, 64),
	}
	platform.Bind(e)
	e.deadline = platform.Time().Add(maxRetry)
	e.setState(stVoid, "void")
	e.substate = stVoid
	return e
}

// setState installs fn as the current top-level state handler, recording
// name for inAsciiState's lookup and for progress reporting. All state
// transitions in this package go through this helper instead of assigning
// e.state directly.
func (e *Engine) setState(fn stateFn, name string) {
	e.state = fn
	e.stateName = name
	if e.progress != nil {
		e.progress(ProgressEvent{State: name})
	}
}

// OnProgress registers a callback invoked on every state transition. Used by
// internal/progress to broadcast flashing status; optional.
func (e *Engine) OnProgress(fn func(ProgressEvent)) {
	e.progress = fn
}

// Received implements EventSink. Raw bytes are always tagged RxASCII; demux
// always feeds them to the framed-packet decoder and, in text-accumulating
// states, also to the ASCII accumulator.
func (e *Engine) Received(data []byte) {
	cp := append([]byte(nil), data...)
	e.events <- Event{Kind: RxASCII, Data: cp}
}

// PostEvent implements EventSink.
func (e *Engine) PostEvent(kind Kind) {
	e.events <- Event{Kind: kind}
}

// Run drives the engine until a terminal state calls platform.Shutdown, the
// context is canceled, or an unrecoverable error is recorded. It is the
// sole goroutine that ever touches engine state: everything else only ever
// posts into e.events via EventSink.
func (e *Engine) Run(ctx context.Context) error {
	e.setState(stInit, "init")
	e.dispatch(Event{Kind: Started})
	if e.done {
		return e.err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-e.events:
			e.demux(ev)
			if e.err != nil {
				return e.err
			}
			if e.done {
				return nil
			}
		}
	}
}

// demux feeds raw transport bytes through the byte-stuffed decoder (in every
// state) and the ASCII accumulator (for V1/status states) before
// dispatching the resulting higher-level event. Both consumers see the same
// byte stream; each state honors only the event kinds it cares about.
func (e *Engine) demux(ev Event) {
	if ev.Kind != RxASCII || len(ev.Data) == 0 {
		e.dispatch(ev)
		return
	}

	if e.inAsciiState() {
		for _, b := range ev.Data {
			if len(e.ascii) < 510 {
				e.ascii = append(e.ascii, b)
			} else {
				e.platform.Printf(logx.Debug, "data buffer full\n")
				e.ascii = e.ascii[:0]
			}
		}
		e.dispatch(Event{Kind: RxASCII})
	}

	e.decoder.Feed(ev.Data, func(payload []byte) {
		e.dispatchPacket(payload)
	})
}

// inAsciiState reports whether the current state accumulates raw text
// (bootloader query / V1 upload / status states).
func (e *Engine) inAsciiState() bool {
	switch e.stateName {
	case "bootloader-query", "v1-sync", "v1-write-header", "v1-upload", "v1-validate", "connected":
		return true
	default:
		return false
	}
}

// dispatchPacket handles one decoded bootloader-protocol packet: a
// write-parameter response for the watchdog param is demuxed into
// PkgUartReset, a magic-prefixed bootloader packet is stored and demuxed
// into RxBootloaderPacket.
func (e *Engine) dispatchPacket(payload []byte) {
	if len(payload) == 0 {
		return
	}
	if payload[0] != btlMagic {
		e.platform.Printf(logx.Debug, "packet: %d bytes, % x\n", len(payload), payload)
	}

	if payload[0] == 0x0B && len(payload) >= 8 && payload[7] == 0x26 {
		e.dispatch(Event{Kind: PkgUartReset})
		return
	}
	if payload[0] == btlMagic {
		e.ascii = append(e.ascii[:0], payload...)
		e.dispatch(Event{Kind: RxBootloaderPacket, Data: payload})
	}
}

// dispatch runs the current state handler. Hierarchical states fan events
// they don't claim down to e.substate themselves.
func (e *Engine) dispatch(ev Event) {
	e.state(e, ev)
}

// shutdown releases platform resources and marks the run loop to stop after
// the current dispatch returns. State handlers call this instead of
// e.platform.Shutdown() directly so Run's loop actually terminates.
func (e *Engine) shutdown() {
	e.done = true
	e.platform.Shutdown()
}

// sendFramed writes payload through the byte-stuffed CRC16 framing used by
// both the in-band reset commands and the V3 bootloader protocol. The V1
// ASCII bootloader protocol instead writes raw bytes via platform.Write.
func (e *Engine) sendFramed(payload []byte) error {
	return e.platform.Write(frame.Encode(payload))
}

// retryOrFail is the pipeline-level retry: if the global deadline hasn't
// elapsed, restart from Init after a short backoff; otherwise shut down. cause
// documents why the current state gave up (a ProtocolTimeout,
// ProtocolMismatch, or TransportError), purely for diagnostics.
func (e *Engine) retryOrFail(cause error) {
	now := e.platform.Time()
	if e.deadline.After(now) {
		remaining := e.deadline.Sub(now)
		e.platform.Printf(logx.Debug, "%v, retry: %s left\n", cause, remaining.Round(time.Second))
		e.setState(stInit, "init")
		e.substate = stVoid
		e.platform.SetTimeout(250 * time.Millisecond)
		return
	}
	e.err = &DeadlineExceeded{}
	e.shutdown()
}
