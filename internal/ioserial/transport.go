// Package ioserial implements engine.Platform against a real serial port,
// plus the hardware-level reset fallbacks (FTDI bit-bang for ConBee I, GPIO
// for RaspBee I/II) and device enumeration.
package ioserial

import (
	"errors"
	"sync"
	"time"

	"github.com/tarm/serial"

	"gcfflasher/internal/engine"
	"gcfflasher/internal/logx"
)

// Transport is the production engine.Platform backed by a real serial port.
//
// Reading (which also detects disconnects) and timers run on their own
// goroutines; all they ever do is call back into the bound EventSink, preserving the
// engine's single-consumer event loop (see DESIGN.md "Concurrency mapping").
type Transport struct {
	baud int
	log  *logx.Logger

	mu   sync.Mutex
	port *serial.Port

	sink engine.EventSink

	timerMu  sync.Mutex
	timerGen uint64
}

// New returns a Transport that opens ports at baud (38400 for this family
// of bootloaders).
func New(baud int, log *logx.Logger) *Transport {
	return &Transport{baud: baud, log: log}
}

// Bind implements engine.Platform.
func (t *Transport) Bind(sink engine.EventSink) {
	t.sink = sink
}

// Connect implements engine.Platform.
func (t *Transport) Connect(devPath string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port != nil {
		return nil
	}
	cfg := &serial.Config{Name: devPath, Baud: t.baud, ReadTimeout: 50 * time.Millisecond}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return err
	}
	t.port = p
	go t.readLoop(p)
	return nil
}

// Disconnect implements engine.Platform.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	p := t.port
	t.port = nil
	t.mu.Unlock()
	if p != nil {
		_ = p.Close()
	}
}

// Write implements engine.Platform.
func (t *Transport) Write(data []byte) error {
	t.mu.Lock()
	p := t.port
	t.mu.Unlock()
	if p == nil {
		return errors.New("ioserial: not connected")
	}
	_, err := p.Write(data)
	return err
}

// readLoop reads from p until it is closed or returns a persistent error,
// reporting bytes and the eventual disconnect to the bound sink. It never
// touches engine state: it only calls sink.Received/PostEvent. On an error
// it drops p, so a later Connect opens the device afresh.
func (t *Transport) readLoop(p *serial.Port) {
	buf := make([]byte, 512)
	for {
		n, err := p.Read(buf)
		if n > 0 {
			t.sink.Received(buf[:n])
		}
		if err != nil {
			t.mu.Lock()
			closed := t.port != p
			if !closed {
				t.port = nil
			}
			t.mu.Unlock()
			if closed {
				return
			}
			_ = p.Close()
			t.sink.PostEvent(engine.Disconnected)
			return
		}
	}
}

// SetTimeout implements engine.Platform using a generation counter so a
// timer that has been superseded by a later SetTimeout/ClearTimeout call
// can never deliver a stale Timeout event, a race Go's time.Timer does not
// prevent on its own.
func (t *Transport) SetTimeout(d time.Duration) {
	t.timerMu.Lock()
	t.timerGen++
	gen := t.timerGen
	t.timerMu.Unlock()

	time.AfterFunc(d, func() {
		t.timerMu.Lock()
		current := t.timerGen == gen
		t.timerMu.Unlock()
		if current {
			t.sink.PostEvent(engine.Timeout)
		}
	})
}

// ClearTimeout implements engine.Platform.
func (t *Transport) ClearTimeout() {
	t.timerMu.Lock()
	t.timerGen++
	t.timerMu.Unlock()
}

// MSleep implements engine.Platform.
func (t *Transport) MSleep(d time.Duration) { time.Sleep(d) }

// Time implements engine.Platform.
func (t *Transport) Time() time.Time { return time.Now() }

// Printf implements engine.Platform.
func (t *Transport) Printf(level logx.Level, format string, args ...interface{}) {
	t.log.Printf(level, format, args...)
}

// Shutdown implements engine.Platform by closing the transport. Engine.Run
// stops on its own: the engine marks its run as done before calling this.
func (t *Transport) Shutdown() {
	t.Disconnect()
}
