package engine

import (
	"time"

	"gcfflasher/internal/logx"
)

// stConnect is the -c diagnostic entry point: connect, then poll status.
func stConnect(e *Engine, ev Event) {
	if ev.Kind != Action {
		return
	}
	if err := e.platform.Connect(e.devPath); err == nil {
		e.setState(stConnected, "connected")
		e.platform.SetTimeout(time.Second)
	} else {
		e.setState(stInit, "init")
		e.platform.Printf(logx.Debug, "failed to connect\n")
		e.platform.SetTimeout(time.Second)
	}
}

// stConnected polls the device's status every 10 seconds and prints its
// response, returning to stConnect on disconnect to retry.
func stConnected(e *Engine, ev Event) {
	switch ev.Kind {
	case Timeout:
		_ = e.sendFramed(cmdQueryStatus())
		e.platform.SetTimeout(10 * time.Second)

	case RxBootloaderPacket:
		e.platform.Printf(logx.Info, "status: % x\n", ev.Data)

	case RxASCII:
		e.platform.Printf(logx.Info, "recv: %s\n", e.ascii)
		e.ascii = e.ascii[:0]

	case Disconnected:
		e.setState(stInit, "init")
		e.platform.SetTimeout(time.Second)
	}
}
