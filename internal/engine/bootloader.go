package engine

import (
	"encoding/binary"
	"strings"
	"time"

	"gcfflasher/internal/logx"
)

// stBootloaderConnect opens the connection to the now-reset device and
// hands off into bootloader dialect detection. Connect failures retry on a
// short poll as long as the deadline allows: right after a reset the
// device's USB/serial enumeration can take a moment to reappear.
func stBootloaderConnect(e *Engine, ev Event) {
	if ev.Kind != Timeout && ev.Kind != Action {
		return
	}
	if err := e.platform.Connect(e.devPath); err == nil {
		e.setState(stBootloaderQuery, "bootloader-query")
		e.dispatch(Event{Kind: Action})
		return
	}
	if !e.deadline.After(e.platform.Time()) {
		e.retryOrFail(&TransportError{Op: "connect bootloader", Err: errConnectFailed})
		return
	}
	e.platform.SetTimeout(500 * time.Millisecond)
	e.platform.Printf(logx.Debug, "retry connect bootloader %s\n", e.devPath)
}

// stBootloaderQuery determines whether the attached bootloader is the V1
// ASCII dialect or the V3 framed dialect. ConBee I and RaspBee I announce
// themselves unprompted; ConBee II needs an explicit "ID" query.
func stBootloaderQuery(e *Engine, ev Event) {
	switch ev.Kind {
	case Action:
		e.retry = 0
		e.ascii = e.ascii[:0]
		e.platform.SetTimeout(200 * time.Millisecond)

	case Timeout:
		e.retry++
		if e.retry == 3 {
			e.retryOrFail(&ProtocolTimeout{State: e.stateName})
			return
		}
		e.platform.Printf(logx.Debug, "query bootloader id\n")
		_ = e.platform.Write([]byte("ID"))
		e.platform.SetTimeout(200 * time.Millisecond)

	case RxASCII:
		if len(e.ascii) > 52 && e.ascii[len(e.ascii)-1] == '\n' && strings.Contains(string(e.ascii), "Bootloader") {
			e.platform.ClearTimeout()
			e.platform.Printf(logx.Debug, "bootloader detected (%d)\n", len(e.ascii))
			e.setState(stV1ProgramSync, "v1-sync")
			e.dispatch(Event{Kind: Action})
		}

	case RxBootloaderPacket:
		if len(ev.Data) >= 10 && ev.Data[1] == btlIDResponse {
			btlVersion := binary.LittleEndian.Uint32(ev.Data[2:6])
			appCRC := binary.LittleEndian.Uint32(ev.Data[6:10])
			e.platform.Printf(logx.Debug, "bootloader version 0x%08X, app crc 0x%08X\n", btlVersion, appCRC)
			e.setState(stV3ProgramSync, "v3-sync")
			e.dispatch(Event{Kind: Action})
		}

	case Disconnected:
		e.retryOrFail(&TransportError{Op: "bootloader query", Err: errDisconnected})
	}
}
