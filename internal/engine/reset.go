package engine

import (
	"time"

	"gcfflasher/internal/logx"
)

// stReset drives the reset fallback chain: in-band UART reset first, then
// (depending on device kind) an FTDI or GPIO hardware reset, then a final
// "pretend it worked" fallback. It fans events it doesn't claim itself down
// to e.substate.
func stReset(e *Engine, ev Event) {
	switch ev.Kind {
	case Action:
		e.substate = stResetUart
		e.substate(e, Event{Kind: Action})

	case UartResetSuccess, FtdiResetSuccess, RaspBeeResetSuccess:
		e.substate = stVoid
		switch e.task {
		case TaskReset:
			e.shutdown()
		case TaskProgram:
			e.setState(stBootloaderConnect, "bootloader-connect")
		}

	case UartResetFailed:
		switch e.devKind {
		case ConBee1:
			e.substate = stResetFtdi
			e.substate(e, Event{Kind: Action})
		case RaspBee1, RaspBee2:
			e.substate = stResetRaspBee
			e.substate(e, Event{Kind: Action})
		default:
			e.platform.Printf(logx.Debug, "reset not supported for this device, assuming it already is in bootloader\n")
			e.platform.SetTimeout(500 * time.Millisecond)
			e.dispatch(Event{Kind: UartResetSuccess})
		}

	case FtdiResetFailed:
		e.platform.SetTimeout(time.Millisecond)
		e.dispatch(Event{Kind: FtdiResetSuccess})

	case RaspBeeResetFailed:
		e.platform.SetTimeout(time.Millisecond)
		e.dispatch(Event{Kind: RaspBeeResetSuccess})

	default:
		e.substate(e, ev)
	}
}

// stResetUart connects to the device, queries its firmware version, and
// requests an in-band reset by writing a 2 second watchdog parameter. A
// disconnect before the timeout fires means the watchdog did its job.
func stResetUart(e *Engine, ev Event) {
	switch ev.Kind {
	case Action:
		e.platform.SetTimeout(3 * time.Second)
		if err := e.platform.Connect(e.devPath); err == nil {
			_ = e.sendFramed(cmdQueryFirmwareVersion())
			_ = e.sendFramed(cmdResetUart())
		}
	case Disconnected:
		e.platform.ClearTimeout()
		e.platform.SetTimeout(500 * time.Millisecond)
		e.dispatch(Event{Kind: UartResetSuccess})
	case PkgUartReset:
		e.platform.Printf(logx.Info, "command reset done\n")
	case Timeout:
		e.platform.Printf(logx.Info, "command reset timeout\n")
		e.substate = stVoid
		e.platform.Disconnect()
		e.dispatch(Event{Kind: UartResetFailed})
	}
}

// stResetFtdi applies only to ConBee I, bit-banging its FTDI chip.
func stResetFtdi(e *Engine, ev Event) {
	if ev.Kind != Action {
		return
	}
	if err := e.platform.ResetFTDI(); err == nil {
		e.platform.Printf(logx.Debug, "FTDI reset done\n")
		e.platform.SetTimeout(time.Millisecond)
		e.dispatch(Event{Kind: FtdiResetSuccess})
	} else {
		e.platform.Printf(logx.Info, "FTDI reset failed: %v\n", err)
		e.dispatch(Event{Kind: FtdiResetFailed})
	}
}

// stResetRaspBee applies only to RaspBee I & II, toggling a GPIO reset line.
func stResetRaspBee(e *Engine, ev Event) {
	if ev.Kind != Action {
		return
	}
	if err := e.platform.ResetGPIO(); err == nil {
		e.platform.Printf(logx.Debug, "RaspBee reset done\n")
		e.platform.SetTimeout(time.Millisecond)
		e.dispatch(Event{Kind: RaspBeeResetSuccess})
	} else {
		e.platform.Printf(logx.Info, "RaspBee reset failed: %v\n", err)
		e.dispatch(Event{Kind: RaspBeeResetFailed})
	}
}

// cmdResetUart builds the write-parameter request that sets a 2 second
// watchdog timeout; the running firmware reboots itself into the
// bootloader when it expires.
func cmdResetUart() []byte {
	return []byte{
		0x0B,       // command: write parameter
		0x03,       // seq
		0x00,       // status
		0x0C, 0x00, // frame length (12)
		0x05, 0x00, // buffer length (5)
		paramWatchdogTimeout,
		0x02, 0x00, 0x00, 0x00, // value: 2 (seconds)
	}
}

// cmdQueryFirmwareVersion builds the query-firmware-version request.
func cmdQueryFirmwareVersion() []byte {
	return []byte{
		0x0D,       // command: query firmware version
		0x05,       // seq
		0x00,       // status
		0x09, 0x00, // frame length (9)
		0x00, 0x00, 0x00, 0x00,
	}
}

// cmdQueryStatus builds the query-status request used by the -c diagnostic
// loop.
func cmdQueryStatus() []byte {
	return []byte{
		0x07,       // command: query status
		0x02,       // seq
		0x00,       // status
		0x08, 0x00, // frame length (8)
		0x00, 0x00, 0x00,
	}
}
