package engine

import "gcfflasher/internal/logx"

// stVoid is the empty state: it ignores every event. Used as the initial
// substate and as a parked substate once a reset sub-sequence completes.
func stVoid(e *Engine, ev Event) {}

// stInit is the entry state: on Started (or a retry's Timeout) it dispatches
// straight into the task the CLI selected.
func stInit(e *Engine, ev Event) {
	if ev.Kind != Started && ev.Kind != Timeout {
		return
	}

	switch e.task {
	case TaskList:
		e.setState(stListDevices, "list-devices")
	case TaskConnect:
		e.setState(stConnect, "connect")
	case TaskReset:
		e.setState(stReset, "reset")
	case TaskProgram:
		e.setState(stProgram, "program")
	default:
		e.shutdown()
		return
	}
	e.dispatch(Event{Kind: Action})
}

// stListDevices enumerates and prints attached candidate devices, then shuts
// down: "list" is a one-shot diagnostic task with no further state.
func stListDevices(e *Engine, ev Event) {
	if ev.Kind != Action {
		return
	}
	devices, err := e.platform.EnumerateDevices()
	if err != nil {
		e.platform.Printf(logx.Warning, "failed to enumerate devices: %v\n", err)
		e.shutdown()
		return
	}
	e.platform.Printf(logx.Info, "%d devices found\n", len(devices))
	for i, d := range devices {
		e.platform.Printf(logx.Info, "DEV [%d]: name: %s, serial: %s, path: %s --> %s\n", i, d.Name, d.Serial, d.Path, d.StablePath)
	}
	e.shutdown()
}

// stProgram is the TaskProgram entry point: it hands off into the reset
// sequencer, which, now knowing the task is TaskProgram, transitions
// straight into the bootloader connect/query sequence on success.
func stProgram(e *Engine, ev Event) {
	if ev.Kind != Action {
		return
	}
	e.platform.Printf(logx.Debug, "flash firmware\n")
	e.setState(stReset, "reset")
	e.dispatch(ev)
}
