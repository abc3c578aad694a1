package engine

// Kind is the closed set of events the engine's state handlers react to.
type Kind int

const (
	Action Kind = iota
	Timeout
	Started
	RxASCII
	RxBootloaderPacket
	Disconnected
	UartResetSuccess
	UartResetFailed
	FtdiResetSuccess
	FtdiResetFailed
	RaspBeeResetSuccess
	RaspBeeResetFailed
	PkgUartReset
)

// Event is a single item dispatched through the engine's event channel.
// Data carries the raw bytes of a received chunk and the payload of an
// RxBootloaderPacket; it is nil otherwise, including the RxASCII event a
// state handler sees, whose text is in the engine's ASCII buffer.
type Event struct {
	Kind Kind
	Data []byte
}

// Task is the top-level command the user asked for on the CLI.
type Task int

const (
	TaskNone Task = iota
	TaskReset
	TaskProgram
	TaskList
	TaskConnect
	TaskHelp
)

// String implements fmt.Stringer.
func (t Task) String() string {
	switch t {
	case TaskReset:
		return "reset"
	case TaskProgram:
		return "program"
	case TaskList:
		return "list"
	case TaskConnect:
		return "connect"
	case TaskHelp:
		return "help"
	default:
		return "none"
	}
}
