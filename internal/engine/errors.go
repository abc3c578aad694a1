package engine

import (
	"errors"
	"fmt"
)

// errDisconnected is the cause wrapped by TransportError when the transport
// reports an unexpected disconnect rather than a local write/open failure.
var errDisconnected = errors.New("device disconnected")

// errConnectFailed is the cause wrapped by TransportError when the serial
// port could not be opened before the retry deadline elapsed.
var errConnectFailed = errors.New("cannot open device")

// CLIError reports a malformed or contradictory command line.
type CLIError struct {
	Msg string
}

func (e *CLIError) Error() string { return "cli: " + e.Msg }

// FileError wraps a failure reading or parsing a GCF firmware file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("file %s: %v", e.Path, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// TransportError wraps a failure opening, reading, or writing the serial
// transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolTimeout reports that a state handler's armed timer fired before
// the expected response arrived.
type ProtocolTimeout struct {
	State string
}

func (e *ProtocolTimeout) Error() string { return fmt.Sprintf("protocol timeout in state %s", e.State) }

// ProtocolMismatch reports that a received packet did not match what the
// current state handler expected (wrong opcode, bad length, ...).
type ProtocolMismatch struct {
	State  string
	Detail string
}

func (e *ProtocolMismatch) Error() string {
	return fmt.Sprintf("protocol mismatch in state %s: %s", e.State, e.Detail)
}

// DeadlineExceeded reports that the global retry deadline elapsed before the
// task completed.
type DeadlineExceeded struct{}

func (e *DeadlineExceeded) Error() string { return "retry deadline exceeded" }
