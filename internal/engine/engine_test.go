package engine

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"gcfflasher/internal/frame"
	"gcfflasher/internal/gcf"
	"gcfflasher/internal/logx"
)

// fakePlatform is a scripted engine.Platform used to drive state handlers
// directly in tests, without real serial I/O or timers.
type fakePlatform struct {
	sink EventSink

	connected   bool
	connectErr  error
	writes      [][]byte
	timeouts    []time.Duration
	ftdiErr     error
	gpioErr     error
	now         time.Time
	shutdownHit bool
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{now: time.Unix(0, 0)}
}

func (p *fakePlatform) Bind(sink EventSink)        { p.sink = sink }
func (p *fakePlatform) Connect(devPath string) error {
	if p.connectErr != nil {
		return p.connectErr
	}
	p.connected = true
	return nil
}
func (p *fakePlatform) Disconnect()      { p.connected = false }
func (p *fakePlatform) Write(data []byte) error {
	cp := append([]byte(nil), data...)
	p.writes = append(p.writes, cp)
	return nil
}
func (p *fakePlatform) SetTimeout(d time.Duration)                        { p.timeouts = append(p.timeouts, d) }
func (p *fakePlatform) ClearTimeout()                                     {}
func (p *fakePlatform) MSleep(d time.Duration)                            {}
func (p *fakePlatform) Time() time.Time                                   { return p.now }
func (p *fakePlatform) ResetFTDI() error                                  { return p.ftdiErr }
func (p *fakePlatform) ResetGPIO() error                                  { return p.gpioErr }
func (p *fakePlatform) EnumerateDevices() ([]DeviceInfo, error)           { return nil, nil }
func (p *fakePlatform) Printf(level logx.Level, format string, args ...interface{}) {}
func (p *fakePlatform) Shutdown()                                         { p.shutdownHit = true }

func testFile(t *testing.T, payload []byte) *gcf.File {
	t.Helper()
	return &gcf.File{
		Name:      "fw_0x26720700.gcf",
		FWVersion: 0x26720700,
		Header:    gcf.Header{FileType: 0, TargetAddress: 0, PayloadSize: uint32(len(payload)), CRC: 0xAB},
		Payload:   payload,
	}
}

func newTestEngine(t *testing.T, task Task, devPath string, payload []byte) (*Engine, *fakePlatform) {
	t.Helper()
	p := newFakePlatform()
	e := New(p, task, devPath, testFile(t, payload), time.Minute)
	return e, p
}

func TestResetFallbackToFtdiForConBee1(t *testing.T) {
	e, p := newTestEngine(t, TaskReset, "/dev/ttyUSB0", nil)
	if e.devKind != ConBee1 {
		t.Fatalf("devKind = %v, want ConBee1", e.devKind)
	}

	e.setState(stReset, "reset")
	e.dispatch(Event{Kind: Action})
	// stResetUart.Action connected and sent the two framed commands.
	if !p.connected {
		t.Fatalf("expected platform to be connected")
	}
	if len(p.writes) != 2 {
		t.Fatalf("expected 2 framed writes (query version + reset), got %d", len(p.writes))
	}

	// Simulate the UART reset command timing out (no watchdog fired yet):
	// stReset falls back to the FTDI reset substate for ConBee1, which in
	// this fake succeeds immediately and, for TaskReset, shuts down.
	e.dispatch(Event{Kind: Timeout})
	if !p.shutdownHit {
		t.Fatalf("expected TaskReset to shut down after the FTDI fallback succeeded")
	}
}

func TestResetPretendsSuccessForUnknownDevice(t *testing.T) {
	e, p := newTestEngine(t, TaskReset, "/dev/nonsense", nil)
	if e.devKind != Unknown {
		t.Fatalf("devKind = %v, want Unknown", e.devKind)
	}

	e.setState(stReset, "reset")
	e.dispatch(Event{Kind: Action})
	e.dispatch(Event{Kind: Timeout})

	if !p.shutdownHit {
		t.Fatalf("expected unknown device fallback to still report reset success and shut down")
	}
}

func TestV1ProgramUploadServesRequestedPage(t *testing.T) {
	payload := make([]byte, v1PageSize+10)
	for i := range payload {
		payload[i] = byte(i)
	}
	e, p := newTestEngine(t, TaskProgram, "/dev/ttyUSB0", payload)
	e.setState(stV1ProgramUpload, "v1-upload")

	e.ascii = []byte{'G', 'E', 'T', 0x00, 0x00, ';'}
	e.dispatch(Event{Kind: RxASCII})

	if len(p.writes) != 1 {
		t.Fatalf("expected one page write, got %d", len(p.writes))
	}
	if len(p.writes[0]) != v1PageSize {
		t.Fatalf("page write len = %d, want %d", len(p.writes[0]), v1PageSize)
	}
	if p.writes[0][0] != payload[0] {
		t.Fatalf("page write did not start at payload offset 0")
	}
}

func TestV1ProgramUploadFinalPageTransitionsToValidate(t *testing.T) {
	payload := make([]byte, 10)
	e, _ := newTestEngine(t, TaskProgram, "/dev/ttyUSB0", payload)
	e.setState(stV1ProgramUpload, "v1-upload")

	e.ascii = []byte{'G', 'E', 'T', 0x00, 0x00, ';'}
	e.dispatch(Event{Kind: RxASCII})

	if e.stateName != "v1-validate" {
		t.Fatalf("stateName = %q, want v1-validate", e.stateName)
	}
}

func TestV3ProgramUploadRespondsToDataRequest(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	e, p := newTestEngine(t, TaskProgram, "/dev/ttyACM0", payload)
	e.setState(stV3ProgramUpload, "v3-upload")

	req := make([]byte, 8)
	req[0] = btlMagic
	req[1] = btlFWDataRequest
	// offset=0, length=4
	req[2], req[3], req[4], req[5] = 0, 0, 0, 0
	req[6], req[7] = 4, 0

	e.dispatch(Event{Kind: RxBootloaderPacket, Data: req})

	if len(p.writes) != 1 {
		t.Fatalf("expected one framed response write, got %d", len(p.writes))
	}

	var got []byte
	dec := frame.NewDecoder()
	dec.Feed(p.writes[0], func(payload []byte) { got = payload })
	if got == nil {
		t.Fatalf("response did not decode as a valid frame")
	}
	if got[0] != btlMagic || got[1] != btlFWDataResponse || got[2] != 0 {
		t.Fatalf("unexpected response header: % x", got[:3])
	}
	if string(got[9:]) != string(payload[0:4]) {
		t.Fatalf("response payload = % x, want % x", got[9:], payload[0:4])
	}
}

func TestBootloaderQueryClassifiesV1(t *testing.T) {
	e, p := newTestEngine(t, TaskProgram, "/dev/ttyUSB0", []byte{1, 2, 3})
	e.setState(stBootloaderQuery, "bootloader-query")

	banner := make([]byte, 0, 64)
	banner = append(banner, []byte("deCONZ Bootloader V1.10 ")...)
	for len(banner) < 52 {
		banner = append(banner, 'x')
	}
	banner = append(banner, '\n')
	e.ascii = banner
	e.dispatch(Event{Kind: RxASCII})

	if e.stateName != "v1-sync" {
		t.Fatalf("stateName = %q, want v1-sync", e.stateName)
	}
	// entering v1-sync writes the 4-byte sync sequence
	last := p.writes[len(p.writes)-1]
	if !bytes.Equal(last, []byte{0x1A, 0x1C, 0xA9, 0xAE}) {
		t.Fatalf("sync write = % x", last)
	}
}

func TestBootloaderQueryClassifiesV3(t *testing.T) {
	e, p := newTestEngine(t, TaskProgram, "/dev/ttyACM0", []byte{1, 2, 3})
	e.setState(stBootloaderQuery, "bootloader-query")

	pkt := make([]byte, 10)
	pkt[0] = btlMagic
	pkt[1] = btlIDResponse
	e.dispatch(Event{Kind: RxBootloaderPacket, Data: pkt})

	if e.stateName != "v3-sync" {
		t.Fatalf("stateName = %q, want v3-sync", e.stateName)
	}
	// entering v3-sync emits the framed FW_UPDATE_REQUEST
	var req []byte
	dec := frame.NewDecoder()
	dec.Feed(p.writes[len(p.writes)-1], func(payload []byte) { req = append([]byte(nil), payload...) })
	if req == nil {
		t.Fatalf("FW_UPDATE_REQUEST did not decode as a valid frame")
	}
	if len(req) != 15 {
		t.Fatalf("FW_UPDATE_REQUEST length = %d, want 15", len(req))
	}
	if req[0] != btlMagic || req[1] != btlFWUpdateRequest {
		t.Fatalf("unexpected request header: % x", req[:2])
	}
	if size := binary.LittleEndian.Uint32(req[2:6]); size != 3 {
		t.Fatalf("request size = %d, want 3", size)
	}
	if !bytes.Equal(req[11:15], []byte{0xAA, 0xAA, 0xAA, 0xAA}) {
		t.Fatalf("crc placeholder = % x, want AA AA AA AA", req[11:15])
	}
}

func TestV3ProgramUploadRejectsOutOfRangeOffset(t *testing.T) {
	payload := []byte{1, 2, 3, 4}
	e, p := newTestEngine(t, TaskProgram, "/dev/ttyACM0", payload)
	e.setState(stV3ProgramUpload, "v3-upload")

	req := make([]byte, 8)
	req[0] = btlMagic
	req[1] = btlFWDataRequest
	binary.LittleEndian.PutUint32(req[2:6], 100) // past the payload
	binary.LittleEndian.PutUint16(req[6:8], 4)
	e.dispatch(Event{Kind: RxBootloaderPacket, Data: req})

	var resp []byte
	dec := frame.NewDecoder()
	dec.Feed(p.writes[0], func(payload []byte) { resp = append([]byte(nil), payload...) })
	if resp == nil {
		t.Fatalf("response did not decode as a valid frame")
	}
	if resp[2] != 1 {
		t.Fatalf("status = %d, want 1", resp[2])
	}
	if got := binary.LittleEndian.Uint16(resp[7:9]); got != 4 {
		t.Fatalf("echoed length = %d, want 4", got)
	}
	if len(resp) != 9 {
		t.Fatalf("error response carries payload bytes: % x", resp)
	}
	if p.shutdownHit {
		t.Fatalf("error response must not complete the transfer")
	}
}

func TestV3ProgramUploadClampsFinalChunk(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6}
	e, p := newTestEngine(t, TaskProgram, "/dev/ttyACM0", payload)
	e.setState(stV3ProgramUpload, "v3-upload")

	req := make([]byte, 8)
	req[0] = btlMagic
	req[1] = btlFWDataRequest
	binary.LittleEndian.PutUint32(req[2:6], 4)
	binary.LittleEndian.PutUint16(req[6:8], 16) // only 2 bytes remain
	e.dispatch(Event{Kind: RxBootloaderPacket, Data: req})

	var resp []byte
	dec := frame.NewDecoder()
	dec.Feed(p.writes[0], func(payload []byte) { resp = append([]byte(nil), payload...) })
	if resp == nil {
		t.Fatalf("response did not decode as a valid frame")
	}
	if resp[2] != 0 {
		t.Fatalf("status = %d, want 0", resp[2])
	}
	if got := binary.LittleEndian.Uint16(resp[7:9]); got != 2 {
		t.Fatalf("clamped length = %d, want 2", got)
	}
	if !bytes.Equal(resp[9:], payload[4:]) {
		t.Fatalf("chunk = % x, want % x", resp[9:], payload[4:])
	}
	if !p.shutdownHit {
		t.Fatalf("serving the final chunk should complete the transfer")
	}
}

func TestBootloaderConnectGivesUpPastDeadline(t *testing.T) {
	e, p := newTestEngine(t, TaskProgram, "/dev/ttyACM0", []byte{1})
	p.connectErr = errConnectFailed
	e.setState(stBootloaderConnect, "bootloader-connect")

	e.dispatch(Event{Kind: Action})
	if p.shutdownHit {
		t.Fatalf("should keep polling while deadline remains")
	}
	if len(p.timeouts) == 0 || p.timeouts[len(p.timeouts)-1] != 500*time.Millisecond {
		t.Fatalf("expected a 500ms reconnect poll, got %v", p.timeouts)
	}

	p.now = p.now.Add(2 * time.Minute)
	e.dispatch(Event{Kind: Timeout})
	if !p.shutdownHit {
		t.Fatalf("expected shutdown once the deadline elapsed")
	}
	if _, ok := e.err.(*DeadlineExceeded); !ok {
		t.Fatalf("err = %v, want *DeadlineExceeded", e.err)
	}
}

func TestRetryOrFailRespectsDeadline(t *testing.T) {
	e, p := newTestEngine(t, TaskProgram, "/dev/ttyACM0", nil)
	p.now = time.Unix(0, 0)
	e.deadline = p.now.Add(time.Second)

	e.retryOrFail(&ProtocolTimeout{State: e.stateName})
	if p.shutdownHit {
		t.Fatalf("should have retried, not shut down, while deadline remains")
	}
	if e.stateName != "init" {
		t.Fatalf("stateName = %q, want init after retry", e.stateName)
	}

	p.now = p.now.Add(2 * time.Second)
	e.retryOrFail(&ProtocolTimeout{State: e.stateName})
	if !p.shutdownHit {
		t.Fatalf("expected shutdown once deadline elapsed")
	}
	if _, ok := e.err.(*DeadlineExceeded); !ok {
		t.Fatalf("err = %v, want *DeadlineExceeded", e.err)
	}
}
