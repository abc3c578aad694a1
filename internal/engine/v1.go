package engine

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"gcfflasher/internal/logx"
)

// stV1ProgramSync writes the bootloader's sync sequence and waits for its
// "READY" ASCII banner.
func stV1ProgramSync(e *Engine, ev Event) {
	switch ev.Kind {
	case Action:
		e.ascii = e.ascii[:0]
		_ = e.platform.Write([]byte{0x1A, 0x1C, 0xA9, 0xAE})
		e.platform.SetTimeout(500 * time.Millisecond)

	case RxASCII:
		if len(e.ascii) > 4 && strings.Contains(string(e.ascii), "READY") {
			e.platform.ClearTimeout()
			e.platform.Printf(logx.Debug, "bootloader synced: %s\n", e.ascii)
			e.setState(stV1ProgramWriteHeader, "v1-write-header")
			e.dispatch(Event{Kind: Action})
		} else {
			e.platform.SetTimeout(10 * time.Millisecond)
		}

	case Timeout:
		e.platform.Printf(logx.Debug, "failed to sync bootloader (%d) %s\n", len(e.ascii), e.ascii)
		e.retryOrFail(&ProtocolTimeout{State: e.stateName})
	}
}

// stV1ProgramWriteHeader sends the file size/target/type/crc header that
// precedes the page-pull upload: the container header minus its magic.
func stV1ProgramWriteHeader(e *Engine, ev Event) {
	if ev.Kind != Action {
		return
	}
	e.ascii = e.ascii[:0]

	h := e.file.Header
	buf := make([]byte, 0, 10)
	var size, target [4]byte
	binary.LittleEndian.PutUint32(size[:], uint32(len(e.file.Payload)))
	binary.LittleEndian.PutUint32(target[:], h.TargetAddress)
	buf = append(buf, size[:]...)
	buf = append(buf, target[:]...)
	buf = append(buf, h.FileType, h.CRC)

	e.setState(stV1ProgramUpload, "v1-upload")
	_ = e.platform.Write(buf)
	e.platform.SetTimeout(time.Second)
}

// stV1ProgramUpload answers the bootloader's "GET" page-pull requests with
// 256-byte pages until the firmware is fully sent, then waits for it to
// validate its own CRC.
func stV1ProgramUpload(e *Engine, ev Event) {
	switch ev.Kind {
	case RxASCII:
		if len(e.ascii) < 6 || e.ascii[0] != 'G' || e.ascii[5] != ';' {
			return
		}
		pageNumber := int(e.ascii[4])<<8 | int(e.ascii[3])

		payload := e.file.Payload
		start := pageNumber * v1PageSize
		if start >= len(payload) {
			e.retryOrFail(&ProtocolMismatch{State: e.stateName, Detail: fmt.Sprintf("page %d out of range", pageNumber)})
			return
		}
		end := start + v1PageSize
		if end > len(payload) {
			end = len(payload)
		}
		page := payload[start:end]

		if pageNumber%20 == 0 || len(page) < v1PageSize {
			e.platform.Printf(logx.Debug, "GET 0x%04X (page %d)\n", pageNumber, pageNumber)
		}

		e.ascii = e.ascii[:0]
		_ = e.platform.Write(page)

		if end == len(payload) {
			e.setState(stV1ProgramValidate, "v1-validate")
			e.platform.Printf(logx.Debug, "done, wait validation...\n")
			e.platform.SetTimeout(25600 * time.Millisecond)
		} else {
			e.platform.SetTimeout(2 * time.Second)
		}

	case Timeout:
		e.retryOrFail(&ProtocolTimeout{State: e.stateName})
	}
}

// stV1ProgramValidate waits for the bootloader's "#VALID CRC" confirmation
// that the uploaded firmware passed its self-check.
func stV1ProgramValidate(e *Engine, ev Event) {
	switch ev.Kind {
	case RxASCII:
		e.platform.Printf(logx.Debug, "VLD %s (%d)\n", e.ascii, len(e.ascii))
		if len(e.ascii) > 6 && strings.Contains(string(e.ascii), "#VALID CRC") {
			e.platform.Printf(logx.Success, "firmware successfully written\n")
			e.shutdown()
		} else {
			e.platform.SetTimeout(time.Second)
		}

	case Timeout:
		e.retryOrFail(&ProtocolTimeout{State: e.stateName})
	}
}
