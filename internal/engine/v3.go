package engine

import (
	"encoding/binary"
	"time"

	"gcfflasher/internal/logx"
)

// stV3ProgramSync sends the framed FW_UPDATE_REQUEST announcing the
// firmware size, target address, and file type, and waits for the
// bootloader's success response.
func stV3ProgramSync(e *Engine, ev Event) {
	switch ev.Kind {
	case Action:
		e.platform.MSleep(50 * time.Millisecond)
		e.platform.SetTimeout(time.Second)

		h := e.file.Header
		cmd := make([]byte, 15)
		cmd[0] = btlMagic
		cmd[1] = btlFWUpdateRequest
		binary.LittleEndian.PutUint32(cmd[2:6], uint32(len(e.file.Payload)))
		binary.LittleEndian.PutUint32(cmd[6:10], h.TargetAddress)
		cmd[10] = h.FileType
		copy(cmd[11:15], []byte{0xAA, 0xAA, 0xAA, 0xAA}) // crc32 todo

		_ = e.sendFramed(cmd)

	case RxBootloaderPacket:
		if len(ev.Data) >= 3 && ev.Data[1] == btlFWUpdateResponse && ev.Data[2] == 0x00 {
			e.platform.SetTimeout(time.Second)
			e.setState(stV3ProgramUpload, "v3-upload")
		}

	case Timeout:
		e.retryOrFail(&ProtocolTimeout{State: e.stateName})
	}
}

// stV3ProgramUpload answers the bootloader's FW_DATA_REQUEST chunks with the
// requested slice of the firmware payload until the transfer completes.
func stV3ProgramUpload(e *Engine, ev Event) {
	switch ev.Kind {
	case RxBootloaderPacket:
		if len(ev.Data) != 8 || ev.Data[1] != btlFWDataRequest {
			return
		}
		e.platform.SetTimeout(5 * time.Second)

		offset := binary.LittleEndian.Uint32(ev.Data[2:6])
		length := binary.LittleEndian.Uint16(ev.Data[6:8])

		e.platform.Printf(logx.Debug, "BTL data request, offset: 0x%08X, length: %d\n", offset, length)

		payload := e.file.Payload
		var status byte
		switch {
		case uint64(offset) >= uint64(len(payload)):
			status = 1
		case length > 480:
			status = 2
		case length == 0:
			status = 3
		}

		buf := make([]byte, 0, 10+int(length))
		buf = append(buf, btlMagic, btlFWDataResponse, status)
		var offBuf [4]byte
		binary.LittleEndian.PutUint32(offBuf[:], offset)
		buf = append(buf, offBuf[:]...)

		n := int(length)
		if status == 0 {
			remaining := len(payload) - int(offset)
			if n > remaining {
				n = remaining
			}
		}
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(n))
		buf = append(buf, lenBuf[:]...)
		if status == 0 {
			buf = append(buf, payload[int(offset):int(offset)+n]...)
		} else {
			e.platform.Printf(logx.Debug, "failed to handle data request, status: %d\n", status)
		}

		_ = e.sendFramed(buf)

		if status == 0 && int(offset)+n >= len(payload) {
			e.platform.Printf(logx.Success, "firmware successfully written\n")
			e.shutdown()
		}

	case Timeout:
		e.retryOrFail(&ProtocolTimeout{State: e.stateName})
	}
}
