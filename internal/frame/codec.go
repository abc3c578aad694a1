// Package frame implements the bootloader V3 byte-stuffed serial framing:
// a trailing CRC16, flag-delimited, escape-stuffed wire format, in the
// style of PPP/HDLC framing.
package frame

const (
	// Flag delimits the start and end of a frame.
	Flag = 0x7E
	// Escape introduces a stuffed byte.
	Escape = 0x7D
	// XorMask is XORed into a byte following Escape to recover its original value.
	XorMask = 0x20
)

// needsEscape reports whether b must be byte-stuffed on the wire.
func needsEscape(b byte) bool {
	return b == Flag || b == Escape
}

// Encode appends the CRC16 of payload and returns a flag-delimited,
// byte-stuffed frame ready to write to the serial port.
func Encode(payload []byte) []byte {
	crc := CRC16(payload)

	raw := make([]byte, 0, len(payload)+2)
	raw = append(raw, payload...)
	raw = append(raw, byte(crc&0xFF), byte(crc>>8))

	out := make([]byte, 0, len(raw)+4)
	out = append(out, Flag)
	for _, b := range raw {
		if needsEscape(b) {
			out = append(out, Escape, b^XorMask)
		} else {
			out = append(out, b)
		}
	}
	out = append(out, Flag)
	return out
}

// CRC16 computes the CRC-16/CCITT-FALSE checksum (poly 0x1021, init 0xFFFF)
// of data, computed bit-at-a-time, most significant bit first (non-reflected).
func CRC16(data []byte) uint16 {
	var crc uint16 = 0xFFFF
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
